package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func staffToken(t *testing.T, issuer string, nbf, exp time.Time, withRole bool) jwt.Token {
	t.Helper()
	b := jwt.NewBuilder().
		Issuer(issuer).
		Subject("gatekeeper").
		IssuedAt(nbf).
		NotBefore(nbf).
		Expiration(exp)
	if withRole {
		b = b.Claim(roleClaim, RoleVerifier)
	}
	token, err := b.Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	return token
}

func TestTokenValidatorValidateSuccess(t *testing.T) {
	now := time.Now()
	token := staffToken(t, "parkconnect", now, now.Add(time.Minute), true)

	validator := TokenValidator{Issuer: "parkconnect", ClockSkew: time.Second, Algorithm: jwa.HS256}
	if err := validator.Validate(token, jwa.HS256, now); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestTokenValidatorIssuerMismatch(t *testing.T) {
	now := time.Now()
	token := staffToken(t, "other", now, now.Add(time.Minute), true)

	validator := TokenValidator{Issuer: "parkconnect", Algorithm: jwa.HS256}
	if err := validator.Validate(token, jwa.HS256, now); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}

func TestTokenValidatorExpiry(t *testing.T) {
	now := time.Now()
	token := staffToken(t, "parkconnect", now.Add(-2*time.Hour), now.Add(-time.Minute), true)

	validator := TokenValidator{Issuer: "parkconnect", Algorithm: jwa.HS256}
	if err := validator.Validate(token, jwa.HS256, now); err == nil {
		t.Fatal("expected expiration error")
	}
}

func TestTokenValidatorNotBefore(t *testing.T) {
	now := time.Now()
	token := staffToken(t, "parkconnect", now.Add(5*time.Minute), now.Add(10*time.Minute), true)

	validator := TokenValidator{Issuer: "parkconnect", Algorithm: jwa.HS256, ClockSkew: time.Second}
	if err := validator.Validate(token, jwa.HS256, now); err == nil {
		t.Fatal("expected not-before validation error")
	}
}

func TestTokenValidatorRequiresRole(t *testing.T) {
	now := time.Now()
	token := staffToken(t, "parkconnect", now, now.Add(time.Minute), false)

	validator := TokenValidator{Issuer: "parkconnect", Algorithm: jwa.HS256}
	if err := validator.Validate(token, jwa.HS256, now); err == nil {
		t.Fatal("expected missing role error")
	}
}

func TestTokenValidatorAlgorithmMismatch(t *testing.T) {
	now := time.Now()
	token := staffToken(t, "parkconnect", now, now.Add(time.Minute), true)

	validator := TokenValidator{Issuer: "parkconnect", Algorithm: jwa.HS256}
	if err := validator.Validate(token, jwa.HS512, now); err == nil {
		t.Fatal("expected algorithm mismatch error")
	}
}
