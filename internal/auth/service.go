package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/parkconnect-api/internal/common"
)

const defaultAccessTTL = 8 * time.Hour

// Staff roles.
const (
	RoleAdmin    = "admin"
	RoleVerifier = "verifier"
)

const roleClaim = "role"

// Account is a configured staff login.
type Account struct {
	Username     string
	Role         string
	PasswordHash string
}

// Config configures the auth service.
type Config struct {
	Accounts       []Account
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
	ClockSkew      time.Duration
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	AccessToken  string    `json:"access_token"`
	AccessExpiry time.Time `json:"access_expires_at"`
}

// Service authenticates park staff and issues access tokens.
type Service struct {
	accounts  map[string]Account
	secret    []byte
	accessTTL time.Duration
	issuer    string
	clockSkew time.Duration
	signer    jwa.SignatureAlgorithm
	validator TokenValidator
	now       func() time.Time
}

// NewService constructs a Service. Accounts without a password hash are ignored.
func NewService(cfg Config) (*Service, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	accounts := make(map[string]Account, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		name := strings.ToLower(strings.TrimSpace(a.Username))
		if name == "" || strings.TrimSpace(a.PasswordHash) == "" {
			continue
		}
		if a.Role != RoleAdmin && a.Role != RoleVerifier {
			return nil, fmt.Errorf("auth: account %q has unknown role %q", a.Username, a.Role)
		}
		a.Username = name
		accounts[name] = a
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "parkconnect"
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}
	return &Service{
		accounts:  accounts,
		secret:    []byte(secret),
		accessTTL: accessTTL,
		issuer:    issuer,
		clockSkew: clockSkew,
		signer:    jwa.HS256,
		validator: TokenValidator{Issuer: issuer, ClockSkew: clockSkew, Algorithm: jwa.HS256},
		now:       time.Now,
	}, nil
}

// WithNow overrides the clock used for token timestamps.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func invalidCredentials() error {
	return common.NewAppError("INVALID_CREDENTIALS", "invalid username or password", http.StatusUnauthorized, nil)
}

// Login checks the password against the account's argon2id hash.
func (s *Service) Login(_ context.Context, username, password string) (LoginResult, error) {
	acct, ok := s.accounts[strings.ToLower(strings.TrimSpace(username))]
	if !ok || password == "" {
		return LoginResult{}, invalidCredentials()
	}
	match, err := argon2id.ComparePasswordAndHash(password, acct.PasswordHash)
	if err != nil {
		return LoginResult{}, fmt.Errorf("compare password hash: %w", err)
	}
	if !match {
		return LoginResult{}, invalidCredentials()
	}
	token, exp, err := s.signAccessToken(acct)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Username: acct.Username, Role: acct.Role, AccessToken: token, AccessExpiry: exp}, nil
}

// ParseAccessToken validates a token and returns the staff member it names.
func (s *Service) ParseAccessToken(token string) (common.Staff, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return common.Staff{}, common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return common.Staff{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if algorithm != s.signer {
		return common.Staff{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret), jwt.WithValidate(false))
	if err != nil {
		return common.Staff{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return common.Staff{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	raw, _ := parsed.Get(roleClaim)
	role, _ := raw.(string)
	return common.Staff{Username: parsed.Subject(), Role: role}, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) != 1 {
		return "", errors.New("auth: token must carry exactly one signature")
	}
	headers := signatures[0].ProtectedHeaders()
	if headers == nil {
		return "", errors.New("auth: token missing protected headers")
	}
	alg := headers.Algorithm()
	if alg == "" {
		return "", errors.New("auth: token missing algorithm")
	}
	if alg == jwa.NoSignature {
		return "", errors.New("auth: token uses none algorithm")
	}
	return alg, nil
}

func (s *Service) signAccessToken(acct Account) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	token, err := jwt.NewBuilder().
		Subject(acct.Username).
		Issuer(s.issuer).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Claim(roleClaim, acct.Role).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}
