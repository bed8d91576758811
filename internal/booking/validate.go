package booking

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/noah-isme/parkconnect-api/internal/pricing"
)

// MaxVisitors caps the group size of a single booking.
const MaxVisitors = 50

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// VisitorInput is one visitor as submitted by the booking form.
type VisitorInput struct {
	Name    string `json:"name" validate:"required,notblank,max=120"`
	Country string `json:"country" validate:"required,oneof=Nepal SAARC Other"`
}

// CreateRequest is the booking form payload.
type CreateRequest struct {
	FullName         string         `json:"fullName" validate:"required,notblank,max=120"`
	Email            string         `json:"email" validate:"required,email"`
	Phone            string         `json:"phone" validate:"required,phone10"`
	DateOfVisit      string         `json:"dateOfVisit" validate:"required,datetime=2006-01-02"`
	NumberOfVisitors int            `json:"numberOfVisitors" validate:"min=1,max=50"`
	Visitors         []VisitorInput `json:"visitors" validate:"required,min=1,max=50,dive"`
}

// ValidationError lists per-field problems with a request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "booking: invalid request: " + strings.Join(parts, "; ")
}

// Validator checks booking requests against the form rules.
type Validator struct {
	v        *validator.Validate
	Location *time.Location
	Now      func() time.Time
}

// NewValidator constructs a Validator evaluating "today" in loc.
func NewValidator(loc *time.Location) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(CreateRequest)
		if len(req.Visitors) > 0 && req.NumberOfVisitors != len(req.Visitors) {
			sl.ReportError(req.NumberOfVisitors, "numberOfVisitors", "NumberOfVisitors", "eqvisitors", "")
		}
	}, CreateRequest{})
	if loc == nil {
		loc = time.UTC
	}
	return &Validator{v: v, Location: loc, Now: time.Now}
}

// Validate returns a *ValidationError when req breaks any rule.
func (val *Validator) Validate(req CreateRequest) error {
	fields := map[string]string{}
	if err := val.v.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields[fieldPath(fe)] = describe(fe)
		}
	}
	if _, bad := fields["dateOfVisit"]; !bad {
		day, err := time.ParseInLocation(DateLayout, req.DateOfVisit, val.Location)
		if err == nil && day.Before(startOfDay(val.Now().In(val.Location))) {
			fields["dateOfVisit"] = "must not be in the past"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (req CreateRequest) visitors() []Visitor {
	out := make([]Visitor, len(req.Visitors))
	for i, v := range req.Visitors {
		out[i] = Visitor{Name: strings.TrimSpace(v.Name), Country: pricing.Category(v.Country)}
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	if ns == "" {
		return fe.Field()
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "email":
		return "must be a valid email address"
	case "phone10":
		return "must be exactly 10 digits"
	case "datetime":
		return "must be a date in yyyy-MM-dd format"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "eqvisitors":
		return "must equal the number of listed visitors"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
