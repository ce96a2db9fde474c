package service

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/msb-virtuoso/user-admin/internal/core/domain"
)

// DefaultEmailDomain is the corporate mail domain accepted for directory users.
const DefaultEmailDomain = "msb.com.vn"

const corpEmailTag = "corpemail"

// draftForm mirrors the user form fields that carry client-side rules.
type draftForm struct {
	UserName string `validate:"required"`
	FullName string `validate:"required"`
	Email    string `validate:"required,corpemail"`
}

// DraftValidator checks a user draft before it is sent to the directory.
type DraftValidator struct {
	v      *validator.Validate
	domain string
}

// NewDraftValidator builds a validator that only accepts addresses of the
// form <letters, digits, dot, underscore>@<emailDomain>.
func NewDraftValidator(emailDomain string) *DraftValidator {
	if emailDomain == "" {
		emailDomain = DefaultEmailDomain
	}
	pattern := CorporateEmailPattern(emailDomain)

	v := validator.New()
	_ = v.RegisterValidation(corpEmailTag, func(fl validator.FieldLevel) bool {
		return pattern.MatchString(fl.Field().String())
	})
	return &DraftValidator{v: v, domain: emailDomain}
}

// CorporateEmailPattern compiles the address pattern for emailDomain.
func CorporateEmailPattern(emailDomain string) *regexp.Regexp {
	return regexp.MustCompile(`^[A-Za-z0-9._]+@` + regexp.QuoteMeta(emailDomain) + `$`)
}

// Validate returns a *domain.ValidationError keyed by JSON field name, or nil.
func (dv *DraftValidator) Validate(d domain.Draft) error {
	err := dv.v.Struct(draftForm{UserName: d.UserName, FullName: d.FullName, Email: d.Email})
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("validate draft: %w", err)
	}
	out := domain.NewValidationError()
	for _, fe := range ve {
		field, msg := dv.describe(fe)
		out.Add(field, msg)
	}
	return out
}

func (dv *DraftValidator) describe(fe validator.FieldError) (string, string) {
	switch fe.Field() {
	case "UserName":
		return "userName", "Username is required"
	case "FullName":
		return "fullName", "Full name is required"
	case "Email":
		if fe.Tag() == "required" {
			return "email", "Email is required"
		}
		return "email", "Email must be an @" + dv.domain + " address"
	default:
		return fe.Field(), fmt.Sprintf("%s failed validation (%s)", fe.Field(), fe.Tag())
	}
}
