package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"

	apperrors "github.com/digioh-event-services/common/errors"
)

// DefaultRegion is used to parse phone numbers written without a country code
const DefaultRegion = "ID"

var (
	validate *validator.Validate
	initOnce sync.Once
	regMu    sync.Mutex
)

func instance() *validator.Validate {
	initOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return IsValidPhone(fl.Field().String())
		})
	})
	return validate
}

// RegisterEnum adds a tag accepting exactly the given values, e.g. RegisterEnum("registration_type", "rsvp", "ots")
func RegisterEnum(tag string, values ...string) {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	regMu.Lock()
	defer regMu.Unlock()
	_ = instance().RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		_, ok := allowed[fl.Field().String()]
		return ok
	})
}

// Struct validates s using its `validate` tags and returns a ValidationError
// listing every failing field, or nil.
func Struct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return apperrors.Internal("invalid validation target").WithCause(err)
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.ValidationError(err.Error())
	}

	appErr := apperrors.ValidationError(describe(verrs[0]))
	for _, fe := range verrs {
		appErr.WithField(fe.Field(), describe(fe))
	}
	return appErr
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "phone":
		return fmt.Sprintf("%s must be a valid phone number", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// IsValidEmail validates email format
func IsValidEmail(email string) bool {
	if email == "" {
		return false
	}
	return instance().Var(email, "email") == nil
}

// IsValidPhone reports whether phone parses as a valid number in DefaultRegion or with a country code
func IsValidPhone(phone string) bool {
	_, err := NormalizePhone(phone)
	return err == nil
}

// NormalizePhone parses phone and formats it as E.164.
// Unparseable or invalid numbers return an InvalidPhone AppError.
func NormalizePhone(phone string) (string, error) {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return "", apperrors.InvalidPhone()
	}
	num, err := phonenumbers.Parse(trimmed, DefaultRegion)
	if err != nil {
		return "", apperrors.InvalidPhone().WithCause(err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", apperrors.InvalidPhone()
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
