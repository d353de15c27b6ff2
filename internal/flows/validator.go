package flows

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vartikaresort/funpark-backend/internal/client"
	"github.com/vartikaresort/funpark-backend/internal/models"
	phone "github.com/vartikaresort/funpark-backend/pkg/validator"
)

// FieldError is one failed form field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FieldErrors is every failed field of a form, in declaration order
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	messages := make([]string, 0, len(e))
	for _, fe := range e {
		messages = append(messages, fe.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(e), strings.Join(messages, "; "))
}

// FormValidator checks form structs before anything is sent
type FormValidator struct {
	validate *validator.Validate
}

// NewFormValidator registers the form rules
func NewFormValidator() *FormValidator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	rules := map[string]validator.Func{
		"booking_date": layoutRule(models.DateLayout),
		"booking_time": layoutRule(models.TimeLayout),
		"otp_code":     func(fl validator.FieldLevel) bool { return models.ValidateOTPCode(fl.Field().String()) == nil },
		"password":     func(fl validator.FieldLevel) bool { return models.ValidatePassword(fl.Field().String()) == nil },
		"not_blank":    func(fl validator.FieldLevel) bool { return strings.TrimSpace(fl.Field().String()) != "" },
		"mobile":       func(fl validator.FieldLevel) bool { return phone.IsMobile(fl.Field().String()) },
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register %q validator: %v", tag, err))
		}
	}

	return &FormValidator{validate: v}
}

func layoutRule(layout string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		_, err := time.Parse(layout, fl.Field().String())
		return err == nil
	}
}

// Validate returns nil or a KindValidation *client.Error whose message is
// the first failed field and whose cause is the full FieldErrors list
func (v *FormValidator) Validate(form any) error {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &client.Error{Kind: client.KindValidation, Message: err.Error(), Err: err}
	}

	fields := translate(validationErrs)
	return &client.Error{Kind: client.KindValidation, Message: fields[0].Message, Err: fields}
}

func translate(errs validator.ValidationErrors) FieldErrors {
	fields := make(FieldErrors, 0, len(errs))
	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required", "required_if", "not_blank":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "eqfield":
			message = "passwords do not match"
		case "nefield":
			message = "new password must be different from the current password"
		case "booking_date":
			message = fmt.Sprintf("%s must be in YYYY-MM-DD format", err.Field())
		case "booking_time":
			message = fmt.Sprintf("%s must be in HH:MM format", err.Field())
		case "otp_code":
			message = "OTP must be 6 digits"
		case "password":
			message = models.ErrWeakPassword.Error()
		case "mobile":
			message = fmt.Sprintf("%s must be a Nepali mobile number", err.Field())
		}

		fields = append(fields, FieldError{Field: err.Field(), Message: message})
	}
	return fields
}

// FieldErrorsOf returns the per-field errors carried by a validation error
func FieldErrorsOf(err error) FieldErrors {
	var fields FieldErrors
	if errors.As(err, &fields) {
		return fields
	}
	return nil
}
