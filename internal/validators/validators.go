package validators

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"deploytracker/internal/models"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrInvalidAllowedIP = errors.New("invalid allowed IP or CIDR")
)

const (
	TagEnvironment = "environment"
	TagStatus      = "status"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Get returns the shared validator with the deployment tags registered.
func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		mustRegister(validate)
	})
	return validate
}

// RegisterGin adds the deployment tags to gin's binding validator so
// request structs can use them in `binding` tags.
func RegisterGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
	}
	return register(v)
}

// Struct validates s and reports the first failing field.
func Struct(s interface{}) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, Describe(fieldErrs[0]))
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// Describe renders a field error as a short message for API responses.
func Describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case TagEnvironment:
		return fmt.Sprintf("%s must be one of production, staging, development (got %q)", field, fe.Value())
	case TagStatus:
		return fmt.Sprintf("%s must be one of pending, success, failed (got %q)", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

// ValidateAllowedIP accepts a single IP address or a CIDR block.
func ValidateAllowedIP(entry string) error {
	if _, _, err := net.ParseCIDR(entry); err == nil {
		return nil
	}
	if net.ParseIP(entry) != nil {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidAllowedIP, entry)
}

func mustRegister(v *validator.Validate) {
	if err := register(v); err != nil {
		panic(err)
	}
}

func register(v *validator.Validate) error {
	if err := v.RegisterValidation(TagEnvironment, isEnvironment); err != nil {
		return err
	}
	return v.RegisterValidation(TagStatus, isStatus)
}

func isEnvironment(fl validator.FieldLevel) bool {
	return models.Environment(fl.Field().String()).Valid()
}

func isStatus(fl validator.FieldLevel) bool {
	return models.DeploymentStatus(fl.Field().String()).Valid()
}
