package services

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var actionNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("action_name", func(fl validator.FieldLevel) bool {
		return actionNamePattern.MatchString(fl.Field().String())
	})
	return v
}

// describeValidation turns validator errors into one readable line.
func describeValidation(err error) string {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "action_name":
			parts = append(parts, fmt.Sprintf("%s must match %s", fe.Field(), actionNamePattern.String()))
		case "url":
			parts = append(parts, fmt.Sprintf("%s must be an absolute URL", fe.Field()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
