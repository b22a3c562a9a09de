package v1

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// RequestValidator adapts go-playground/validator to echo.Validator.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator reports field errors by their JSON names.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i any) error {
	err := rv.validate.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return validationProblem("Input validation failed")
	}
	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, describeFieldError(fe))
	}
	return validationProblem("Input validation failed: " + strings.Join(details, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// fieldPath drops the top-level struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

// bindStrict decodes the JSON body into v, rejecting unknown fields, then validates it.
// Fields of v already set act as defaults.
func bindStrict(c echo.Context, v any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return validationProblem("Input validation failed: " + describeDecodeError(err))
	}
	return c.Validate(v)
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.Is(err, io.EOF):
		return "request body is empty"
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return "a field has the wrong type"
		}
		return fmt.Sprintf("%s has the wrong type", typeErr.Field)
	case errors.As(err, &syntaxErr):
		return "malformed JSON"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return "unexpected field " + strings.TrimPrefix(err.Error(), "json: unknown field ")
	default:
		return "malformed request body"
	}
}
