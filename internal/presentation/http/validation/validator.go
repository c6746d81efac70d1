package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator adapts go-playground/validator to echo.Validator and reports
// fields by their JSON names.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with JSON field naming.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Validate implements echo.Validator.
func (cv *Validator) Validate(i any) error {
	return cv.v.Struct(i)
}

// Messages flattens validation errors into field -> message pairs.
func Messages(errs validator.ValidationErrors) map[string]any {
	out := make(map[string]any, len(errs))
	for _, e := range errs {
		out[fieldPath(e)] = message(e)
	}
	return out
}

func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if e.Kind() == reflect.Slice {
			return "needs at least " + e.Param() + " item(s)"
		}
		return "must be at least " + e.Param()
	case "datetime":
		return "must be a date formatted " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}
