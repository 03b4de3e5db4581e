package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

// newValidator reports fields by their JSON names so error details match
// what the client sent.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ReadAndValidateRequest binds the body into req, applies defaults and
// validates it. It returns nil when req is usable. An empty body binds to
// the zero value.
func ReadAndValidateRequest(c echo.Context, req any) []ValidationError {
	if err := c.Bind(req); err != nil {
		return bindErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return []ValidationError{{Code: "ERR_BAD_REQUEST", Message: err.Error()}}
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return fieldErrors(err)
	}
	return nil
}

func bindErrors(err error) []ValidationError {
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	return []ValidationError{{Code: "ERR_MALFORMED_BODY", Message: msg}}
}

func fieldErrors(err error) []ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationError{{Code: "ERR_BAD_REQUEST", Message: err.Error()}}
	}
	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		ve := ValidationError{
			Code:  "ERR_" + strings.ToUpper(fe.Tag()),
			Field: fe.Field(),
		}
		switch fe.Tag() {
		case "required":
			ve.Message = fmt.Sprintf("%s is required", fe.Field())
		case "max":
			ve.Message = fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
			ve.Params = map[string]interface{}{"max": fe.Param()}
		case "printascii":
			ve.Message = fmt.Sprintf("%s must contain printable ASCII only", fe.Field())
		default:
			ve.Message = fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
		}
		out = append(out, ve)
	}
	return out
}
