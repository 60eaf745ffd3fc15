package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// messenger lets a request type phrase its own validation failures.
type messenger interface {
	validationMessage(field string) string
}

// Validator adapts go-playground/validator to echo.
type Validator struct {
	v *validator.Validate
}

// NewValidator reports fields by their JSON names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Validate returns a 400 *echo.HTTPError for the first failing field.
func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request").SetInternal(err)
	}
	fe := fields[0]
	msg := fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	if m, ok := i.(messenger); ok {
		if custom := m.validationMessage(fe.Field()); custom != "" {
			msg = custom
		}
	}
	return echo.NewHTTPError(http.StatusBadRequest, msg).SetInternal(err)
}

// bindAndValidate decodes the body into req and validates it.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body").SetInternal(err)
	}
	return c.Validate(req)
}
