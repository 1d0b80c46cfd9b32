package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// requestValidator adapts go-playground/validator to echo.Validator. Field
// names in messages follow the json tags.
type requestValidator struct {
	v *validator.Validate
}

func NewValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &requestValidator{v: v}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// fieldProblems lists every failing field of one request, in struct order.
type fieldProblems []string

func (p fieldProblems) Error() string { return strings.Join(p, "; ") }

var tagMessages = map[string]string{
	"required": "%s is required",
	"notblank": "%s must not be blank",
	"max":      "%s must be at most %s long",
	"min":      "%s must have at least %s entries",
}

func (rv *requestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	problems := make(fieldProblems, 0, len(ve))
	for _, fe := range ve {
		problems = append(problems, describe(fe))
	}
	return problems
}

func describe(fe validator.FieldError) string {
	// Namespace keeps the index for dive errors, e.g. member_ids[1].
	field := fe.Field()
	if ns := fe.Namespace(); strings.Contains(ns, "[") {
		_, field, _ = strings.Cut(ns, ".")
	}
	msg, ok := tagMessages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
	if strings.Count(msg, "%s") == 2 {
		return fmt.Sprintf(msg, field, fe.Param())
	}
	return fmt.Sprintf(msg, field)
}
