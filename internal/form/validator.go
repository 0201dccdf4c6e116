package form

import (
	"errors"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	gerr "github.com/jekabolt/grbpwr-insights/internal/errors"
)

// ValidationError lists every field violation of a request.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, " ")
}

func (e *ValidationError) Unwrap() error {
	return gerr.ErrInvalidArgument
}

// ValidateStruct is validation.ValidateStruct that keeps going after the
// first failing field and returns a *ValidationError.
func ValidateStruct(structPtr interface{}, rules ...*validation.FieldRules) error {
	var violations []string

	for _, rule := range rules {
		err := validation.ValidateStruct(structPtr, rule)
		if err == nil {
			continue
		}
		var ve validation.Errors
		if !errors.As(err, &ve) {
			return err
		}
		violations = append(violations, formatErrMsg(ve.Error()))
	}
	if len(violations) == 0 {
		return nil
	}

	return &ValidationError{Violations: violations}
}

func formatErrMsg(s string) string {
	return ucfirst(strings.Trim(s, " .")) + "."
}

func ucfirst(str string) string {
	for i, v := range str {
		return string(unicode.ToUpper(v)) + str[i+1:]
	}
	return ""
}
