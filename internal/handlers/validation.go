package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// fieldErrors translates a gin binding error into per-field messages keyed
// by the request field name. Errors that are not field-level (malformed
// JSON, type mismatches) map to a single "body" entry.
func fieldErrors(err error) map[string][]string {
	out := make(map[string][]string)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["body"] = []string{err.Error()}
		return out
	}

	for _, fe := range verrs {
		field := lowerFirst(fe.Field())
		out[field] = append(out[field], messageForTag(fe))
	}
	return out
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be %s or greater", fe.Param())
	case "lte":
		return fmt.Sprintf("must be %s or less", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "url":
		return "must be a valid URL"
	case "eq":
		return fmt.Sprintf("must equal %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
