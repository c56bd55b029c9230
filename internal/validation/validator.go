// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

// Package validation wraps go-playground/validator v10 behind a
// thread-safe singleton. The instance caches struct metadata, so sharing
// one across handlers is both safe and fast.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// FieldError is a single failed validation with a readable message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RequestError collects every failed field for one request.
type RequestError struct {
	Fields []FieldError
}

func (e *RequestError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// ValidateStruct validates s against its validate tags. Failures come
// back as a *RequestError with one entry per failed field.
func ValidateStruct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: a programming error, not user input.
		return err
	}

	reqErr := &RequestError{}
	for _, fe := range verrs {
		reqErr.Fields = append(reqErr.Fields, FieldError{
			Field:   strings.ToLower(fe.Field()),
			Message: translate(fe),
		})
	}
	return reqErr
}

// translate renders a validator error as a client-facing message.
func translate(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
