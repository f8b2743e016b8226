// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package validation validates mapped entities and reports failures as
// [apierror.InvalidDataError] with rewritten property paths.
package validation

import (
	"strings"
	"unicode"

	"github.com/z5labs/restkit/apierror"
)

// ConstraintViolation is a single failed constraint reported by a [Validator].
type ConstraintViolation struct {
	PropertyPath string
	Message      string
}

// Validator validates an entity against the given validation groups.
// A non-nil error means validation could not run at all.
type Validator interface {
	Validate(entity any, groups []string) ([]ConstraintViolation, error)
}

// ValidatorFunc is a func adapter for [Validator].
type ValidatorFunc func(entity any, groups []string) ([]ConstraintViolation, error)

// Validate implements the [Validator] interface.
func (f ValidatorFunc) Validate(entity any, groups []string) ([]ConstraintViolation, error) {
	return f(entity, groups)
}

// PathConverter rewrites a violation property path before it is reported.
type PathConverter interface {
	Convert(path string) string
}

// PathConverterFunc is a func adapter for [PathConverter].
type PathConverterFunc func(string) string

// Convert implements the [PathConverter] interface.
func (f PathConverterFunc) Convert(path string) string {
	return f(path)
}

// Chain applies converters in order, feeding each the previous output.
type Chain []PathConverter

// Convert implements the [PathConverter] interface.
func (c Chain) Convert(path string) string {
	for _, conv := range c {
		if conv == nil {
			continue
		}
		path = conv.Convert(path)
	}
	return path
}

// NoOp leaves paths untouched.
type NoOp struct{}

// Convert implements the [PathConverter] interface.
func (NoOp) Convert(path string) string {
	return path
}

// CamelCaseToSnakeCase rewrites paths like "address.streetName"
// into "address.street_name".
type CamelCaseToSnakeCase struct{}

// Convert implements the [PathConverter] interface.
func (CamelCaseToSnakeCase) Convert(path string) string {
	var sb strings.Builder
	sb.Grow(len(path) + 4)

	start := true
	for _, r := range path {
		if !unicode.IsUpper(r) {
			sb.WriteRune(r)
			start = r == '.' || r == '[' || r == ']'
			continue
		}
		if !start {
			sb.WriteRune('_')
		}
		sb.WriteRune(unicode.ToLower(r))
		start = false
	}
	return sb.String()
}

// PropertiesAware wraps a [Validator] and turns its violations into an
// [apierror.InvalidDataError] with converted property paths.
type PropertiesAware struct {
	validator Validator
	converter PathConverter
}

// NewPropertiesAware returns a [PropertiesAware] validator. A nil
// converter leaves paths untouched.
func NewPropertiesAware(v Validator, converter PathConverter) *PropertiesAware {
	if converter == nil {
		converter = NoOp{}
	}
	return &PropertiesAware{
		validator: v,
		converter: converter,
	}
}

// Validate returns nil when the entity is valid. Otherwise the returned
// [apierror.InvalidDataError] carries the first violation message and one
// property entry and violation per failed constraint.
func (p *PropertiesAware) Validate(entity any, groups []string) error {
	violations, err := p.validator.Validate(entity, groups)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		return nil
	}

	invalid := &apierror.InvalidDataError{
		Message: violations[0].Message,
	}
	for _, v := range violations {
		invalid.AddViolation(p.converter.Convert(v.PropertyPath), v.Message)
	}
	return invalid
}
