// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/z5labs/restkit/concurrent"

	"github.com/go-playground/validator/v10"
)

// DefaultGroup is validated through the standard "validate" struct tag.
const DefaultGroup = "Default"

// GroupTag returns the struct tag holding the constraints of a group.
// [DefaultGroup] maps to "validate", any other group G maps to "validate_g".
func GroupTag(group string) string {
	if group == DefaultGroup {
		return "validate"
	}
	return "validate_" + strings.ToLower(group)
}

// PlaygroundOptions are configurable parameters of a [Playground] validator.
type PlaygroundOptions struct {
	custom map[string]validator.Func
}

// PlaygroundOption sets a value on [PlaygroundOptions].
type PlaygroundOption interface {
	ApplyPlaygroundOption(*PlaygroundOptions)
}

type playgroundOptionFunc func(*PlaygroundOptions)

func (f playgroundOptionFunc) ApplyPlaygroundOption(po *PlaygroundOptions) {
	f(po)
}

// CustomValidation registers a custom validation tag for every group.
func CustomValidation(tag string, fn validator.Func) PlaygroundOption {
	return playgroundOptionFunc(func(po *PlaygroundOptions) {
		po.custom[tag] = fn
	})
}

// Playground implements [Validator] on top of go-playground/validator.
// Each validation group is backed by its own struct tag, see [GroupTag].
// Property paths use json field names.
type Playground struct {
	custom     map[string]validator.Func
	validators *concurrent.Cache[string, *validator.Validate]
}

// NewPlayground initializes a [Playground] validator.
func NewPlayground(opts ...PlaygroundOption) *Playground {
	po := &PlaygroundOptions{
		custom: make(map[string]validator.Func),
	}
	for _, opt := range opts {
		opt.ApplyPlaygroundOption(po)
	}
	return &Playground{
		custom:     po.custom,
		validators: concurrent.NewCache[string, *validator.Validate](),
	}
}

// Validate implements the [Validator] interface.
func (p *Playground) Validate(entity any, groups []string) ([]ConstraintViolation, error) {
	var violations []ConstraintViolation
	seen := make(map[ConstraintViolation]struct{})
	for _, group := range groups {
		v, err := p.validators.GetOr(group, p.newValidate(group))
		if err != nil {
			return nil, err
		}

		err = v.Struct(entity)
		if err == nil {
			continue
		}

		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, err
		}
		for _, fe := range fieldErrs {
			cv := ConstraintViolation{
				PropertyPath: propertyPath(fe),
				Message:      message(fe),
			}
			if _, ok := seen[cv]; ok {
				continue
			}
			seen[cv] = struct{}{}
			violations = append(violations, cv)
		}
	}
	return violations, nil
}

func (p *Playground) newValidate(group string) func() (*validator.Validate, error) {
	return func() (*validator.Validate, error) {
		v := validator.New()
		v.SetTagName(GroupTag(group))
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		for tag, fn := range p.custom {
			err := v.RegisterValidation(tag, fn)
			if err != nil {
				return nil, err
			}
		}
		return v, nil
	}
}

// propertyPath drops the root struct name from the namespace.
func propertyPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	_, path, found := strings.Cut(ns, ".")
	if !found {
		return fe.Field()
	}
	return path
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This value should not be blank."
	case "min":
		return fmt.Sprintf("This value should be %s or more.", fe.Param())
	case "max":
		return fmt.Sprintf("This value should be %s or less.", fe.Param())
	case "len":
		return fmt.Sprintf("This value should have exactly %s characters.", fe.Param())
	case "oneof":
		return fmt.Sprintf("This value should be one of: %s.", fe.Param())
	case "email":
		return "This value is not a valid email address."
	case "url":
		return "This value is not a valid URL."
	case "ip":
		return "This is not a valid IP address."
	default:
		return fmt.Sprintf("This value is not valid (%s).", fe.Tag())
	}
}
