// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/z5labs/restkit/apierror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCamelCaseToSnakeCase_Convert(t *testing.T) {
	testCases := []struct {
		In  string
		Out string
	}{
		{In: "firstName", Out: "first_name"},
		{In: "last_name", Out: "last_name"},
		{In: "address.streetName", Out: "address.street_name"},
		{In: "items[0].unitPrice", Out: "items[0].unit_price"},
		{In: "FirstName", Out: "first_name"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.In, func(t *testing.T) {
			assert.Equal(t, testCase.Out, CamelCaseToSnakeCase{}.Convert(testCase.In))
		})
	}
}

func TestChain_Convert(t *testing.T) {
	t.Run("will apply converters in order", func(t *testing.T) {
		chain := Chain{
			CamelCaseToSnakeCase{},
			nil,
			PathConverterFunc(strings.ToUpper),
		}

		assert.Equal(t, "FIRST_NAME", chain.Convert("firstName"))
	})

	t.Run("an empty chain is a no-op", func(t *testing.T) {
		assert.Equal(t, "firstName", Chain{}.Convert("firstName"))
	})
}

func staticValidator(violations ...ConstraintViolation) Validator {
	return ValidatorFunc(func(entity any, groups []string) ([]ConstraintViolation, error) {
		return violations, nil
	})
}

func TestPropertiesAware_Validate(t *testing.T) {
	violations := []ConstraintViolation{
		{PropertyPath: "firstName", Message: "firstName message"},
		{PropertyPath: "last_name", Message: "lastName message"},
	}

	t.Run("will convert paths with the camel case converter", func(t *testing.T) {
		v := NewPropertiesAware(staticValidator(violations...), CamelCaseToSnakeCase{})

		err := v.Validate(struct{}{}, []string{DefaultGroup})

		var invalid *apierror.InvalidDataError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, "firstName message", invalid.Message)
		assert.Equal(t, map[string][]string{
			"first_name": {"firstName message"},
			"last_name":  {"lastName message"},
		}, invalid.Properties)
		assert.Equal(t, []apierror.Violation{
			{Field: "first_name", Message: "firstName message"},
			{Field: "last_name", Message: "lastName message"},
		}, invalid.Violations)
	})

	t.Run("will keep paths with the no-op converter", func(t *testing.T) {
		v := NewPropertiesAware(staticValidator(violations...), NoOp{})

		err := v.Validate(struct{}{}, []string{DefaultGroup})

		var invalid *apierror.InvalidDataError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, map[string][]string{
			"firstName": {"firstName message"},
			"last_name": {"lastName message"},
		}, invalid.Properties)
	})

	t.Run("will return nil without violations", func(t *testing.T) {
		v := NewPropertiesAware(staticValidator(), nil)

		assert.Nil(t, v.Validate(struct{}{}, []string{DefaultGroup}))
	})

	t.Run("will propagate validator failures", func(t *testing.T) {
		boom := errors.New("boom")
		v := NewPropertiesAware(ValidatorFunc(func(any, []string) ([]ConstraintViolation, error) {
			return nil, boom
		}), nil)

		assert.ErrorIs(t, v.Validate(struct{}{}, nil), boom)
	})
}

type signup struct {
	FirstName string `json:"firstName" validate:"required" validate_strict:"min=3"`
	Email     string `json:"email" validate:"required,email"`
	Address   struct {
		StreetName string `json:"streetName" validate:"required"`
	} `json:"address"`
}

func TestPlayground_Validate(t *testing.T) {
	t.Run("will report json paths for the default group", func(t *testing.T) {
		v := NewPlayground()

		violations, err := v.Validate(&signup{Email: "nope"}, []string{DefaultGroup})
		require.Nil(t, err)

		paths := make([]string, 0, len(violations))
		for _, cv := range violations {
			paths = append(paths, cv.PropertyPath)
		}
		assert.ElementsMatch(t, []string{"firstName", "email", "address.streetName"}, paths)
	})

	t.Run("will validate additional groups through their own tag", func(t *testing.T) {
		v := NewPlayground()
		s := &signup{FirstName: "al", Email: "al@example.com"}
		s.Address.StreetName = "Main"

		violations, err := v.Validate(s, []string{DefaultGroup, "Strict"})
		require.Nil(t, err)

		require.Len(t, violations, 1)
		assert.Equal(t, "firstName", violations[0].PropertyPath)
		assert.Equal(t, "This value should be 3 or more.", violations[0].Message)
	})

	t.Run("will return an error for non struct entities", func(t *testing.T) {
		v := NewPlayground()

		_, err := v.Validate(map[string]any{}, []string{DefaultGroup})
		assert.Error(t, err)
	})

	t.Run("will pair with the properties aware validator", func(t *testing.T) {
		v := NewPropertiesAware(NewPlayground(), CamelCaseToSnakeCase{})
		s := &signup{FirstName: "bob", Email: "bob@example.com"}

		err := v.Validate(s, []string{DefaultGroup})

		var invalid *apierror.InvalidDataError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, []string{"This value should not be blank."}, invalid.Properties["address.street_name"])
	})
}
