// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package apierror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApiError_Error(t *testing.T) {
	t.Run("includes the message when present", func(t *testing.T) {
		err := New(Forbidden, "x")

		assert.Equal(t, "api error: forbidden: x", err.Error())
	})

	t.Run("falls back to the code", func(t *testing.T) {
		err := New(NotFound, "")

		assert.Equal(t, "api error: not_found", err.Error())
	})
}

func TestApiError_Unwrap(t *testing.T) {
	t.Run("works with errors.As on wrapped errors", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", New(InvalidState, "locked"))

		var apiErr *ApiError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, InvalidState, apiErr.Code)
	})
}

func TestInvalidDataError_AddViolation(t *testing.T) {
	t.Run("keeps properties and violations paired", func(t *testing.T) {
		err := &InvalidDataError{}
		err.AddViolation("name", "too short")
		err.AddViolation("name", "invalid characters")
		err.AddViolation("age", "must be positive")

		assert.Equal(t, map[string][]string{
			"name": {"too short", "invalid characters"},
			"age":  {"must be positive"},
		}, err.Properties)
		assert.Equal(t, []Violation{
			{Field: "name", Message: "too short"},
			{Field: "name", Message: "invalid characters"},
			{Field: "age", Message: "must be positive"},
		}, err.Violations)
	})
}

func TestInvalidDataError_ApiError(t *testing.T) {
	t.Run("defaults to invalid_parameters", func(t *testing.T) {
		err := &InvalidDataError{Message: "bad"}
		err.AddViolation("field", "bad")

		apiErr := err.ApiError()

		assert.Equal(t, InvalidParameters, apiErr.Code)
		assert.Equal(t, "bad", apiErr.Message)
		assert.Zero(t, apiErr.StatusCode)
		assert.Equal(t, err.Properties, apiErr.Properties)
		assert.Equal(t, err.Violations, apiErr.Violations)
		assert.ErrorIs(t, apiErr, err)
	})

	t.Run("uses the custom code when set", func(t *testing.T) {
		err := &InvalidDataError{Message: "bad cursor", CustomCode: InvalidCursor}

		assert.Equal(t, InvalidCursor, err.ApiError().Code)
	})
}

func TestHttpStatusError(t *testing.T) {
	testCases := []struct {
		Name   string
		Err    error
		Status int
	}{
		{Name: "generic http error", Err: HttpError{Status: 409}, Status: 409},
		{Name: "not found http error", Err: NotFoundHttpError{}, Status: 404},
		{Name: "access denied http error", Err: AccessDeniedHttpError{}, Status: 403},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			var se HttpStatusError
			require.True(t, errors.As(testCase.Err, &se))
			assert.Equal(t, testCase.Status, se.StatusCode())
		})
	}
}
