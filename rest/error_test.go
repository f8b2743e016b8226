// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/z5labs/restkit/apierror"

	"github.com/stretchr/testify/assert"
)

func TestErrorFromError(t *testing.T) {
	testCases := []struct {
		Name     string
		Err      error
		Expected *Error
	}{
		{
			Name: "api error is copied as is",
			Err: &apierror.ApiError{
				Code:       apierror.Forbidden,
				Message:    "x",
				Data:       map[string]any{"k": "v"},
				Violations: []apierror.Violation{{Field: "a", Message: "b"}},
			},
			Expected: &Error{
				Code:       apierror.Forbidden,
				Message:    "x",
				Data:       map[string]any{"k": "v"},
				Violations: []apierror.Violation{{Field: "a", Message: "b"}},
			},
		},
		{
			Name: "wrapped api error",
			Err:  fmt.Errorf("handler: %w", apierror.New(apierror.InvalidState, "busy")),
			Expected: &Error{
				Code:    apierror.InvalidState,
				Message: "busy",
			},
		},
		{
			Name: "invalid data",
			Err: &apierror.InvalidDataError{
				Message:    "bad",
				Properties: map[string][]string{"name": {"bad"}},
			},
			Expected: &Error{
				Code:       apierror.InvalidParameters,
				Message:    "bad",
				StatusCode: http.StatusBadRequest,
				Properties: map[string][]string{"name": {"bad"}},
			},
		},
		{
			Name:     "missing credentials",
			Err:      apierror.AuthenticationCredentialsNotFoundError{},
			Expected: &Error{Code: apierror.Unauthorized, Message: "No authorization data found"},
		},
		{
			Name:     "authentication error hides its message",
			Err:      apierror.AuthenticationError{Code: 1, Message: "secret"},
			Expected: &Error{Code: apierror.Unauthorized},
		},
		{
			Name:     "authentication error exposes message code",
			Err:      apierror.AuthenticationError{Code: apierror.AuthenticationMessageCode, Message: "token expired"},
			Expected: &Error{Code: apierror.Unauthorized, Message: "token expired"},
		},
		{
			Name:     "access denied",
			Err:      apierror.AccessDeniedError{Message: "nope"},
			Expected: &Error{Code: apierror.Forbidden, Message: "nope"},
		},
		{
			Name:     "access denied http",
			Err:      apierror.AccessDeniedHttpError{Message: "nope"},
			Expected: &Error{Code: apierror.Forbidden, Message: "nope"},
		},
		{
			Name:     "resource not found",
			Err:      apierror.ResourceNotFoundError{Path: "/x"},
			Expected: &Error{Code: apierror.NotFound, Message: "Provided url not found", StatusCode: http.StatusNotFound},
		},
		{
			Name:     "not found http",
			Err:      apierror.NotFoundHttpError{Message: "gone"},
			Expected: &Error{Code: apierror.NotFound, Message: "Provided url not found", StatusCode: http.StatusNotFound},
		},
		{
			Name:     "method not allowed",
			Err:      apierror.MethodNotAllowedError{Method: http.MethodPut},
			Expected: &Error{Code: apierror.NotFound, Message: "Provided method not allowed for this url", StatusCode: http.StatusNotFound},
		},
		{
			Name:     "missing credentials pointer",
			Err:      &apierror.AuthenticationCredentialsNotFoundError{},
			Expected: &Error{Code: apierror.Unauthorized, Message: "No authorization data found"},
		},
		{
			Name:     "authentication error pointer",
			Err:      &apierror.AuthenticationError{Code: apierror.AuthenticationMessageCode, Message: "token expired"},
			Expected: &Error{Code: apierror.Unauthorized, Message: "token expired"},
		},
		{
			Name:     "access denied pointer",
			Err:      &apierror.AccessDeniedError{Message: "nope"},
			Expected: &Error{Code: apierror.Forbidden, Message: "nope"},
		},
		{
			Name:     "wrapped access denied http pointer",
			Err:      fmt.Errorf("guard: %w", &apierror.AccessDeniedHttpError{Message: "nope"}),
			Expected: &Error{Code: apierror.Forbidden, Message: "nope"},
		},
		{
			Name:     "resource not found pointer",
			Err:      &apierror.ResourceNotFoundError{Path: "/x"},
			Expected: &Error{Code: apierror.NotFound, Message: "Provided url not found", StatusCode: http.StatusNotFound},
		},
		{
			Name:     "not found http pointer skips the generic status branch",
			Err:      &apierror.NotFoundHttpError{},
			Expected: &Error{Code: apierror.NotFound, Message: "Provided url not found", StatusCode: http.StatusNotFound},
		},
		{
			Name:     "method not allowed pointer",
			Err:      &apierror.MethodNotAllowedError{Method: http.MethodPut},
			Expected: &Error{Code: apierror.NotFound, Message: "Provided method not allowed for this url", StatusCode: http.StatusNotFound},
		},
		{
			Name:     "generic http 401 pointer",
			Err:      &apierror.HttpError{Status: http.StatusUnauthorized},
			Expected: &Error{Code: apierror.Unauthorized},
		},
		{
			Name:     "generic http 404",
			Err:      apierror.HttpError{Status: http.StatusNotFound},
			Expected: &Error{Code: apierror.NotFound, Message: "Used method is not allowed for this url", StatusCode: http.StatusNotFound},
		},
		{
			Name:     "generic http 405 keeps its status",
			Err:      apierror.HttpError{Status: http.StatusMethodNotAllowed},
			Expected: &Error{Code: apierror.NotFound, Message: "Used method is not allowed for this url", StatusCode: http.StatusMethodNotAllowed},
		},
		{
			Name:     "generic http 401",
			Err:      apierror.HttpError{Status: http.StatusUnauthorized},
			Expected: &Error{Code: apierror.Unauthorized},
		},
		{
			Name:     "generic http 403",
			Err:      apierror.HttpError{Status: http.StatusForbidden},
			Expected: &Error{Code: apierror.Forbidden},
		},
		{
			Name:     "generic http 400",
			Err:      BadRequestError{Cause: errors.New("eof")},
			Expected: &Error{Code: apierror.InvalidRequest},
		},
		{
			Name:     "generic http 418 is internal",
			Err:      apierror.HttpError{Status: http.StatusTeapot},
			Expected: &Error{Code: apierror.InternalServerError, StatusCode: http.StatusInternalServerError},
		},
		{
			Name:     "generic http 503 is internal",
			Err:      apierror.HttpError{Status: http.StatusServiceUnavailable},
			Expected: &Error{Code: apierror.InternalServerError, StatusCode: http.StatusInternalServerError},
		},
		{
			Name:     "anything else is internal",
			Err:      errors.New("boom"),
			Expected: &Error{Code: apierror.InternalServerError, StatusCode: http.StatusInternalServerError},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			assert.Equal(t, testCase.Expected, ErrorFromError(testCase.Err))
		})
	}
}

func TestFillErrorDefaults(t *testing.T) {
	t.Run("will prefer the api override over the global defaults", func(t *testing.T) {
		e := &Error{Code: apierror.Forbidden}
		fillErrorDefaults(
			e,
			ErrorDefaults{Message: "api message"},
			ErrorDefaults{StatusCode: http.StatusForbidden, Message: "global message", URI: "https://errors/forbidden"},
		)

		assert.Equal(t, "api message", e.Message)
		assert.Equal(t, http.StatusForbidden, e.StatusCode)
		assert.Equal(t, "https://errors/forbidden", e.URI)
	})

	t.Run("will never overwrite set fields", func(t *testing.T) {
		e := &Error{Code: apierror.NotFound, Message: "x", StatusCode: http.StatusMethodNotAllowed}
		fillErrorDefaults(e, ErrorDefaults{}, ErrorDefaults{StatusCode: http.StatusNotFound, Message: "y"})

		assert.Equal(t, "x", e.Message)
		assert.Equal(t, http.StatusMethodNotAllowed, e.StatusCode)
	})

	t.Run("will be idempotent", func(t *testing.T) {
		global := ErrorDefaults{StatusCode: http.StatusConflict, Message: "conflict"}
		e := &Error{Code: apierror.InvalidState}
		fillErrorDefaults(e, ErrorDefaults{}, global)
		once := *e
		fillErrorDefaults(e, ErrorDefaults{}, global)

		assert.Equal(t, once, *e)
	})
}

func TestError_Map(t *testing.T) {
	t.Run("will omit unset fields", func(t *testing.T) {
		e := &Error{Code: apierror.NotFound, StatusCode: http.StatusNotFound}

		assert.Equal(t, map[string]any{"error": "not_found"}, e.Map())
	})

	t.Run("will include every set field", func(t *testing.T) {
		e := &Error{
			Code:       apierror.InvalidParameters,
			Message:    "bad",
			URI:        "https://errors/invalid",
			Properties: map[string][]string{"name": {"bad"}},
			Violations: []apierror.Violation{{Field: "name", Message: "bad"}},
			Data:       map[string]any{"hint": "retry"},
		}

		assert.Equal(t, map[string]any{
			"error":             "invalid_parameters",
			"error_description": "bad",
			"error_uri":         "https://errors/invalid",
			"error_properties":  map[string]any{"name": []string{"bad"}},
			"error_data":        map[string]any{"hint": "retry"},
			"errors": []any{
				map[string]any{"field": "name", "message": "bad"},
			},
		}, e.Map())
	})
}
