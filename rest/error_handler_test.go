// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/z5labs/restkit/apierror"

	"github.com/stretchr/testify/assert"
)

func TestBadRequestError(t *testing.T) {
	t.Run("formats error message with cause", func(t *testing.T) {
		err := BadRequestError{Cause: errors.New("unexpected EOF")}

		assert.Equal(t, "bad request error: unexpected EOF", err.Error())
	})

	t.Run("works with errors.Is", func(t *testing.T) {
		cause := errors.New("specific error")
		err := BadRequestError{Cause: cause}

		assert.True(t, errors.Is(err, cause))
	})

	t.Run("is an http status error", func(t *testing.T) {
		var statusErr apierror.HttpStatusError
		assert.True(t, errors.As(BadRequestError{}, &statusErr))
		assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode())
	})

	t.Run("writes 400 status code", func(t *testing.T) {
		w := httptest.NewRecorder()

		BadRequestError{}.WriteHttpResponse(context.Background(), w)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestDefaultErrorHandler(t *testing.T) {
	testCases := []struct {
		Name     string
		Err      error
		Expected int
	}{
		{
			Name:     "http response writer",
			Err:      BadRequestError{Cause: errors.New("eof")},
			Expected: http.StatusBadRequest,
		},
		{
			Name:     "http status error",
			Err:      apierror.MethodNotAllowedError{Method: http.MethodPut},
			Expected: http.StatusMethodNotAllowed,
		},
		{
			Name:     "unknown error",
			Err:      errors.New("boom"),
			Expected: http.StatusInternalServerError,
		},
	}

	h := defaultErrorHandler(slog.DiscardHandler)
	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			w := httptest.NewRecorder()

			h.OnError(context.Background(), w, testCase.Err)

			assert.Equal(t, testCase.Expected, w.Code)
		})
	}
}

func TestUnhandledResultError(t *testing.T) {
	err := UnhandledResultError{Result: 42}

	assert.Equal(t, "controller result of type int was not handled", err.Error())
}
