// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/z5labs/restkit/apierror"
)

// HttpResponseWriter is implemented by errors which write their own
// HTTP response when no [Api] governs the failed request.
type HttpResponseWriter interface {
	WriteHttpResponse(context.Context, http.ResponseWriter)
}

// ErrorHandler handles errors of requests which are not governed by an
// [Api], or whose error reply could not be produced.
//
// A custom error handler can be configured with [OnError].
type ErrorHandler interface {
	OnError(context.Context, http.ResponseWriter, error)
}

// ErrorHandlerFunc is a function adapter that implements [ErrorHandler].
//
// Example:
//
//	handler := rest.ErrorHandlerFunc(func(ctx context.Context, w http.ResponseWriter, err error) {
//	    log.Printf("Error: %v", err)
//	    w.WriteHeader(http.StatusInternalServerError)
//	})
type ErrorHandlerFunc func(context.Context, http.ResponseWriter, error)

func (f ErrorHandlerFunc) OnError(ctx context.Context, w http.ResponseWriter, err error) {
	f(ctx, w, err)
}

// defaultErrorHandler writes the status of [apierror.HttpStatusError]s
// and 500 for everything else.
func defaultErrorHandler(h slog.Handler) ErrorHandlerFunc {
	log := slog.New(h)

	return func(ctx context.Context, w http.ResponseWriter, err error) {
		log.ErrorContext(ctx, "sending error response", slog.Any("error", err))

		var hrw HttpResponseWriter
		if errors.As(err, &hrw) {
			hrw.WriteHttpResponse(ctx, w)
			return
		}

		var statusErr apierror.HttpStatusError
		if errors.As(err, &statusErr) {
			w.WriteHeader(statusErr.StatusCode())
			return
		}

		w.WriteHeader(http.StatusInternalServerError)
	}
}

// BadRequestError reports a request which could not be read.
// Governed requests map it to the invalid_request error code.
type BadRequestError struct {
	Cause error
}

func (e BadRequestError) Error() string {
	return fmt.Sprintf("bad request error: %v", e.Cause)
}

// Unwrap returns the underlying cause of the bad request.
func (e BadRequestError) Unwrap() error {
	return e.Cause
}

// StatusCode implements [apierror.HttpStatusError].
func (BadRequestError) StatusCode() int {
	return http.StatusBadRequest
}

// WriteHttpResponse implements [HttpResponseWriter].
func (e BadRequestError) WriteHttpResponse(ctx context.Context, rw http.ResponseWriter) {
	rw.WriteHeader(http.StatusBadRequest)
}

// UnhandledResultError is returned when a controller result could not
// be turned into a response, e.g. no response mapper is configured.
type UnhandledResultError struct {
	Result any
}

func (e UnhandledResultError) Error() string {
	return fmt.Sprintf("controller result of type %T was not handled", e.Result)
}
