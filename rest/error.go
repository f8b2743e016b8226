// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"errors"
	"net/http"

	"github.com/z5labs/restkit/apierror"
)

// Error is the structured error sent to clients. Zero values are unset.
type Error struct {
	Code       apierror.Code
	Message    string
	StatusCode int
	URI        string
	Properties map[string][]string
	Violations []apierror.Violation
	Data       map[string]any
}

// Map returns the wire representation of e, omitting unset fields.
func (e *Error) Map() map[string]any {
	m := map[string]any{
		"error": string(e.Code),
	}
	if e.Message != "" {
		m["error_description"] = e.Message
	}
	if e.URI != "" {
		m["error_uri"] = e.URI
	}
	if len(e.Properties) > 0 {
		props := make(map[string]any, len(e.Properties))
		for field, messages := range e.Properties {
			props[field] = messages
		}
		m["error_properties"] = props
	}
	if len(e.Data) > 0 {
		m["error_data"] = e.Data
	}
	if len(e.Violations) > 0 {
		violations := make([]any, len(e.Violations))
		for i, v := range e.Violations {
			violations[i] = map[string]any{
				"field":   v.Field,
				"message": v.Message,
			}
		}
		m["errors"] = violations
	}
	return m
}

// DefaultErrorConfig returns the global error defaults.
func DefaultErrorConfig() ErrorConfig {
	return ErrorConfig{
		apierror.InvalidRequest:      {StatusCode: http.StatusBadRequest, Message: "Request is invalid"},
		apierror.InvalidParameters:   {StatusCode: http.StatusBadRequest, Message: "Some required parameter is missing or it's format is invalid"},
		apierror.InvalidState:        {StatusCode: http.StatusConflict, Message: "Requested action cannot be made to the current state of resource"},
		apierror.InvalidGrant:        {StatusCode: http.StatusBadRequest, Message: "Provided grant is invalid"},
		apierror.InvalidCode:         {StatusCode: http.StatusBadRequest, Message: "Provided code is invalid"},
		apierror.Unauthorized:        {StatusCode: http.StatusUnauthorized, Message: "You have not provided any credentials or they are invalid"},
		apierror.Forbidden:           {StatusCode: http.StatusForbidden, Message: "Access to the requested resource is forbidden"},
		apierror.NotFound:            {StatusCode: http.StatusNotFound, Message: "Resource was not found"},
		apierror.RateLimitExceeded:   {StatusCode: http.StatusTooManyRequests, Message: "Rate limit exceeded"},
		apierror.InternalServerError: {StatusCode: http.StatusInternalServerError, Message: "Internal server error"},
		apierror.NotAcceptable:       {StatusCode: http.StatusNotAcceptable, Message: "Requested format is not supported"},
		apierror.OffsetTooLarge:      {StatusCode: http.StatusBadRequest, Message: "Given offset is too large"},
		apierror.InvalidCursor:       {StatusCode: http.StatusBadRequest, Message: "Provided cursor is invalid"},
	}
}

// ErrorFromError classifies err into an [Error]. Checks are made in a
// fixed order and the first match wins.
func ErrorFromError(err error) *Error {
	var apiErr *apierror.ApiError
	if errors.As(err, &apiErr) {
		return &Error{
			Code:       apiErr.Code,
			Message:    apiErr.Message,
			StatusCode: apiErr.StatusCode,
			Properties: apiErr.Properties,
			Violations: apiErr.Violations,
			Data:       apiErr.Data,
		}
	}

	var invalid *apierror.InvalidDataError
	if errors.As(err, &invalid) {
		return &Error{
			Code:       apierror.InvalidParameters,
			Message:    invalid.Message,
			StatusCode: http.StatusBadRequest,
			Properties: invalid.Properties,
			Violations: invalid.Violations,
		}
	}

	if _, ok := asError[apierror.AuthenticationCredentialsNotFoundError](err); ok {
		return &Error{Code: apierror.Unauthorized, Message: "No authorization data found"}
	}

	if authErr, ok := asError[apierror.AuthenticationError](err); ok {
		e := &Error{Code: apierror.Unauthorized}
		if authErr.Code == apierror.AuthenticationMessageCode {
			e.Message = authErr.Message
		}
		return e
	}

	if denied, ok := asError[apierror.AccessDeniedError](err); ok {
		return &Error{Code: apierror.Forbidden, Message: denied.Message}
	}

	if deniedHttp, ok := asError[apierror.AccessDeniedHttpError](err); ok {
		return &Error{Code: apierror.Forbidden, Message: deniedHttp.Message}
	}

	_, noRoute := asError[apierror.ResourceNotFoundError](err)
	_, notFound := asError[apierror.NotFoundHttpError](err)
	if noRoute || notFound {
		return &Error{Code: apierror.NotFound, Message: "Provided url not found", StatusCode: http.StatusNotFound}
	}

	if _, ok := asError[apierror.MethodNotAllowedError](err); ok {
		return &Error{Code: apierror.NotFound, Message: "Provided method not allowed for this url", StatusCode: http.StatusNotFound}
	}

	var statusErr apierror.HttpStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode() < 500 {
		switch status := statusErr.StatusCode(); status {
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			return &Error{Code: apierror.NotFound, Message: "Used method is not allowed for this url", StatusCode: status}
		case http.StatusUnauthorized:
			return &Error{Code: apierror.Unauthorized}
		case http.StatusForbidden:
			return &Error{Code: apierror.Forbidden}
		case http.StatusBadRequest:
			return &Error{Code: apierror.InvalidRequest}
		}
	}

	return &Error{Code: apierror.InternalServerError, StatusCode: http.StatusInternalServerError}
}

// asError finds the first error in the chain of err which is a T or a
// non-nil *T.
func asError[T error](err error) (T, bool) {
	var v T
	if errors.As(err, &v) {
		return v, true
	}
	var p *T
	// *T always implements error because T does; vet cannot see that
	// through the type parameter, so the target is passed as any.
	if errors.As(err, any(&p)) && p != nil {
		return *p, true
	}
	return v, false
}

// fillErrorDefaults backfills unset fields of e, preferring the api
// override over the global table. Codes missing from the global table
// default to status 400.
func fillErrorDefaults(e *Error, override ErrorDefaults, global ErrorDefaults) {
	if e.Message == "" {
		e.Message = firstNonZero(override.Message, global.Message)
	}
	if e.URI == "" {
		e.URI = firstNonZero(override.URI, global.URI)
	}
	if e.StatusCode == 0 {
		e.StatusCode = firstNonZero(override.StatusCode, global.StatusCode)
	}
}

func firstNonZero[T comparable](vs ...T) T {
	var zero T
	for _, v := range vs {
		if v != zero {
			return v
		}
	}
	return zero
}
