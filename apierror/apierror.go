// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package apierror defines the error taxonomy shared by the REST dispatch layer.
//
// Errors fall into a few families:
//   - [ApiError] is a structured, user facing error which carries its own [Code].
//   - [InvalidDataError] reports mapping or validation failures.
//   - [EncodingError] reports malformed wire data.
//   - [ConfigurationError] reports misuse of the registration surface.
//   - The remaining types model errors raised by the routing and security layers.
package apierror

import (
	"fmt"
	"strings"
)

// Code is a stable string identifying an error category.
type Code string

const (
	InvalidRequest      Code = "invalid_request"
	InvalidParameters   Code = "invalid_parameters"
	InvalidState        Code = "invalid_state"
	InvalidGrant        Code = "invalid_grant"
	InvalidCode         Code = "invalid_code"
	Unauthorized        Code = "unauthorized"
	Forbidden           Code = "forbidden"
	NotFound            Code = "not_found"
	RateLimitExceeded   Code = "rate_limit_exceeded"
	InternalServerError Code = "internal_server_error"
	NotAcceptable       Code = "not_acceptable"
	OffsetTooLarge      Code = "offset_too_large"
	InvalidCursor       Code = "invalid_cursor"
)

// Violation is a single failed validation constraint.
type Violation struct {
	Field   string
	Message string
}

// ApiError is a structured error which is rendered verbatim to the client.
// A zero StatusCode means the status is taken from the error configuration.
type ApiError struct {
	Code       Code
	Message    string
	StatusCode int
	Properties map[string][]string
	Data       map[string]any
	Violations []Violation
	Cause      error
}

// New returns an [ApiError] with the given code and message.
func New(code Code, message string) *ApiError {
	return &ApiError{
		Code:    code,
		Message: message,
	}
}

// Error implements the [error] interface.
func (e *ApiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %s", e.Code)
	}
	return fmt.Sprintf("api error: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ApiError) Unwrap() error {
	return e.Cause
}

// InvalidDataError reports that wire data could not be mapped to an entity
// or that the mapped entity failed validation.
type InvalidDataError struct {
	Message    string
	Properties map[string][]string
	Violations []Violation

	// CustomCode replaces [InvalidParameters] when the error is
	// converted to an [ApiError].
	CustomCode Code
}

// Error implements the [error] interface.
func (e *InvalidDataError) Error() string {
	if e.Message == "" {
		return "invalid data"
	}
	return "invalid data: " + e.Message
}

// AddViolation records a violation and mirrors it into Properties.
func (e *InvalidDataError) AddViolation(field, message string) {
	if e.Properties == nil {
		e.Properties = make(map[string][]string)
	}
	e.Properties[field] = append(e.Properties[field], message)
	e.Violations = append(e.Violations, Violation{Field: field, Message: message})
}

// ApiError converts e into an [ApiError] with code [InvalidParameters]
// unless a custom code was set.
func (e *InvalidDataError) ApiError() *ApiError {
	code := e.CustomCode
	if code == "" {
		code = InvalidParameters
	}
	return &ApiError{
		Code:       code,
		Message:    e.Message,
		Properties: e.Properties,
		Violations: e.Violations,
		Cause:      e,
	}
}

// EncodingError reports that data could not be encoded or decoded in a format.
type EncodingError struct {
	Format string
	Cause  error
}

// Error implements the [error] interface.
func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to process %s data: %v", e.Format, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *EncodingError) Unwrap() error {
	return e.Cause
}

// ConfigurationError reports misuse of the registration surface or a request
// referring to an API which was never registered.
type ConfigurationError struct {
	Message string
}

// Configurationf formats a [ConfigurationError].
func Configurationf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// Error implements the [error] interface.
func (e *ConfigurationError) Error() string {
	return e.Message
}

// AuthenticationMessageCode marks an [AuthenticationError] whose
// message is safe to show to the client.
const AuthenticationMessageCode = 999

// AuthenticationCredentialsNotFoundError means the request carried no credentials.
type AuthenticationCredentialsNotFoundError struct{}

// Error implements the [error] interface.
func (AuthenticationCredentialsNotFoundError) Error() string {
	return "authentication credentials could not be found"
}

// AuthenticationError means the supplied credentials were rejected.
type AuthenticationError struct {
	Code    int
	Message string
}

// Error implements the [error] interface.
func (e AuthenticationError) Error() string {
	return "authentication failed: " + e.Message
}

// AccessDeniedError is raised by the security layer when an authenticated
// client lacks permissions.
type AccessDeniedError struct {
	Message string
}

// Error implements the [error] interface.
func (e AccessDeniedError) Error() string {
	return e.Message
}

// AccessDeniedHttpError is the HTTP flavour of [AccessDeniedError].
type AccessDeniedHttpError struct {
	Message string
}

// Error implements the [error] interface.
func (e AccessDeniedHttpError) Error() string {
	return e.Message
}

// StatusCode implements [HttpStatusError].
func (AccessDeniedHttpError) StatusCode() int {
	return 403
}

// ResourceNotFoundError is raised by the router when no route matches the path.
type ResourceNotFoundError struct {
	Path string
}

// Error implements the [error] interface.
func (e ResourceNotFoundError) Error() string {
	return fmt.Sprintf("no route found for %q", e.Path)
}

// StatusCode implements [HttpStatusError].
func (ResourceNotFoundError) StatusCode() int {
	return 404
}

// NotFoundHttpError is an HTTP 404 raised by a controller.
type NotFoundHttpError struct {
	Message string
}

// Error implements the [error] interface.
func (e NotFoundHttpError) Error() string {
	return e.Message
}

// StatusCode implements [HttpStatusError].
func (NotFoundHttpError) StatusCode() int {
	return 404
}

// MethodNotAllowedError is raised by the router when the path exists
// but does not accept the request method.
type MethodNotAllowedError struct {
	Method  string
	Allowed []string
}

// Error implements the [error] interface.
func (e MethodNotAllowedError) Error() string {
	return fmt.Sprintf("method %s not allowed, allowed: %s", e.Method, strings.Join(e.Allowed, ", "))
}

// StatusCode implements [HttpStatusError].
func (MethodNotAllowedError) StatusCode() int {
	return 405
}

// HttpStatusError is implemented by errors which map to an HTTP status.
type HttpStatusError interface {
	error
	StatusCode() int
}

// HttpError is a generic error carrying an HTTP status.
type HttpError struct {
	Status  int
	Message string
}

// Error implements the [error] interface.
func (e HttpError) Error() string {
	return fmt.Sprintf("http error %d: %s", e.Status, e.Message)
}

// StatusCode implements [HttpStatusError].
func (e HttpError) StatusCode() int {
	return e.Status
}
