// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"fmt"
	"mime"
	"net/http"
	"slices"

	"github.com/z5labs/restkit/apierror"

	"github.com/munnerz/goautoneg"
)

// DefaultFormats are used when an [Api] does not advertise any formats.
var DefaultFormats = []string{"json"}

// FormatDetector negotiates the wire format of requests and responses.
// Both methods must return one of the available formats or fail.
type FormatDetector interface {
	ResponseFormat(r *http.Request, available []string) (string, error)
	RequestFormat(r *http.Request, available []string) (string, error)
}

// FormatDetectorOptions are configurable parameters of a [NegotiatingFormatDetector].
type FormatDetectorOptions struct {
	mimeTypes map[string][]string
}

// FormatDetectorOption sets a value on [FormatDetectorOptions].
type FormatDetectorOption interface {
	ApplyFormatDetectorOption(*FormatDetectorOptions)
}

type formatDetectorOptionFunc func(*FormatDetectorOptions)

func (f formatDetectorOptionFunc) ApplyFormatDetectorOption(fo *FormatDetectorOptions) {
	f(fo)
}

// MimeTypes associates mime types with a format. The first mime type
// is preferred when the client accepts anything.
func MimeTypes(format string, mimeTypes ...string) FormatDetectorOption {
	return formatDetectorOptionFunc(func(fo *FormatDetectorOptions) {
		fo.mimeTypes[format] = mimeTypes
	})
}

// NegotiatingFormatDetector is the default [FormatDetector].
//
// Responses honor the "_format" route attribute first, then the Accept
// header including quality values. Requests are matched by Content-Type.
// A missing header selects the first available format.
type NegotiatingFormatDetector struct {
	mimeTypes map[string][]string
	formats   map[string]string
}

// NewFormatDetector initializes a [NegotiatingFormatDetector] which knows
// the json, yaml and toml formats.
func NewFormatDetector(opts ...FormatDetectorOption) *NegotiatingFormatDetector {
	fo := &FormatDetectorOptions{
		mimeTypes: map[string][]string{
			"json": {"application/json", "application/x-json"},
			"yaml": {"application/x-yaml", "application/yaml", "text/yaml"},
			"toml": {"application/toml"},
		},
	}
	for _, opt := range opts {
		opt.ApplyFormatDetectorOption(fo)
	}

	formats := make(map[string]string)
	for format, mimeTypes := range fo.mimeTypes {
		for _, mt := range mimeTypes {
			formats[mt] = format
		}
	}
	return &NegotiatingFormatDetector{
		mimeTypes: fo.mimeTypes,
		formats:   formats,
	}
}

// ResponseFormat implements the [FormatDetector] interface. It fails with
// an [apierror.ApiError] of code [apierror.NotAcceptable].
func (d *NegotiatingFormatDetector) ResponseFormat(r *http.Request, available []string) (string, error) {
	if len(available) == 0 {
		available = DefaultFormats
	}

	format := AttributesFrom(r.Context()).String(FormatAttribute)
	if format != "" {
		if slices.Contains(available, format) {
			return format, nil
		}
		return "", notAcceptable(format)
	}

	accept := r.Header.Get("Accept")
	if accept == "" {
		return available[0], nil
	}

	var alternatives []string
	for _, f := range available {
		alternatives = append(alternatives, d.mimeTypes[f]...)
	}
	if len(alternatives) == 0 {
		return "", notAcceptable(accept)
	}

	mt := goautoneg.Negotiate(accept, alternatives)
	if mt == "" {
		return "", notAcceptable(accept)
	}
	return d.formats[mt], nil
}

func notAcceptable(requested string) error {
	return &apierror.ApiError{
		Code:       apierror.NotAcceptable,
		Message:    fmt.Sprintf("Requested format is not supported: %s", requested),
		StatusCode: http.StatusNotAcceptable,
	}
}

// RequestFormat implements the [FormatDetector] interface. It fails with
// an [apierror.ApiError] of code [apierror.InvalidRequest].
func (d *NegotiatingFormatDetector) RequestFormat(r *http.Request, available []string) (string, error) {
	if len(available) == 0 {
		available = DefaultFormats
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return available[0], nil
	}

	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", unsupportedContentType(contentType, err)
	}

	format, ok := d.formats[mt]
	if !ok || !slices.Contains(available, format) {
		return "", unsupportedContentType(contentType, nil)
	}
	return format, nil
}

func unsupportedContentType(contentType string, cause error) error {
	return &apierror.ApiError{
		Code:       apierror.InvalidRequest,
		Message:    fmt.Sprintf("Content type is not supported: %s", contentType),
		StatusCode: http.StatusUnsupportedMediaType,
		Cause:      cause,
	}
}
