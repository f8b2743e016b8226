// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

type requestLogger struct {
	log *slog.Logger
}

func (rl requestLogger) Log(r *http.Request, body []byte, parts LoggingParts) string {
	id := r.Header.Get("X-Request-Id")
	if id == "" {
		id = uuid.NewString()
	}

	attrs := []slog.Attr{
		slog.String("request_id", id),
		slog.String("method", r.Method),
	}
	if parts.URL {
		attrs = append(attrs, slog.String("url", r.URL.String()))
	}
	if parts.Headers {
		attrs = append(attrs, slog.Any("headers", redactHeaders(r.Header)))
	}
	if parts.Body {
		attrs = append(attrs, slog.String("body", string(body)))
	}

	rl.log.LogAttrs(r.Context(), slog.LevelInfo, "received rest request", attrs...)
	return id
}

var redactedHeaders = []string{"Authorization", "Cookie", "Proxy-Authorization"}

func redactHeaders(h http.Header) http.Header {
	h = h.Clone()
	for _, name := range redactedHeaders {
		if h.Get(name) != "" {
			h.Set(name, "***")
		}
	}
	return h
}
