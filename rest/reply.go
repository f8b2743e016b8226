// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"net/http"
)

// Response wraps a controller result with extra response headers and
// per response [Options].
type Response struct {
	Payload any
	Headers http.Header
	Options Options
}

func unwrapResponse(result any) (payload any, headers http.Header, opts Options) {
	switch resp := result.(type) {
	case Response:
		return resp.Payload, resp.Headers, resp.Options
	case *Response:
		if resp == nil {
			return nil, nil, nil
		}
		return resp.Payload, resp.Headers, resp.Options
	default:
		return result, nil, nil
	}
}

// Reply is a fully shaped HTTP response.
type Reply struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Write sends the reply to w.
func (r *Reply) Write(w http.ResponseWriter) error {
	h := w.Header()
	for name, values := range r.Header {
		h[name] = values
	}
	w.WriteHeader(r.StatusCode)
	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}
