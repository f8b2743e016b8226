// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package codec provides the wire format encoders and decoders used to
// read request bodies and write response payloads.
//
// Decoders produce generic wire data (maps, slices and scalars) which is
// later converted into entities by a mapper. Every failure is reported as
// an [apierror.EncodingError].
package codec

import (
	"encoding/json"

	"github.com/z5labs/restkit/apierror"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Encoder converts wire data into bytes of a single format.
type Encoder interface {
	Encode(data any) ([]byte, error)
	ContentType() string
}

// Decoder converts bytes of a single format into wire data.
type Decoder interface {
	Decode(b []byte) (any, error)
}

// Codec is both an [Encoder] and a [Decoder].
type Codec interface {
	Encoder
	Decoder
}

// JSON implements [Codec] for the json format.
type JSON struct{}

// Encode implements the [Encoder] interface.
func (JSON) Encode(data any) ([]byte, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, &apierror.EncodingError{Format: "json", Cause: err}
	}
	return b, nil
}

// ContentType implements the [Encoder] interface.
func (JSON) ContentType() string {
	return "application/json"
}

// Decode implements the [Decoder] interface.
func (JSON) Decode(b []byte) (any, error) {
	var v any
	err := json.Unmarshal(b, &v)
	if err != nil {
		return nil, &apierror.EncodingError{Format: "json", Cause: err}
	}
	return v, nil
}

// YAML implements [Codec] for the yaml format.
type YAML struct{}

// Encode implements the [Encoder] interface.
func (YAML) Encode(data any) ([]byte, error) {
	b, err := yaml.Marshal(data)
	if err != nil {
		return nil, &apierror.EncodingError{Format: "yaml", Cause: err}
	}
	return b, nil
}

// ContentType implements the [Encoder] interface.
func (YAML) ContentType() string {
	return "application/x-yaml"
}

// Decode implements the [Decoder] interface.
func (YAML) Decode(b []byte) (any, error) {
	var v any
	err := yaml.Unmarshal(b, &v)
	if err != nil {
		return nil, &apierror.EncodingError{Format: "yaml", Cause: err}
	}
	return v, nil
}

// TOML implements [Codec] for the toml format. Only tables can be
// encoded at the top level.
type TOML struct{}

// Encode implements the [Encoder] interface.
func (TOML) Encode(data any) ([]byte, error) {
	b, err := toml.Marshal(data)
	if err != nil {
		return nil, &apierror.EncodingError{Format: "toml", Cause: err}
	}
	return b, nil
}

// ContentType implements the [Encoder] interface.
func (TOML) ContentType() string {
	return "application/toml"
}

// Decode implements the [Decoder] interface.
func (TOML) Decode(b []byte) (any, error) {
	var v map[string]any
	err := toml.Unmarshal(b, &v)
	if err != nil {
		return nil, &apierror.EncodingError{Format: "toml", Cause: err}
	}
	return v, nil
}
