// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package codec

import (
	"errors"
	"testing"

	"github.com/z5labs/restkit/apierror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_Decode(t *testing.T) {
	testCases := []struct {
		Name   string
		Codec  Codec
		Input  string
		Format string
	}{
		{Name: "json", Codec: JSON{}, Input: `{"name":"bob","tags":["a"]}`, Format: "json"},
		{Name: "yaml", Codec: YAML{}, Input: "name: bob\ntags:\n  - a\n", Format: "yaml"},
		{Name: "toml", Codec: TOML{}, Input: "name = \"bob\"\ntags = [\"a\"]\n", Format: "toml"},
	}

	for _, testCase := range testCases {
		t.Run("will decode "+testCase.Name+" into wire data", func(t *testing.T) {
			v, err := testCase.Codec.Decode([]byte(testCase.Input))
			require.Nil(t, err)

			m, ok := v.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "bob", m["name"])
			assert.Len(t, m["tags"], 1)
		})
	}
}

func TestCodec_Decode_Malformed(t *testing.T) {
	testCases := []struct {
		Name   string
		Codec  Codec
		Input  string
		Format string
	}{
		{Name: "json", Codec: JSON{}, Input: `{"name":`, Format: "json"},
		{Name: "yaml", Codec: YAML{}, Input: "name: [bob", Format: "yaml"},
		{Name: "toml", Codec: TOML{}, Input: "name = ", Format: "toml"},
	}

	for _, testCase := range testCases {
		t.Run("will return an encoding error for malformed "+testCase.Name, func(t *testing.T) {
			_, err := testCase.Codec.Decode([]byte(testCase.Input))

			var encErr *apierror.EncodingError
			require.True(t, errors.As(err, &encErr))
			assert.Equal(t, testCase.Format, encErr.Format)
		})
	}
}

func TestJSON_Encode(t *testing.T) {
	t.Run("will encode wire data", func(t *testing.T) {
		b, err := JSON{}.Encode(map[string]any{"id": 1})
		require.Nil(t, err)

		assert.JSONEq(t, `{"id":1}`, string(b))
		assert.Equal(t, "application/json", JSON{}.ContentType())
	})

	t.Run("will return an encoding error for unsupported values", func(t *testing.T) {
		_, err := JSON{}.Encode(map[string]any{"ch": make(chan int)})

		var encErr *apierror.EncodingError
		require.True(t, errors.As(err, &encErr))
	})
}

func TestYAML_Encode(t *testing.T) {
	t.Run("will encode wire data", func(t *testing.T) {
		b, err := YAML{}.Encode(map[string]any{"id": 1})
		require.Nil(t, err)

		assert.Equal(t, "id: 1\n", string(b))
	})
}

func TestTOML_Encode(t *testing.T) {
	t.Run("will encode a table", func(t *testing.T) {
		b, err := TOML{}.Encode(map[string]any{"id": 1})
		require.Nil(t, err)

		assert.Equal(t, "id = 1\n", string(b))
	})
}
