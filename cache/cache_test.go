// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cache

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDirectives(t *testing.T) {
	t.Run("will parse and render sorted directives", func(t *testing.T) {
		h := http.Header{}
		h.Add("Cache-Control", "public, max-age=60")
		h.Add("Cache-Control", "no-transform")

		d := ParseDirectives(h)

		assert.True(t, d.Has("public"))
		assert.Equal(t, "max-age=60, no-transform, public", d.String())
	})

	t.Run("will render an empty header for no directives", func(t *testing.T) {
		assert.Equal(t, "", ParseDirectives(http.Header{}).String())
	})
}

func TestPublic_SetResponse(t *testing.T) {
	t.Run("will replace private with public and shared max age", func(t *testing.T) {
		d := Directives{"max-age": "10", "private": ""}

		Public{Strategy: Fixed(10), SharedMaxAge: 30}.SetResponse(d)

		assert.Equal(t, "max-age=10, public, s-maxage=30", d.String())
	})
}

func TestModifiedAtFunc(t *testing.T) {
	t.Run("will delegate to the func", func(t *testing.T) {
		at := time.Unix(1700000000, 0)
		s := ModifiedAtFunc{Age: 5, Modified: func(any) (time.Time, bool) {
			return at, true
		}}

		got, ok := s.ModifiedAt(nil)
		assert.True(t, ok)
		assert.Equal(t, at, got)
		assert.Equal(t, 5, s.MaxAge())
	})

	t.Run("will report nothing without a func", func(t *testing.T) {
		_, ok := ModifiedAtFunc{}.ModifiedAt(nil)
		assert.False(t, ok)
	})
}

func TestFixed(t *testing.T) {
	t.Run("has no modification time", func(t *testing.T) {
		_, ok := Fixed(10).ModifiedAt("x")
		assert.False(t, ok)
		assert.Equal(t, 10, Fixed(10).MaxAge())
	})
}
