// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package cache provides the cache strategies which drive Cache-Control,
// Last-Modified and conditional responses.
package cache

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Strategy decides how long a response may be cached and when the
// returned resource was last modified.
type Strategy interface {
	// MaxAge returns the max-age in seconds, 0 means none.
	MaxAge() int

	// ModifiedAt reports the modification time of a controller result.
	ModifiedAt(result any) (time.Time, bool)
}

// ResponseAware strategies adjust the Cache-Control directives themselves
// instead of receiving the private, non-storable defaults.
type ResponseAware interface {
	Strategy

	SetResponse(d Directives)
}

// Fixed is a [Strategy] with a constant max-age and no modification time.
type Fixed int

// MaxAge implements the [Strategy] interface.
func (f Fixed) MaxAge() int {
	return int(f)
}

// ModifiedAt implements the [Strategy] interface.
func (Fixed) ModifiedAt(any) (time.Time, bool) {
	return time.Time{}, false
}

// ModifiedAtFunc is a [Strategy] which reads the modification time from
// the controller result.
type ModifiedAtFunc struct {
	Age      int
	Modified func(result any) (time.Time, bool)
}

// MaxAge implements the [Strategy] interface.
func (s ModifiedAtFunc) MaxAge() int {
	return s.Age
}

// ModifiedAt implements the [Strategy] interface.
func (s ModifiedAtFunc) ModifiedAt(result any) (time.Time, bool) {
	if s.Modified == nil {
		return time.Time{}, false
	}
	return s.Modified(result)
}

// Public marks responses as cacheable by shared caches.
type Public struct {
	Strategy

	// SharedMaxAge sets s-maxage when positive.
	SharedMaxAge int
}

// SetResponse implements the [ResponseAware] interface.
func (p Public) SetResponse(d Directives) {
	d.Remove("private")
	d.Set("public", "")
	if p.SharedMaxAge > 0 {
		d.Set("s-maxage", strconv.Itoa(p.SharedMaxAge))
	}
}

// Directives is a parsed Cache-Control header.
type Directives map[string]string

// ParseDirectives parses the Cache-Control values of h.
func ParseDirectives(h http.Header) Directives {
	d := make(Directives)
	for _, v := range h.Values("Cache-Control") {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, value, _ := strings.Cut(part, "=")
			d[strings.ToLower(name)] = value
		}
	}
	return d
}

// Set adds or replaces a directive. An empty value renders a bare directive.
func (d Directives) Set(name, value string) {
	d[name] = value
}

// Remove deletes a directive.
func (d Directives) Remove(name string) {
	delete(d, name)
}

// Has reports whether the directive is present.
func (d Directives) Has(name string) bool {
	_, ok := d[name]
	return ok
}

// String renders the directives sorted by name.
func (d Directives) String() string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		v := d[name]
		if v == "" {
			parts = append(parts, name)
			continue
		}
		parts = append(parts, name+"="+v)
	}
	return strings.Join(parts, ", ")
}
