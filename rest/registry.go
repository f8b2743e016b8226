// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"regexp"
	"strings"
)

type patternEntry struct {
	pattern string
	re      *regexp.Regexp
	api     *Api
}

// Registry indexes [Api] configurations by explicit key and by URI pattern.
// It is populated at startup and read concurrently afterwards.
type Registry struct {
	byKey     map[string]*Api
	byPattern []patternEntry
}

// NewRegistry returns an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{
		byKey: make(map[string]*Api),
	}
}

// AddByKey registers api under key, replacing any previous registration.
func (reg *Registry) AddByKey(api *Api, key string) {
	reg.byKey[key] = api
}

// AddByUriPattern registers api under a URI pattern, replacing any previous
// registration of the same pattern in place. Patterns may be wrapped in
// '#' delimiters.
func (reg *Registry) AddByUriPattern(api *Api, pattern string) error {
	pattern = trimDelimiters(pattern)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}

	for i, entry := range reg.byPattern {
		if entry.pattern == pattern {
			reg.byPattern[i].api = api
			return nil
		}
	}
	reg.byPattern = append(reg.byPattern, patternEntry{
		pattern: pattern,
		re:      re,
		api:     api,
	})
	return nil
}

// ByKey returns the [Api] registered under key or nil.
func (reg *Registry) ByKey(key string) *Api {
	return reg.byKey[key]
}

// ByUriPattern returns the first [Api], in registration order, whose
// pattern matches path or nil.
func (reg *Registry) ByUriPattern(path string) *Api {
	for _, entry := range reg.byPattern {
		if entry.re.MatchString(path) {
			return entry.api
		}
	}
	return nil
}

func trimDelimiters(pattern string) string {
	if len(pattern) >= 2 && strings.HasPrefix(pattern, "#") && strings.HasSuffix(pattern, "#") {
		return pattern[1 : len(pattern)-1]
	}
	return pattern
}

// GlobalUriPattern unions patterns into a single alternation, e.g.
// "(^/a)|(^/b)". An empty input yields an empty pattern.
func GlobalUriPattern(patterns ...string) string {
	parts := make([]string, len(patterns))
	for i, p := range patterns {
		parts[i] = "(" + trimDelimiters(p) + ")"
	}
	return strings.Join(parts, "|")
}
