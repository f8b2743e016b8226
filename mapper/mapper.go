// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package mapper converts between wire data and typed entities.
package mapper

import (
	"strings"
)

// Denormalizer maps wire data to an entity. Failures are reported
// as [apierror.InvalidDataError].
type Denormalizer interface {
	MapToEntity(data any) (any, error)
}

// RequestMapper is a [Denormalizer] whose name is the request
// attribute the mapped entity is stored under.
type RequestMapper interface {
	Denormalizer
	Name() string
}

// Normalizer maps an entity to wire data.
type Normalizer interface {
	MapFromEntity(entity any) (any, error)
}

// Context carries per request options for a [ContextNormalizer].
type Context struct {
	// Fields restricts the output to the given dotted paths.
	Fields []string
}

// ContextNormalizer is a [Normalizer] which supports field selection.
type ContextNormalizer interface {
	Normalizer
	MapFromEntityContext(entity any, c Context) (any, error)
}

// NormalizerFunc is a func adapter for [Normalizer].
type NormalizerFunc func(entity any) (any, error)

// MapFromEntity implements the [Normalizer] interface.
func (f NormalizerFunc) MapFromEntity(entity any) (any, error) {
	return f(entity)
}

type namedMapper struct {
	name string
	f    func(any) (any, error)
}

// Named returns a [RequestMapper] backed by the given func.
func Named(name string, f func(data any) (any, error)) RequestMapper {
	return namedMapper{name: name, f: f}
}

func (m namedMapper) Name() string {
	return m.name
}

func (m namedMapper) MapToEntity(data any) (any, error) {
	return m.f(data)
}

// ParseFields splits a comma separated field selection such as
// "id,owner.name" into its trimmed, non-empty paths.
func ParseFields(s string) []string {
	var fields []string
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

type fieldTree map[string]fieldTree

func newFieldTree(fields []string) fieldTree {
	t := make(fieldTree)
	for _, f := range fields {
		node := t
		for _, part := range strings.Split(f, ".") {
			next, ok := node[part]
			if !ok {
				next = make(fieldTree)
				node[part] = next
			}
			node = next
		}
	}
	return t
}

// Project keeps only the selected fields of wire data. Slices are
// projected element by element. An empty selection returns data unchanged.
func Project(data any, fields []string) any {
	if len(fields) == 0 {
		return data
	}
	return newFieldTree(fields).project(data)
}

func (t fieldTree) project(data any) any {
	if len(t) == 0 {
		return data
	}

	switch v := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for name, sub := range t {
			fv, ok := v[name]
			if !ok {
				continue
			}
			out[name] = sub.project(fv)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = t.project(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = t.project(item)
		}
		return out
	default:
		return data
	}
}
