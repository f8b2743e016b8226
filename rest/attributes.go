// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"maps"
)

// Well known request attributes.
const (
	ControllerAttribute    = "_controller"
	LocaleAttribute        = "_locale"
	FormatAttribute        = "_format"
	DefaultApiKeyAttribute = "api_key"
)

// Attributes is the per request attribute bag populated by the router
// and the [Listener]. It is owned by the goroutine handling the request.
type Attributes struct {
	values map[string]any
}

// NewAttributes returns an empty [Attributes] bag.
func NewAttributes() *Attributes {
	return &Attributes{values: make(map[string]any)}
}

// Get returns the named attribute.
func (a *Attributes) Get(name string) (any, bool) {
	if a == nil {
		return nil, false
	}
	v, ok := a.values[name]
	return v, ok
}

// String returns the named attribute if it is a non-empty string.
func (a *Attributes) String(name string) string {
	v, _ := a.Get(name)
	s, _ := v.(string)
	return s
}

// Set stores the named attribute.
func (a *Attributes) Set(name string, v any) {
	a.values[name] = v
}

// All returns a copy of every attribute.
func (a *Attributes) All() map[string]any {
	if a == nil {
		return nil
	}
	return maps.Clone(a.values)
}

type attributesCtxKey struct{}

// WithAttributes returns a copy of ctx which carries a.
func WithAttributes(ctx context.Context, a *Attributes) context.Context {
	return context.WithValue(ctx, attributesCtxKey{}, a)
}

// AttributesFrom returns the [Attributes] carried by ctx or nil.
func AttributesFrom(ctx context.Context) *Attributes {
	a, _ := ctx.Value(attributesCtxKey{}).(*Attributes)
	return a
}

// Attribute returns the named attribute of the request context as a T.
func Attribute[T any](ctx context.Context, name string) (T, bool) {
	v, ok := AttributesFrom(ctx).Get(name)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
