// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package resolve turns request parameters into entities which are
// injected as request attributes before the controller runs.
package resolve

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// EntityResolver resolves an entity from a raw request value.
// A nil entity and nil error means nothing was found.
type EntityResolver interface {
	ResolveFrom(ctx context.Context, value string) (any, error)
}

// EntityResolverFunc is a func adapter for [EntityResolver].
type EntityResolverFunc func(ctx context.Context, value string) (any, error)

// ResolveFrom implements the [EntityResolver] interface.
func (f EntityResolverFunc) ResolveFrom(ctx context.Context, value string) (any, error) {
	return f(ctx, value)
}

// Location is where a [Parameter] value is read from.
type Location int

const (
	InPath Location = iota
	InQuery
)

// Parameter resolves one request parameter into one attribute.
type Parameter struct {
	// Name of the path or query parameter.
	Name string

	// Attribute is the attribute name, defaults to Name.
	Attribute string

	In       Location
	Resolver EntityResolver
}

// ResolveAttributes returns the resolved entity keyed by attribute name.
// Missing parameters and unresolved entities produce no attributes.
func (p Parameter) ResolveAttributes(r *http.Request) (map[string]any, error) {
	var value string
	switch p.In {
	case InPath:
		value = chi.URLParam(r, p.Name)
	case InQuery:
		value = r.URL.Query().Get(p.Name)
	}
	if value == "" {
		return nil, nil
	}

	entity, err := p.Resolver.ResolveFrom(r.Context(), value)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, nil
	}

	attr := p.Attribute
	if attr == "" {
		attr = p.Name
	}
	return map[string]any{attr: entity}, nil
}

// Repository finds a single entity matching every criteria field.
type Repository interface {
	FindOneBy(ctx context.Context, criteria map[string]any) (any, error)
}

// RepositoryResolver looks entities up in a [Repository] by one field.
type RepositoryResolver struct {
	Repository Repository
	Field      string
}

// ResolveFrom implements the [EntityResolver] interface.
func (r RepositoryResolver) ResolveFrom(ctx context.Context, value string) (any, error) {
	return r.Repository.FindOneBy(ctx, map[string]any{r.Field: value})
}
