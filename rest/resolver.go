// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"net/http"
	"regexp"

	"github.com/z5labs/restkit/apierror"
)

// ApiKeyResolver reads the api key route attribute of a request.
type ApiKeyResolver struct {
	attribute string
}

// NewApiKeyResolver returns an [ApiKeyResolver] reading the given
// attribute, or [DefaultApiKeyAttribute] when empty.
func NewApiKeyResolver(attribute string) ApiKeyResolver {
	if attribute == "" {
		attribute = DefaultApiKeyAttribute
	}
	return ApiKeyResolver{attribute: attribute}
}

// Attribute returns the name of the attribute holding the api key.
func (k ApiKeyResolver) Attribute() string {
	return k.attribute
}

// ApiKey returns the api key set by the router, if any.
func (k ApiKeyResolver) ApiKey(r *http.Request) (string, bool) {
	key := AttributesFrom(r.Context()).String(k.attribute)
	return key, key != ""
}

// RequestApiResolver decides which [Api], if any, governs a request.
type RequestApiResolver struct {
	registry *Registry
	keys     ApiKeyResolver
	global   *regexp.Regexp
}

// NewRequestApiResolver returns a [RequestApiResolver]. An empty
// globalPattern disables URI pattern resolution.
func NewRequestApiResolver(reg *Registry, keys ApiKeyResolver, globalPattern string) (*RequestApiResolver, error) {
	res := &RequestApiResolver{
		registry: reg,
		keys:     keys,
	}
	if globalPattern == "" {
		return res, nil
	}

	re, err := regexp.Compile(globalPattern)
	if err != nil {
		return nil, err
	}
	res.global = re
	return res, nil
}

// ApiKey returns the explicit api key of the request, if any.
func (res *RequestApiResolver) ApiKey(r *http.Request) (string, bool) {
	return res.keys.ApiKey(r)
}

// Resolve returns the [Api] governing r, or nil when r is not governed.
// An explicit but unregistered api key is an [apierror.ConfigurationError].
func (res *RequestApiResolver) Resolve(r *http.Request) (*Api, error) {
	key, ok := res.keys.ApiKey(r)
	if ok {
		api := res.registry.ByKey(key)
		if api == nil {
			return nil, apierror.Configurationf("Api not registered with such key: %s", key)
		}
		return api, nil
	}

	if res.global == nil || !res.global.MatchString(r.URL.Path) {
		return nil, nil
	}
	return res.registry.ByUriPattern(r.URL.Path), nil
}
