// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"log/slog"
	"net/http"

	"github.com/z5labs/restkit/apierror"
	"github.com/z5labs/restkit/cache"
	"github.com/z5labs/restkit/codec"
	"github.com/z5labs/restkit/mapper"
	"github.com/z5labs/restkit/validation"
)

// SecurityStrategy decides whether a request may access an [Api].
type SecurityStrategy interface {
	IsAllowed(*http.Request) bool
}

// SecurityStrategyFunc is a func adapter for [SecurityStrategy].
type SecurityStrategyFunc func(*http.Request) bool

// IsAllowed implements the [SecurityStrategy] interface.
func (f SecurityStrategyFunc) IsAllowed(r *http.Request) bool {
	return f(r)
}

// AttributeResolver produces additional request attributes before the
// controller runs.
type AttributeResolver interface {
	ResolveAttributes(*http.Request) (map[string]any, error)
}

// ErrorDefaults are the fallback metadata of an error code. Zero
// values are treated as unset.
type ErrorDefaults struct {
	StatusCode int
	Message    string
	URI        string
}

// ErrorConfig maps error codes to their defaults.
type ErrorConfig map[apierror.Code]ErrorDefaults

// LoggingParts selects which parts of a request are logged.
type LoggingParts struct {
	URL     bool
	Headers bool
	Body    bool
}

// Options tune how a single [Response] is shaped.
type Options map[string]any

// Keys understood in [Options].
const (
	// OptionCache holds a [cache.Strategy] overriding the configured one.
	OptionCache = "cache"

	// OptionMapper holds a [mapper.Normalizer] overriding the configured one.
	OptionMapper = "mapper"
)

// ApiOptions holds the configuration collected by [ApiOption]s.
type ApiOptions struct {
	requestMappers     map[string]mapper.RequestMapper
	queryMappers       map[string]mapper.RequestMapper
	responseMappers    map[string]mapper.Normalizer
	validationGroups   map[string][]string
	pathConverters     map[string][]validation.PathConverter
	pathConverter      validation.PathConverter
	requestFormats     []string
	responseFormats    []string
	encoders           map[string]codec.Encoder
	decoders           map[string]codec.Decoder
	errors             ErrorConfig
	security           SecurityStrategy
	cacheStrategies    map[string]cache.Strategy
	defaultCache       cache.Strategy
	logger             *slog.Logger
	loggingParts       map[string]*LoggingParts
	defaultLogging     *LoggingParts
	attributeResolvers map[string][]AttributeResolver
	validator          validation.Validator
}

// ApiOption configures an [Api].
type ApiOption interface {
	ApplyApiOption(*ApiOptions)
}

type apiOptionFunc func(*ApiOptions)

func (f apiOptionFunc) ApplyApiOption(ao *ApiOptions) {
	f(ao)
}

// RequestMapper maps the body of requests to the controller.
func RequestMapper(controller string, m mapper.RequestMapper) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.requestMappers[controller] = m
	})
}

// RequestQueryMapper maps the query parameters of requests to the controller.
func RequestQueryMapper(controller string, m mapper.RequestMapper) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.queryMappers[controller] = m
	})
}

// ResponseMapper maps the results of the controller to wire data.
func ResponseMapper(controller string, m mapper.Normalizer) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.responseMappers[controller] = m
	})
}

// ValidationGroups enables validation of the controller's mapped entities.
func ValidationGroups(controller string, groups ...string) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.validationGroups[controller] = groups
	})
}

// PropertyPathConverters rewrite violation paths of the controller.
func PropertyPathConverters(controller string, converters ...validation.PathConverter) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.pathConverters[controller] = append(ao.pathConverters[controller], converters...)
	})
}

// PropertyPathConverter rewrites violation paths of every controller,
// after any controller specific converters.
func PropertyPathConverter(converter validation.PathConverter) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.pathConverter = converter
	})
}

// RequestFormats sets the formats accepted in request bodies.
func RequestFormats(formats ...string) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.requestFormats = formats
	})
}

// ResponseFormats sets the formats responses can be encoded in.
func ResponseFormats(formats ...string) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.responseFormats = formats
	})
}

// Encoder overrides the global encoder of a format.
func Encoder(format string, enc codec.Encoder) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.encoders[format] = enc
	})
}

// Decoder overrides the global decoder of a format.
func Decoder(format string, dec codec.Decoder) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.decoders[format] = dec
	})
}

// Errors overrides the global defaults of an error code.
func Errors(code apierror.Code, d ErrorDefaults) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.errors[code] = d
	})
}

// Security guards every request of the [Api].
func Security(s SecurityStrategy) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.security = s
	})
}

// CacheStrategy sets the cache strategy of the controller.
func CacheStrategy(controller string, s cache.Strategy) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.cacheStrategies[controller] = s
	})
}

// DefaultCacheStrategy sets the cache strategy of controllers without their own.
func DefaultCacheStrategy(s cache.Strategy) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.defaultCache = s
	})
}

// Logger sets the logger used for requests of the [Api].
func Logger(log *slog.Logger) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.logger = log
	})
}

// LogRequest logs the selected parts of requests to the controller.
func LogRequest(controller string, parts LoggingParts) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.loggingParts[controller] = &parts
	})
}

// DontLogRequest disables request logging for the controller.
func DontLogRequest(controller string) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.loggingParts[controller] = nil
	})
}

// DefaultLogRequest logs the selected parts of requests to controllers
// without their own policy.
func DefaultLogRequest(parts LoggingParts) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.defaultLogging = &parts
	})
}

// AttributeResolvers run before the controller and inject their results
// as request attributes.
func AttributeResolvers(controller string, resolvers ...AttributeResolver) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.attributeResolvers[controller] = append(ao.attributeResolvers[controller], resolvers...)
	})
}

// Validator overrides the base validator of the [Manager].
func Validator(v validation.Validator) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.validator = v
	})
}

// Api is the configuration of one logical REST API. It is immutable once
// constructed and safe for concurrent use.
type Api struct {
	opts ApiOptions
}

// NewApi initializes an [Api].
func NewApi(opts ...ApiOption) *Api {
	ao := ApiOptions{
		requestMappers:     make(map[string]mapper.RequestMapper),
		queryMappers:       make(map[string]mapper.RequestMapper),
		responseMappers:    make(map[string]mapper.Normalizer),
		validationGroups:   make(map[string][]string),
		pathConverters:     make(map[string][]validation.PathConverter),
		encoders:           make(map[string]codec.Encoder),
		decoders:           make(map[string]codec.Decoder),
		errors:             make(ErrorConfig),
		cacheStrategies:    make(map[string]cache.Strategy),
		loggingParts:       make(map[string]*LoggingParts),
		attributeResolvers: make(map[string][]AttributeResolver),
	}
	for _, opt := range opts {
		opt.ApplyApiOption(&ao)
	}
	return &Api{opts: ao}
}

// RequestMapper returns the body mapper of the controller.
func (a *Api) RequestMapper(controller string) mapper.RequestMapper {
	return a.opts.requestMappers[controller]
}

// RequestQueryMapper returns the query mapper of the controller.
func (a *Api) RequestQueryMapper(controller string) mapper.RequestMapper {
	return a.opts.queryMappers[controller]
}

// ResponseMapper returns the response mapper of the controller, unless
// overridden through [OptionMapper].
func (a *Api) ResponseMapper(controller string, opts Options) mapper.Normalizer {
	if m, ok := opts[OptionMapper].(mapper.Normalizer); ok {
		return m
	}
	return a.opts.responseMappers[controller]
}

// ValidationGroups returns the validation groups of the controller.
func (a *Api) ValidationGroups(controller string) []string {
	return a.opts.validationGroups[controller]
}

// PropertyPathConverter returns the controller converters followed by
// the [Api] wide converter.
func (a *Api) PropertyPathConverter(controller string) validation.Chain {
	chain := make(validation.Chain, 0, len(a.opts.pathConverters[controller])+1)
	chain = append(chain, a.opts.pathConverters[controller]...)
	if a.opts.pathConverter != nil {
		chain = append(chain, a.opts.pathConverter)
	}
	return chain
}

// RequestFormats returns the formats accepted in request bodies.
func (a *Api) RequestFormats() []string {
	if len(a.opts.requestFormats) == 0 {
		return DefaultFormats
	}
	return a.opts.requestFormats
}

// ResponseFormats returns the formats responses can be encoded in.
func (a *Api) ResponseFormats() []string {
	if len(a.opts.responseFormats) == 0 {
		return DefaultFormats
	}
	return a.opts.responseFormats
}

// Encoder returns the override encoder of a format.
func (a *Api) Encoder(format string) (codec.Encoder, bool) {
	enc, ok := a.opts.encoders[format]
	return enc, ok
}

// Decoder returns the override decoder of a format.
func (a *Api) Decoder(format string) (codec.Decoder, bool) {
	dec, ok := a.opts.decoders[format]
	return dec, ok
}

// ErrorDefaults returns the override defaults of an error code.
func (a *Api) ErrorDefaults(code apierror.Code) (ErrorDefaults, bool) {
	d, ok := a.opts.errors[code]
	return d, ok
}

// SecurityStrategy returns the security strategy or nil.
func (a *Api) SecurityStrategy() SecurityStrategy {
	return a.opts.security
}

// CacheStrategy returns the cache strategy of the controller, unless
// overridden through [OptionCache].
func (a *Api) CacheStrategy(controller string, opts Options) cache.Strategy {
	if s, ok := opts[OptionCache].(cache.Strategy); ok {
		return s
	}
	if s, ok := a.opts.cacheStrategies[controller]; ok {
		return s
	}
	return a.opts.defaultCache
}

// Logger returns the [Api] logger or nil.
func (a *Api) Logger() *slog.Logger {
	return a.opts.logger
}

// RequestLoggingParts returns the request logging policy of the
// controller or nil when requests are not logged.
func (a *Api) RequestLoggingParts(controller string) *LoggingParts {
	if parts, ok := a.opts.loggingParts[controller]; ok {
		return parts
	}
	return a.opts.defaultLogging
}

// AttributeResolvers returns the attribute resolvers of the controller.
func (a *Api) AttributeResolvers(controller string) []AttributeResolver {
	return a.opts.attributeResolvers[controller]
}

// Validator returns the base validator override or nil.
func (a *Api) Validator() validation.Validator {
	return a.opts.validator
}
