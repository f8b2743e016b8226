// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/z5labs/restkit"
	"github.com/z5labs/restkit/apierror"
	"github.com/z5labs/restkit/cache"
	"github.com/z5labs/restkit/codec"
	"github.com/z5labs/restkit/mapper"
	"github.com/z5labs/restkit/validation"
)

type registration struct {
	api     *Api
	key     string
	pattern string
}

// RegistrationOptions select how an [Api] is looked up.
type RegistrationOptions struct {
	key     string
	pattern string
}

// RegistrationOption sets a value on [RegistrationOptions].
type RegistrationOption interface {
	ApplyRegistrationOption(*RegistrationOptions)
}

type registrationOptionFunc func(*RegistrationOptions)

func (f registrationOptionFunc) ApplyRegistrationOption(ro *RegistrationOptions) {
	f(ro)
}

// Key registers the [Api] under an explicit api key.
func Key(key string) RegistrationOption {
	return registrationOptionFunc(func(ro *RegistrationOptions) {
		ro.key = key
	})
}

// UriPattern registers the [Api] under a URI pattern.
func UriPattern(pattern string) RegistrationOption {
	return registrationOptionFunc(func(ro *RegistrationOptions) {
		ro.pattern = pattern
	})
}

// ManagerOptions holds the registrations collected by [ManagerOption]s.
type ManagerOptions struct {
	registrations []registration
	encoders      map[string]codec.Encoder
	decoders      map[string]codec.Decoder
	registered    map[string]struct{}
	keyAttribute  string
	formats       FormatDetector
	errors        ErrorConfig
	validator     validation.Validator
	pathConverter validation.PathConverter
	log           *slog.Logger
	errs          []error
}

// ManagerOption configures a [Manager].
type ManagerOption interface {
	ApplyManagerOption(*ManagerOptions)
}

type managerOptionFunc func(*ManagerOptions)

func (f managerOptionFunc) ApplyManagerOption(mo *ManagerOptions) {
	f(mo)
}

// RegisterApi registers an [Api] by key, by URI pattern or both.
func RegisterApi(api *Api, opts ...RegistrationOption) ManagerOption {
	return managerOptionFunc(func(mo *ManagerOptions) {
		ro := &RegistrationOptions{}
		for _, opt := range opts {
			opt.ApplyRegistrationOption(ro)
		}
		mo.registrations = append(mo.registrations, registration{
			api:     api,
			key:     ro.key,
			pattern: ro.pattern,
		})
	})
}

// RegisterEncoder registers the global encoder of a format.
func RegisterEncoder(format string, enc codec.Encoder) ManagerOption {
	return managerOptionFunc(func(mo *ManagerOptions) {
		if err := mo.register("encoder", format); err != nil {
			mo.errs = append(mo.errs, err)
			return
		}
		mo.encoders[format] = enc
	})
}

// RegisterDecoder registers the global decoder of a format.
func RegisterDecoder(format string, dec codec.Decoder) ManagerOption {
	return managerOptionFunc(func(mo *ManagerOptions) {
		if err := mo.register("decoder", format); err != nil {
			mo.errs = append(mo.errs, err)
			return
		}
		mo.decoders[format] = dec
	})
}

func (mo *ManagerOptions) register(kind, format string) error {
	if format == "" {
		return apierror.Configurationf("%s is missing attribute format", kind)
	}
	id := kind + ":" + format
	if _, ok := mo.registered[id]; ok {
		return apierror.Configurationf("%s for format %s cannot be registered more than once", kind, format)
	}
	mo.registered[id] = struct{}{}
	return nil
}

// ApiKeyAttribute sets the request attribute holding the api key.
func ApiKeyAttribute(name string) ManagerOption {
	return managerOptionFunc(func(mo *ManagerOptions) {
		mo.keyAttribute = name
	})
}

// WithFormatDetector replaces the [NegotiatingFormatDetector].
func WithFormatDetector(fd FormatDetector) ManagerOption {
	return managerOptionFunc(func(mo *ManagerOptions) {
		mo.formats = fd
	})
}

// GlobalErrors overrides entries of the global error table.
func GlobalErrors(cfg ErrorConfig) ManagerOption {
	return managerOptionFunc(func(mo *ManagerOptions) {
		for code, d := range cfg {
			mo.errors[code] = d
		}
	})
}

// BaseValidator replaces the [validation.Playground] validator.
func BaseValidator(v validation.Validator) ManagerOption {
	return managerOptionFunc(func(mo *ManagerOptions) {
		mo.validator = v
	})
}

// GlobalPropertyPathConverter is appended after every [Api] converter.
func GlobalPropertyPathConverter(c validation.PathConverter) ManagerOption {
	return managerOptionFunc(func(mo *ManagerOptions) {
		mo.pathConverter = c
	})
}

// ManagerLogger sets the logger used by the [Manager].
func ManagerLogger(log *slog.Logger) ManagerOption {
	return managerOptionFunc(func(mo *ManagerOptions) {
		mo.log = log
	})
}

// Manager answers, for a request, which mappers, validators, codecs and
// strategies apply and which error response corresponds to a failure.
// It is immutable once constructed.
type Manager struct {
	resolver      *RequestApiResolver
	formats       FormatDetector
	encoders      map[string]codec.Encoder
	decoders      map[string]codec.Decoder
	errors        ErrorConfig
	validator     validation.Validator
	pathConverter validation.PathConverter
	globalPattern string
	log           *slog.Logger
}

// NewManager validates the registrations and builds a [Manager].
// The json, yaml and toml codecs are registered globally unless
// overridden. Registration errors are joined together.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	mo := &ManagerOptions{
		encoders: map[string]codec.Encoder{
			"json": codec.JSON{},
			"yaml": codec.YAML{},
			"toml": codec.TOML{},
		},
		decoders: map[string]codec.Decoder{
			"json": codec.JSON{},
			"yaml": codec.YAML{},
			"toml": codec.TOML{},
		},
		registered: make(map[string]struct{}),
		formats:    NewFormatDetector(),
		errors:     DefaultErrorConfig(),
		validator:  validation.NewPlayground(),
		log:        restkit.Logger("github.com/z5labs/restkit/rest"),
	}
	for _, opt := range opts {
		opt.ApplyManagerOption(mo)
	}

	reg := NewRegistry()
	errs := mo.errs
	seen := make(map[*Api]struct{})
	var patterns []string
	for _, r := range mo.registrations {
		if r.api == nil {
			errs = append(errs, apierror.Configurationf("api cannot be nil"))
			continue
		}
		if _, ok := seen[r.api]; ok {
			errs = append(errs, apierror.Configurationf("api cannot be registered more than once"))
			continue
		}
		seen[r.api] = struct{}{}

		if r.key == "" && r.pattern == "" {
			errs = append(errs, apierror.Configurationf("api is missing attribute api_key or uri_pattern"))
			continue
		}
		if r.key != "" {
			reg.AddByKey(r.api, r.key)
		}
		if r.pattern == "" {
			continue
		}
		err := reg.AddByUriPattern(r.api, r.pattern)
		if err != nil {
			errs = append(errs, apierror.Configurationf("invalid uri_pattern %s: %s", r.pattern, err))
			continue
		}
		if r.key == "" {
			patterns = append(patterns, r.pattern)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	global := GlobalUriPattern(patterns...)
	resolver, err := NewRequestApiResolver(reg, NewApiKeyResolver(mo.keyAttribute), global)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		resolver:      resolver,
		formats:       mo.formats,
		encoders:      mo.encoders,
		decoders:      mo.decoders,
		errors:        mo.errors,
		validator:     mo.validator,
		pathConverter: mo.pathConverter,
		globalPattern: global,
		log:           mo.log,
	}
	return m, nil
}

// GlobalUriPattern returns the combined pattern of every [Api]
// registered by URI pattern alone.
func (m *Manager) GlobalUriPattern() string {
	return m.globalPattern
}

// ApiKeyAttribute returns the request attribute holding the api key.
func (m *Manager) ApiKeyAttribute() string {
	return m.resolver.keys.Attribute()
}

// Resolve returns the [Api] governing r or nil.
func (m *Manager) Resolve(r *http.Request) (*Api, error) {
	return m.resolver.Resolve(r)
}

// IsRestRequest reports whether r is governed by an [Api].
func (m *Manager) IsRestRequest(r *http.Request) (bool, error) {
	api, err := m.resolver.Resolve(r)
	return api != nil, err
}

// ApiKey returns the explicit api key of r, if any.
func (m *Manager) ApiKey(r *http.Request) (string, bool) {
	return m.resolver.ApiKey(r)
}

func controllerOf(r *http.Request) string {
	return AttributesFrom(r.Context()).String(ControllerAttribute)
}

// RequestMapper returns the body mapper for r or nil.
func (m *Manager) RequestMapper(r *http.Request) (mapper.RequestMapper, error) {
	api, err := m.resolver.Resolve(r)
	if api == nil || err != nil {
		return nil, err
	}
	return api.RequestMapper(controllerOf(r)), nil
}

// RequestQueryMapper returns the query mapper for r or nil.
func (m *Manager) RequestQueryMapper(r *http.Request) (mapper.RequestMapper, error) {
	api, err := m.resolver.Resolve(r)
	if api == nil || err != nil {
		return nil, err
	}
	return api.RequestQueryMapper(controllerOf(r)), nil
}

// ResponseMapper returns the response mapper for r or nil.
func (m *Manager) ResponseMapper(r *http.Request, opts Options) (mapper.Normalizer, error) {
	api, err := m.resolver.Resolve(r)
	if api == nil || err != nil {
		return nil, err
	}
	return api.ResponseMapper(controllerOf(r), opts), nil
}

// ValidationGroups returns the validation groups for r. No groups
// means no validation.
func (m *Manager) ValidationGroups(r *http.Request) ([]string, error) {
	api, err := m.resolver.Resolve(r)
	if api == nil || err != nil {
		return nil, err
	}
	return api.ValidationGroups(controllerOf(r)), nil
}

// PropertiesValidator returns the validator for r. Violation paths are
// converted by the [Api] converters followed by the global converter.
func (m *Manager) PropertiesValidator(r *http.Request) (*validation.PropertiesAware, error) {
	api, err := m.resolver.Resolve(r)
	if api == nil || err != nil {
		return nil, err
	}

	base := api.Validator()
	if base == nil {
		base = m.validator
	}
	chain := api.PropertyPathConverter(controllerOf(r))
	if m.pathConverter != nil {
		chain = append(chain, m.pathConverter)
	}
	return validation.NewPropertiesAware(base, chain), nil
}

// CacheStrategy returns the cache strategy for r or nil.
func (m *Manager) CacheStrategy(r *http.Request, opts Options) (cache.Strategy, error) {
	api, err := m.resolver.Resolve(r)
	if api == nil || err != nil {
		return nil, err
	}
	return api.CacheStrategy(controllerOf(r), opts), nil
}

// SecurityStrategy returns the security strategy for r or nil.
func (m *Manager) SecurityStrategy(r *http.Request) (SecurityStrategy, error) {
	api, err := m.resolver.Resolve(r)
	if api == nil || err != nil {
		return nil, err
	}
	return api.SecurityStrategy(), nil
}

// Logger returns the [Api] logger for r or nil.
func (m *Manager) Logger(r *http.Request) (*slog.Logger, error) {
	api, err := m.resolver.Resolve(r)
	if api == nil || err != nil {
		return nil, err
	}
	return api.Logger(), nil
}

// RequestLoggingParts returns the request logging policy for r or nil.
func (m *Manager) RequestLoggingParts(r *http.Request) (*LoggingParts, error) {
	api, err := m.resolver.Resolve(r)
	if api == nil || err != nil {
		return nil, err
	}
	return api.RequestLoggingParts(controllerOf(r)), nil
}

// AttributeResolvers returns the attribute resolvers for r.
func (m *Manager) AttributeResolvers(r *http.Request) ([]AttributeResolver, error) {
	api, err := m.resolver.Resolve(r)
	if api == nil || err != nil {
		return nil, err
	}
	return api.AttributeResolvers(controllerOf(r)), nil
}

// Encoder negotiates the response format of r and returns its encoder,
// or nil when r is not governed.
func (m *Manager) Encoder(r *http.Request) (codec.Encoder, error) {
	api, err := m.resolver.Resolve(r)
	if api == nil || err != nil {
		return nil, err
	}
	return m.encoderForApi(r, api)
}

// Decoder negotiates the request format of r and returns its decoder,
// or nil when r is not governed.
func (m *Manager) Decoder(r *http.Request) (codec.Decoder, error) {
	api, err := m.resolver.Resolve(r)
	if api == nil || err != nil {
		return nil, err
	}
	return m.decoderForApi(r, api)
}

func (m *Manager) encoderForApi(r *http.Request, api *Api) (codec.Encoder, error) {
	format, err := m.formats.ResponseFormat(r, api.ResponseFormats())
	if err != nil {
		return nil, err
	}
	if enc, ok := api.Encoder(format); ok {
		return enc, nil
	}
	if enc, ok := m.encoders[format]; ok {
		return enc, nil
	}
	return nil, apierror.Configurationf("Format is not supported: %s", format)
}

func (m *Manager) decoderForApi(r *http.Request, api *Api) (codec.Decoder, error) {
	format, err := m.formats.RequestFormat(r, api.RequestFormats())
	if err != nil {
		return nil, err
	}
	if dec, ok := api.Decoder(format); ok {
		return dec, nil
	}
	if dec, ok := m.decoders[format]; ok {
		return dec, nil
	}
	return nil, apierror.Configurationf("Format is not supported: %s", format)
}

// FillErrorDefaults backfills unset fields of e from the [Api] error
// overrides, then the global table. Set fields are never overwritten.
func (m *Manager) FillErrorDefaults(api *Api, e *Error) {
	global, ok := m.errors[e.Code]
	if !ok {
		global = ErrorDefaults{StatusCode: http.StatusBadRequest}
	}
	var override ErrorDefaults
	if api != nil {
		override, _ = api.ErrorDefaults(e.Code)
	}
	fillErrorDefaults(e, override, global)
}

// ResponseForError maps err into an encoded [Reply]. It returns nil when
// r is not governed. A request whose api cannot be resolved gets an empty
// 500 reply.
func (m *Manager) ResponseForError(r *http.Request, err error) (*Reply, error) {
	api, resolveErr := m.resolver.Resolve(r)
	if resolveErr != nil {
		m.log.ErrorContext(r.Context(), "failed to resolve api while handling error", slog.Any("error", resolveErr))
		return &Reply{StatusCode: http.StatusInternalServerError, Header: make(http.Header)}, nil
	}
	if api == nil {
		return nil, nil
	}

	e := ErrorFromError(err)
	m.FillErrorDefaults(api, e)
	if e.StatusCode == 0 {
		e.StatusCode = http.StatusBadRequest
	}

	enc, err := m.encoderForApi(r, api)
	var apiErr *apierror.ApiError
	if errors.As(err, &apiErr) && apiErr.Code == apierror.NotAcceptable {
		reply := &Reply{
			StatusCode: e.StatusCode,
			Header:     make(http.Header),
			Body:       []byte(e.Message),
		}
		reply.Header.Set("Content-Type", "text/plain; charset=utf-8")
		return reply, nil
	}
	if err != nil {
		return nil, err
	}

	body, err := enc.Encode(e.Map())
	if err != nil {
		return nil, err
	}

	reply := &Reply{
		StatusCode: e.StatusCode,
		Header:     make(http.Header),
		Body:       body,
	}
	reply.Header.Set("Content-Type", enc.ContentType())
	return reply, nil
}
