// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/z5labs/restkit"
	"github.com/z5labs/restkit/apierror"
	"github.com/z5labs/restkit/cache"
	"github.com/z5labs/restkit/concurrent"
	"github.com/z5labs/restkit/mapper"

	"github.com/z5labs/sdk-go/try"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
)

// ListenerOptions are the settings of a [Listener].
type ListenerOptions struct {
	locales []string
	log     *slog.Logger
}

// ListenerOption configures a [Listener].
type ListenerOption interface {
	ApplyListenerOption(*ListenerOptions)
}

type listenerOptionFunc func(*ListenerOptions)

func (f listenerOptionFunc) ApplyListenerOption(lo *ListenerOptions) {
	f(lo)
}

// Locales sets the locales which can be negotiated from the
// Accept-Language header. The first locale is the fallback of the
// matcher and is never selected unless the client asked for it.
func Locales(locales ...string) ListenerOption {
	return listenerOptionFunc(func(lo *ListenerOptions) {
		lo.locales = locales
	})
}

// ListenerLogger sets the logger used for requests whose [Api] does
// not configure its own.
func ListenerLogger(log *slog.Logger) ListenerOption {
	return listenerOptionFunc(func(lo *ListenerOptions) {
		lo.log = log
	})
}

// Listener runs the request lifecycle phases for requests governed by
// an [Api]. Requests which are not governed pass through every phase
// untouched.
type Listener struct {
	manager *Manager
	locales []string
	matcher language.Matcher
	log     *slog.Logger
	loggers *concurrent.Cache[*Api, *slog.Logger]
}

// NewListener initializes a [Listener].
func NewListener(m *Manager, opts ...ListenerOption) *Listener {
	lo := &ListenerOptions{
		log: restkit.Logger("github.com/z5labs/restkit/rest"),
	}
	for _, opt := range opts {
		opt.ApplyListenerOption(lo)
	}

	l := &Listener{
		manager: m,
		locales: lo.locales,
		log:     lo.log,
		loggers: concurrent.NewCache[*Api, *slog.Logger](),
	}
	if len(lo.locales) > 0 {
		tags := make([]language.Tag, 0, len(lo.locales))
		for _, locale := range lo.locales {
			tags = append(tags, language.Make(locale))
		}
		l.matcher = language.NewMatcher(tags)
	}
	return l
}

// Manager returns the [Manager] backing l.
func (l *Listener) Manager() *Manager {
	return l.manager
}

func (l *Listener) logger(r *http.Request) *slog.Logger {
	api, err := l.manager.Resolve(r)
	if api == nil || err != nil {
		return l.log
	}
	log, _ := l.loggers.GetOr(api, func() (*slog.Logger, error) {
		if log := api.Logger(); log != nil {
			return log, nil
		}
		return l.log, nil
	})
	return log
}

// OnRequest resolves the request locale. The "locale" query parameter
// wins over Accept-Language negotiation and is removed from the query.
func (l *Listener) OnRequest(r *http.Request) (_ *http.Request, err error) {
	_, span := otel.Tracer("rest").Start(r.Context(), "Listener.OnRequest")
	defer span.End()
	defer recordError(span, &err)

	governed, err := l.manager.IsRestRequest(r)
	if err != nil || !governed {
		return r, err
	}

	r, attrs := ensureAttributes(r)
	query := r.URL.Query()
	if query.Has("locale") {
		attrs.Set(LocaleAttribute, query.Get("locale"))
	} else if locale, ok := l.preferredLocale(r); ok {
		attrs.Set(LocaleAttribute, locale)
	}
	if !query.Has("locale") {
		return r, nil
	}

	query.Del("locale")
	r = r.Clone(r.Context())
	r.URL.RawQuery = query.Encode()
	return r, nil
}

// preferredLocale returns the best configured locale for the
// Accept-Language header, but only when the client listed it verbatim.
func (l *Listener) preferredLocale(r *http.Request) (string, bool) {
	if len(l.locales) == 0 {
		return "", false
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return "", false
	}

	_, idx, confidence := l.matcher.Match(tags...)
	if confidence == language.No {
		return "", false
	}
	preferred := l.locales[idx]
	for _, tag := range tags {
		if normalizeLocale(tag.String()) == normalizeLocale(preferred) {
			return preferred, true
		}
	}
	return "", false
}

func normalizeLocale(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", "-"))
}

// OnController prepares a governed request for its controller. It logs
// the request, enforces the security strategy, maps and validates the
// query and the body and runs the attribute resolvers. Mapped entities
// are stored as attributes under their mapper name.
func (l *Listener) OnController(r *http.Request) (_ *http.Request, err error) {
	spanCtx, span := otel.Tracer("rest").Start(r.Context(), "Listener.OnController")
	defer span.End()
	defer recordError(span, &err)

	governed, err := l.manager.IsRestRequest(r)
	if err != nil || !governed {
		return r, err
	}

	log := l.logger(r)
	log.DebugContext(spanCtx, "handling controller", slog.String("controller", controllerOf(r)))

	r, attrs := ensureAttributes(r)
	body, err := readBody(r)
	if err != nil {
		return r, err
	}

	parts, err := l.manager.RequestLoggingParts(r)
	if err != nil {
		return r, err
	}
	if parts != nil {
		requestLogger{log: log}.Log(r, body, *parts)
	}

	security, err := l.manager.SecurityStrategy(r)
	if err != nil {
		return r, err
	}
	if security != nil && !security.IsAllowed(r) {
		return r, apierror.New(apierror.Forbidden, "Access to this API is forbidden for current client")
	}

	err = l.mapQuery(spanCtx, r, attrs, log)
	if err != nil {
		return r, err
	}
	err = l.mapBody(spanCtx, r, body, attrs, log)
	if err != nil {
		return r, err
	}

	resolvers, err := l.manager.AttributeResolvers(r)
	if err != nil {
		return r, err
	}
	for _, resolver := range resolvers {
		values, err := resolver.ResolveAttributes(r)
		if err != nil {
			return r, err
		}
		for name, v := range values {
			attrs.Set(name, v)
		}
	}
	return r, nil
}

func (l *Listener) mapQuery(ctx context.Context, r *http.Request, attrs *Attributes, log *slog.Logger) error {
	m, err := l.manager.RequestQueryMapper(r)
	if err != nil || m == nil {
		return err
	}

	entity, err := m.MapToEntity(queryData(r.URL.Query()))
	if err != nil {
		return invalidDataToApiError(err)
	}
	log.DebugContext(ctx, "mapped query data to entity", slog.String("mapper", m.Name()))

	err = l.validate(ctx, r, entity, log)
	if err != nil {
		return err
	}
	attrs.Set(m.Name(), entity)
	return nil
}

func (l *Listener) mapBody(ctx context.Context, r *http.Request, body []byte, attrs *Attributes, log *slog.Logger) error {
	m, err := l.manager.RequestMapper(r)
	if err != nil || m == nil {
		return err
	}

	var data any
	if len(body) > 0 {
		dec, err := l.manager.Decoder(r)
		if err != nil {
			return err
		}
		data, err = dec.Decode(body)
		var encErr *apierror.EncodingError
		if errors.As(err, &encErr) {
			return &apierror.ApiError{
				Code:    apierror.InvalidRequest,
				Message: "Content of request is not valid in this format",
				Cause:   err,
			}
		}
		if err != nil {
			return err
		}
	}

	entity, err := m.MapToEntity(data)
	if err != nil {
		return invalidDataToApiError(err)
	}
	log.DebugContext(ctx, "mapped data to entity", slog.String("mapper", m.Name()))

	err = l.validate(ctx, r, entity, log)
	if err != nil {
		return err
	}
	attrs.Set(m.Name(), entity)
	return nil
}

func (l *Listener) validate(ctx context.Context, r *http.Request, entity any, log *slog.Logger) error {
	groups, err := l.manager.ValidationGroups(r)
	if err != nil || len(groups) == 0 {
		return err
	}
	validator, err := l.manager.PropertiesValidator(r)
	if err != nil || validator == nil {
		return err
	}

	err = validator.Validate(entity, groups)
	var invalid *apierror.InvalidDataError
	if errors.As(err, &invalid) {
		log.InfoContext(ctx, "invalid data", slog.Any("properties", invalid.Properties))
		return invalid.ApiError()
	}
	return err
}

func invalidDataToApiError(err error) error {
	var invalid *apierror.InvalidDataError
	if errors.As(err, &invalid) {
		return invalid.ApiError()
	}
	return err
}

// queryData flattens query values. Repeated keys keep every value.
func queryData(q url.Values) map[string]any {
	data := make(map[string]any, len(q))
	for name, values := range q {
		if len(values) == 1 {
			data[name] = values[0]
			continue
		}
		vs := make([]any, len(values))
		for i, v := range values {
			vs[i] = v
		}
		data[name] = vs
	}
	return data
}

func readBody(r *http.Request) (b []byte, err error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	defer try.Close(&err, r.Body)

	b, err = io.ReadAll(r.Body)
	if err != nil {
		return nil, BadRequestError{Cause: err}
	}
	r.Body = io.NopCloser(bytes.NewReader(b))
	return b, nil
}

func ensureAttributes(r *http.Request) (*http.Request, *Attributes) {
	attrs := AttributesFrom(r.Context())
	if attrs != nil {
		return r, attrs
	}
	attrs = NewAttributes()
	return r.WithContext(WithAttributes(r.Context(), attrs)), attrs
}

// OnView shapes the controller result into a [Reply]. It returns nil
// when r is not governed or when no response mapper is configured for
// a non-nil result.
func (l *Listener) OnView(r *http.Request, result any) (_ *Reply, err error) {
	spanCtx, span := otel.Tracer("rest").Start(r.Context(), "Listener.OnView")
	defer span.End()
	defer recordError(span, &err)

	governed, err := l.manager.IsRestRequest(r)
	if err != nil || !governed {
		return nil, err
	}
	log := l.logger(r)

	payload, headers, opts := unwrapResponse(result)
	reply := &Reply{
		StatusCode: http.StatusOK,
		Header:     make(http.Header, len(headers)+4),
	}
	for name, values := range headers {
		reply.Header[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}

	strategy, err := l.manager.CacheStrategy(r, opts)
	if err != nil {
		return nil, err
	}

	maxAge := 0
	etag := ""
	if strategy != nil {
		maxAge = strategy.MaxAge()
		if modifiedAt, ok := strategy.ModifiedAt(payload); ok {
			modifiedAt = modifiedAt.UTC().Truncate(time.Second)
			reply.Header.Set("Last-Modified", modifiedAt.Format(http.TimeFormat))
			etag = strconv.Quote(strconv.FormatInt(modifiedAt.Unix(), 10))
			if notModified(r, etag, modifiedAt) {
				log.DebugContext(spanCtx, "response not modified")
				reply.StatusCode = http.StatusNotModified
				reply.Header.Set("ETag", etag)
				return reply, nil
			}
		}
	}

	directives := cache.ParseDirectives(reply.Header)
	directives.Set("max-age", strconv.Itoa(maxAge))
	if ra, ok := strategy.(cache.ResponseAware); ok {
		ra.SetResponse(directives)
	} else {
		directives.Remove("public")
		for _, d := range []string{"no-store", "no-cache", "must-revalidate", "private"} {
			directives.Set(d, "")
		}
	}
	reply.Header.Set("Cache-Control", directives.String())

	if payload == nil {
		log.DebugContext(spanCtx, "empty response")
		reply.StatusCode = http.StatusNoContent
	} else {
		normalizer, err := l.manager.ResponseMapper(r, opts)
		if err != nil {
			return nil, err
		}
		if normalizer == nil {
			log.DebugContext(spanCtx, "no response mapper set")
			return nil, nil
		}

		content, err := normalize(normalizer, payload, r.URL.Query().Get("fields"))
		if err != nil {
			return nil, err
		}
		enc, err := l.manager.Encoder(r)
		if err != nil {
			return nil, err
		}
		reply.Body, err = enc.Encode(content)
		if err != nil {
			return nil, err
		}
		reply.Header.Set("Content-Type", enc.ContentType())
	}

	if etag == "" {
		sum := sha256.Sum256(reply.Body)
		etag = strconv.Quote(hex.EncodeToString(sum[:]))
	}
	reply.Header.Set("ETag", etag)
	reply.Header.Set("X-Frame-Options", "DENY")
	return reply, nil
}

func normalize(n mapper.Normalizer, payload any, fields string) (any, error) {
	if fields == "" {
		return n.MapFromEntity(payload)
	}
	selected := mapper.ParseFields(fields)
	if cn, ok := n.(mapper.ContextNormalizer); ok {
		return cn.MapFromEntityContext(payload, mapper.Context{Fields: selected})
	}
	content, err := n.MapFromEntity(payload)
	if err != nil {
		return nil, err
	}
	return mapper.Project(content, selected), nil
}

// notModified evaluates the conditional request headers of r against
// the validators of the response. Only GET and HEAD requests can be
// answered with 304.
func notModified(r *http.Request, etag string, modifiedAt time.Time) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}

	matched := false
	ifNoneMatch := r.Header.Get("If-None-Match")
	for _, tag := range strings.Split(ifNoneMatch, ",") {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "W/")
		if tag == "*" || tag == etag {
			matched = true
			break
		}
	}

	ifModifiedSince := r.Header.Get("If-Modified-Since")
	if ifModifiedSince == "" {
		return matched
	}
	since, err := http.ParseTime(ifModifiedSince)
	if err != nil {
		return matched
	}
	return !since.Before(modifiedAt) && (ifNoneMatch == "" || matched)
}

// OnException maps err into an error [Reply]. It returns nil when r
// is not governed.
func (l *Listener) OnException(r *http.Request, err error) (*Reply, error) {
	spanCtx, span := otel.Tracer("rest").Start(r.Context(), "Listener.OnException")
	defer span.End()

	reply, replyErr := l.manager.ResponseForError(r, err)
	if replyErr != nil {
		recordError(span, &replyErr)
		return nil, replyErr
	}
	if reply == nil {
		return nil, nil
	}

	level := slog.LevelInfo
	if reply.StatusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	l.logger(r).Log(
		spanCtx,
		level,
		"sending error response",
		slog.Int("status_code", reply.StatusCode),
		slog.Any("error", err),
	)
	return reply, nil
}

func recordError(span trace.Span, err *error) {
	if *err == nil {
		return
	}
	span.RecordError(*err)
	span.SetStatus(codes.Error, (*err).Error())
}
