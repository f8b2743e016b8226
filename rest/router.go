// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/z5labs/restkit"
	"github.com/z5labs/restkit/apierror"
	"github.com/z5labs/restkit/health"

	"github.com/go-chi/chi/v5"
	"github.com/z5labs/sdk-go/try"
	"go.opentelemetry.io/otel"
)

// Controller handles a request once the [Listener] has prepared it.
// Its result is shaped by [Listener.OnView]. A nil result produces an
// empty response.
type Controller interface {
	Handle(context.Context, *http.Request) (any, error)
}

// ControllerFunc is a func adapter for [Controller].
type ControllerFunc func(context.Context, *http.Request) (any, error)

// Handle implements the [Controller] interface.
func (f ControllerFunc) Handle(ctx context.Context, r *http.Request) (any, error) {
	return f(ctx, r)
}

// RouterOptions are the settings of a [Router].
type RouterOptions struct {
	errHandler ErrorHandler
	readiness  health.Monitor
	liveness   health.Monitor
}

// RouterOption configures a [Router].
type RouterOption interface {
	ApplyRouterOption(*RouterOptions)
}

type routerOptionFunc func(*RouterOptions)

func (f routerOptionFunc) ApplyRouterOption(ro *RouterOptions) {
	f(ro)
}

// OnError sets the [ErrorHandler] used for errors of requests which are
// not governed by an [Api].
func OnError(eh ErrorHandler) RouterOption {
	return routerOptionFunc(func(ro *RouterOptions) {
		ro.errHandler = eh
	})
}

// Readiness will register the given [health.Monitor] to be used
// for reporting when the application is ready to accept traffic
// at GET /health/readiness.
//
// See [Configure Liveness and Readiness](https://kubernetes.io/docs/tasks/configure-pod-container/configure-liveness-readiness-startup-probes/)
// for more details.
func Readiness(m health.Monitor) RouterOption {
	return routerOptionFunc(func(ro *RouterOptions) {
		ro.readiness = m
	})
}

// Liveness will register the given [health.Monitor] to be used
// for reporting when the entire application needs to be restarted
// at GET /health/liveness.
func Liveness(m health.Monitor) RouterOption {
	return routerOptionFunc(func(ro *RouterOptions) {
		ro.liveness = m
	})
}

// RouteOptions are the route attributes of a single route.
type RouteOptions struct {
	apiKey     string
	attributes map[string]any
}

// RouteOption configures a single route.
type RouteOption interface {
	ApplyRouteOption(*RouteOptions)
}

type routeOptionFunc func(*RouteOptions)

func (f routeOptionFunc) ApplyRouteOption(ro *RouteOptions) {
	f(ro)
}

// WithAttribute sets a route attribute.
func WithAttribute(name string, v any) RouteOption {
	return routeOptionFunc(func(ro *RouteOptions) {
		ro.attributes[name] = v
	})
}

// WithFormat pins the response format of the route.
func WithFormat(format string) RouteOption {
	return WithAttribute(FormatAttribute, format)
}

// WithApiKey binds the route to the [Api] registered under key.
func WithApiKey(key string) RouteOption {
	return routeOptionFunc(func(ro *RouteOptions) {
		ro.apiKey = key
	})
}

// Router is a [chi.Router] backed HTTP handler which runs every route
// through the [Listener] lifecycle.
type Router struct {
	listener   *Listener
	mux        *chi.Mux
	errHandler ErrorHandler
}

// NewRouter initializes a [Router]. Unmatched paths and methods are
// reported through the exception phase. The health endpoints are never
// governed by an [Api].
func NewRouter(l *Listener, opts ...RouterOption) *Router {
	var defaultHealth health.Binary
	defaultHealth.MarkHealthy()

	ro := &RouterOptions{
		errHandler: defaultErrorHandler(restkit.Logger("github.com/z5labs/restkit/rest").Handler()),
		readiness:  &defaultHealth,
		liveness:   &defaultHealth,
	}
	for _, opt := range opts {
		opt.ApplyRouterOption(ro)
	}

	rt := &Router{
		listener:   l,
		mux:        chi.NewMux(),
		errHandler: ro.errHandler,
	}
	rt.mux.Get("/health/readiness", healthHandler(ro.readiness, l.log))
	rt.mux.Get("/health/liveness", healthHandler(ro.liveness, l.log))
	rt.mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		r, _ = ensureAttributes(r)
		rt.handleError(w, r, apierror.ResourceNotFoundError{Path: r.URL.Path})
	})
	rt.mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		r, _ = ensureAttributes(r)
		rt.handleError(w, r, apierror.MethodNotAllowedError{Method: r.Method})
	})
	return rt
}

// Route registers the controller for method and pattern. The controller
// id is exposed as the "_controller" attribute and selects the per
// controller [Api] settings.
func (rt *Router) Route(method, pattern, controllerID string, c Controller, opts ...RouteOption) {
	ro := &RouteOptions{
		attributes: map[string]any{
			ControllerAttribute: controllerID,
		},
	}
	for _, opt := range opts {
		opt.ApplyRouteOption(ro)
	}
	if ro.apiKey != "" {
		ro.attributes[rt.listener.Manager().ApiKeyAttribute()] = ro.apiKey
	}

	rt.mux.Method(strings.ToUpper(method), pattern, &route{
		router:     rt,
		attributes: ro.attributes,
		controller: c,
	})
}

func healthHandler(m health.Monitor, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		healthy, err := m.Healthy(r.Context())
		if err != nil {
			log.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
		}
		if !healthy || err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// ServeHTTP implements the [http.Handler] interface.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mux.ServeHTTP(w, r)
}

// handleError writes the exception phase reply for err or falls back to
// the [ErrorHandler] when r is not governed.
func (rt *Router) handleError(w http.ResponseWriter, r *http.Request, err error) {
	reply, replyErr := rt.listener.OnException(r, err)
	if replyErr != nil {
		rt.errHandler.OnError(r.Context(), w, replyErr)
		return
	}
	if reply == nil {
		rt.errHandler.OnError(r.Context(), w, err)
		return
	}
	rt.write(w, r, reply)
}

// write sends reply to w. The status line is already sent when the
// body fails to write so the failure is only logged.
func (rt *Router) write(w http.ResponseWriter, r *http.Request, reply *Reply) {
	err := reply.Write(w)
	if err == nil {
		return
	}
	rt.listener.logger(r).ErrorContext(
		r.Context(),
		"failed to write response",
		slog.Int("status_code", reply.StatusCode),
		slog.Any("error", err),
	)
}

type route struct {
	router     *Router
	attributes map[string]any
	controller Controller
}

func (rt *route) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	spanCtx, span := otel.Tracer("rest").Start(r.Context(), "route.ServeHTTP")
	defer span.End()

	attrs := NewAttributes()
	for name, v := range rt.attributes {
		attrs.Set(name, v)
	}
	r = r.WithContext(WithAttributes(spanCtx, attrs))

	err := rt.serve(w, r)
	if err == nil {
		return
	}
	span.RecordError(err)
	rt.router.handleError(w, r, err)
}

func (rt *route) serve(w http.ResponseWriter, r *http.Request) (err error) {
	defer try.Recover(&err)

	l := rt.router.listener
	r, err = l.OnRequest(r)
	if err != nil {
		return err
	}
	r, err = l.OnController(r)
	if err != nil {
		return err
	}

	result, err := rt.controller.Handle(r.Context(), r)
	if err != nil {
		return err
	}

	reply, err := l.OnView(r, result)
	if err != nil {
		return err
	}
	if reply != nil {
		rt.router.write(w, r, reply)
		return nil
	}
	return fallback(w, r, result)
}

// fallback serves results which were not shaped by the [Listener].
func fallback(w http.ResponseWriter, r *http.Request, result any) error {
	switch v := result.(type) {
	case nil:
		w.WriteHeader(http.StatusNoContent)
		return nil
	case http.Handler:
		v.ServeHTTP(w, r)
		return nil
	default:
		return UnhandledResultError{Result: result}
	}
}
