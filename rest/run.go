// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/z5labs/restkit"
	"github.com/z5labs/restkit/apierror"
	"github.com/z5labs/restkit/validation"

	"github.com/sourcegraph/conc/pool"
	bedrockcfg "github.com/z5labs/bedrock/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

//go:embed default_config.yaml
var DefaultConfig []byte

// Configer is leveraged to constrain the custom config type into
// supporting specific initialization behaviour required by [Run].
type Configer interface {
	Listener(context.Context) (net.Listener, error)
	HttpServer(context.Context, http.Handler) (*http.Server, error)
}

// ErrorSettings override the defaults of a single error code.
type ErrorSettings struct {
	StatusCode int    `config:"status_code"`
	Message    string `config:"message"`
	URI        string `config:"uri"`
}

// Config is the default config which can be easily embedded into a
// more custom app specific config.
type Config struct {
	HTTP struct {
		Port              uint   `config:"port"`
		ReadTimeout       string `config:"read_timeout"`
		ReadHeaderTimeout string `config:"read_header_timeout"`
		WriteTimeout      string `config:"write_timeout"`
		IdleTimeout       string `config:"idle_timeout"`
	} `config:"http"`

	Rest struct {
		ApiKeyAttribute       string                   `config:"api_key_attribute"`
		Locales               []string                 `config:"locales"`
		PropertyPathConverter string                   `config:"property_path_converter"`
		Errors                map[string]ErrorSettings `config:"errors"`
	} `config:"rest"`
}

// Listener implements the [Configer] interface.
func (c Config) Listener(ctx context.Context) (net.Listener, error) {
	return net.Listen("tcp", fmt.Sprintf(":%d", c.HTTP.Port))
}

// HttpServer implements the [Configer] interface.
func (c Config) HttpServer(ctx context.Context, h http.Handler) (*http.Server, error) {
	readTimeout, err := durationOr(c.HTTP.ReadTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}
	readHeaderTimeout, err := durationOr(c.HTTP.ReadHeaderTimeout, 2*time.Second)
	if err != nil {
		return nil, err
	}
	writeTimeout, err := durationOr(c.HTTP.WriteTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	idleTimeout, err := durationOr(c.HTTP.IdleTimeout, 120*time.Second)
	if err != nil {
		return nil, err
	}

	s := &http.Server{
		Handler:           h,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(restkit.Logger("rest").Handler(), slog.LevelError),
	}
	return s, nil
}

func durationOr(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

// ManagerOptions converts the rest settings into [ManagerOption]s.
func (c Config) ManagerOptions() ([]ManagerOption, error) {
	var opts []ManagerOption
	if c.Rest.ApiKeyAttribute != "" {
		opts = append(opts, ApiKeyAttribute(c.Rest.ApiKeyAttribute))
	}

	switch c.Rest.PropertyPathConverter {
	case "", "none":
	case "camel_to_snake":
		opts = append(opts, GlobalPropertyPathConverter(validation.CamelCaseToSnakeCase{}))
	default:
		return nil, apierror.Configurationf("unknown property path converter: %s", c.Rest.PropertyPathConverter)
	}

	if len(c.Rest.Errors) > 0 {
		errs := make(ErrorConfig, len(c.Rest.Errors))
		for code, settings := range c.Rest.Errors {
			errs[apierror.Code(code)] = ErrorDefaults(settings)
		}
		opts = append(opts, GlobalErrors(errs))
	}
	return opts, nil
}

// ListenerOptions converts the rest settings into [ListenerOption]s.
func (c Config) ListenerOptions() []ListenerOption {
	if len(c.Rest.Locales) == 0 {
		return nil
	}
	return []ListenerOption{Locales(c.Rest.Locales...)}
}

// Run begins by reading, parsing and unmarshaling your custom config into
// the type T. Then it calls the providing function to initialize your
// [Router]. Once it has the [Router], it begins serving it over HTTP until
// the process receives an interrupt or termination signal.
func Run[T Configer](r io.Reader, f func(context.Context, T) (*Router, error)) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, r, f)
	if err == nil {
		return
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{}))
	log.Error("failed to run rest app", slog.String("error", err.Error()))
}

func run[T Configer](ctx context.Context, r io.Reader, f func(context.Context, T) (*Router, error)) error {
	src := bedrockcfg.MultiSource(
		restkit.ConfigSource(bytes.NewReader(DefaultConfig)),
		restkit.ConfigSource(r),
	)
	m, err := bedrockcfg.Read(src)
	if err != nil {
		return err
	}

	var cfg T
	err = m.Unmarshal(&cfg)
	if err != nil {
		return err
	}

	router, err := f(ctx, cfg)
	if err != nil {
		return err
	}

	ls, err := cfg.Listener(ctx)
	if err != nil {
		return err
	}

	srv, err := cfg.HttpServer(ctx, otelhttp.NewHandler(
		router,
		"rest",
		otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents),
	))
	if err != nil {
		return err
	}
	return serve(ctx, ls, srv)
}

// serve runs srv on ls until ctx is cancelled, then shuts it down.
func serve(ctx context.Context, ls net.Listener, srv *http.Server) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(func(ctx context.Context) error {
		return srv.Serve(ls)
	})

	p.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return srv.Shutdown(context.Background())
	})

	err := p.Wait()
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
