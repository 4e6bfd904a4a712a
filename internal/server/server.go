// Package server exposes the registry over HTTP: the protocol routes every
// package manager talks to, the admin API and the metrics endpoint.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/nitro-repo/nitro-repo/module/auth"
	"github.com/nitro-repo/nitro-repo/module/registry"
	"github.com/nitro-repo/nitro-repo/module/repository/api"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultMaxBodySize = 512 << 20
	shutdownTimeout    = 15 * time.Second
	requestIDHeader    = "X-Request-Id"
)

type Options struct {
	Controller *registry.Controller
	Users      auth.UserStore
	Sessions   auth.SessionManager
	// Services are handed to every protocol request. Metrics add their own
	// deploy hook on top of Services.Hook.
	Services api.Services
	Metrics  *Metrics
	// MaxBodySize bounds uploads. Zero means 512 MiB.
	MaxBodySize int64
	Now         func() time.Time
}

type Server struct {
	controller  *registry.Controller
	users       auth.UserStore
	sessions    auth.SessionManager
	services    api.Services
	metrics     *Metrics
	maxBodySize int64
	handler     http.Handler
}

func New(opts Options) *Server {
	s := &Server{
		controller:  opts.Controller,
		users:       opts.Users,
		sessions:    opts.Sessions,
		services:    opts.Services,
		metrics:     opts.Metrics,
		maxBodySize: opts.MaxBodySize,
	}
	if s.maxBodySize <= 0 {
		s.maxBodySize = defaultMaxBodySize
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(opts.Controller, nil)
	}
	s.services.Hook = api.Hooks{s.services.Hook, s.metrics.DeployHook()}
	if s.services.Credentials == nil && opts.Users != nil {
		s.services.Credentials = auth.CredentialVerifier{Users: opts.Users}
	}

	resolver := &auth.Resolver{Sessions: opts.Sessions, Users: opts.Users, Now: opts.Now}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.routeAccount(mux)
	s.routeStorages(mux)
	s.routeRepositories(mux)
	s.routeProtocol(mux)

	s.handler = gzhttp.GzipHandler(requestLogger(s.metrics, auth.Middleware(resolver)(mux)))
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, listener)
}

func (s *Server) ServeListener(ctx context.Context, listener net.Listener) error {
	logger := log.Ctx(ctx)
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 30 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return logger.WithContext(context.Background())
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", listener.Addr().String()).Msg("Listening")
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// statusRecorder remembers the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// requestLogger gives every request a request id and a logger carrying it,
// and records the outcome.
func requestLogger(metrics *Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		parent := log.Ctx(r.Context())
		if parent.GetLevel() == zerolog.Disabled {
			parent = &log.Logger
		}
		logger := parent.With().Str("request_id", id).Logger()
		r = r.WithContext(logger.WithContext(r.Context()))

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		metrics.observeRequest(r.Method, rec.status)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
