package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/jekabolt/grbpwr-insights/internal/dependency"
	"github.com/jekabolt/grbpwr-insights/internal/dto"
	gerr "github.com/jekabolt/grbpwr-insights/internal/errors"
	"github.com/jekabolt/grbpwr-insights/internal/form"
	"github.com/jekabolt/grbpwr-insights/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config is the configuration for the http server
type Config struct {
	Port           string        `mapstructure:"port"`
	Address        string        `mapstructure:"address"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// Pinger is a dependency checked by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the http server
type Server struct {
	hs        *http.Server
	c         *Config
	dashboard dependency.Dashboard
	checks    []Pinger
	done      chan struct{}
}

// New creates a new server
func New(config *Config, dashboard dependency.Dashboard, checks ...Pinger) *Server {
	return &Server{
		c:         config,
		dashboard: dashboard,
		checks:    checks,
		done:      make(chan struct{}),
	}
}

// Done returns a channel that is closed when the http server exits
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Router builds the handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.RequestLogger(slog.Default()))
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return isOriginAllowed(origin, s.c.AllowedOrigins)
		},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Accept-Encoding"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/dashboard", s.getDashboard)
	})

	return r
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	req := form.NewDashboardRequest(r.URL.Query())
	if err := req.Validate(); err != nil {
		s.renderError(w, r, err)
		return
	}

	d, err := s.dashboard.Build(r.Context(), req.Query())
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, dto.ConvertEntityDashboardToResponse(d))
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	st := gerr.Convert(err)
	if st.Code >= http.StatusInternalServerError {
		slog.Default().ErrorContext(r.Context(), "dashboard request failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("query", r.URL.RawQuery),
			slog.String("err", err.Error()),
		)
	}
	render.Status(r, st.Code)
	render.JSON(w, r, dto.NewErrorResponse(st.Message))
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for _, c := range s.checks {
		if err := c.Ping(ctx); err != nil {
			slog.Default().WarnContext(ctx, "health check failed", slog.String("err", err.Error()))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]string{"status": "unavailable"})
			return
		}
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// recoverer turns a panic into a generic JSON 500.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Default().ErrorContext(r.Context(), "panic while serving request",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.Any("panic", rec),
			)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, dto.NewErrorResponse(gerr.MsgInternal))
		}()
		next.ServeHTTP(w, r)
	})
}

// Start starts the server
func (s *Server) Start(ctx context.Context) error {
	listenerAddr := fmt.Sprintf("%s:%s", s.c.Address, s.c.Port)
	s.hs = &http.Server{
		Addr:         listenerAddr,
		Handler:      s.Router(),
		ReadTimeout:  orDefault(s.c.ReadTimeout, 15*time.Second),
		WriteTimeout: orDefault(s.c.WriteTimeout, 120*time.Second),
	}

	go func() {
		slog.Default().InfoContext(ctx, fmt.Sprintf("grbpwr-insights new listener on: http://%v", listenerAddr))
		err := s.hs.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			slog.Default().InfoContext(ctx, "http server returned")
		} else {
			slog.Default().ErrorContext(ctx, "http server exited with an error",
				slog.String("err", err.Error()),
			)
		}
		close(s.done)
	}()

	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hs == nil {
		return nil
	}
	return s.hs.Shutdown(ctx)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func isOriginAllowed(origin string, allowedOrigins []string) bool {
	// Always allow localhost origins
	if strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "https://localhost:") {
		return true
	}

	for _, allowedOrigin := range allowedOrigins {
		if allowedOrigin == "*" || origin == allowedOrigin {
			return true
		}
	}

	return false
}
