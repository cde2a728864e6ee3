// Package webserver provides the smart kitchen HTTP server: the HTMX page,
// its partial endpoints and the JSON state snapshot
package webserver

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
	"github.com/alchemorsel/chefnano/internal/infrastructure/config"
	"github.com/alchemorsel/chefnano/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/chefnano/internal/infrastructure/monitoring"
	"github.com/alchemorsel/chefnano/internal/ports/inbound"
	"github.com/alchemorsel/chefnano/pkg/healthcheck"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// WebServer represents the kitchen HTTP server
type WebServer struct {
	config      *config.Config
	logger      *zap.Logger
	server      *http.Server
	router      *chi.Mux
	handler     http.Handler
	kitchen     inbound.KitchenService
	sessions    *SessionManager
	templates   *template.Template
	healthCheck *healthcheck.HealthCheck
	metrics     *monitoring.MetricsCollector
	middleware  *middleware.Middleware
	markdown    *MarkdownRenderer
	validate    *validator.Validate
	locale      kitchen.Locale
	labels      map[string]string
	now         func() time.Time
}

// NewWebServer creates a new kitchen server instance. metrics may be nil.
func NewWebServer(
	cfg *config.Config,
	log *zap.Logger,
	kitchenService inbound.KitchenService,
	sessions *SessionManager,
	healthCheck *healthcheck.HealthCheck,
	metrics *monitoring.MetricsCollector,
) (*WebServer, error) {
	log = log.Named("webserver")

	templates, err := parseTemplates()
	if err != nil {
		log.Error("Failed to parse templates", zap.Error(err))
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	locale := kitchen.ParseLocale(cfg.App.Locale)
	s := &WebServer{
		config:      cfg,
		logger:      log,
		kitchen:     kitchenService,
		sessions:    sessions,
		templates:   templates,
		healthCheck: healthCheck,
		metrics:     metrics,
		middleware:  middleware.New(cfg, log),
		markdown:    NewMarkdownRenderer(),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		locale:      locale,
		labels:      labelsFor(locale),
		now:         time.Now,
	}

	s.router = s.setupRoutes()
	s.handler = s.router
	if cfg.Monitoring.EnableTracing {
		s.handler = otelhttp.NewHandler(s.router, cfg.App.Name,
			otelhttp.WithFilter(func(r *http.Request) bool {
				return !s.isUntracedPath(r.URL.Path)
			}),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}

	s.server = &http.Server{
		Addr:           cfg.ListenAddr(),
		Handler:        s.handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return s, nil
}

// setupRoutes configures the kitchen routes
func (s *WebServer) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(s.middleware.RequestID)
	r.Use(s.middleware.Logger)
	r.Use(s.middleware.Recovery)
	if s.metrics != nil {
		r.Use(s.metrics.HTTPMiddleware)
	}
	r.Use(s.middleware.Compression)
	r.Use(s.middleware.Security)
	r.Use(s.middleware.RateLimit)

	r.Handle("/static/*", http.FileServer(http.FS(staticFS)))

	mon := s.config.Monitoring
	if s.healthCheck != nil {
		r.Get(mon.HealthCheckPath, s.healthCheck.Handler())
		r.Get(mon.ReadinessPath, s.healthCheck.ReadinessHandler())
		r.Get(mon.LivenessPath, s.healthCheck.LivenessHandler())
	}
	if s.metrics != nil && mon.EnableMetrics {
		r.Handle(mon.MetricsPath, s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Middleware)

		r.Get("/", s.handleHome)
		r.Get("/kitchen", s.handleKitchen)
		r.Get("/image/download", s.handleDownload)
		r.Get("/api/v1/state", s.handleState)

		r.Group(func(r chi.Router) {
			r.Use(s.csrfMiddleware)

			r.Post("/recipe", s.handleSubmitRecipe)
			r.Post("/image/edit", s.handleSubmitEdit)
			r.Post("/image/save", s.handleSave)
			r.Post("/image/save/failed", s.handleSaveFailed)
			r.Post("/notice/dismiss", s.handleDismissNotice)
		})
	})

	return r
}

// Handler returns the root handler including tracing when enabled.
func (s *WebServer) Handler() http.Handler {
	return s.handler
}

// Start starts the web server on the configured address
func (s *WebServer) Start() error {
	s.logger.Info("Starting kitchen server",
		zap.String("address", s.server.Addr),
		zap.String("locale", string(s.locale)),
	)
	return s.server.ListenAndServe()
}

// Serve accepts connections on an existing listener.
func (s *WebServer) Serve(ln net.Listener) error {
	s.logger.Info("Starting kitchen server",
		zap.String("address", ln.Addr().String()),
		zap.String("locale", string(s.locale)),
	)
	return s.server.Serve(ln)
}

// Shutdown gracefully shuts down the web server
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down kitchen server...")
	return s.server.Shutdown(ctx)
}

func (s *WebServer) isUntracedPath(path string) bool {
	mon := s.config.Monitoring
	switch path {
	case mon.HealthCheckPath, mon.ReadinessPath, mon.LivenessPath, mon.MetricsPath:
		return true
	}
	return strings.HasPrefix(path, "/static/")
}

// parseTemplates parses all HTML templates from the embedded filesystem
func parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"label": func(labels map[string]string, key string) string {
			if v, ok := labels[key]; ok {
				return v
			}
			return key
		},
		"imageURL": func(uri kitchen.DataURI) template.URL {
			// only PNG data URIs produced by the gateway reach the state
			if !strings.HasPrefix(string(uri), "data:image/") {
				return ""
			}
			return template.URL(uri)
		},
	}

	tmpl := template.New("").Funcs(funcMap)
	err := fs.WalkDir(templatesFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		content, err := templatesFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", path, err)
		}
		if _, err := tmpl.New(path).Parse(string(content)); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tmpl, nil
}

// renderTemplate executes a named template into a buffer so a failing
// template never leaves a half written page.
func (s *WebServer) renderTemplate(w http.ResponseWriter, name string, status int, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("Failed to execute template",
			zap.String("template", name),
			zap.Error(err))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, `<!DOCTYPE html><html><head><title>%s</title></head><body><p>%s</p></body></html>`,
			template.HTMLEscapeString(s.labels["title"]),
			template.HTMLEscapeString(http.StatusText(http.StatusInternalServerError)))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// handleError logs and renders an error. HTMX swaps only 2xx responses,
// so the page script surfaces these through its responseError hook.
func (s *WebServer) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var status interface{ StatusCode() int }
	if !errors.As(err, &status) || status.StatusCode() >= 500 {
		s.logger.Error("Request failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	middleware.WriteError(w, r, err)
}
