// Package web serves the clinic dashboard: the login page, the prediction
// form, the trends dashboard, and the JSON API for scripted clients.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"noshow-predictor/internal/auth"
	"noshow-predictor/internal/httpjson"
	"noshow-predictor/internal/logging"
	"noshow-predictor/internal/metrics"
	"noshow-predictor/internal/prediction"
	"noshow-predictor/internal/session"
	"noshow-predictor/internal/trends"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const sessionCookie = "noshow_session"

//go:embed templates/*.html
var templateFS embed.FS

// Deps is everything the handlers touch. Nothing is held in globals.
type Deps struct {
	Auth      *auth.Authenticator
	Tokens    *auth.Tokens
	Sessions  *session.Registry
	Predictor *prediction.Service
	Reporter  *trends.Reporter
	Metrics   *metrics.Metrics
	Logger    logging.Logger
	// SecureCookies marks the session cookie Secure; enable behind TLS.
	SecureCookies bool
}

type Server struct {
	Deps
	pages map[string]*template.Template
}

func NewServer(deps Deps) (*Server, error) {
	if deps.Sessions == nil {
		deps.Sessions = session.NewRegistry()
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Server{Deps: deps, pages: pages}, nil
}

func parsePages() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"percent":  func(r float64) string { return fmt.Sprintf("%.2f%%", r*100) },
		"barWidth": func(r float64) string { return fmt.Sprintf("%.1f", r*100) },
		"chart": func(title, x, y string, rates []trends.Rate) chartData {
			return chartData{Title: title, XLabel: x, YLabel: y, Rates: rates}
		},
	}
	pages := make(map[string]*template.Template)
	for _, name := range []string{"login", "predict", "dashboard"} {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler())
	}

	r.Get("/", s.handleIndex)
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLoginSubmit)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/predict", s.handlePredictPage)
		r.Post("/predict", s.handlePredictSubmit)
		r.Get("/dashboard", s.handleDashboard)
		r.Post("/navigate", s.handleNavigate)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/register", auth.RegisterHandler(s.Auth))
		r.Post("/login", auth.LoginHandler(s.Auth, s.Tokens))
		r.Group(func(r chi.Router) {
			r.Use(auth.JWTMiddleware(s.Tokens))
			r.Post("/predict", prediction.PredictHandler(s.Predictor, s.Metrics, s.Logger))
			r.Get("/trends", trends.TrendsHandler(s.Reporter))
		})
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.Metrics.Request(route, strconv.Itoa(status))
		s.Logger.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
