package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"budget/internal/auth"
	applog "budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/services"
	appweb "budget/web"
)

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Logger   *applog.Logger
	Auth     *auth.Service
	Budgets  *services.BudgetService
	Settings *services.SettingsService

	// Checks run on /readyz, keyed by dependency name.
	Checks map[string]ReadinessCheck

	RateLimitPerMinute int
	CookieSecure       bool
	AllowSignup        bool
}

type Server struct {
	http.Server
	templates  *template.Template
	logger     *applog.Logger
	structured *applog.StructuredLogger

	auth     *auth.Service
	budgets  *services.BudgetService
	settings *services.SettingsService
	checks   map[string]ReadinessCheck

	cookieSecure bool
	allowSignup  bool

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics   *appMetrics
	shutdownOnce sync.Once
	now          func() time.Time
}

type appMetrics struct {
	uptime        time.Time
	monthEdits    atomic.Int64
	saves         atomic.Int64
	exports       atomic.Int64
	logins        atomic.Int64
	loginFailures atomic.Int64
	syncWarnings  atomic.Int64
}

// NewServer configures routes, middleware and templates.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector()
	limiterCfg := ratelimit.DefaultConfig()
	if deps.RateLimitPerMinute > 0 {
		limiterCfg.RequestsPerMinute = deps.RateLimitPerMinute
	}

	s := &Server{
		logger:           logger,
		structured:       applog.NewStructuredLogger(logger),
		auth:             deps.Auth,
		budgets:          deps.Budgets,
		settings:         deps.Settings,
		checks:           deps.Checks,
		cookieSecure:     deps.CookieSecure,
		allowSignup:      deps.AllowSignup,
		rateLimiter:      ratelimit.NewLimiter(limiterCfg),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		appMetrics:       &appMetrics{uptime: time.Now()},
		now:              time.Now,
	}

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", "error", err)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP, s.onRateLimit)(handler)
	handler = detector.Middleware(detector.ExtractClientIP)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/signup", s.handleSignup)
	mux.HandleFunc("/logout", s.handleLogout)

	mux.Handle("/{$}", s.requireSession(s.handleDashboard))
	mux.Handle("/goals", s.requireSession(s.handleGoals))
	mux.Handle("/months/{period}/{id}", s.requireSession(s.handleUpdateMonth))
	mux.Handle("/save", s.requireSession(s.handleSave))
	mux.Handle("/settings", s.requireSession(s.handleSettings))
	mux.Handle("/settings/reset", s.requireSession(s.handleReset))
	mux.Handle("/export.csv", s.requireSession(s.handleExportCSV))
	mux.Handle("/export.xlsx", s.requireSession(s.handleExportXLSX))
	mux.Handle("/api/dashboard", s.requireSession(s.handleAPIDashboard))
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").Write(w)
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
