package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"budgetadvisor/internal/answer"
	"budgetadvisor/internal/cache"
	applog "budgetadvisor/internal/log"
	"budgetadvisor/internal/middleware/ratelimit"
	"budgetadvisor/internal/middleware/security"
	"budgetadvisor/internal/middleware/trace"
	appweb "budgetadvisor/web"
)

// ServerConfig carries the collaborators of the web surface.
type ServerConfig struct {
	Addr     string
	Answerer answer.Answerer
	Strategy answer.Strategy
	Logger   *applog.Logger
	// RateLimitRPM bounds POST requests per client per minute; zero disables limiting.
	RateLimitRPM int
	// Caches are reported on /readyz and /metrics by name.
	Caches map[string]cache.Observed
}

// Server serves the budget form, the analysis partial and the JSON API.
type Server struct {
	http.Server
	templates *template.Template
	answerer  answer.Answerer
	strategy  answer.Strategy
	logger    *applog.Logger
	caches    map[string]cache.Observed

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime         time.Time
	analyses       int64
	answers        int64
	answerFailures int64
}

// NewServer wires routes and middleware. Template parse failures are logged
// and reported by /readyz rather than returned.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.FromSlog(slog.Default(), applog.ComponentHTTP)
	}
	answerer := cfg.Answerer
	strategy := cfg.Strategy
	if answerer == nil {
		answerer = answer.Disabled{}
		strategy = answer.StrategyNone
	}

	mux := http.NewServeMux()
	s := &Server{
		answerer:         answerer,
		strategy:         strategy,
		logger:           logger.WithComponent(applog.ComponentHTTP),
		caches:           cfg.Caches,
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	if cfg.RateLimitRPM > 0 {
		rl := ratelimit.DefaultConfig()
		rl.RequestsPerMinute = cfg.RateLimitRPM
		s.rateLimiter = ratelimit.NewLimiter(rl)
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.WithComponent(applog.ComponentTemplate).Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/analyze", s.handleAPIAnalyze)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	handler := applog.ComponentMiddleware(applog.ComponentHTTP)(mux)
	if s.rateLimiter != nil {
		handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit)(handler)
	}
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded",
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)

	if r.URL.Path == "/api/analyze" {
		JSONError(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
		return
	}
	TooManyRequestsError("Rate limit exceeded. Please try again later.").
		TriggerErrorNotification("Too many requests, slow down.").
		Write(w)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	// Ensure shutdown logic runs only once
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
