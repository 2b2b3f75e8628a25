package http

import (
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"budgetadvisor/internal/answer"
	applog "budgetadvisor/internal/log"
)

// Defaults prefilled in the budget form.
var formDefaults = map[string]string{
	"income":        "2500",
	"rent":          "1000",
	"groceries":     "300",
	"credit_card":   "400",
	"entertainment": "400",
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}
	NewHTMXResponse().JSON(health).Write(w)
}

// handleReady reports whether templates loaded and which answer strategy is active.
// A disabled answerer is a valid configuration and does not fail readiness.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.answerer == nil {
		checks["answerer"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["answerer"] = map[string]interface{}{
			"strategy": s.strategy.String(),
			"enabled":  s.strategy != answer.StrategyNone,
		}
	}

	caches := make(map[string]interface{}, len(s.caches))
	for name, c := range s.caches {
		caches[name] = map[string]interface{}{"entries": c.Size()}
	}
	checks["cache"] = caches

	if s.rateLimiter != nil {
		checks["rate_limiter"] = map[string]interface{}{
			"active_clients": s.rateLimiter.ActiveClients(),
			"status":         "ok",
		}
	} else {
		checks["rate_limiter"] = "disabled"
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}
	NewHTMXResponse().Status(httpStatus).JSON(response).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	analyses := atomic.LoadInt64(&s.appMetrics.analyses)
	answers := atomic.LoadInt64(&s.appMetrics.answers)
	failures := atomic.LoadInt64(&s.appMetrics.answerFailures)
	uptime := time.Since(s.appMetrics.uptime)

	w.WriteHeader(http.StatusOK)

	// Write metrics in Prometheus-like format
	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP analyses_total Total number of budget evaluations\n")
	fmt.Fprintf(w, "# TYPE analyses_total counter\n")
	fmt.Fprintf(w, "analyses_total %d\n\n", analyses)

	fmt.Fprintf(w, "# HELP answers_total Total number of answered questions\n")
	fmt.Fprintf(w, "# TYPE answers_total counter\n")
	fmt.Fprintf(w, "answers_total{strategy=%q} %d\n\n", s.strategy.String(), answers)

	fmt.Fprintf(w, "# HELP answer_failures_total Total number of failed answers\n")
	fmt.Fprintf(w, "# TYPE answer_failures_total counter\n")
	fmt.Fprintf(w, "answer_failures_total{strategy=%q} %d\n\n", s.strategy.String(), failures)

	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n")
	fmt.Fprintf(w, "# TYPE cache_entries gauge\n")
	for _, name := range names {
		fmt.Fprintf(w, "cache_entries{cache=%q} %d\n", name, s.caches[name].Size())
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "# HELP cache_hits_total Total cache hits\n")
	fmt.Fprintf(w, "# TYPE cache_hits_total counter\n")
	for _, name := range names {
		hits, _ := s.caches[name].Stats()
		fmt.Fprintf(w, "cache_hits_total{cache=%q} %d\n", name, hits)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "# HELP cache_misses_total Total cache misses\n")
	fmt.Fprintf(w, "# TYPE cache_misses_total counter\n")
	for _, name := range names {
		_, misses := s.caches[name].Stats()
		fmt.Fprintf(w, "cache_misses_total{cache=%q} %d\n", name, misses)
	}
	fmt.Fprintln(w)

	if s.rateLimiter != nil {
		rateLimitMetrics := s.rateLimiter.GetMetrics()
		fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
		fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
		fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

		fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
		fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
		fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", s.rateLimiter.ActiveClients())
	}

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n\n", uptime.Seconds())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("page not found").Write(w)
		return
	}
	if errResp := RequireMethod(r, http.MethodGet, http.MethodHead); errResp != nil {
		errResp.Write(w)
		return
	}
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		Defaults       map[string]string
		MaxQueryLength int
		AnswerEnabled  bool
	}{
		Defaults:       formDefaults,
		MaxQueryLength: MaxQueryLength,
		AnswerEnabled:  s.strategy != answer.StrategyNone,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentTemplate).ErrorContext(r.Context(),
			"Index template execution failed", applog.FieldError, err, "template", "index.html")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}
