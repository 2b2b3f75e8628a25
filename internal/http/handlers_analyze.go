package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"budgetadvisor/internal/advisor"
	"budgetadvisor/internal/answer"
	"budgetadvisor/internal/core"
	applog "budgetadvisor/internal/log"
)

const answerUnavailable = "answer unavailable"

// analysis is the outcome of one submission: the evaluation always, and
// the answer when a question was asked.
type analysis struct {
	result    advisor.Result
	query     string
	answer    string
	answerErr error
}

func (a analysis) asked() bool { return a.query != "" }

func (a analysis) disabled() bool { return errors.Is(a.answerErr, answer.ErrDisabled) }

// failureReason names what went wrong with the answer without exposing
// backend details. It is empty when no better description exists.
func (a analysis) failureReason() string {
	if errors.Is(a.answerErr, context.DeadlineExceeded) {
		return "timed out"
	}
	var ie *answer.InferenceError
	if errors.As(a.answerErr, &ie) {
		return ie.Stage + " failed"
	}
	return ""
}

func (a analysis) answerErrorMessage() string {
	switch {
	case a.answerErr == nil:
		return ""
	case a.disabled():
		return answer.ErrDisabled.Error()
	}
	if reason := a.failureReason(); reason != "" {
		return answerUnavailable + " (" + reason + ")"
	}
	return answerUnavailable
}

// analyze evaluates the record and, when a question is present, asks the
// answerer. An answer failure never fails the evaluation.
func (s *Server) analyze(ctx context.Context, req AnalysisRequest) analysis {
	logger := applog.FromContext(ctx)

	out := analysis{query: req.Query}
	out.result = advisor.Evaluate(req.Record)
	atomic.AddInt64(&s.appMetrics.analyses, 1)
	applog.NewStructuredLogger(logger.WithComponent(applog.ComponentAdvisor)).LogAnalysis(ctx, len(req.Record.ExpenseCategories()), out.result.Savings.StringFixed(2), len(out.result.Tips))

	if !out.asked() {
		return out
	}

	start := time.Now()
	out.answer, out.answerErr = s.answerer.Answer(ctx, req.Query)
	if out.disabled() {
		return out
	}
	if out.answerErr != nil {
		atomic.AddInt64(&s.appMetrics.answerFailures, 1)
	} else {
		atomic.AddInt64(&s.appMetrics.answers, 1)
	}
	applog.NewStructuredLogger(logger.WithComponent(applog.ComponentAnswer)).LogAnswer(ctx, s.strategy.String(), utf8.RuneCountInString(req.Query), time.Since(start).Milliseconds(), out.answerErr)
	return out
}

// parseFailure writes the response for a request that could not be parsed.
// Validation problems are 422, unreadable bodies 400.
func (s *Server) parseFailure(w http.ResponseWriter, r *http.Request, err error, asJSON bool) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rejected analysis request",
		applog.FieldError, err,
		applog.FieldErrorType, applog.ErrorTypeValidation,
		applog.FieldPath, r.URL.Path)

	status, msg := http.StatusBadRequest, "invalid request body"
	if IsValidationError(err) {
		status, msg = http.StatusUnprocessableEntity, err.Error()
	}

	if asJSON {
		JSONError(status, msg).Write(w)
		return
	}
	ErrorResponse(status, msg).TriggerErrorNotification(msg).Write(w)
}

type analysisView struct {
	Income        string
	TotalExpenses string
	Savings       string
	SavingsRate   string
	Overspent     bool
	Tips          []advisor.Tip

	Query             string
	Answer            string
	AnswerUnavailable bool
	AnswerReason      string
	AnswerDisabled    bool
}

func newAnalysisView(a analysis) analysisView {
	v := analysisView{
		Income:        core.FormatAmount(a.result.Income),
		TotalExpenses: core.FormatAmount(a.result.TotalExpenses),
		Savings:       core.FormatAmount(a.result.Savings),
		SavingsRate:   percent(a.result.SavingsRate()),
		Overspent:     a.result.Savings.IsNegative(),
		Tips:          a.result.Tips,
		Query:         a.query,
		Answer:        a.answer,
	}
	switch {
	case a.disabled():
		v.AnswerDisabled = true
	case a.answerErr != nil:
		v.AnswerUnavailable = true
		v.AnswerReason = a.failureReason()
	}
	return v
}

// handleAnalyze renders the analysis partial for the HTMX form.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if errResp := RequirePOST(r); errResp != nil {
		errResp.Write(w)
		return
	}

	req, err := ParseAnalysisRequest(NewRequestBodyParser(r))
	if err != nil {
		s.parseFailure(w, r, err, false)
		return
	}

	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		InternalServerError("templates not loaded").Write(w)
		return
	}

	out := s.analyze(r.Context(), req)

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "analysis.html", newAnalysisView(out)); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentTemplate).ErrorContext(r.Context(),
			"Analysis template execution failed", applog.FieldError, err, "template", "analysis.html")
		InternalServerError("failed to render analysis").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerAnalysisComplete(len(out.result.Tips), out.answer != "").
		BodyHTML(buf.String()).
		Write(w)
}

type apiAnalysisResponse struct {
	Income        string        `json:"income"`
	TotalExpenses string        `json:"total_expenses"`
	Savings       string        `json:"savings"`
	SavingsRate   string        `json:"savings_rate"`
	Advice        []advisor.Tip `json:"advice"`
	Answer        string        `json:"answer,omitempty"`
	AnswerError   string        `json:"answer_error,omitempty"`
}

// handleAPIAnalyze is the JSON counterpart of handleAnalyze.
func (s *Server) handleAPIAnalyze(w http.ResponseWriter, r *http.Request) {
	if errResp := RequirePOST(r); errResp != nil {
		errResp.Write(w)
		return
	}

	req, err := ParseAnalysisRequest(NewRequestBodyParser(r))
	if err != nil {
		s.parseFailure(w, r, err, true)
		return
	}

	out := s.analyze(r.Context(), req)
	NewHTMXResponse().JSON(apiAnalysisResponse{
		Income:        out.result.Income.StringFixed(2),
		TotalExpenses: out.result.TotalExpenses.StringFixed(2),
		Savings:       out.result.Savings.StringFixed(2),
		SavingsRate:   out.result.SavingsRate().StringFixed(4),
		Advice:        out.result.Tips,
		Answer:        out.answer,
		AnswerError:   out.answerErrorMessage(),
	}).Write(w)
}
