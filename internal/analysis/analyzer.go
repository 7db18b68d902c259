package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"mailnight/internal/config"
	"mailnight/internal/htmltext"
	"mailnight/internal/model"
	"mailnight/pkg/circuitbreaker"
	"mailnight/pkg/logger"
	"mailnight/pkg/metrics"
)

const defaultPriority = 3

var (
	reJSONFence = regexp.MustCompile("```json\\s*")
	reFence     = regexp.MustCompile("```\\s*")
	reDigit     = regexp.MustCompile(`\d`)
)

// Analyzer produces summaries, categories and reply drafts. Every operation
// is best effort: when the model is unconfigured, fails, times out or answers
// with something unusable, the deterministic fallback answers instead and no
// error reaches the caller.
type Analyzer struct {
	gen        Generator
	configured bool
	timeout    time.Duration
	longLimit  int
	shortLimit int
	cb         *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewAnalyzer returns an Analyzer. gen is never called when cfg carries no
// usable API key.
func NewAnalyzer(cfg config.AIConfig, gen Generator, logger *zap.Logger) *Analyzer {
	a := &Analyzer{
		gen:        gen,
		configured: cfg.IsConfigured() && gen != nil,
		timeout:    cfg.Timeout,
		longLimit:  cfg.PromptLimit,
		shortLimit: cfg.ShortPromptLimit,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
			FailureThreshold:    3,
			SuccessThreshold:    2,
			Timeout:             30 * time.Second,
			HalfOpenMaxRequests: 2,
		}),
		logger: logger,
	}
	if a.longLimit <= 0 {
		a.longLimit = 1500
	}
	if a.shortLimit <= 0 {
		a.shortLimit = 1000
	}
	return a
}

// Configured reports whether remote calls are attempted at all.
func (a *Analyzer) Configured() bool {
	return a.configured
}

func (a *Analyzer) Summarize(ctx context.Context, subject, body string) string {
	text := htmltext.Truncate(htmltext.ToPlainText(body), a.longLimit)
	if out, ok := a.generate(ctx, "summarize", summaryPrompt(subject, text)); ok {
		if summary := stripFences(out); summary != "" {
			return summary
		}
		a.fallback(ctx, "summarize", "invalid_response", nil)
	}
	return FallbackSummary(subject, body)
}

func (a *Analyzer) Categorize(ctx context.Context, subject, body string) int {
	text := htmltext.Truncate(htmltext.ToPlainText(body), a.shortLimit)
	if out, ok := a.generate(ctx, "categorize", categoryPrompt(subject, text)); ok {
		if d := reDigit.FindString(out); d != "" {
			if id, _ := strconv.Atoi(d); IsSystemCategory(id) {
				return id
			}
		}
		a.fallback(ctx, "categorize", "invalid_response", nil)
	}
	return Classify(subject, body)
}

// GenerateReply returns a reply draft in tone, or "" when none could be made.
func (a *Analyzer) GenerateReply(ctx context.Context, subject, body, tone string) string {
	text := htmltext.Truncate(htmltext.ToPlainText(body), a.shortLimit)
	out, ok := a.generate(ctx, "reply", replyPrompt(subject, text, tone))
	if !ok {
		return ""
	}
	return strings.TrimSpace(out)
}

type analysisResponse struct {
	Summary    string   `json:"summary"`
	CategoryID int      `json:"categoryId"`
	Priority   int      `json:"priority"`
	Keywords   []string `json:"keywords"`
	Sentiment  string   `json:"sentiment"`
}

var errInvalidAnalysis = errors.New("analysis response missing summary or valid category")

// Analyze runs the combined analysis. A response that does not parse, lacks a
// summary or names a category outside 1..5 is discarded as a whole.
func (a *Analyzer) Analyze(ctx context.Context, subject, body string) model.AnalysisResult {
	text := htmltext.Truncate(htmltext.ToPlainText(body), a.longLimit)
	if out, ok := a.generate(ctx, "analyze", analyzePrompt(subject, text)); ok {
		result, err := parseAnalysis(out)
		if err == nil {
			return result
		}
		a.fallback(ctx, "analyze", "invalid_response", err)
	}
	return a.fallbackAnalysis(subject, body)
}

func (a *Analyzer) fallbackAnalysis(subject, body string) model.AnalysisResult {
	id := Classify(subject, body)
	return model.AnalysisResult{
		Summary:      FallbackSummary(subject, body),
		CategoryID:   id,
		CategoryName: CategoryName(id),
		Priority:     defaultPriority,
		Keywords:     []string{},
	}
}

func parseAnalysis(raw string) (model.AnalysisResult, error) {
	var resp analysisResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &resp); err != nil {
		return model.AnalysisResult{}, err
	}
	resp.Summary = strings.TrimSpace(resp.Summary)
	if resp.Summary == "" || !IsSystemCategory(resp.CategoryID) {
		return model.AnalysisResult{}, errInvalidAnalysis
	}
	if resp.Priority < 1 || resp.Priority > 5 {
		resp.Priority = defaultPriority
	}
	if resp.Keywords == nil {
		resp.Keywords = []string{}
	}
	return model.AnalysisResult{
		Summary:      resp.Summary,
		CategoryID:   resp.CategoryID,
		CategoryName: CategoryName(resp.CategoryID),
		Priority:     resp.Priority,
		Keywords:     resp.Keywords,
		Sentiment:    resp.Sentiment,
	}, nil
}

func stripFences(s string) string {
	s = reJSONFence.ReplaceAllString(s, "")
	s = reFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// generate performs one guarded model call. ok is false when the fallback
// must answer.
func (a *Analyzer) generate(ctx context.Context, op, prompt string) (string, bool) {
	if !a.configured {
		metrics.IncrementAIFallback(op, "unconfigured")
		return "", false
	}

	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var out string
	err := a.cb.Execute(func() error {
		start := time.Now()
		text, err := a.gen.Generate(callCtx, prompt)
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.RecordAICallLatency(op, status, time.Since(start))
		out = text
		return err
	})
	if err != nil {
		reason := "error"
		if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
			reason = "circuit_open"
		}
		a.fallback(ctx, op, reason, err)
		return "", false
	}

	out = strings.TrimSpace(out)
	if out == "" {
		a.fallback(ctx, op, "invalid_response", nil)
		return "", false
	}
	return out, true
}

func (a *Analyzer) fallback(ctx context.Context, op, reason string, err error) {
	metrics.IncrementAIFallback(op, reason)
	logger.WithTrace(ctx, a.logger).Warn("AI call failed, using fallback",
		zap.String("operation", op),
		zap.String("reason", reason),
		zap.Error(err),
	)
}
