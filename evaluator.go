package ada

import (
	"context"
	"log/slog"
	"strings"
)

// Verdict markers expected in evaluator model output.
const (
	completeMarker  = "<Fully answers user question>"
	needsMoreMarker = "<Does not fully answer user question>"
)

// Evaluator decides whether gathered search text suffices to answer the
// question, via the researcher model.
type Evaluator struct {
	provider Provider
	logger   *slog.Logger
}

// NewEvaluator creates an Evaluator backed by the given provider.
func NewEvaluator(p Provider, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = nopLogger
	}
	return &Evaluator{provider: p, logger: logger}
}

// Evaluate returns the sufficiency verdict for the accumulated text, plus an
// informational gap description when more search is needed. A malformed or
// failed evaluation defaults to VerdictComplete: terminating one iteration
// early is cheaper than looping on an uninterpretable verdict.
func (e *Evaluator) Evaluate(ctx context.Context, question, gathered string) (Verdict, string) {
	resp, err := e.provider.Chat(ctx, ChatRequest{Messages: []ChatMessage{
		SystemMessage(evaluatorPrompt),
		UserMessage("User question: " + question + "\nInformation: " + gathered),
	}})
	if err != nil {
		e.logger.Warn("evaluator call failed, treating as complete", "error", err)
		return VerdictComplete, ""
	}
	return ParseVerdict(resp.Content)
}

// ParseVerdict maps raw evaluator output to a Verdict. The complete marker
// wins when both appear; neither marker also means complete. The gap text
// following the needs-more marker is returned for logging and retry context.
func ParseVerdict(raw string) (Verdict, string) {
	if strings.Contains(raw, completeMarker) {
		return VerdictComplete, ""
	}
	if idx := strings.Index(raw, needsMoreMarker); idx >= 0 {
		gap := strings.TrimSpace(raw[idx+len(needsMoreMarker):])
		return VerdictNeedsMore, gap
	}
	return VerdictComplete, ""
}
