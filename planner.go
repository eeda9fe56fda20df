package ada

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// noSearchSentinel in planner output short-circuits the loop: the question
// is answerable without any web search.
const noSearchSentinel = "<No searching needed>"

const (
	defaultDepth = 5
	minDepth     = 1
	maxDepth     = 10
	maxQueries   = 4
)

// depthSuffix matches the trailing depthN token on a planner query line.
// The depth is parsed out and the token removed before the query is searched.
var depthSuffix = regexp.MustCompile(`(?i)[\s,]*depth\s*(\d+)\s*$`)

// Planner turns a user question into search queries via the researcher model.
type Planner struct {
	provider Provider
	logger   *slog.Logger
}

// NewPlanner creates a Planner backed by the given provider.
func NewPlanner(p Provider, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = nopLogger
	}
	return &Planner{provider: p, logger: logger}
}

// Plan generates search queries for a question. On retry iterations,
// failedQuery carries the query that did not surface enough information and
// is fed back as negative context. noSearch=true means the loop should skip
// straight to answer generation.
//
// Plan never returns an empty query slice with noSearch=false and err=nil:
// when sanitization rejects every segment, the whole raw output is used as
// one default-depth query.
func (p *Planner) Plan(ctx context.Context, question string, memory []ChatMessage, failedQuery string) (queries []Query, noSearch bool, err error) {
	var user string
	system := plannerPrompt
	if failedQuery != "" {
		system = plannerPrompt + "\n\n" + plannerRetryPrompt
		user = fmt.Sprintf("User question: %s\nFailed query: %s", question, failedQuery)
	} else {
		user = "User question: " + question + memoryContext(memory)
	}

	resp, err := p.provider.Chat(ctx, ChatRequest{Messages: []ChatMessage{
		SystemMessage(system),
		UserMessage(user),
	}})
	if err != nil {
		return nil, false, err
	}

	raw := resp.Content
	if strings.Contains(raw, noSearchSentinel) {
		return nil, true, nil
	}

	queries = ParseQueries(raw)
	p.logger.Debug("planner produced queries", "count", len(queries), "retry", failedQuery != "")
	return queries, false, nil
}

// ParseQueries splits raw planner output into sanitized queries. Segments
// are delimited by newlines or pipes; each may carry a trailing depthN token.
// Falls back to the whole trimmed string as a single default-depth query when
// no segment survives sanitization.
func ParseQueries(raw string) []Query {
	segments := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '|'
	})

	var queries []Query
	for _, seg := range segments {
		text, depth := splitDepth(seg)
		text = sanitizeQuery(text)
		if len([]rune(text)) < 3 {
			continue
		}
		queries = append(queries, Query{Text: text, Depth: depth})
		if len(queries) == maxQueries {
			break
		}
	}

	if len(queries) == 0 {
		if text := sanitizeQuery(raw); text != "" {
			queries = append(queries, Query{Text: text, Depth: defaultDepth})
		}
	}
	return queries
}

// splitDepth strips a trailing depthN token and returns the clamped depth.
// Missing token yields the default depth.
func splitDepth(seg string) (string, int) {
	depth := defaultDepth
	if m := depthSuffix.FindStringSubmatch(seg); m != nil {
		var n int
		fmt.Sscanf(m[1], "%d", &n)
		depth = ClampDepth(n)
		seg = depthSuffix.ReplaceAllString(seg, "")
	}
	return seg, depth
}

// ClampDepth forces a requested depth into [1,10].
func ClampDepth(n int) int {
	if n < minDepth {
		return minDepth
	}
	if n > maxDepth {
		return maxDepth
	}
	return n
}

// listMarker matches leading list numbering/bullets ("1. ", "- ", "* ").
var listMarker = regexp.MustCompile(`^\s*(?:[-•*]|\d+[.)])\s*`)

// sanitizeQuery strips quotes and leading list markers from a query segment.
func sanitizeQuery(s string) string {
	s = strings.NewReplacer(`"`, "", "'", "", "`", "").Replace(s)
	s = listMarker.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// memoryContext renders short-term memory for the planner prompt.
func memoryContext(memory []ChatMessage) string {
	if len(memory) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nConversation so far:\n")
	for _, m := range memory {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
