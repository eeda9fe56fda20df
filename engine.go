package ada

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// SearchPipeline performs the full search-and-scrape flow for one query.
// The production implementation is scrape.Pipeline; tests substitute fakes.
type SearchPipeline interface {
	SearchAndScrape(ctx context.Context, query string, depth int) SearchBundle
}

const (
	// maxIterations bounds the search-evaluate retry loop per request.
	maxIterations = 4

	// maxRawSearchData caps the rawSearchData echoed in the done event, so
	// the client can hand it back as previousSearchData on the next turn.
	maxRawSearchData = 50_000

	// previewRunes is the size of the text_preview snippet.
	previewRunes = 300

	// summaryJoinTimeout bounds the wait for the background previous-turn
	// summary at finalize. A late summary is dropped, not waited for.
	summaryJoinTimeout = 10 * time.Second
)

// Engine drives the iterative search-evaluate-generate loop for one request
// and streams typed events to the caller.
type Engine struct {
	models    Models
	planner   *Planner
	evaluator *Evaluator
	pipeline  SearchPipeline
	sessions  *Sessions
	history   HistoryStore
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSessions sets the shared skip registry. Without one, skip signals are
// never observed (library use without the HTTP side-channel).
func WithSessions(s *Sessions) EngineOption {
	return func(e *Engine) { e.sessions = s }
}

// WithHistory sets a best-effort turn store.
func WithHistory(h HistoryStore) EngineOption {
	return func(e *Engine) { e.history = h }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an Engine. The researcher model drives planning and
// evaluation; the general (or fast) model drives the final answer.
func NewEngine(models Models, pipeline SearchPipeline, opts ...EngineOption) *Engine {
	e := &Engine{
		models:   models,
		pipeline: pipeline,
		logger:   nopLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.planner = NewPlanner(models.Researcher, e.logger)
	e.evaluator = NewEvaluator(models.Researcher, e.logger)
	return e
}

// loopState is the per-request working set of the control loop.
type loopState struct {
	iteration      int
	searching      bool
	noSearch       bool
	serviceFailure bool
	searchData     []string
	history        []SearchEntry
	images         []ImageRef
	lastFailure    string // failed query + evaluator gap, fed back to the planner
}

// Run executes one request and pushes events into ch. The channel is closed
// exactly once on every path; panics are converted into a terminal error
// event. Run returns when the request is fully processed or ctx is done.
func (e *Engine) Run(ctx context.Context, req Request, ch chan<- Event) {
	var closeOnce sync.Once
	closeCh := func() { closeOnce.Do(func() { close(ch) }) }
	defer closeCh()

	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("engine panic", "panic", p)
			e.send(ctx, ch, errorEvent(fmt.Sprintf("internal error: %v", p)))
			closeCh()
		}
	}()

	if strings.TrimSpace(req.Message) == "" {
		e.send(ctx, ch, errorEvent("no message provided"))
		return
	}

	sessionID := req.SessionID
	resumed := sessionID != ""
	if !resumed {
		sessionID = NewID()
		req.SessionID = sessionID
	}
	if e.sessions != nil {
		e.sessions.Register(sessionID)
		defer e.sessions.Release(sessionID)
	}

	// A client resuming a known session without sending memory gets it
	// rebuilt from persisted turns.
	memory := req.Memory
	if len(memory) == 0 && resumed {
		memory = e.recallMemory(ctx, sessionID)
	}
	// Bound prompt size before any model sees the history.
	memory = CompressMemory(ctx, e.models.Researcher, memory, 0, 6, e.logger)

	// Previous-turn research summary, computed while the loop runs and
	// joined with a timeout at finalize.
	summaryCh := e.spawnSummary(ctx, req)

	st := &loopState{searching: true}

	// Follow-up questions may not need a fresh search at all.
	if len(memory) > 0 {
		if !e.send(ctx, ch, statusEvent("Checking if search needed...", 0, "thinking", false)) {
			return
		}
		st.searching = e.followupNeedsSearch(ctx, req.Message)
	}

	e.runSearchLoop(ctx, req, memory, sessionID, st, ch)

	e.finalize(ctx, req, memory, st, summaryCh, ch)
}

// runSearchLoop is the bounded plan → search → evaluate loop. It mutates st
// and emits progress events; all operational failures degrade into loop
// exits rather than errors.
func (e *Engine) runSearchLoop(ctx context.Context, req Request, memory []ChatMessage, sessionID string, st *loopState, ch chan<- Event) {
	for st.searching && st.iteration < maxIterations {
		if e.skipRequested(sessionID, st.iteration) {
			e.logger.Info("skip requested, abandoning search", "iteration", st.iteration)
			return
		}

		canSkip := st.iteration > 0
		if !e.send(ctx, ch, statusEvent("Thinking...", 1, "thinking", canSkip)) {
			return
		}

		queries, noSearch, err := e.planner.Plan(ctx, req.Message, memory, st.lastFailure)
		if err != nil {
			e.logger.Warn("query planning failed, answering with gathered data", "error", err)
			return
		}
		if noSearch {
			st.noSearch = true
			return
		}
		// A planner response that sanitizes down to nothing is treated like a
		// planning failure: answer from whatever has been gathered so far.
		if len(queries) == 0 {
			e.logger.Warn("planner produced no usable queries, answering with gathered data")
			if len(st.searchData) == 0 {
				st.noSearch = true
			}
			return
		}

		if e.skipRequested(sessionID, st.iteration) {
			return
		}

		msg := fmt.Sprintf("Searching: %s", truncateRunes(queries[0].Text, 60))
		if !e.send(ctx, ch, statusEvent(msg, 2, "searching", canSkip)) {
			return
		}

		bundles, ok := e.runSearches(ctx, queries, st.iteration, ch)
		if !ok {
			return
		}

		// Every query reporting an unreachable chain means the search
		// subsystem is down; burning more iterations on it is pointless.
		if allUnavailable(bundles) {
			st.serviceFailure = true
			st.searching = false
			if len(st.searchData) == 0 {
				st.noSearch = true
			}
			e.logger.Warn("search service unavailable, stopping retries")
			e.send(ctx, ch, statusEvent("Search is unavailable right now, answering from what I have...", 3, "evaluating", false))
			return
		}

		e.accumulate(st, queries, bundles)

		if e.skipRequested(sessionID, st.iteration) {
			e.logger.Info("skip requested before evaluation", "iteration", st.iteration)
			return
		}

		if !e.send(ctx, ch, statusEvent("Evaluating search results...", 3, "evaluating", canSkip)) {
			return
		}

		verdict, gap := e.evaluator.Evaluate(ctx, req.Message, strings.Join(st.searchData, "\n"))
		if verdict == VerdictComplete {
			st.searching = false
			return
		}
		st.lastFailure = queries[0].Text
		if gap != "" {
			st.lastFailure += " (missing: " + gap + ")"
		}
		st.iteration++

		if e.skipRequested(sessionID, st.iteration) {
			return
		}
	}
}

// runSearches fans the planned queries out across the pipeline, emitting a
// start event per query, a text_preview from the first bundle to arrive, and
// completion events in query-submission order. The returned bundles are in
// submission order regardless of completion order. ok=false means the caller
// context is gone.
func (e *Engine) runSearches(ctx context.Context, queries []Query, iteration int, ch chan<- Event) ([]SearchBundle, bool) {
	for i, q := range queries {
		if !e.send(ctx, ch, searchEvent(q.Text, nil, iteration+1, i, SearchStatusSearching)) {
			return nil, false
		}
	}

	type indexed struct {
		idx    int
		bundle SearchBundle
	}
	results := make(chan indexed, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(idx int, q Query) {
			defer wg.Done()
			results <- indexed{idx, e.pipeline.SearchAndScrape(ctx, q.Text, q.Depth)}
		}(i, q)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	bundles := make([]SearchBundle, len(queries))
	previewSent := false
	for r := range results {
		bundles[r.idx] = r.bundle
		if !previewSent && r.bundle.FullText != "" {
			previewSent = true
			if !e.send(ctx, ch, previewEvent(truncateRunes(r.bundle.FullText, previewRunes), iteration+1)) {
				return nil, false
			}
		}
	}

	for i, q := range queries {
		if !e.send(ctx, ch, searchEvent(q.Text, bundles[i].Sources, iteration+1, i, SearchStatusComplete)) {
			return nil, false
		}
	}
	return bundles, true
}

// accumulate folds completed bundles into the loop state, in query order.
func (e *Engine) accumulate(st *loopState, queries []Query, bundles []SearchBundle) {
	for i, b := range bundles {
		if b.FullText != "" {
			st.searchData = append(st.searchData, b.FullText)
		}
		st.images = append(st.images, b.Images...)
		st.history = append(st.history, SearchEntry{
			Query:     queries[i].Text,
			Sources:   b.Sources,
			Iteration: st.iteration + 1,
		})
	}
}

// finalize streams the answer and emits the terminal done event.
func (e *Engine) finalize(ctx context.Context, req Request, memory []ChatMessage, st *loopState, summaryCh <-chan string, ch chan<- Event) {
	if !e.send(ctx, ch, statusEvent("Generating response...", 4, "generating", false)) {
		return
	}

	summary := joinSummary(ctx, summaryCh)

	instructions := answerPrompt + "\nCurrent date: " + time.Now().Format("2006-01-02")
	if len(memory) > 0 {
		instructions += "\n\nMemory from previous conversation:\n" + renderMemory(memory)
	}
	if summary != "" {
		instructions += "\n\nSummary of research from the previous turn:\n" + summary
	}

	var user strings.Builder
	user.WriteString("User question: ")
	user.WriteString(req.Message)
	if st.noSearch || len(st.searchData) == 0 {
		user.WriteString("\n")
		user.WriteString(noSearchAnswerPrompt)
	} else {
		user.WriteString("\nSearch data:\n")
		user.WriteString(strings.Join(st.searchData, "\n"))
	}
	if len(st.images) > 0 {
		user.WriteString("\n\nImages found on the source pages:\n")
		user.WriteString(imageManifest(st.images))
	}

	provider := e.models.Answer(req.FastMode)
	chunks := make(chan string, 64)
	var (
		resp      ChatResponse
		streamErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, streamErr = provider.ChatStream(ctx, ChatRequest{Messages: []ChatMessage{
			SystemMessage(instructions),
			UserMessage(user.String()),
		}}, chunks)
	}()

	var streamed bool
	for chunk := range chunks {
		streamed = true
		if !e.send(ctx, ch, contentEvent(chunk)) {
			<-done
			return
		}
	}
	<-done

	if streamErr != nil && !streamed {
		e.send(ctx, ch, errorEvent("answer generation failed: "+streamErr.Error()))
		return
	}
	if streamErr != nil {
		e.logger.Warn("answer stream ended with error after partial content", "error", streamErr)
	}

	raw := truncateRunes(strings.Join(st.searchData, "\n"), maxRawSearchData)
	if !e.send(ctx, ch, doneEvent(st.history, raw)) {
		return
	}

	e.persistTurn(req, st, resp.Content)
}

// spawnSummary starts the background previous-turn summarization task.
// Returns nil when there is nothing to summarize.
func (e *Engine) spawnSummary(ctx context.Context, req Request) <-chan string {
	if req.PreviousSearchData == "" {
		return nil
	}
	out := make(chan string, 1)
	go func() {
		defer close(out)
		resp, err := e.models.Researcher.Chat(ctx, ChatRequest{Messages: []ChatMessage{
			SystemMessage(summarizerPrompt),
			UserMessage("User question: " + req.PreviousUserQuestion + "\nData: " + req.PreviousSearchData),
		}})
		if err != nil {
			e.logger.Warn("previous-turn summary failed", "error", err)
			return
		}
		out <- resp.Content
	}()
	return out
}

// joinSummary waits briefly for the background summary; a summary that is
// not ready in time is dropped rather than delaying the answer.
func joinSummary(ctx context.Context, summaryCh <-chan string) string {
	if summaryCh == nil {
		return ""
	}
	timer := time.NewTimer(summaryJoinTimeout)
	defer timer.Stop()
	select {
	case s := <-summaryCh:
		return s
	case <-timer.C:
		return ""
	case <-ctx.Done():
		return ""
	}
}

// followupNeedsSearch asks whether a follow-up question warrants a fresh
// search. Errs on the side of searching.
func (e *Engine) followupNeedsSearch(ctx context.Context, question string) bool {
	resp, err := e.models.General.Chat(ctx, ChatRequest{Messages: []ChatMessage{
		SystemMessage(followupPrompt),
		UserMessage("User question: " + question),
	}})
	if err != nil {
		e.logger.Warn("follow-up check failed, searching anyway", "error", err)
		return true
	}
	return !strings.Contains(resp.Content, "<no search>")
}

// skipRequested reports whether the user asked to abandon searching.
// The very first search cannot be skipped: skips only take effect once the
// retry loop is underway (iteration >= 1).
func (e *Engine) skipRequested(sessionID string, iteration int) bool {
	if e.sessions == nil || iteration < 1 {
		return false
	}
	return e.sessions.Skipped(sessionID)
}

// recalledTurns is how many persisted turns seed the memory of a resumed
// session; each turn becomes one user and one assistant message.
const recalledTurns = 3

// recallMemory rebuilds conversation memory from the history store. Failures
// degrade to an empty memory, never to an error.
func (e *Engine) recallMemory(ctx context.Context, sessionID string) []ChatMessage {
	if e.history == nil {
		return nil
	}
	turns, err := e.history.RecentTurns(ctx, sessionID, recalledTurns)
	if err != nil {
		e.logger.Warn("history recall failed, starting without memory", "error", err)
		return nil
	}
	var memory []ChatMessage
	for _, turn := range turns {
		memory = append(memory, UserMessage(turn.Question), AssistantMessage(turn.Answer))
	}
	return memory
}

// persistTurn appends the finished exchange to the history store in the
// background. Fire and forget: a store failure only logs.
func (e *Engine) persistTurn(req Request, st *loopState, answer string) {
	if e.history == nil {
		return
	}
	queries := make([]string, 0, len(st.history))
	for _, entry := range st.history {
		queries = append(queries, entry.Query)
	}
	turn := Turn{
		ID:            NewID(),
		SessionID:     req.SessionID,
		Question:      req.Message,
		Answer:        answer,
		SearchQueries: queries,
		CreatedAt:     NowUnix(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.history.AppendTurn(ctx, turn); err != nil {
			e.logger.Warn("failed to persist turn", "error", err)
		}
	}()
}

// send pushes an event unless the caller context is gone. A false return
// aborts the run: the consumer has disconnected.
func (e *Engine) send(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// allUnavailable reports whether every bundle flagged the search chain as
// unreachable.
func allUnavailable(bundles []SearchBundle) bool {
	for _, b := range bundles {
		if b.ServiceAvailable {
			return false
		}
	}
	return len(bundles) > 0
}

// renderMemory flattens conversation memory for a system prompt.
func renderMemory(memory []ChatMessage) string {
	var b strings.Builder
	for _, m := range memory {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// imageManifest renders collected images for the answer prompt.
func imageManifest(images []ImageRef) string {
	var b strings.Builder
	for _, img := range images {
		b.WriteString("- ")
		b.WriteString(img.URL)
		if img.Alt != "" {
			b.WriteString(" (")
			b.WriteString(img.Alt)
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// truncateRunes truncates s to n runes.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
