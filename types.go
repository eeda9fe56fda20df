package ada

// --- Search pipeline types ---

// SearchResultLink is one ranked hit from a search backend.
// Ephemeral: produced by the search chain, consumed by the scraper.
type SearchResultLink struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// ImageRef is a content image discovered on a scraped page.
type ImageRef struct {
	URL        string `json:"url"`
	Alt        string `json:"alt"`
	SourcePage string `json:"sourcePage"`
}

// SourceRecord is the per-page result of scraping one search hit.
// When scraping fails, Err is set and Text carries the search snippet
// (or a generic marker) so downstream stages always have something to
// work with. Records are append-only; never mutated after creation.
type SourceRecord struct {
	URL    string     `json:"url"`
	Title  string     `json:"title"`
	Domain string     `json:"domain"`
	Text   string     `json:"text"`
	Images []ImageRef `json:"images,omitempty"`
	Err    string     `json:"error,omitempty"`
}

// SearchBundle aggregates everything gathered for a single query: the
// scraped sources, their concatenated text, collected images, and whether
// the search backend chain itself was reachable.
// ServiceAvailable=false means "could not search", which is distinct from
// "searched and found nothing" (empty Sources, ServiceAvailable=true).
type SearchBundle struct {
	Sources          []SourceRecord
	FullText         string
	Images           []ImageRef
	Count            int
	ServiceAvailable bool
}

// SearchEntry is the client-facing record of one executed query,
// accumulated across loop iterations and returned in the done event.
type SearchEntry struct {
	Query     string         `json:"query"`
	Sources   []SourceRecord `json:"sources"`
	Iteration int            `json:"iteration"`
}

// Query is one planner-generated search query with its requested result
// depth (number of pages to scrape, clamped to [1,10]).
type Query struct {
	Text  string
	Depth int
}

// Verdict is the evaluator's sufficiency decision.
type Verdict int

const (
	// VerdictComplete means the gathered text fully answers the question.
	VerdictComplete Verdict = iota
	// VerdictNeedsMore means another search iteration is warranted.
	VerdictNeedsMore
)

// --- LLM protocol types ---

type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

type ChatResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// --- ChatMessage constructors ---

func UserMessage(text string) ChatMessage {
	return ChatMessage{Role: "user", Content: text}
}

func SystemMessage(text string) ChatMessage {
	return ChatMessage{Role: "system", Content: text}
}

func AssistantMessage(text string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: text}
}

// --- Inbound request ---

// Request is one chat turn from the client.
type Request struct {
	Message              string        `json:"message"`
	Memory               []ChatMessage `json:"memory,omitempty"`
	PreviousSearchData   string        `json:"previousSearchData,omitempty"`
	PreviousUserQuestion string        `json:"previousUserQuestion,omitempty"`
	SessionID            string        `json:"sessionId,omitempty"`
	FastMode             bool          `json:"fastMode,omitempty"`
}

// --- History persistence ---

// Turn is one completed question/answer exchange, persisted best-effort.
type Turn struct {
	ID            string
	SessionID     string
	Question      string
	Answer        string
	SearchQueries []string
	CreatedAt     int64
}
