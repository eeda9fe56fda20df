// Package search provides web search backends and an ordered fallback chain.
//
// Backends are deliberately forgiving: scraped HTML endpoints change shape
// over time, so parse failures surface as empty result sets rather than hard
// errors wherever the HTTP exchange itself succeeded.
package search

import (
	"context"
	"log/slog"

	ada "github.com/adalabs/ada"
)

// Backend is a single web search source.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
	// Search returns up to max ranked hits for the query.
	Search(ctx context.Context, query string, max int) ([]ada.SearchResultLink, error)
}

// Chain tries backends in order and returns the first non-empty result set.
type Chain struct {
	backends []Backend
	logger   *slog.Logger
}

// NewChain builds a fallback chain over the given backends, in priority
// order. Nil backends are dropped so callers can pass conditionally
// constructed entries directly.
func NewChain(logger *slog.Logger, backends ...Backend) *Chain {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Chain{logger: logger}
	for _, b := range backends {
		if b != nil {
			c.backends = append(c.backends, b)
		}
	}
	return c
}

// Backends returns the number of usable backends in the chain.
func (c *Chain) Backends() int { return len(c.backends) }

// Search runs the query through the chain. The first backend to return at
// least one hit wins; a backend error falls through to the next. available
// is false only when every backend errored, meaning the search subsystem as
// a whole could not be reached. A backend that answers with zero hits keeps
// available true: "nothing found" is a valid search outcome.
func (c *Chain) Search(ctx context.Context, query string, max int) (results []ada.SearchResultLink, available bool) {
	for _, b := range c.backends {
		hits, err := b.Search(ctx, query, max)
		if err != nil {
			c.logger.Warn("search backend failed, trying next",
				"backend", b.Name(), "query", query, "error", err)
			continue
		}
		available = true
		if len(hits) > 0 {
			return hits, true
		}
		c.logger.Debug("search backend returned no hits", "backend", b.Name(), "query", query)
	}
	return nil, available
}
