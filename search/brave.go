package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	ada "github.com/adalabs/ada"
)

// braveKeyGate serializes requests per API key so that only one request per
// second is in flight for that key, matching Brave's 1 req/s plan limit.
// All Brave instances sharing a key share one gate.
type braveKeyGate struct {
	mu      sync.Mutex
	readyAt time.Time // earliest moment the next request may fire
}

var (
	braveGatesMu sync.Mutex
	braveGates   = map[string]*braveKeyGate{}
)

func braveGateFor(apiKey string) *braveKeyGate {
	braveGatesMu.Lock()
	defer braveGatesMu.Unlock()
	g, ok := braveGates[apiKey]
	if !ok {
		g = &braveKeyGate{}
		braveGates[apiKey] = g
	}
	return g
}

// waitAndLock blocks until the caller may issue a request, then returns with
// the gate held. The caller must call unlock(delay) after the response to
// set the next allowed time and release the gate.
func (g *braveKeyGate) waitAndLock(ctx context.Context) error {
	g.mu.Lock()
	if wait := time.Until(g.readyAt); wait > 0 {
		g.mu.Unlock() // release while sleeping
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		g.mu.Lock()
	}
	return nil
}

func (g *braveKeyGate) unlock(delay time.Duration) {
	g.readyAt = time.Now().Add(delay)
	g.mu.Unlock()
}

// Brave queries the Brave Search API. Requires an API key, sent as
// X-Subscription-Token.
type Brave struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

// NewBrave constructs a Brave backend, or nil when the key is empty so the
// chain skips it entirely.
func NewBrave(apiKey string) *Brave {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	return &Brave{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: "https://api.search.brave.com/res/v1/web/search",
	}
}

// NewBraveWithClient constructs a Brave backend against a custom endpoint
// and client, for tests.
func NewBraveWithClient(apiKey, baseURL string, client *http.Client) *Brave {
	return &Brave{apiKey: apiKey, client: client, baseURL: baseURL}
}

func (b *Brave) Name() string { return "brave" }

// Search executes one Brave query. Concurrent calls sharing an API key are
// serialized through the per-key gate; 429 responses are retried after the
// delay advertised in X-RateLimit-Reset.
func (b *Brave) Search(ctx context.Context, query string, max int) ([]ada.SearchResultLink, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("empty query")
	}
	endpoint := b.baseURL + "?q=" + url.QueryEscape(query) + "&count=" + strconv.Itoa(max)

	gate := braveGateFor(b.apiKey)

	var resp *http.Response
	for {
		if err := gate.waitAndLock(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			gate.unlock(0)
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Subscription-Token", b.apiKey)

		resp, err = b.client.Do(req)
		if err != nil {
			gate.unlock(time.Second) // back off before letting others try
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			gate.unlock(braveNextDelay(resp.Header))
			break
		}

		wait := braveRetryDelay(resp.Header)
		resp.Body.Close()
		gate.unlock(wait)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave http %d", resp.StatusCode)
	}

	var payload struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	results := make([]ada.SearchResultLink, 0, len(payload.Web.Results))
	for _, r := range payload.Web.Results {
		results = append(results, ada.SearchResultLink{Title: r.Title, URL: r.URL, Snippet: r.Description})
		if len(results) >= max {
			break
		}
	}
	return results, nil
}

// braveRetryDelay reads X-RateLimit-Reset, a comma-separated list of reset
// times in seconds (e.g. "1, 1419704"), and returns the smallest as the
// retry delay. Missing or unparseable headers fall back to one second.
func braveRetryDelay(h http.Header) time.Duration {
	raw := h.Get("X-RateLimit-Reset")
	if raw == "" {
		return time.Second
	}
	minReset := -1
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			continue
		}
		if minReset < 0 || n < minReset {
			minReset = n
		}
	}
	if minReset <= 0 {
		return time.Second
	}
	return time.Duration(minReset) * time.Second
}

// braveNextDelay reads X-RateLimit-Remaining ("per-second, per-month") to
// decide how long to hold the gate. An exhausted or absent per-second bucket
// means wait a full second.
func braveNextDelay(h http.Header) time.Duration {
	raw := h.Get("X-RateLimit-Remaining")
	if raw == "" {
		return time.Second
	}
	parts := strings.SplitN(raw, ",", 2)
	perSecond, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || perSecond <= 0 {
		return time.Second
	}
	return 0
}
