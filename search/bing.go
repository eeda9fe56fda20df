package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	ada "github.com/adalabs/ada"
)

// Bing scrapes www.bing.com result pages. Last resort in the default chain:
// no credentials, but the markup shifts more often than DuckDuckGo's.
type Bing struct {
	client  *http.Client
	baseURL string
}

// NewBing creates a Bing backend.
func NewBing() *Bing {
	return &Bing{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: "https://www.bing.com/search",
	}
}

// NewBingWithClient creates a Bing backend against a custom endpoint and
// client, for tests.
func NewBingWithClient(baseURL string, client *http.Client) *Bing {
	return &Bing{client: client, baseURL: baseURL}
}

func (b *Bing) Name() string { return "bing" }

// Search fetches one result page and scrapes the organic result blocks.
func (b *Bing) Search(ctx context.Context, query string, max int) ([]ada.SearchResultLink, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("empty query")
	}

	endpoint := b.baseURL + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", ddgUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bing http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return parseBing(string(body), max), nil
}

var (
	// Organic results live in <li class="b_algo"> blocks; the title anchor
	// sits inside an <h2>, the snippet in the b_caption paragraph.
	bingBlock   = regexp.MustCompile(`(?s)<li class="b_algo[^"]*".*?</li>`)
	bingAnchor  = regexp.MustCompile(`(?s)<h2[^>]*>\s*<a[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)
	bingCaption = regexp.MustCompile(`(?s)<p[^>]*>(.*?)</p>`)
)

// parseBing extracts up to max deduplicated hits from a result page.
func parseBing(page string, max int) []ada.SearchResultLink {
	var results []ada.SearchResultLink
	seen := make(map[string]bool)
	for _, block := range bingBlock.FindAllString(page, -1) {
		m := bingAnchor.FindStringSubmatch(block)
		if m == nil {
			continue
		}
		href := strings.TrimSpace(m[1])
		title := cleanFragment(m[2])
		if href == "" || title == "" || !strings.HasPrefix(href, "http") {
			continue
		}
		if strings.Contains(href, "bing.com") || seen[href] {
			continue
		}
		seen[href] = true

		var snippet string
		if c := bingCaption.FindStringSubmatch(block); c != nil {
			snippet = cleanFragment(c[1])
		}
		results = append(results, ada.SearchResultLink{URL: href, Title: title, Snippet: snippet})
		if len(results) >= max {
			break
		}
	}
	return results
}
