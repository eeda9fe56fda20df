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
	"sync"
	"time"

	ada "github.com/adalabs/ada"
)

// ddgGate enforces a global 1 query/s limit across all DuckDuckGo instances
// and goroutines. The HTML endpoint bans aggressive callers quickly.
var ddgGate struct {
	mu   sync.Mutex
	last time.Time
}

const ddgUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DuckDuckGo scrapes the html.duckduckgo.com interface. No credentials
// required, so it serves as the default fallback backend.
type DuckDuckGo struct {
	client  *http.Client
	baseURL string
}

// NewDuckDuckGo creates a DuckDuckGo backend with a modest timeout.
func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: "https://html.duckduckgo.com/html/",
	}
}

// NewDuckDuckGoWithClient creates a DuckDuckGo backend against a custom
// endpoint and client, for tests.
func NewDuckDuckGoWithClient(baseURL string, client *http.Client) *DuckDuckGo {
	return &DuckDuckGo{client: client, baseURL: baseURL}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search posts the query to the HTML endpoint and scrapes result anchors.
func (d *DuckDuckGo) Search(ctx context.Context, query string, max int) ([]ada.SearchResultLink, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("empty query")
	}

	ddgGate.mu.Lock()
	if wait := time.Until(ddgGate.last.Add(time.Second)); wait > 0 {
		ddgGate.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		ddgGate.mu.Lock()
	}
	ddgGate.last = time.Now()
	ddgGate.mu.Unlock()

	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", ddgUserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return parseDuckDuckGo(string(body), max), nil
}

var (
	// ddgResultLink matches result anchors: <a class="result__a" href="...">title</a>.
	// Attribute order varies, so both orderings are tried.
	ddgResultLink    = regexp.MustCompile(`<a[^>]*class="[^"]*result__a[^"]*"[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)
	ddgResultLinkAlt = regexp.MustCompile(`<a[^>]*href="([^"]+)"[^>]*class="[^"]*result__a[^"]*"[^>]*>(.*?)</a>`)
	ddgSnippet       = regexp.MustCompile(`(?s)<a[^>]*class="[^"]*result__snippet[^"]*"[^>]*>(.*?)</a>`)

	htmlTag = regexp.MustCompile(`<[^>]+>`)
)

// parseDuckDuckGo extracts up to max deduplicated hits from the result page.
func parseDuckDuckGo(page string, max int) []ada.SearchResultLink {
	matches := ddgResultLink.FindAllStringSubmatch(page, -1)
	if len(matches) == 0 {
		matches = ddgResultLinkAlt.FindAllStringSubmatch(page, -1)
	}
	snippets := ddgSnippet.FindAllStringSubmatch(page, -1)

	var results []ada.SearchResultLink
	seen := make(map[string]bool)
	for i, m := range matches {
		href := decodeRedirect(strings.TrimSpace(m[1]))
		title := cleanFragment(m[2])
		if href == "" || title == "" || !strings.HasPrefix(href, "http") {
			continue
		}
		if strings.Contains(href, "duckduckgo.com") || seen[href] {
			continue
		}
		seen[href] = true

		var snippet string
		if i < len(snippets) {
			snippet = cleanFragment(snippets[i][1])
		}
		results = append(results, ada.SearchResultLink{URL: href, Title: title, Snippet: snippet})
		if len(results) >= max {
			break
		}
	}
	return results
}

// decodeRedirect unwraps DuckDuckGo's //duckduckgo.com/l/?uddg=<escaped>
// redirect links into the destination URL. Anything else passes through.
func decodeRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	idx := strings.Index(href, "uddg=")
	if idx < 0 {
		return href
	}
	raw := href[idx+len("uddg="):]
	if amp := strings.IndexByte(raw, '&'); amp >= 0 {
		raw = raw[:amp]
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return href
	}
	return decoded
}

// cleanFragment strips tags and decodes the entities search pages use.
func cleanFragment(s string) string {
	s = htmlTag.ReplaceAllString(s, "")
	s = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&#x27;", "'",
		"&nbsp;", " ",
	).Replace(s)
	return strings.TrimSpace(s)
}
