package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html/charset"

	ada "github.com/adalabs/ada"
)

const (
	scrapeUserAgent = "Mozilla/5.0 (compatible; AdaBot/1.0)"

	// maxBodyBytes bounds the download per page.
	maxBodyBytes = 2 << 20

	maxTitleRunes = 80

	defaultMaxImages = 5
)

// Scraper fetches a single search hit and produces a SourceRecord.
// All Scrapers share one pooled transport; per-scrape timeouts come from the
// client, not the caller.
type Scraper struct {
	client    *http.Client
	maxImages int
	logger    *slog.Logger
}

// ScraperOption configures a Scraper.
type ScraperOption func(*Scraper)

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) ScraperOption {
	return func(s *Scraper) { s.client.Timeout = d }
}

// WithMaxImages caps the images collected per page. Zero disables image
// collection.
func WithMaxImages(n int) ScraperOption {
	return func(s *Scraper) { s.maxImages = n }
}

// WithScrapeLogger sets a structured logger.
func WithScrapeLogger(l *slog.Logger) ScraperOption {
	return func(s *Scraper) { s.logger = l }
}

// WithClient replaces the HTTP client, for tests.
func WithClient(c *http.Client) ScraperOption {
	return func(s *Scraper) { s.client = c }
}

// NewScraper creates a Scraper with a shared pooled transport and a
// single-digit-seconds timeout.
func NewScraper(opts ...ScraperOption) *Scraper {
	s := &Scraper{
		client: &http.Client{
			Timeout: 8 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		maxImages: defaultMaxImages,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape fetches one link and extracts its content. Total function: every
// failure mode produces a degraded record carrying the search snippet (or a
// generic marker) and the error string, never an error return.
func (s *Scraper) Scrape(ctx context.Context, link ada.SearchResultLink) ada.SourceRecord {
	body, contentType, err := s.fetch(ctx, link.URL)
	if err != nil {
		s.logger.Debug("scrape failed", "url", link.URL, "error", err)
		return s.degraded(link, err)
	}

	rec := ada.SourceRecord{
		URL:    link.URL,
		Domain: domainOf(link.URL),
	}

	if isPDF(contentType, link.URL) {
		text, err := extractPDF(body)
		if err != nil {
			return s.degraded(link, err)
		}
		rec.Title = capTitle(firstNonEmpty(link.Title, domainOf(link.URL)))
		rec.Text = capRunes(text, maxTextRunes)
		return rec
	}

	page, err := decodeCharset(body, contentType)
	if err != nil {
		page = string(body) // assume UTF-8 when the decoder balks
	}

	rec.Title = capTitle(firstNonEmpty(link.Title, pageTitle(page), domainOf(link.URL)))
	rec.Text = s.extractHTML(page, link.URL)
	if rec.Text == "" {
		rec.Text = firstNonEmpty(link.Snippet, "[no readable content]")
	}
	if s.maxImages > 0 {
		rec.Images = ExtractImages(page, link.URL, s.maxImages)
	}
	return rec
}

// extractHTML runs readability first and falls back to the structural
// extractor when readability finds nothing.
func (s *Scraper) extractHTML(page, pageURL string) string {
	parsed, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(page), parsed)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return capRunes(strings.TrimSpace(article.TextContent), maxTextRunes)
	}
	return ExtractText(page)
}

// fetch downloads the URL body, retrying once on 429, 5xx, or a transport
// error.
func (s *Scraper) fetch(ctx context.Context, rawURL string) (body []byte, contentType string, err error) {
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}
		body, contentType, err = s.fetchOnce(ctx, rawURL)
		if err == nil {
			return body, contentType, nil
		}
		if !retryableFetch(err) {
			return nil, "", err
		}
	}
	return nil, "", err
}

type httpStatusError struct{ status int }

func (e *httpStatusError) Error() string { return fmt.Sprintf("http %d", e.status) }

func (s *Scraper) fetchOnce(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", scrapeUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &httpStatusError{resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// retryableFetch treats 429 and 5xx statuses plus transport errors as
// transient. Context cancellation and 4xx errors are final.
func retryableFetch(err error) bool {
	if err == context.Canceled || err == context.DeadlineExceeded {
		return false
	}
	if se, ok := err.(*httpStatusError); ok {
		return se.status == http.StatusTooManyRequests || se.status >= 500
	}
	return true
}

// degraded builds the record used when a page cannot be fetched or parsed.
func (s *Scraper) degraded(link ada.SearchResultLink, err error) ada.SourceRecord {
	text := link.Snippet
	if text == "" {
		text = "[could not fetch page content]"
	}
	return ada.SourceRecord{
		URL:    link.URL,
		Title:  capTitle(firstNonEmpty(link.Title, domainOf(link.URL))),
		Domain: domainOf(link.URL),
		Text:   text,
		Err:    err.Error(),
	}
}

func isPDF(contentType, rawURL string) bool {
	if strings.Contains(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	lower := strings.ToLower(rawURL)
	if idx := strings.IndexAny(lower, "?#"); idx >= 0 {
		lower = lower[:idx]
	}
	return strings.HasSuffix(lower, ".pdf")
}

// extractPDF pulls plain text out of a PDF body.
func extractPDF(body []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var b strings.Builder
	if _, err := io.Copy(&b, plain); err != nil {
		return "", err
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("pdf contains no extractable text")
	}
	return text, nil
}

// decodeCharset converts a response body to UTF-8 using the Content-Type
// charset or in-document meta hints.
func decodeCharset(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", err
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

var titlePattern = strings.NewReplacer("\n", " ", "\t", " ")

// pageTitle extracts the <title> element text, if any.
func pageTitle(page string) string {
	lower := strings.ToLower(page)
	start := strings.Index(lower, "<title")
	if start < 0 {
		return ""
	}
	open := strings.IndexByte(page[start:], '>')
	if open < 0 {
		return ""
	}
	rest := page[start+open+1:]
	end := strings.Index(strings.ToLower(rest), "</title>")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(titlePattern.Replace(rest[:end]))
}

func capTitle(t string) string {
	r := []rune(t)
	if len(r) > maxTitleRunes {
		return string(r[:maxTitleRunes])
	}
	return t
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
