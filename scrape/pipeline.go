package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	ada "github.com/adalabs/ada"
	"github.com/adalabs/ada/search"
)

// maxScrapeWorkers bounds concurrent page fetches per query.
const maxScrapeWorkers = 10

// Pipeline composes the search chain and the scraper into the full
// query-to-bundle flow.
type Pipeline struct {
	chain   *search.Chain
	scraper *Scraper
	logger  *slog.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(chain *search.Chain, scraper *Scraper, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{chain: chain, scraper: scraper, logger: logger}
}

var _ ada.SearchPipeline = (*Pipeline)(nil)

// SearchAndScrape runs one query through the chain and scrapes the hits in
// parallel. depth (clamped to [1,10]) caps how many pages are scraped.
//
// An unreachable search chain yields an empty bundle with ServiceAvailable
// false and no scrape attempts. Results are assembled in search-rank order
// regardless of scrape completion order, so FullText is deterministic for a
// given result set.
func (p *Pipeline) SearchAndScrape(ctx context.Context, query string, depth int) ada.SearchBundle {
	depth = ada.ClampDepth(depth)

	links, available := p.chain.Search(ctx, query, depth)
	if !available {
		p.logger.Warn("search chain unreachable", "query", query)
		return ada.SearchBundle{ServiceAvailable: false}
	}

	links = dedupeLinks(links)
	if len(links) > depth {
		links = links[:depth]
	}
	if len(links) == 0 {
		return ada.SearchBundle{ServiceAvailable: true}
	}

	records := make([]ada.SourceRecord, len(links))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := len(links)
	if workers > maxScrapeWorkers {
		workers = maxScrapeWorkers
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				records[idx] = p.scraper.Scrape(ctx, links[idx])
			}
		}()
	}
	for i := range links {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	bundle := ada.SearchBundle{
		Sources:          records,
		Count:            len(records),
		ServiceAvailable: true,
	}

	var b strings.Builder
	for i, rec := range records {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Source %d: %s ---\nURL: %s\n%s", i+1, rec.Title, rec.URL, rec.Text)
		bundle.Images = append(bundle.Images, rec.Images...)
	}
	bundle.FullText = b.String()
	return bundle
}

// dedupeLinks drops repeat URLs, keeping first (highest-ranked) occurrence.
func dedupeLinks(links []ada.SearchResultLink) []ada.SearchResultLink {
	seen := make(map[string]bool, len(links))
	out := links[:0]
	for _, l := range links {
		if seen[l.URL] {
			continue
		}
		seen[l.URL] = true
		out = append(out, l)
	}
	return out
}
