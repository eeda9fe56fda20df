// Package scrape turns search hits into clean text: it fetches pages,
// extracts readable content, collects content images, and fans the work out
// across a bounded worker pool.
package scrape

import (
	"strings"

	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
)

// maxTextRunes caps extracted page text. Pages longer than this carry a
// truncation marker so the model knows content was cut.
const maxTextRunes = 8000

const truncationMarker = "\n... (truncated)"

// minFragmentRunes filters out stray labels and navigation crumbs that
// survive tag filtering.
const minFragmentRunes = 20

// Subtrees that never carry article text.
var noiseTags = map[string]bool{
	"script": true, "style": true, "nav": true, "footer": true,
	"header": true, "iframe": true, "noscript": true, "aside": true,
	"form": true, "button": true, "input": true, "svg": true,
}

// Class/id substrings marking boilerplate blocks.
var noiseHints = []string{
	"nav", "menu", "sidebar", "cookie", "banner", "ad-", "advert",
	"promo", "social", "share", "newsletter", "subscribe", "comment",
	"related", "breadcrumb", "pagination", "popup", "modal",
}

// Class/id substrings marking the main content container, probed in order.
var containerHints = []string{
	"article-body", "post-content", "entry-content", "main-content",
	"content-body", "story-body", "article-content",
}

// Elements whose text is worth keeping.
var textTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "li": true, "td": true, "th": true,
	"blockquote": true, "pre": true, "code": true,
}

// ExtractText pulls readable article text out of raw HTML. It never returns
// an error: unparseable or empty input yields "". The result is capped at
// maxTextRunes with a truncation marker.
func ExtractText(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return ""
	}
	pruneNoise(doc)

	container := findContainer(doc)
	text := collectFragments(container)

	if text == "" && container != doc {
		text = collectFragments(doc)
	}
	if text == "" {
		// Last resort: all visible text, whitespace-collapsed.
		text = strings.Join(strings.Fields(dom.TextContent(doc)), " ")
	}
	return capRunes(text, maxTextRunes)
}

// pruneNoise removes subtrees that cannot contain article text.
func pruneNoise(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode && isNoise(c) {
			n.RemoveChild(c)
			continue
		}
		pruneNoise(c)
	}
}

func isNoise(n *html.Node) bool {
	if noiseTags[dom.TagName(n)] {
		return true
	}
	marker := strings.ToLower(dom.GetAttribute(n, "class") + " " + dom.GetAttribute(n, "id"))
	if marker == " " {
		return false
	}
	for _, hint := range noiseHints {
		if strings.Contains(marker, hint) {
			return true
		}
	}
	return false
}

// findContainer probes for the main content element: an <article> or <main>
// tag first, then well-known container class/id names. Falls back to the
// whole document.
func findContainer(doc *html.Node) *html.Node {
	for _, tag := range []string{"article", "main"} {
		if nodes := dom.GetElementsByTagName(doc, tag); len(nodes) > 0 {
			return nodes[0]
		}
	}
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode {
			marker := strings.ToLower(dom.GetAttribute(n, "class") + " " + dom.GetAttribute(n, "id"))
			for _, hint := range containerHints {
				if strings.Contains(marker, hint) {
					found = n
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if found != nil {
		return found
	}
	return doc
}

// collectFragments gathers the text of structural elements under root,
// skipping fragments too short to be content. Matched elements are not
// descended into, so nested structural tags do not duplicate text.
func collectFragments(root *html.Node) string {
	var fragments []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && textTags[dom.TagName(n)] {
			t := strings.Join(strings.Fields(dom.TextContent(n)), " ")
			if len([]rune(t)) >= minFragmentRunes {
				fragments = append(fragments, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return strings.Join(fragments, "\n\n")
}

// capRunes truncates s to n runes, appending the truncation marker when
// anything was cut.
func capRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + truncationMarker
}
