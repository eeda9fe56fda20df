package scrape

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-shiori/dom"
	"golang.org/x/net/html"

	ada "github.com/adalabs/ada"
)

// maxAltRunes caps alt text carried into the answer prompt.
const maxAltRunes = 200

// minImageDimension rejects images whose declared width or height marks
// them as decoration rather than content.
const minImageDimension = 100

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".avif", ".svg"}

// URL substrings that mark decorative or tracking images.
var imageNoise = regexp.MustCompile(`(?i)icon|logo|sprite|avatar|badge|button|pixel|tracker|spinner|loading|arrow|bullet|social|share|ad-|banner|thumb`)

// Hosts and path fragments that serve content images without a file
// extension in the URL.
var imageHostHints = []string{"/image", "/img/", "/photo", "/media/", "images.", "cdn.", "cloudinary", "imgix", "wp-content/uploads"}

// ExtractImages collects up to max likely content images from raw HTML.
// Relative src values are resolved against pageURL; data URIs, decorative
// images, and anything with declared dimensions under 100px are skipped.
// Never returns an error: bad input yields nil.
func ExtractImages(page, pageURL string, max int) []ada.ImageRef {
	if max <= 0 {
		return nil
	}
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var images []ada.ImageRef
	seen := make(map[string]bool)
	for _, img := range dom.GetElementsByTagName(doc, "img") {
		src := dom.GetAttribute(img, "src")
		if src == "" {
			src = dom.GetAttribute(img, "data-src")
		}
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(src, "data:") {
			continue
		}

		ref, err := base.Parse(src)
		if err != nil || (ref.Scheme != "http" && ref.Scheme != "https") {
			continue
		}
		resolved := ref.String()

		if !looksLikeImage(resolved) || imageNoise.MatchString(resolved) {
			continue
		}
		if tooSmall(dom.GetAttribute(img, "width")) || tooSmall(dom.GetAttribute(img, "height")) {
			continue
		}
		if seen[resolved] {
			continue
		}
		seen[resolved] = true

		alt := strings.TrimSpace(dom.GetAttribute(img, "alt"))
		if r := []rune(alt); len(r) > maxAltRunes {
			alt = string(r[:maxAltRunes])
		}
		images = append(images, ada.ImageRef{URL: resolved, Alt: alt, SourcePage: pageURL})
		if len(images) >= max {
			break
		}
	}
	return images
}

// looksLikeImage accepts URLs with an image extension or a path/host that
// plausibly serves images.
func looksLikeImage(u string) bool {
	lower := strings.ToLower(u)
	if idx := strings.IndexAny(lower, "?#"); idx >= 0 {
		lower = lower[:idx]
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	for _, hint := range imageHostHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// tooSmall reports whether a declared dimension attribute is under the
// content threshold. Missing or unparseable attributes pass.
func tooSmall(attr string) bool {
	attr = strings.TrimSuffix(strings.TrimSpace(attr), "px")
	if attr == "" {
		return false
	}
	n, err := strconv.Atoi(attr)
	if err != nil {
		return false
	}
	return n < minImageDimension
}
