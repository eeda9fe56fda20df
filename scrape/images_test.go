package scrape

import (
	"strings"
	"testing"
)

func TestExtractImages(t *testing.T) {
	page := `<html><body>
<img src="/photos/chart.png" alt="Revenue chart" width="640" height="480">
<img src="https://cdn.example.net/images/photo" alt="CDN hosted">
<img src="data:image/png;base64,AAAA" alt="inline">
<img src="/assets/logo.png" alt="Site logo">
<img src="/photos/tiny.png" width="32" height="32" alt="tiny">
<img src="/photos/chart.png" alt="duplicate">
<img src="/downloads/report.zip" alt="not an image">
</body></html>`

	images := ExtractImages(page, "https://example.com/post/1", 10)
	if len(images) != 2 {
		t.Fatalf("got %d images, want 2: %+v", len(images), images)
	}
	if images[0].URL != "https://example.com/photos/chart.png" {
		t.Errorf("relative URL not resolved: %q", images[0].URL)
	}
	if images[0].Alt != "Revenue chart" || images[0].SourcePage != "https://example.com/post/1" {
		t.Errorf("image metadata = %+v", images[0])
	}
	if images[1].URL != "https://cdn.example.net/images/photo" {
		t.Errorf("CDN-hinted URL rejected: %+v", images[1])
	}
}

func TestExtractImages_Cap(t *testing.T) {
	page := `<img src="/p/a.jpg" width="200"><img src="/p/b.jpg" width="200"><img src="/p/c.jpg" width="200">`
	if images := ExtractImages(page, "https://example.com/", 2); len(images) != 2 {
		t.Errorf("got %d images, want cap of 2", len(images))
	}
	if images := ExtractImages(page, "https://example.com/", 0); images != nil {
		t.Errorf("max=0 should return nil, got %+v", images)
	}
}

func TestExtractImages_AltTruncated(t *testing.T) {
	longAlt := strings.Repeat("a", 500)
	page := `<img src="/p/big.jpg" alt="` + longAlt + `">`
	images := ExtractImages(page, "https://example.com/", 5)
	if len(images) != 1 {
		t.Fatalf("got %d images", len(images))
	}
	if len([]rune(images[0].Alt)) != maxAltRunes {
		t.Errorf("alt length = %d, want %d", len([]rune(images[0].Alt)), maxAltRunes)
	}
}

func TestExtractImages_DataSrcFallback(t *testing.T) {
	page := `<img data-src="/lazy/pic.webp" alt="lazy loaded">`
	images := ExtractImages(page, "https://example.com/", 5)
	if len(images) != 1 || images[0].URL != "https://example.com/lazy/pic.webp" {
		t.Errorf("data-src not used: %+v", images)
	}
}

func TestTooSmall(t *testing.T) {
	for _, tt := range []struct {
		attr string
		want bool
	}{
		{"", false}, {"abc", false}, {"100", false}, {"640", false},
		{"99", true}, {"32px", true},
	} {
		if got := tooSmall(tt.attr); got != tt.want {
			t.Errorf("tooSmall(%q) = %v, want %v", tt.attr, got, tt.want)
		}
	}
}
