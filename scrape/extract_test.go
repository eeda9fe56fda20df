package scrape

import (
	"strings"
	"testing"
)

func TestExtractText_ArticleContainer(t *testing.T) {
	page := `<html><body>
<nav><ul><li>Home navigation item that is long enough</li></ul></nav>
<article>
<h1>The Real Headline Goes Right Here</h1>
<p>This is the first paragraph of the article body content.</p>
<p>short</p>
<p>Second paragraph with plenty of additional article text.</p>
</article>
<footer><p>Footer boilerplate that should never appear in output.</p></footer>
</body></html>`

	got := ExtractText(page)
	if !strings.Contains(got, "The Real Headline Goes Right Here") {
		t.Errorf("missing headline:\n%s", got)
	}
	if !strings.Contains(got, "first paragraph of the article body") {
		t.Errorf("missing body text:\n%s", got)
	}
	if strings.Contains(got, "short") {
		t.Errorf("fragment under the length floor kept:\n%s", got)
	}
	if strings.Contains(got, "navigation item") || strings.Contains(got, "Footer boilerplate") {
		t.Errorf("noise subtree text leaked:\n%s", got)
	}
}

func TestExtractText_NoiseClassesDropped(t *testing.T) {
	page := `<html><body><main>
<div class="cookie-banner"><p>We use cookies to improve your experience on this site.</p></div>
<div class="sidebar-widget"><p>Sidebar content that should also be removed entirely.</p></div>
<p>Actual content paragraph that survives the noise filtering pass.</p>
</main></body></html>`

	got := ExtractText(page)
	if strings.Contains(got, "cookies") || strings.Contains(got, "Sidebar content") {
		t.Errorf("noise class text leaked:\n%s", got)
	}
	if !strings.Contains(got, "Actual content paragraph") {
		t.Errorf("content dropped:\n%s", got)
	}
}

func TestExtractText_ContainerHintProbe(t *testing.T) {
	page := `<html><body>
<div class="wrapper"><p>Unrelated text elsewhere on the page of decent length.</p></div>
<div class="post-content">
<p>The actual post body lives inside this hinted container element.</p>
</div>
</body></html>`

	got := ExtractText(page)
	if !strings.Contains(got, "actual post body") {
		t.Errorf("hinted container text missing:\n%s", got)
	}
	if strings.Contains(got, "Unrelated text elsewhere") {
		t.Errorf("probe did not scope to the hinted container:\n%s", got)
	}
}

func TestExtractText_FallbackToVisibleText(t *testing.T) {
	// No structural tags at all: falls back to visible text.
	page := `<html><body><div>just some bare div text</div></body></html>`
	got := ExtractText(page)
	if !strings.Contains(got, "just some bare div text") {
		t.Errorf("fallback missed visible text: %q", got)
	}
}

func TestExtractText_Truncation(t *testing.T) {
	long := strings.Repeat("word and more text here ", 2000)
	page := "<html><body><article><p>" + long + "</p></article></body></html>"

	got := ExtractText(page)
	runes := []rune(got)
	if len(runes) > maxTextRunes+len([]rune(truncationMarker)) {
		t.Errorf("output %d runes, want at most cap+marker", len(runes))
	}
	if !strings.HasSuffix(got, truncationMarker) {
		t.Error("missing truncation marker")
	}
}

func TestExtractText_EmptyAndGarbage(t *testing.T) {
	if got := ExtractText(""); got != "" {
		t.Errorf("empty input produced %q", got)
	}
	// html.Parse is lenient; garbage should still not panic.
	_ = ExtractText("<<<>>>%%%")
}
