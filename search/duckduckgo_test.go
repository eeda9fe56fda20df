package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const ddgSample = `<html><body>
<div class="result">
  <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpage&amp;rut=abc">First <b>Result</b> Title</a>
  <a class="result__snippet" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpage">Snippet text with &amp; entity</a>
</div>
<div class="result">
  <a rel="nofollow" class="result__a" href="https://direct.example.org/doc">Second Result</a>
  <a class="result__snippet" href="https://direct.example.org/doc">Another snippet</a>
</div>
<div class="result">
  <a rel="nofollow" class="result__a" href="https://direct.example.org/doc">Duplicate Result</a>
</div>
</body></html>`

func TestParseDuckDuckGo(t *testing.T) {
	results := parseDuckDuckGo(ddgSample, 10)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (duplicate dropped): %+v", len(results), results)
	}
	if results[0].URL != "https://example.com/page" {
		t.Errorf("redirect not decoded: %q", results[0].URL)
	}
	if results[0].Title != "First Result Title" {
		t.Errorf("title = %q", results[0].Title)
	}
	if results[0].Snippet != "Snippet text with & entity" {
		t.Errorf("snippet = %q", results[0].Snippet)
	}
	if results[1].URL != "https://direct.example.org/doc" {
		t.Errorf("direct URL mangled: %q", results[1].URL)
	}
}

func TestParseDuckDuckGo_MaxCap(t *testing.T) {
	if results := parseDuckDuckGo(ddgSample, 1); len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

func TestDecodeRedirect(t *testing.T) {
	tests := []struct{ in, want string }{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.example%2Fx%3Fy%3D1&rut=z", "https://a.example/x?y=1"},
		{"https://plain.example/path", "https://plain.example/path"},
		{"//duckduckgo.com/l/?uddg=%ZZbroken", "https://duckduckgo.com/l/?uddg=%ZZbroken"},
	}
	for _, tt := range tests {
		if got := decodeRedirect(tt.in); got != tt.want {
			t.Errorf("decodeRedirect(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDuckDuckGo_Search(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotQuery = r.PostFormValue("q")
		w.Write([]byte(ddgSample))
	}))
	defer srv.Close()

	d := NewDuckDuckGoWithClient(srv.URL, &http.Client{Timeout: 5 * time.Second})
	results, err := d.Search(context.Background(), "test query", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotQuery != "test query" {
		t.Errorf("posted query = %q", gotQuery)
	}
	if len(results) != 2 {
		t.Errorf("got %d results", len(results))
	}
}

func TestDuckDuckGo_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	d := NewDuckDuckGoWithClient(srv.URL, &http.Client{Timeout: 5 * time.Second})
	if _, err := d.Search(context.Background(), "q", 5); err == nil {
		t.Fatal("expected error on 403")
	}
}
