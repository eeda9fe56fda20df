package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func braveServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(handler))
}

func bravePayload(urls ...string) map[string]any {
	results := make([]map[string]string, 0, len(urls))
	for _, u := range urls {
		results = append(results, map[string]string{"title": "t " + u, "url": u, "description": "d"})
	}
	return map[string]any{"web": map[string]any{"results": results}}
}

func TestBrave_Search(t *testing.T) {
	srv := braveServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Subscription-Token"); got != "key-1" {
			t.Errorf("token header = %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "go generics" {
			t.Errorf("q = %q", got)
		}
		w.Header().Set("X-RateLimit-Remaining", "1, 1000")
		json.NewEncoder(w).Encode(bravePayload("https://a.example", "https://b.example", "https://c.example"))
	})
	defer srv.Close()

	b := NewBraveWithClient("key-1", srv.URL, &http.Client{Timeout: 5 * time.Second})
	results, err := b.Search(context.Background(), "go generics", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want max=2", len(results))
	}
	if results[0].URL != "https://a.example" || results[0].Snippet != "d" {
		t.Errorf("first result = %+v", results[0])
	}
}

func TestBrave_RetriesAfter429(t *testing.T) {
	var calls int
	srv := braveServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("X-RateLimit-Reset", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("X-RateLimit-Remaining", "1, 1000")
		json.NewEncoder(w).Encode(bravePayload("https://ok.example"))
	})
	defer srv.Close()

	b := NewBraveWithClient("key-2", srv.URL, &http.Client{Timeout: 5 * time.Second})
	results, err := b.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if calls != 2 {
		t.Errorf("server saw %d calls, want 2", calls)
	}
	if len(results) != 1 {
		t.Errorf("got %d results", len(results))
	}
}

func TestBrave_NonOKStatus(t *testing.T) {
	srv := braveServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer srv.Close()

	b := NewBraveWithClient("key-3", srv.URL, &http.Client{Timeout: 5 * time.Second})
	if _, err := b.Search(context.Background(), "q", 5); err == nil {
		t.Fatal("expected error on 401")
	}
}

func TestNewBrave_EmptyKeyIsNil(t *testing.T) {
	if b := NewBrave("  "); b != nil {
		t.Error("NewBrave with blank key should return nil")
	}
}

func TestBraveDelayHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("X-RateLimit-Reset", "2, 141000")
	if d := braveRetryDelay(h); d != 2*time.Second {
		t.Errorf("retry delay = %v, want 2s", d)
	}
	if d := braveRetryDelay(http.Header{}); d != time.Second {
		t.Errorf("missing header retry delay = %v, want 1s", d)
	}

	h = http.Header{}
	h.Set("X-RateLimit-Remaining", "0, 14832")
	if d := braveNextDelay(h); d != time.Second {
		t.Errorf("exhausted bucket delay = %v, want 1s", d)
	}
	h.Set("X-RateLimit-Remaining", "1, 14832")
	if d := braveNextDelay(h); d != 0 {
		t.Errorf("open bucket delay = %v, want 0", d)
	}
}
