package ada

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseQueries(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Query
	}{
		{
			name: "newline separated with depths",
			raw:  "best GPUs for gaming depth3\nGPU benchmark results 2026 depth7",
			want: []Query{
				{Text: "best GPUs for gaming", Depth: 3},
				{Text: "GPU benchmark results 2026", Depth: 7},
			},
		},
		{
			name: "pipe separated",
			raw:  "rust async runtime comparison depth5|tokio vs async-std",
			want: []Query{
				{Text: "rust async runtime comparison", Depth: 5},
				{Text: "tokio vs async-std", Depth: 5},
			},
		},
		{
			name: "depth clamped high and low",
			raw:  "deep dive topic depth15\nshallow topic depth0",
			want: []Query{
				{Text: "deep dive topic", Depth: 10},
				{Text: "shallow topic", Depth: 1},
			},
		},
		{
			name: "list markers and quotes stripped",
			raw:  "1. \"first query here\"\n- second query here",
			want: []Query{
				{Text: "first query here", Depth: 5},
				{Text: "second query here", Depth: 5},
			},
		},
		{
			name: "trailing digits are not depth tokens",
			raw:  "top laptops 2025",
			want: []Query{{Text: "top laptops 2025", Depth: 5}},
		},
		{
			name: "capped at four queries",
			raw:  "query one\nquery two\nquery three\nquery four\nquery five",
			want: []Query{
				{Text: "query one", Depth: 5},
				{Text: "query two", Depth: 5},
				{Text: "query three", Depth: 5},
				{Text: "query four", Depth: 5},
			},
		},
		{
			name: "case insensitive depth token",
			raw:  "climate data sources DEPTH 4",
			want: []Query{{Text: "climate data sources", Depth: 4}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseQueries(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d queries, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("query %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseQueries_FallbackToWholeString(t *testing.T) {
	got := ParseQueries("ok")
	if len(got) != 1 {
		t.Fatalf("got %d queries, want 1", len(got))
	}
	if got[0].Text != "ok" || got[0].Depth != defaultDepth {
		t.Errorf("got %+v, want whole-string default-depth query", got[0])
	}
}

func TestClampDepth(t *testing.T) {
	for _, tt := range []struct{ in, want int }{
		{0, 1}, {-3, 1}, {1, 1}, {5, 5}, {10, 10}, {15, 10},
	} {
		if got := ClampDepth(tt.in); got != tt.want {
			t.Errorf("ClampDepth(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPlanner_NoSearchSentinel(t *testing.T) {
	p := NewPlanner(newMockProvider(scripted{content: "  " + noSearchSentinel + "  "}), nil)
	queries, noSearch, err := p.Plan(context.Background(), "what is 2+2", nil, "")
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if !noSearch {
		t.Error("expected noSearch=true")
	}
	if queries != nil {
		t.Errorf("expected nil queries, got %+v", queries)
	}
}

func TestPlanner_ProviderErrorPropagates(t *testing.T) {
	p := NewPlanner(newMockProvider(scripted{err: errors.New("boom")}), nil)
	_, _, err := p.Plan(context.Background(), "anything", nil, "")
	if err == nil {
		t.Fatal("expected error from failed provider call")
	}
}

func TestPlanner_RetryIncludesFailedQuery(t *testing.T) {
	mock := newMockProvider(scripted{content: "refined query text depth2"})
	p := NewPlanner(mock, nil)

	queries, noSearch, err := p.Plan(context.Background(), "original question", nil, "stale query")
	if err != nil || noSearch {
		t.Fatalf("unexpected result: err=%v noSearch=%v", err, noSearch)
	}
	if len(queries) != 1 || queries[0].Text != "refined query text" || queries[0].Depth != 2 {
		t.Errorf("unexpected queries: %+v", queries)
	}

	// The failed query must be surfaced to the model.
	req := mock.calls[0]
	if len(req.Messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(req.Messages))
	}
	if !strings.Contains(req.Messages[1].Content, "stale query") {
		t.Errorf("retry prompt missing failed query: %q", req.Messages[1].Content)
	}
}
