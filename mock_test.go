package ada

import (
	"context"
	"strings"
	"sync"
)

// scripted is one canned provider turn: either a response or an error.
type scripted struct {
	content string
	err     error
}

// mockProvider replays scripted turns in order. The last turn repeats once
// the script is exhausted, so loops that call more often than scripted
// still get a deterministic answer. All calls are recorded.
type mockProvider struct {
	mu      sync.Mutex
	script  []scripted
	pos     int
	calls   []ChatRequest
	nameStr string
}

func newMockProvider(turns ...scripted) *mockProvider {
	return &mockProvider{script: turns, nameStr: "mock"}
}

func (m *mockProvider) Name() string { return m.nameStr }

func (m *mockProvider) next(req ChatRequest) scripted {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if len(m.script) == 0 {
		return scripted{}
	}
	turn := m.script[m.pos]
	if m.pos < len(m.script)-1 {
		m.pos++
	}
	return turn
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockProvider) Chat(_ context.Context, req ChatRequest) (ChatResponse, error) {
	turn := m.next(req)
	if turn.err != nil {
		return ChatResponse{}, turn.err
	}
	return ChatResponse{Content: turn.content}, nil
}

func (m *mockProvider) ChatStream(ctx context.Context, req ChatRequest, ch chan<- string) (ChatResponse, error) {
	turn := m.next(req)
	if turn.err != nil {
		close(ch)
		return ChatResponse{}, turn.err
	}
	// Stream in word-sized chunks to exercise accumulation.
	for _, word := range strings.SplitAfter(turn.content, " ") {
		select {
		case ch <- word:
		case <-ctx.Done():
			close(ch)
			return ChatResponse{}, ctx.Err()
		}
	}
	close(ch)
	return ChatResponse{Content: turn.content}, nil
}

var _ Provider = (*mockProvider)(nil)
