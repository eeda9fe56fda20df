package ada

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCompressMemory_UnderThresholdUnchanged(t *testing.T) {
	mock := newMockProvider(scripted{content: "summary"})
	memory := []ChatMessage{UserMessage("short"), AssistantMessage("reply")}

	got := CompressMemory(context.Background(), mock, memory, 1000, 1, nil)
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2 (unchanged)", len(got))
	}
	if mock.callCount() != 0 {
		t.Errorf("provider called %d times, want 0", mock.callCount())
	}
}

func TestCompressMemory_CondensesOldTurns(t *testing.T) {
	mock := newMockProvider(scripted{content: "they discussed databases"})
	long := strings.Repeat("x", 200)
	memory := []ChatMessage{
		UserMessage(long), AssistantMessage(long),
		UserMessage(long), AssistantMessage(long),
		UserMessage("latest question"), AssistantMessage("latest answer"),
	}

	got := CompressMemory(context.Background(), mock, memory, 500, 2, nil)
	if len(got) != 3 {
		t.Fatalf("got %d messages, want 3 (summary + 2 recent)", len(got))
	}
	if got[0].Role != "assistant" || !strings.Contains(got[0].Content, "they discussed databases") {
		t.Errorf("first message should be the synthetic summary, got %+v", got[0])
	}
	if got[1].Content != "latest question" || got[2].Content != "latest answer" {
		t.Errorf("recent messages not preserved verbatim: %+v", got[1:])
	}
}

func TestCompressMemory_FailureReturnsInput(t *testing.T) {
	mock := newMockProvider(scripted{err: errors.New("llm down")})
	long := strings.Repeat("y", 600)
	memory := []ChatMessage{UserMessage(long), AssistantMessage(long), UserMessage("recent")}

	got := CompressMemory(context.Background(), mock, memory, 100, 1, nil)
	if len(got) != len(memory) {
		t.Fatalf("got %d messages, want input unchanged (%d)", len(got), len(memory))
	}
}
