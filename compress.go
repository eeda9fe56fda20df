package ada

import (
	"context"
	"log/slog"
	"strings"
)

// defaultCompressThreshold is the rune count of conversation memory above
// which the oldest turns are condensed before prompting.
const defaultCompressThreshold = 24_000

// CompressMemory condenses the oldest conversation turns into a single
// synthetic assistant turn once the history exceeds threshold runes, keeping
// the most recent keepRecent messages verbatim. threshold<=0 uses the
// default. Any failure returns the input unchanged (degrade, don't die).
func CompressMemory(ctx context.Context, p Provider, memory []ChatMessage, threshold, keepRecent int, logger *slog.Logger) []ChatMessage {
	if logger == nil {
		logger = nopLogger
	}
	if threshold <= 0 {
		threshold = defaultCompressThreshold
	}
	if keepRecent < 0 {
		keepRecent = 0
	}
	if memoryRunes(memory) <= threshold || len(memory) <= keepRecent {
		return memory
	}

	old := memory[:len(memory)-keepRecent]
	recent := memory[len(memory)-keepRecent:]

	var b strings.Builder
	for _, m := range old {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n---\n")
	}

	resp, err := p.Chat(ctx, ChatRequest{Messages: []ChatMessage{
		SystemMessage(compressorPrompt),
		UserMessage(b.String()),
	}})
	if err != nil || resp.Content == "" {
		logger.Warn("memory compression failed, continuing uncompressed", "error", err)
		return memory
	}

	compressed := make([]ChatMessage, 0, 1+len(recent))
	compressed = append(compressed, AssistantMessage("[Summary of earlier conversation]\n"+resp.Content))
	compressed = append(compressed, recent...)

	logger.Info("memory compressed",
		"before_runes", memoryRunes(memory),
		"after_runes", memoryRunes(compressed),
		"messages_removed", len(old))
	return compressed
}

// memoryRunes returns the total rune count of all message content.
func memoryRunes(memory []ChatMessage) int {
	var n int
	for _, m := range memory {
		n += len([]rune(m.Content))
	}
	return n
}
