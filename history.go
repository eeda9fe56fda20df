package ada

import "context"

// HistoryStore persists completed conversation turns. Implementations live
// in store/sqlite and store/postgres. Persistence is best-effort: the engine
// and server never fail a request on store errors.
type HistoryStore interface {
	Init(ctx context.Context) error
	AppendTurn(ctx context.Context, turn Turn) error
	// RecentTurns returns the newest n turns for a session, oldest first.
	RecentTurns(ctx context.Context, sessionID string, n int) ([]Turn, error)
	Close() error
}
