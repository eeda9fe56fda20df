// Package postgres implements ada.HistoryStore using PostgreSQL.
//
// Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	ada "github.com/adalabs/ada"
)

// Store implements ada.HistoryStore backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ ada.HistoryStore = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Init creates the turns table.
func (s *Store) Init(ctx context.Context) error {
	ddls := []string{
		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			search_queries TEXT[],
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, created_at)`,
	}
	for _, ddl := range ddls {
		if _, err := s.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// AppendTurn persists one completed exchange.
func (s *Store) AppendTurn(ctx context.Context, turn ada.Turn) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO turns (id, session_id, question, answer, search_queries, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		turn.ID, turn.SessionID, turn.Question, turn.Answer, turn.SearchQueries, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// RecentTurns returns the newest n turns for a session, oldest first.
func (s *Store) RecentTurns(ctx context.Context, sessionID string, n int) ([]ada.Turn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, question, answer, search_queries, created_at
		 FROM turns WHERE session_id = $1
		 ORDER BY created_at DESC LIMIT $2`, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []ada.Turn
	for rows.Next() {
		var t ada.Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Question, &t.Answer, &t.SearchQueries, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *Store) Close() error { return nil }
