// Package sqlite implements ada.HistoryStore using pure-Go SQLite.
// Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	ada "github.com/adalabs/ada"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements ada.HistoryStore backed by a local SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ ada.HistoryStore = (*Store)(nil)

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates the turns table.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	ddl := `CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		search_queries TEXT,
		created_at INTEGER NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, created_at)`); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.logger.Debug("sqlite: init done", "elapsed", time.Since(start))
	return nil
}

// AppendTurn persists one completed exchange. Search queries are stored as
// a JSON array.
func (s *Store) AppendTurn(ctx context.Context, turn ada.Turn) error {
	queries, err := json.Marshal(turn.SearchQueries)
	if err != nil {
		return fmt.Errorf("marshal queries: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO turns (id, session_id, question, answer, search_queries, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.SessionID, turn.Question, turn.Answer, string(queries), turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// RecentTurns returns the newest n turns for a session, oldest first.
func (s *Store) RecentTurns(ctx context.Context, sessionID string, n int) ([]ada.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, question, answer, search_queries, created_at
		 FROM turns WHERE session_id = ?
		 ORDER BY created_at DESC LIMIT ?`, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []ada.Turn
	for rows.Next() {
		var t ada.Turn
		var queries sql.NullString
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Question, &t.Answer, &queries, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if queries.Valid && queries.String != "" {
			if err := json.Unmarshal([]byte(queries.String), &t.SearchQueries); err != nil {
				s.logger.Warn("sqlite: bad search_queries json, skipping field", "turn", t.ID)
			}
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; callers want chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}
