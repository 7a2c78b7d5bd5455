// Package syncstore persists call state to sqlite. Writes are decoupled
// from the conversation: the engine marks state dirty and a background
// syncer flushes it, so speaking never waits on persistence.
package syncstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ringline/ringline/internal/convo"
)

// Store is the durable call-state collaborator.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the call store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open call store: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// CreateCall inserts the call record.
func (s *Store) CreateCall(ctx context.Context, callID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO calls (id) VALUES (?)`, callID)
	if err != nil {
		return fmt.Errorf("create call: %w", err)
	}
	return nil
}

// UpsertTurn writes one turn into the keyed turn map.
func (s *Store) UpsertTurn(ctx context.Context, turn convo.Turn) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO call_turns (call_id, turn_id, seq, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(call_id, turn_id) DO UPDATE SET
			payload = excluded.payload,
			seq = excluded.seq,
			updated_at = CURRENT_TIMESTAMP`,
		turn.CallID, turn.ID, turn.Seq, string(payload))
	if err != nil {
		return fmt.Errorf("upsert turn: %w", err)
	}
	return nil
}

// UpdateContext replaces the stored call context.
func (s *Store) UpdateContext(ctx context.Context, callID string, c convo.Context) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE calls SET context = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(payload), callID)
	if err != nil {
		return fmt.Errorf("update context: %w", err)
	}
	return nil
}

// AppendLog appends to the call's append-only event log.
func (s *Store) AppendLog(ctx context.Context, callID, kind, detail string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO call_log (call_id, kind, detail) VALUES (?, ?, ?)`,
		callID, kind, detail)
	if err != nil {
		return fmt.Errorf("append call log: %w", err)
	}
	return nil
}

// RemoveCall deletes a call and its turns. The log is kept for audit.
func (s *Store) RemoveCall(ctx context.Context, callID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM call_turns WHERE call_id = ?`, callID); err != nil {
		return fmt.Errorf("remove call turns: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM calls WHERE id = ?`, callID); err != nil {
		return fmt.Errorf("remove call: %w", err)
	}
	return nil
}

// LoadTurns reads back a call's turns ordered by seq. Used by tooling and
// tests; the live call never reads its own persistence.
func (s *Store) LoadTurns(ctx context.Context, callID string) ([]convo.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM call_turns WHERE call_id = ? ORDER BY seq`, callID)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	defer rows.Close()

	var out []convo.Turn
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		var t convo.Turn
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// LoadContext reads back a call's stored context.
func (s *Store) LoadContext(ctx context.Context, callID string) (convo.Context, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT context FROM calls WHERE id = ?`, callID).Scan(&payload)
	if err != nil {
		return convo.Context{}, fmt.Errorf("load context: %w", err)
	}
	var c convo.Context
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return convo.Context{}, fmt.Errorf("decode context: %w", err)
	}
	return c, nil
}
