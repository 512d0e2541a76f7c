package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/fracvault/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL. The journal is
// append-only; nothing here updates or deletes rows.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Append inserts one journal entry. The detail map is stored as JSONB.
func (s *EventStore) Append(ctx context.Context, ev domain.Event) error {
	detailJSON, err := json.Marshal(ev.Detail)
	if err != nil {
		return fmt.Errorf("postgres: marshal event detail: %w", err)
	}

	const query = `INSERT INTO events (id, event_type, detail, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, query, ev.ID, ev.Type, detailJSON, ev.CreatedAt); err != nil {
		return fmt.Errorf("postgres: append event %s: %w", ev.Type, err)
	}
	return nil
}

// List returns journal entries with pagination and optional type/time
// filtering, newest first.
func (s *EventStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Event, error) {
	query := `SELECT id, event_type, detail, created_at FROM events WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Type != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, opts.Type)
		argIdx++
	}
	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	return s.query(ctx, query, args...)
}

// ListBefore returns all journal entries created strictly before the cutoff,
// oldest first. Used by the archiver.
func (s *EventStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Event, error) {
	const query = `
		SELECT id, event_type, detail, created_at FROM events
		WHERE created_at < $1
		ORDER BY created_at ASC`
	return s.query(ctx, query, before)
}

func (s *EventStore) query(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var ev domain.Event
		var detailJSON []byte

		if err := rows.Scan(&ev.ID, &ev.Type, &detailJSON, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		if detailJSON != nil {
			if err := json.Unmarshal(detailJSON, &ev.Detail); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal event detail: %w", err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list events rows: %w", err)
	}
	return events, nil
}

// Compile-time interface check.
var _ domain.EventStore = (*EventStore)(nil)
