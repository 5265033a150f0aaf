// Package auditsink mirrors sealed ledger events to optional external
// stores for longer-retention audit and real-time dashboards. Neither
// sink is consulted by any promotion decision — a PDC with every sink
// disabled behaves identically, just without an external copy.
package auditsink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/danielgonzagat/penin-omega-pdc/pkg/ledger"
)

// PostgresSink mirrors every sealed ledger event into a Postgres table,
// for retention and ad-hoc SQL audit queries beyond what the flat ledger
// file supports. MirrorEvent returns a write error to the caller without
// logging it (MirrorBatch logs each failed row), and the caller decides
// whether a mirror failure should stall the orchestrator.
type PostgresSink struct {
	db     *sql.DB
	logger *log.Logger
}

// NewPostgresSink opens a connection pool against dsn and verifies
// connectivity with a short ping.
func NewPostgresSink(dsn string) (*PostgresSink, error) {
	if dsn == "" {
		return nil, fmt.Errorf("auditsink: postgres dsn must not be empty")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("auditsink: opening postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("auditsink: pinging postgres: %w", err)
	}

	return &PostgresSink{db: db, logger: log.New(log.Writer(), "[AuditSink/Postgres] ", log.LstdFlags)}, nil
}

// EnsureSchema creates the mirror table if it does not already exist.
// Safe to call on every startup.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS pdc_ledger_events (
	sequence      BIGINT PRIMARY KEY,
	event_type    TEXT NOT NULL,
	timestamp_utc TIMESTAMPTZ NOT NULL,
	payload_hash  TEXT NOT NULL,
	prev_hash     TEXT NOT NULL,
	event_hash    TEXT NOT NULL,
	payload       JSONB NOT NULL,
	mirrored_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("auditsink: ensuring schema: %w", err)
	}
	return nil
}

// MirrorEvent inserts one ledger event. It is idempotent on sequence, so
// the orchestrator may retry a mirror write after a transient error
// without producing duplicates.
func (s *PostgresSink) MirrorEvent(ctx context.Context, ev ledger.Event) error {
	payloadJSON, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("auditsink: marshaling payload: %w", err)
	}

	const stmt = `
INSERT INTO pdc_ledger_events (sequence, event_type, timestamp_utc, payload_hash, prev_hash, event_hash, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (sequence) DO NOTHING`

	if _, err := s.db.ExecContext(ctx, stmt,
		ev.Sequence, string(ev.Type), ev.TimestampUTC, ev.PayloadHash, ev.PrevHash, ev.EventHash, payloadJSON,
	); err != nil {
		return fmt.Errorf("auditsink: inserting event %d: %w", ev.Sequence, err)
	}
	return nil
}

// MirrorBatch mirrors a contiguous slice of events, logging (but not
// aborting on) individual failures so one bad row doesn't block the
// rest of the batch.
func (s *PostgresSink) MirrorBatch(ctx context.Context, events []ledger.Event) error {
	var firstErr error
	for _, ev := range events {
		if err := s.MirrorEvent(ctx, ev); err != nil {
			s.logger.Printf("failed to mirror event %d: %v", ev.Sequence, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Close releases the connection pool.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}
