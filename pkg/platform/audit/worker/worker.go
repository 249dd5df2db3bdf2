// Package worker relays audit events from the Postgres outbox to a message sink.
package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	txcontext "gatepass/pkg/platform/tx"
)

// Message is one outbox row ready for publishing.
type Message struct {
	ID        string
	Key       string
	EventType string
	Value     []byte
}

// Sink publishes a batch of messages. It must be all-or-error: a returned
// error leaves the whole batch unpublished so it is retried.
type Sink interface {
	Publish(ctx context.Context, msgs []Message) error
}

// Relay polls the outbox and publishes unpublished rows in creation order.
type Relay struct {
	db        *sql.DB
	sink      Sink
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	counter   RelayedCounter
}

// RelayedCounter counts published outbox rows.
type RelayedCounter interface {
	AddAuditRelayed(n int)
}

// Option configures a Relay.
type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithCounter(c RelayedCounter) Option {
	return func(r *Relay) {
		r.counter = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRelay(db *sql.DB, sink Sink, opts ...Option) *Relay {
	r := &Relay{
		db:        db,
		sink:      sink,
		logger:    slog.Default(),
		interval:  time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled. Failed batches are logged and retried next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := r.RelayOnce(ctx)
			if err != nil {
				r.logger.ErrorContext(ctx, "audit outbox relay failed", "error", err)
				continue
			}
			if n > 0 && r.counter != nil {
				r.counter.AddAuditRelayed(n)
			}
			if n > 0 {
				r.logger.DebugContext(ctx, "audit outbox relayed", "count", n)
			}
		}
	}
}

// RelayOnce publishes one batch. Rows are locked with SKIP LOCKED so several
// replicas can relay concurrently without publishing a row twice.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var published int
	err := txcontext.Run(ctx, r.db, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, r.db)
		rows, err := exec.QueryContext(ctx, `
			SELECT id, aggregate_id, event_type, payload
			FROM outbox
			WHERE published_at IS NULL
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		`, r.batchSize)
		if err != nil {
			return fmt.Errorf("select outbox batch: %w", err)
		}

		var msgs []Message
		var ids []string
		for rows.Next() {
			var m Message
			if err := rows.Scan(&m.ID, &m.Key, &m.EventType, &m.Value); err != nil {
				rows.Close()
				return fmt.Errorf("scan outbox row: %w", err)
			}
			msgs = append(msgs, m)
			ids = append(ids, m.ID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate outbox: %w", err)
		}
		if len(msgs) == 0 {
			return nil
		}

		if err := r.sink.Publish(ctx, msgs); err != nil {
			return fmt.Errorf("publish outbox batch: %w", err)
		}

		if _, err := exec.ExecContext(ctx,
			`UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`,
			time.Now(), pq.Array(ids),
		); err != nil {
			return fmt.Errorf("mark outbox published: %w", err)
		}
		published = len(msgs)
		return nil
	})
	return published, err
}
