package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"gatepass/internal/visit/models"
	id "gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
	txcontext "gatepass/pkg/platform/tx"
)

const visitColumns = `id, email, name, mobile, purpose, visit_at, verified, status, presence, created_at, updated_at`

// PostgresStore persists visit records and their ledger in PostgreSQL.
// Per-record atomicity comes from SELECT ... FOR UPDATE inside a transaction.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed visit record store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Upsert is a single INSERT ... ON CONFLICT (email) that replaces the
// registration fields and resets the lifecycle. The ledger is cleared in the
// same transaction.
func (s *PostgresStore) Upsert(ctx context.Context, candidate *models.VisitRecord) (*models.VisitRecord, error) {
	if err := candidate.CheckInvariants(); err != nil {
		return nil, err
	}
	var stored *models.VisitRecord
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)
		row := exec.QueryRowContext(ctx, `
			INSERT INTO visits (`+visitColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE, 'pending', 'outside', $7, $7)
			ON CONFLICT (email) DO UPDATE SET
				name = EXCLUDED.name,
				mobile = EXCLUDED.mobile,
				purpose = EXCLUDED.purpose,
				visit_at = EXCLUDED.visit_at,
				verified = TRUE,
				status = 'pending',
				presence = 'outside',
				updated_at = EXCLUDED.updated_at
			RETURNING `+visitColumns,
			candidate.ID.String(), candidate.Email, candidate.Name, candidate.Mobile,
			candidate.Purpose, candidate.VisitAt, candidate.UpdatedAt,
		)
		rec, err := scanVisit(row)
		if err != nil {
			return fmt.Errorf("upsert visit: %w", err)
		}
		if _, err := exec.ExecContext(ctx, `DELETE FROM visit_events WHERE visit_id = $1`, rec.ID.String()); err != nil {
			return fmt.Errorf("clear visit ledger: %w", err)
		}
		stored = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, visitID id.VisitID) (*models.VisitRecord, error) {
	return s.findOne(ctx, `SELECT `+visitColumns+` FROM visits WHERE id = $1`, visitID.String())
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.VisitRecord, error) {
	return s.findOne(ctx, `SELECT `+visitColumns+` FROM visits WHERE email = $1`, email)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status) ([]*models.VisitRecord, error) {
	return s.findMany(ctx, `SELECT `+visitColumns+` FROM visits WHERE status = $1 ORDER BY created_at`, string(status))
}

// ListInRange returns records whose visit date or any entry time falls in [from, to].
func (s *PostgresStore) ListInRange(ctx context.Context, from, to time.Time) ([]*models.VisitRecord, error) {
	return s.findMany(ctx, `
		SELECT `+visitColumns+` FROM visits v
		WHERE v.visit_at BETWEEN $1 AND $2
		   OR EXISTS (
				SELECT 1 FROM visit_events e
				WHERE e.visit_id = v.id AND e.entry_time BETWEEN $1 AND $2
		   )
		ORDER BY v.created_at`, from, to)
}

// Execute locks the row, runs validate then mutate on a copy, checks the
// ledger invariants and writes the result back, all in one transaction.
func (s *PostgresStore) Execute(ctx context.Context, visitID id.VisitID, validate func(*models.VisitRecord) error, mutate func(*models.VisitRecord)) (*models.VisitRecord, error) {
	var result *models.VisitRecord
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)
		rec, err := scanVisit(exec.QueryRowContext(ctx,
			`SELECT `+visitColumns+` FROM visits WHERE id = $1 FOR UPDATE`, visitID.String()))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock visit: %w", err)
		}
		if err := s.loadEvents(ctx, exec, []*models.VisitRecord{rec}); err != nil {
			return err
		}
		before := len(rec.Events)

		if err := validate(rec); err != nil {
			return err
		}
		mutate(rec)
		if err := rec.CheckInvariants(); err != nil {
			return err
		}

		if _, err := exec.ExecContext(ctx, `
			UPDATE visits SET status = $2, presence = $3, verified = $4, updated_at = $5
			WHERE id = $1`,
			rec.ID.String(), string(rec.Status), string(rec.Presence), rec.Verified, rec.UpdatedAt,
		); err != nil {
			return fmt.Errorf("update visit: %w", err)
		}
		if err := writeEvents(ctx, exec, rec, before); err != nil {
			return err
		}
		result = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the record if it still has the expected status.
func (s *PostgresStore) Delete(ctx context.Context, visitID id.VisitID, expected models.Status) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)
		var status string
		err := exec.QueryRowContext(ctx, `SELECT status FROM visits WHERE id = $1 FOR UPDATE`, visitID.String()).Scan(&status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock visit for delete: %w", err)
		}
		if models.Status(status) != expected {
			return sentinel.ErrInvalidState
		}
		if _, err := exec.ExecContext(ctx, `DELETE FROM visits WHERE id = $1`, visitID.String()); err != nil {
			return fmt.Errorf("delete visit: %w", err)
		}
		return nil
	})
}

// Health checks the database connection.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*models.VisitRecord, error) {
	exec := txcontext.ExecutorFrom(ctx, s.db)
	rec, err := scanVisit(exec.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find visit: %w", err)
	}
	if err := s.loadEvents(ctx, exec, []*models.VisitRecord{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *PostgresStore) findMany(ctx context.Context, query string, args ...any) ([]*models.VisitRecord, error) {
	exec := txcontext.ExecutorFrom(ctx, s.db)
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	defer rows.Close()

	var out []*models.VisitRecord
	for rows.Next() {
		rec, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visits: %w", err)
	}
	if err := s.loadEvents(ctx, exec, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadEvents fills the ledgers of recs with one query.
func (s *PostgresStore) loadEvents(ctx context.Context, exec txcontext.Executor, recs []*models.VisitRecord) error {
	if len(recs) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*models.VisitRecord, len(recs))
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		byID[uuid.UUID(r.ID)] = r
		ids = append(ids, r.ID.String())
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT visit_id, entry_time, exit_time FROM visit_events
		WHERE visit_id = ANY($1::uuid[])
		ORDER BY visit_id, seq`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load visit events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			visitID uuid.UUID
			entry   time.Time
			exit    sql.NullTime
		)
		if err := rows.Scan(&visitID, &entry, &exit); err != nil {
			return fmt.Errorf("scan visit event: %w", err)
		}
		ev := models.Event{EntryTime: entry.UTC()}
		if exit.Valid {
			t := exit.Time.UTC()
			ev.ExitTime = &t
		}
		if r, ok := byID[visitID]; ok {
			r.Events = append(r.Events, ev)
		}
	}
	return rows.Err()
}

// writeEvents persists ledger changes. Only the previously last event can
// change (an exit) and new events are appended, so rows before that are untouched.
func writeEvents(ctx context.Context, exec txcontext.Executor, rec *models.VisitRecord, before int) error {
	if len(rec.Events) < before {
		if _, err := exec.ExecContext(ctx,
			`DELETE FROM visit_events WHERE visit_id = $1 AND seq >= $2`, rec.ID.String(), len(rec.Events)); err != nil {
			return fmt.Errorf("trim visit events: %w", err)
		}
	}
	start := max(before-1, 0)
	for seq := start; seq < len(rec.Events); seq++ {
		ev := rec.Events[seq]
		var exit sql.NullTime
		if ev.ExitTime != nil {
			exit = sql.NullTime{Time: *ev.ExitTime, Valid: true}
		}
		if _, err := exec.ExecContext(ctx, `
			INSERT INTO visit_events (visit_id, seq, entry_time, exit_time)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (visit_id, seq) DO UPDATE SET
				entry_time = EXCLUDED.entry_time,
				exit_time = EXCLUDED.exit_time`,
			rec.ID.String(), seq, ev.EntryTime, exit,
		); err != nil {
			return fmt.Errorf("write visit event: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisit(row rowScanner) (*models.VisitRecord, error) {
	var (
		rec      models.VisitRecord
		visitID  uuid.UUID
		status   string
		presence string
	)
	if err := row.Scan(&visitID, &rec.Email, &rec.Name, &rec.Mobile, &rec.Purpose, &rec.VisitAt,
		&rec.Verified, &status, &presence, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.ID = id.VisitID(visitID)
	rec.Status = models.Status(status)
	rec.Presence = models.Presence(presence)
	rec.VisitAt = rec.VisitAt.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}
