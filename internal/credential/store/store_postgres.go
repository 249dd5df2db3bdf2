package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gatepass/internal/credential/models"
	"gatepass/internal/platform/postgres"
	id "gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
	txcontext "gatepass/pkg/platform/tx"
)

const credentialColumns = `token, visit_id, issued_at, expires_at, is_active`

// PostgresStore persists credentials in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Issue deactivates prior credentials of the visit and inserts cred in one
// transaction.
func (s *PostgresStore) Issue(ctx context.Context, cred *models.Credential) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)
		if _, err := exec.ExecContext(ctx,
			`UPDATE credentials SET is_active = FALSE WHERE visit_id = $1 AND is_active`,
			cred.VisitID.String(),
		); err != nil {
			return fmt.Errorf("deactivate prior credentials: %w", err)
		}
		_, err := exec.ExecContext(ctx,
			`INSERT INTO credentials (`+credentialColumns+`) VALUES ($1, $2, $3, $4, $5)`,
			cred.Token, cred.VisitID.String(), cred.IssuedAt, cred.ExpiresAt, cred.IsActive,
		)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert credential: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) ResolveActive(ctx context.Context, token string, now time.Time) (*models.Credential, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM credentials WHERE token = $1`, token)
	cred, err := scanCredential(row)
	if err != nil {
		return nil, err
	}
	if !cred.IsActive {
		return nil, sentinel.ErrAlreadyUsed
	}
	if cred.IsExpired(now) {
		return nil, sentinel.ErrExpired
	}
	return cred, nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, token string) (*models.Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE credentials SET is_active = FALSE WHERE token = $1 RETURNING `+credentialColumns,
		token,
	)
	return scanCredential(row)
}

func (s *PostgresStore) ListByVisit(ctx context.Context, visitID id.VisitID) ([]*models.Credential, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE visit_id = $1 ORDER BY issued_at`,
		visitID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var out []*models.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired credentials: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted credentials: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*models.Credential, error) {
	var (
		cred    models.Credential
		visitID uuid.UUID
	)
	err := row.Scan(&cred.Token, &visitID, &cred.IssuedAt, &cred.ExpiresAt, &cred.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan credential: %w", err)
	}
	cred.VisitID = id.VisitID(visitID)
	return &cred, nil
}
