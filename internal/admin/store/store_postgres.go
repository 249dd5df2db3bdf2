package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"gatepass/internal/admin/models"
	"gatepass/internal/platform/postgres"
	id "gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
)

const adminColumns = `id, email, name, password_hash, created_at`

// PostgresStore persists admin accounts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, admin *models.Admin) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admins (`+adminColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		admin.ID.String(), admin.Email, admin.Name, admin.PasswordHash, admin.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = $1`, email)
	return scanAdmin(row)
}

func (s *PostgresStore) FindByID(ctx context.Context, adminID id.AdminID) (*models.Admin, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, adminID.String())
	return scanAdmin(row)
}

func scanAdmin(row *sql.Row) (*models.Admin, error) {
	var (
		admin   models.Admin
		adminID uuid.UUID
	)
	err := row.Scan(&adminID, &admin.Email, &admin.Name, &admin.PasswordHash, &admin.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan admin: %w", err)
	}
	admin.ID = id.AdminID(adminID)
	return &admin, nil
}
