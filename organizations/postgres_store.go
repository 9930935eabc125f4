package organizations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/liamcoop/labourcompliance/jurisdiction"
)

// uniqueViolation is the PostgreSQL error code for a duplicate key.
const uniqueViolation = "23505"

// PostgresStore implements Store backed by the organizations table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed Store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts org.
func (s *PostgresStore) Create(ctx context.Context, org *Organization) error {
	now := time.Now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, jurisdiction, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, org.ID, org.Name, string(org.Jurisdiction), org.CreatedAt, org.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, org.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert organization: %w", err)
	}
	return nil
}

// Get returns an organisation by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Organization, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, jurisdiction, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`, id)

	org, err := scanOrganization(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// List returns every organisation ordered by ID.
func (s *PostgresStore) List(ctx context.Context) ([]*Organization, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, jurisdiction, created_at, updated_at
		FROM organizations
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var out []*Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		out = append(out, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrganization(sc scanner) (*Organization, error) {
	var (
		org  Organization
		code string
	)
	if err := sc.Scan(&org.ID, &org.Name, &code, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, err
	}
	org.Jurisdiction = jurisdiction.Jurisdiction(code)
	return &org, nil
}
