package holidays

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	_ "github.com/lib/pq"

	"github.com/liamcoop/labourcompliance/internal/dates"
	"github.com/liamcoop/labourcompliance/jurisdiction"
)

// PostgresSource reads additional holidays (collective-agreement days,
// proclaimed one-off holidays) from the holidays table.
type PostgresSource struct {
	db *sql.DB
}

// NewPostgresSource creates a holiday source backed by PostgreSQL.
func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// Holidays implements Source.
func (s *PostgresSource) Holidays(ctx context.Context, j jurisdiction.Jurisdiction, from, to civil.Date) ([]Holiday, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT holiday_date, name
		FROM holidays
		WHERE jurisdiction = $1 AND holiday_date BETWEEN $2 AND $3
		ORDER BY holiday_date ASC
	`, string(j), dates.Midnight(from), dates.Midnight(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var out []Holiday
	for rows.Next() {
		var day time.Time
		var name string
		if err := rows.Scan(&day, &name); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		out = append(out, Holiday{Date: dates.Of(day), Name: name, Jurisdiction: j})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holidays: %w", err)
	}
	return out, nil
}

// Add stores an additional holiday.
func (s *PostgresSource) Add(ctx context.Context, h Holiday) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (jurisdiction, holiday_date, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (jurisdiction, holiday_date) DO UPDATE SET name = EXCLUDED.name
	`, string(h.Jurisdiction), dates.Midnight(h.Date), h.Name)
	if err != nil {
		return fmt.Errorf("failed to insert holiday: %w", err)
	}
	return nil
}
