package rules

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/liamcoop/labourcompliance/internal/dates"
	"github.com/liamcoop/labourcompliance/jurisdiction"
)

const ruleColumns = `id, jurisdiction, rule_type, rule_name, description, category,
	legal_reference, parameters, effective_date, active, created_at, updated_at`

// PostgresRuleStore implements RuleStore backed by PostgreSQL
type PostgresRuleStore struct {
	db *sql.DB
}

// NewPostgresRuleStore creates a new PostgreSQL-backed RuleStore
func NewPostgresRuleStore(db *sql.DB) *PostgresRuleStore {
	return &PostgresRuleStore{db: db}
}

// Add inserts a new rule into the database
func (s *PostgresRuleStore) Add(ctx context.Context, rule *Rule) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM rules WHERE id = $1)
	`, rule.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check rule existence: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, rule.ID)
	}

	params, err := json.Marshal(rule.Parameters)
	if err != nil {
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}

	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rules (`+ruleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, rule.ID, string(rule.Jurisdiction), rule.RuleType, rule.RuleName, rule.Description,
		rule.Category, rule.LegalReference, params, dates.Midnight(rule.EffectiveDate),
		rule.Active, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	return nil
}

// Get retrieves a rule by ID
func (s *PostgresRuleStore) Get(ctx context.Context, id string) (*Rule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM rules
		WHERE id = $1
	`, id)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// ListActive returns all active rules
func (s *PostgresRuleStore) ListActive(ctx context.Context) ([]*Rule, error) {
	return s.ListFor(ctx, nil, "")
}

// ListFor returns the active rules of the given jurisdictions and category.
func (s *PostgresRuleStore) ListFor(ctx context.Context, js []jurisdiction.Jurisdiction, category string) ([]*Rule, error) {
	codes := make([]string, 0, len(js))
	for _, j := range js {
		codes = append(codes, string(j))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM rules
		WHERE active = true
		  AND (cardinality($1::text[]) = 0 OR jurisdiction = ANY($1::text[]))
		  AND ($2 = '' OR category = $2)
		ORDER BY effective_date DESC, id ASC
	`, pq.Array(codes), category)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rulesList []*Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rulesList = append(rulesList, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rulesList, nil
}

// Update modifies an existing rule
func (s *PostgresRuleStore) Update(ctx context.Context, rule *Rule) error {
	params, err := json.Marshal(rule.Parameters)
	if err != nil {
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}

	rule.UpdatedAt = time.Now().UTC()

	err = s.db.QueryRowContext(ctx, `
		UPDATE rules
		SET jurisdiction = $1, rule_type = $2, rule_name = $3, description = $4,
		    category = $5, legal_reference = $6, parameters = $7, effective_date = $8,
		    active = $9, updated_at = $10
		WHERE id = $11
		RETURNING created_at
	`, string(rule.Jurisdiction), rule.RuleType, rule.RuleName, rule.Description,
		rule.Category, rule.LegalReference, params, dates.Midnight(rule.EffectiveDate),
		rule.Active, rule.UpdatedAt, rule.ID).Scan(&rule.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, rule.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	return nil
}

// Delete removes a rule from the database
func (s *PostgresRuleStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM rules
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(sc scanner) (*Rule, error) {
	var (
		r         Rule
		code      string
		params    []byte
		effective time.Time
	)
	if err := sc.Scan(&r.ID, &code, &r.RuleType, &r.RuleName, &r.Description, &r.Category,
		&r.LegalReference, &params, &effective, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}

	r.Jurisdiction = jurisdiction.Jurisdiction(code)
	r.EffectiveDate = dates.Of(effective)
	if len(params) > 0 {
		if err := json.Unmarshal(params, &r.Parameters); err != nil {
			return nil, fmt.Errorf("invalid parameters for rule %s: %w", r.ID, err)
		}
	}
	if r.Parameters == nil {
		r.Parameters = map[string]any{}
	}
	return &r, nil
}
