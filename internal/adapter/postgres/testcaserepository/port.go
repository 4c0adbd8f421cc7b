// package testcaserepository contains the PostgreSQL test-case store
package testcaserepository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
	"gitlab.com/examgrid-2026.net/internal/domain"
)

var _ secondary.TestCaseRepository = &TestCaseRepository{}

// TestCaseRepository implements the TestCaseRepository port with PostgreSQL
type TestCaseRepository struct {
	db     *sqlx.DB
	logger primary.Logger
}

// NewTestCaseRepository creates a new PostgreSQL test-case repository
func NewTestCaseRepository(db *sqlx.DB, logger primary.Logger) *TestCaseRepository {
	return &TestCaseRepository{
		db:     db,
		logger: logger,
	}
}

// GetSampleTestCases retrieves up to limit non-hidden test cases, in order
func (r *TestCaseRepository) GetSampleTestCases(ctx context.Context, problemID string, limit int) ([]*domain.TestCase, error) {
	query := `
		SELECT id, problem_id, input, expected_output, is_hidden, order_index
		FROM test_cases
		WHERE problem_id = $1 AND is_hidden = false
		ORDER BY order_index
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, problemID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get sample test cases: %w", err)
	}
	defer rows.Close()

	return collectTestCases(rows)
}

// GetAllTestCases retrieves every test case of a problem, in order
func (r *TestCaseRepository) GetAllTestCases(ctx context.Context, problemID string) ([]*domain.TestCase, error) {
	query := `
		SELECT id, problem_id, input, expected_output, is_hidden, order_index
		FROM test_cases
		WHERE problem_id = $1
		ORDER BY order_index
	`

	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test cases: %w", err)
	}
	defer rows.Close()

	return collectTestCases(rows)
}

func collectTestCases(rows *sql.Rows) ([]*domain.TestCase, error) {
	var cases []*domain.TestCase
	for rows.Next() {
		var tc domain.TestCase
		err := rows.Scan(
			&tc.ID,
			&tc.ProblemID,
			&tc.Input,
			&tc.ExpectedOutput,
			&tc.IsHidden,
			&tc.OrderIndex,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test case: %w", err)
		}
		cases = append(cases, &tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate test cases: %w", err)
	}
	return cases, nil
}
