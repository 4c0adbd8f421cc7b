package secondary

import (
	"context"

	"gitlab.com/examgrid-2026.net/internal/domain"
)

type TestCaseRepository interface {
	// GetSampleTestCases retrieves the non-hidden test cases of a problem,
	// capped at limit, in order
	GetSampleTestCases(ctx context.Context, problemID string, limit int) ([]*domain.TestCase, error)

	// GetAllTestCases retrieves every test case of a problem, in order
	GetAllTestCases(ctx context.Context, problemID string) ([]*domain.TestCase, error)
}
