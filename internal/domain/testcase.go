package domain

import "github.com/google/uuid"

// TestCase represents a single test case of a problem
type TestCase struct {
	ID             uuid.UUID `db:"id"`
	ProblemID      string    `db:"problem_id"`
	Input          string    `db:"input"`
	ExpectedOutput string    `db:"expected_output"`
	IsHidden       bool      `db:"is_hidden"`
	OrderIndex     int       `db:"order_index"`
}

type TestCaseTable struct {
	ID             string
	ProblemID      string
	Input          string
	ExpectedOutput string
	IsHidden       string
	OrderIndex     string
}

func GetTestCaseTable() TestCaseTable {
	return TestCaseTable{
		ID:             "id",
		ProblemID:      "problem_id",
		Input:          "input",
		ExpectedOutput: "expected_output",
		IsHidden:       "is_hidden",
		OrderIndex:     "order_index",
	}
}

func (TestCaseTable) TableName() string {
	return "test_cases"
}
