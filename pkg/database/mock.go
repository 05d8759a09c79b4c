package database

import "context"

// MockQuerier is a configurable mock for testing components that execute
// SQL. Set QueryFunc to control behavior in tests.
type MockQuerier struct {
	// QueryFunc is called when Query is invoked.
	// If nil, returns an empty result and nil error.
	QueryFunc func(ctx context.Context, query string, args ...any) (*Result, error)

	// Call tracking for verification.
	QueryCalls int
	// Queries records every SQL string passed to Query, in order.
	Queries []string
}

// NewMockQuerier creates a new mock querier.
func NewMockQuerier() *MockQuerier {
	return &MockQuerier{}
}

// Query implements Querier.
func (m *MockQuerier) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	m.QueryCalls++
	m.Queries = append(m.Queries, query)
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, query, args...)
	}
	return &Result{}, nil
}

// Reset clears call tracking.
func (m *MockQuerier) Reset() {
	m.QueryCalls = 0
	m.Queries = nil
}

// Ensure MockQuerier implements Querier at compile time.
var _ Querier = (*MockQuerier)(nil)
