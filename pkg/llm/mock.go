package llm

import "context"

// MockClient is a configurable mock for testing LLM-backed functionality.
// Set GenerateFunc to control behavior in tests.
type MockClient struct {
	// GenerateFunc is called when Generate is invoked.
	// If nil, returns empty string and nil error.
	GenerateFunc func(ctx context.Context, prompt string, systemMessage string) (string, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Call tracking for verification.
	GenerateCalls int
	// Prompts records every prompt passed to Generate, in order.
	Prompts []string
}

// NewMockClient creates a new mock with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{Model: "mock-model"}
}

// Generate implements Client.
func (m *MockClient) Generate(ctx context.Context, prompt string, systemMessage string) (string, error) {
	m.GenerateCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, systemMessage)
	}
	return "", nil
}

// GetModel implements Client.
func (m *MockClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// Reset clears call tracking.
func (m *MockClient) Reset() {
	m.GenerateCalls = 0
	m.Prompts = nil
}

// Ensure MockClient implements Client at compile time.
var _ Client = (*MockClient)(nil)
