// Package llm provides language model client functionality for answer and
// SQL generation. All structure in model output is enforced by prompt
// convention and downstream validation, never trusted blindly.
package llm

import "context"

// Client defines the single entry point the pipeline needs from a language
// model: stateless text generation. Use this interface for dependency
// injection to enable mocking in tests.
type Client interface {
	// Generate produces a completion for the prompt under the given system
	// framing. The returned text is raw model output; callers are
	// responsible for stripping fences and validating anything structured.
	Generate(ctx context.Context, prompt string, systemMessage string) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Ensure implementations satisfy Client at compile time.
var (
	_ Client = (*OpenAIClient)(nil)
	_ Client = (*AnthropicClient)(nil)
)
