package agent

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tool declares a remote tool the agent may call.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Dispatcher executes one tool call on behalf of the agent and returns the
// tool's text output.
type Dispatcher func(ctx context.Context, name string, args map[string]any) (string, error)

// Agent is the interface all LLM agents implement. Run sends a prompt, drives
// the provider's tool-use loop through dispatch until the model produces a
// final answer, and returns that answer's text.
type Agent interface {
	Run(ctx context.Context, prompt string, tools []Tool, dispatch Dispatcher) (string, error)
}

// NewAgent is a factory function that returns an Agent based on the provider.
// The system instruction is fixed at construction time.
func NewAgent(provider, apiKey, model, system string) (Agent, error) {
	switch provider {
	case "anthropic":
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY must be provided via config or environment variable")
		}
		return NewAnthropicClient(apiKey, model, system), nil
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY must be provided via config or environment variable")
		}
		return NewOpenAIClient(apiKey, model, system), nil
	case "mock":
		return NewMockAgent(nil), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}
