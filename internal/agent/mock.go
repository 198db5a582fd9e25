package agent

import (
	"context"
	"sync"
)

// MockAgent is a test double that records prompts and replies with a canned
// responder.
type MockAgent struct {
	mu        sync.Mutex
	Responder func(prompt string) (string, error)
	Prompts   []string
	Tools     [][]Tool
}

// NewMockAgent creates a mock agent. A nil responder echoes the prompt.
func NewMockAgent(responder func(prompt string) (string, error)) *MockAgent {
	return &MockAgent{Responder: responder}
}

func (m *MockAgent) Run(ctx context.Context, prompt string, tools []Tool, dispatch Dispatcher) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.Tools = append(m.Tools, tools)
	m.mu.Unlock()

	if m.Responder == nil {
		return prompt, nil
	}
	return m.Responder(prompt)
}
