package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"osvscan/internal/telemetry"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-3-5-sonnet-20241022"

const (
	anthropicAPIVersion = "2023-06-01"
	anthropicMaxTokens  = 4096

	// maxToolIterations bounds the tool-use loop so a confused model cannot
	// call tools forever.
	maxToolIterations = 10
)

// AnthropicClient implements the Agent interface for the Anthropic messages
// API, including the tool-use loop.
type AnthropicClient struct {
	apiKey     string
	model      string
	system     string
	httpClient *http.Client
	apiURL     string
	backoffFn  func(int) time.Duration
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey, model, system string) *AnthropicClient {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicClient{
		apiKey: apiKey,
		model:  model,
		system: system,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		apiURL: "https://api.anthropic.com/v1/messages",
	}
}

type anthropicContent struct {
	Type string `json:"type"`

	// type == "text"
	Text string `json:"text,omitempty"`

	// type == "tool_use"
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// type == "tool_result"
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
}

// Run sends the prompt and loops on tool use until the model stops asking for
// tools, then returns the final text.
func (c *AnthropicClient) Run(ctx context.Context, prompt string, tools []Tool, dispatch Dispatcher) (string, error) {
	start := time.Now()
	defer func() {
		telemetry.ObserveAgentLatency("anthropic", time.Since(start).Seconds())
	}()

	messages := []anthropicMessage{
		{Role: "user", Content: []anthropicContent{{Type: "text", Text: prompt}}},
	}

	apiTools := make([]anthropicTool, 0, len(tools))
	for _, t := range tools {
		schema := t.InputSchema
		if schema == nil {
			schema = json.RawMessage(`{"type":"object"}`)
		}
		apiTools = append(apiTools, anthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		var response anthropicResponse
		err := withRetry(ctx, c.backoffFn, func() error {
			var callErr error
			response, callErr = c.createMessage(ctx, messages, apiTools)
			return callErr
		})
		if err != nil {
			return "", err
		}

		messages = append(messages, anthropicMessage{Role: "assistant", Content: response.Content})

		if response.StopReason != "tool_use" {
			return textOf(response.Content), nil
		}

		var results []anthropicContent
		for _, block := range response.Content {
			if block.Type != "tool_use" {
				continue
			}
			telemetry.TrackToolCall(block.Name)

			var args map[string]any
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					return "", fmt.Errorf("failed to decode tool input for %s: %w", block.Name, err)
				}
			}

			output, err := dispatch(ctx, block.Name, args)
			result := anthropicContent{
				Type:      "tool_result",
				ToolUseID: block.ID,
				Content:   output,
			}
			if err != nil {
				// Hand the failure back to the model instead of aborting: it
				// can often recover or summarize the error.
				result.Content = err.Error()
				result.IsError = true
			}
			results = append(results, result)
		}

		if len(results) == 0 {
			return textOf(response.Content), nil
		}
		messages = append(messages, anthropicMessage{Role: "user", Content: results})
	}

	return "", fmt.Errorf("agent exceeded %d tool iterations without a final answer", maxToolIterations)
}

func (c *AnthropicClient) createMessage(ctx context.Context, messages []anthropicMessage, tools []anthropicTool) (anthropicResponse, error) {
	requestBody := map[string]interface{}{
		"model":      c.model,
		"max_tokens": anthropicMaxTokens,
		"messages":   messages,
	}
	if c.system != "" {
		requestBody["system"] = c.system
	}
	if len(tools) > 0 {
		requestBody["tools"] = tools
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return anthropicResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return anthropicResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return anthropicResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return anthropicResponse{}, fmt.Errorf("Anthropic API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var response anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return anthropicResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return response, nil
}

func textOf(content []anthropicContent) string {
	var out string
	for _, block := range content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out
}
