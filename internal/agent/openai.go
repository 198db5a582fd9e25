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

// DefaultOpenAIModel is used when no model is configured for the openai
// provider.
const DefaultOpenAIModel = "gpt-4o"

// OpenAIClient implements the Agent interface for the OpenAI chat-completions
// API, including the tool-calling loop.
type OpenAIClient struct {
	apiKey     string
	model      string
	system     string
	httpClient *http.Client
	apiURL     string
	backoffFn  func(int) time.Duration
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey, model, system string) *OpenAIClient {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{
		apiKey: apiKey,
		model:  model,
		system: system,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		apiURL: "https://api.openai.com/v1/chat/completions",
	}
}

type openaiToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openaiMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []openaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openaiResponse struct {
	Choices []struct {
		Message      openaiMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
}

// Run sends the prompt and loops on tool calls until the model produces a
// final answer.
func (c *OpenAIClient) Run(ctx context.Context, prompt string, tools []Tool, dispatch Dispatcher) (string, error) {
	start := time.Now()
	defer func() {
		telemetry.ObserveAgentLatency("openai", time.Since(start).Seconds())
	}()

	messages := []openaiMessage{}
	if c.system != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: c.system})
	}
	messages = append(messages, openaiMessage{Role: "user", Content: prompt})

	apiTools := make([]map[string]interface{}, 0, len(tools))
	for _, t := range tools {
		params := t.InputSchema
		if params == nil {
			params = json.RawMessage(`{"type":"object"}`)
		}
		apiTools = append(apiTools, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  params,
			},
		})
	}

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		var response openaiResponse
		err := withRetry(ctx, c.backoffFn, func() error {
			var callErr error
			response, callErr = c.createCompletion(ctx, messages, apiTools)
			return callErr
		})
		if err != nil {
			return "", err
		}
		if len(response.Choices) == 0 {
			return "", fmt.Errorf("no content in response")
		}

		choice := response.Choices[0]
		messages = append(messages, choice.Message)

		if choice.FinishReason != "tool_calls" || len(choice.Message.ToolCalls) == 0 {
			return choice.Message.Content, nil
		}

		for _, call := range choice.Message.ToolCalls {
			telemetry.TrackToolCall(call.Function.Name)

			var args map[string]any
			if call.Function.Arguments != "" {
				if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
					return "", fmt.Errorf("failed to decode tool arguments for %s: %w", call.Function.Name, err)
				}
			}

			output, err := dispatch(ctx, call.Function.Name, args)
			if err != nil {
				output = fmt.Sprintf("Error: %v", err)
			}
			messages = append(messages, openaiMessage{
				Role:       "tool",
				Content:    output,
				ToolCallID: call.ID,
			})
		}
	}

	return "", fmt.Errorf("agent exceeded %d tool iterations without a final answer", maxToolIterations)
}

func (c *OpenAIClient) createCompletion(ctx context.Context, messages []openaiMessage, tools []map[string]interface{}) (openaiResponse, error) {
	requestBody := map[string]interface{}{
		"model":    c.model,
		"messages": messages,
	}
	if len(tools) > 0 {
		requestBody["tools"] = tools
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return openaiResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return openaiResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return openaiResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return openaiResponse{}, fmt.Errorf("OpenAI API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var response openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return openaiResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return response, nil
}
