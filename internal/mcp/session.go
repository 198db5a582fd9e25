package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	clientName    = "osvscan"
	clientVersion = "0.1.0"
)

// ToolDef is a transport-neutral tool declaration handed to the LLM agent.
type ToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// Session is a connected MCP session scoped to one scan operation.
type Session struct {
	session *sdk.ClientSession
}

// Connect dials the OSV MCP server, picking the transport from the URL suffix:
// /sse uses SSE, /mcp uses streamable HTTP, anything else defaults to SSE at
// url + "/sse".
func Connect(ctx context.Context, serverURL string) (*Session, error) {
	client := sdk.NewClient(&sdk.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}, nil)

	transport := transportFor(serverURL, &http.Client{Timeout: 60 * time.Second})

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MCP server %s: %w", serverURL, err)
	}

	return &Session{session: session}, nil
}

func transportFor(serverURL string, httpClient *http.Client) sdk.Transport {
	switch {
	case strings.HasSuffix(serverURL, "/sse"):
		return &sdk.SSEClientTransport{
			Endpoint:   serverURL,
			HTTPClient: httpClient,
		}
	case strings.HasSuffix(serverURL, "/mcp"), strings.HasSuffix(serverURL, "/mcp/"):
		return &sdk.StreamableClientTransport{
			Endpoint:   strings.TrimSuffix(serverURL, "/") + "/",
			HTTPClient: httpClient,
		}
	default:
		return &sdk.SSEClientTransport{
			Endpoint:   serverURL + "/sse",
			HTTPClient: httpClient,
		}
	}
}

// ListTools returns the tool declarations the server advertises.
func (s *Session) ListTools(ctx context.Context) ([]ToolDef, error) {
	result, err := s.session.ListTools(ctx, &sdk.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	defs := make([]ToolDef, 0, len(result.Tools))
	for _, tool := range result.Tools {
		def := ToolDef{
			Name:        tool.Name,
			Description: tool.Description,
		}
		if tool.InputSchema != nil {
			schema, err := json.Marshal(tool.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("failed to encode schema for tool %s: %w", tool.Name, err)
			}
			def.InputSchema = schema
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// CallTool invokes a remote tool and returns the concatenated text content of
// the result.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	result, err := s.session.CallTool(ctx, &sdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("tool %s failed: %w", name, err)
	}

	var sb strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(*sdk.TextContent); ok {
			sb.WriteString(text.Text)
		}
	}

	if result.IsError {
		return "", fmt.Errorf("tool %s returned an error: %s", name, sb.String())
	}
	return sb.String(), nil
}

// Close terminates the session.
func (s *Session) Close() error {
	return s.session.Close()
}
