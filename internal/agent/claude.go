// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

// claudeAPIURL is the Claude Messages API endpoint. Package-level var for
// test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

const (
	anthropicVersion = "2023-06-01"
	maxTokens        = 8192

	defaultMaxToolTurns = 10
	defaultTimeout      = 5 * time.Minute
)

// Claude invokes agent roles through the Claude Messages API. When the model
// requests a tool, the client runs it and feeds the result back, looping
// until the model finishes its turn or the tool-turn budget is exhausted.
type Claude struct {
	cfg    types.AIConfig
	client *http.Client
}

// NewClaude builds a Claude invoker from cfg. A nil client falls back to
// http.DefaultClient.
func NewClaude(cfg types.AIConfig, client *http.Client) *Claude {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.MaxToolTurns <= 0 {
		cfg.MaxToolTurns = defaultMaxToolTurns
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Claude{cfg: cfg, client: client}
}

// Invoke runs one agent role to completion. The profile's instructions
// become the system prompt; input is the user turn. The whole invocation,
// tool turns included, runs under one timeout.
func (c *Claude) Invoke(ctx context.Context, profile types.AgentProfile, input string, tools []Tool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	toolsByName := make(map[string]Tool, len(tools))
	toolDefs := make([]claudeToolDef, 0, len(tools))
	for _, tool := range tools {
		toolsByName[tool.Name] = tool
		toolDefs = append(toolDefs, claudeToolDef{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}

	model := profile.Model
	if model == "" {
		model = c.cfg.Model
	}

	messages := []claudeMessage{
		{Role: "user", Content: []claudeContent{{Type: "text", Text: input}}},
	}

	for turn := 0; turn <= c.cfg.MaxToolTurns; turn++ {
		resp, err := c.send(ctx, claudeRequest{
			Model:     model,
			MaxTokens: maxTokens,
			System:    profile.Instructions,
			Messages:  messages,
			Tools:     toolDefs,
		})
		if err != nil {
			return "", err
		}

		if resp.StopReason != "tool_use" {
			return collectText(resp.Content), nil
		}

		// The model asked for tools: run each request and answer with
		// tool_result blocks in one user turn.
		messages = append(messages, claudeMessage{Role: "assistant", Content: resp.Content})

		var results []claudeContent
		for _, block := range resp.Content {
			if block.Type != "tool_use" {
				continue
			}
			results = append(results, c.runTool(ctx, toolsByName, block))
		}
		if len(results) == 0 {
			return "", fmt.Errorf("model stopped for tool use but requested no tools")
		}
		messages = append(messages, claudeMessage{Role: "user", Content: results})
	}

	return "", fmt.Errorf("tool-call budget exhausted after %d turns", c.cfg.MaxToolTurns)
}

// runTool executes one tool request. Tool failures are reported back to the
// model as error results rather than aborting the invocation, so the model
// can recover or try another tool.
func (c *Claude) runTool(ctx context.Context, tools map[string]Tool, block claudeContent) claudeContent {
	result := claudeContent{Type: "tool_result", ToolUseID: block.ID}

	tool, ok := tools[block.Name]
	if !ok {
		result.Content = fmt.Sprintf("unknown tool %q", block.Name)
		result.IsError = true
		return result
	}

	out, err := tool.Run(ctx, block.Input)
	if err != nil {
		result.Content = fmt.Sprintf("tool %s failed: %v", block.Name, err)
		result.IsError = true
		return result
	}
	result.Content = out
	return result
}

func (c *Claude) send(ctx context.Context, reqBody claudeRequest) (*claudeResponse, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return nil, fmt.Errorf("decoding Claude response: %w", err)
	}
	return &cResp, nil
}

// collectText joins the text blocks of a final response.
func collectText(blocks []claudeContent) string {
	var parts []string
	for _, block := range blocks {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Claude Messages API JSON structures.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
	Tools     []claudeToolDef `json:"tools,omitempty"`
}

type claudeToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content []claudeContent `json:"content"`
}

// claudeContent is one content block. The populated fields depend on Type:
// "text" uses Text; "tool_use" uses ID, Name, Input; "tool_result" uses
// ToolUseID, Content, IsError.
type claudeContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type claudeResponse struct {
	Content    []claudeContent `json:"content"`
	StopReason string          `json:"stop_reason"`
}
