// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pdiddy/deep-research/pkg/types"
)

func claudeTestServer(t *testing.T, handler http.HandlerFunc) *Claude {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	prev := claudeAPIURL
	claudeAPIURL = ts.URL
	t.Cleanup(func() { claudeAPIURL = prev })

	return NewClaude(types.AIConfig{Model: "test-model", APIKey: "test-key", MaxToolTurns: 3}, ts.Client())
}

func testProfile() types.AgentProfile {
	return types.AgentProfile{
		Role:         types.StageResearch,
		Instructions: "You research topics.",
		Model:        "test-model",
	}
}

func TestInvokePlainResponse(t *testing.T) {
	var gotReq claudeRequest
	c := claudeTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(claudeResponse{
			StopReason: "end_turn",
			Content:    []claudeContent{{Type: "text", Text: "## Findings\n\nAll good."}},
		})
	})

	out, err := c.Invoke(context.Background(), testProfile(), "research solar power", nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "## Findings\n\nAll good." {
		t.Errorf("output = %q", out)
	}
	if gotReq.System != "You research topics." {
		t.Errorf("system prompt = %q", gotReq.System)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content[0].Text != "research solar power" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestInvokeToolLoop(t *testing.T) {
	var toolCalled bool
	var turn int

	c := claudeTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req claudeRequest
		json.NewDecoder(r.Body).Decode(&req)
		turn++

		switch turn {
		case 1:
			if len(req.Tools) != 1 || req.Tools[0].Name != "web_search" {
				t.Errorf("turn 1 tools = %+v", req.Tools)
			}
			json.NewEncoder(w).Encode(claudeResponse{
				StopReason: "tool_use",
				Content: []claudeContent{
					{Type: "text", Text: "Let me search."},
					{Type: "tool_use", ID: "toolu_1", Name: "web_search", Input: json.RawMessage(`{"query": "solar"}`)},
				},
			})
		case 2:
			// The tool result must come back as a user turn referencing
			// the tool_use id.
			last := req.Messages[len(req.Messages)-1]
			if last.Role != "user" || len(last.Content) != 1 {
				t.Fatalf("turn 2 last message = %+v", last)
			}
			block := last.Content[0]
			if block.Type != "tool_result" || block.ToolUseID != "toolu_1" {
				t.Errorf("tool result block = %+v", block)
			}
			if !strings.Contains(block.Content, "3 results") {
				t.Errorf("tool result content = %q", block.Content)
			}
			json.NewEncoder(w).Encode(claudeResponse{
				StopReason: "end_turn",
				Content:    []claudeContent{{Type: "text", Text: "Done."}},
			})
		default:
			t.Errorf("unexpected turn %d", turn)
		}
	})

	tools := []Tool{{
		Name:        "web_search",
		Description: "search",
		InputSchema: json.RawMessage(`{"type": "object"}`),
		Run: func(_ context.Context, input json.RawMessage) (string, error) {
			toolCalled = true
			var args struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(input, &args); err != nil {
				return "", err
			}
			if args.Query != "solar" {
				t.Errorf("tool query = %q", args.Query)
			}
			return "3 results", nil
		},
	}}

	out, err := c.Invoke(context.Background(), testProfile(), "research solar", tools)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !toolCalled {
		t.Error("tool was never run")
	}
	if out != "Done." {
		t.Errorf("output = %q", out)
	}
}

func TestInvokeToolErrorReportedToModel(t *testing.T) {
	var turn int
	c := claudeTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req claudeRequest
		json.NewDecoder(r.Body).Decode(&req)
		turn++

		if turn == 1 {
			json.NewEncoder(w).Encode(claudeResponse{
				StopReason: "tool_use",
				Content: []claudeContent{
					{Type: "tool_use", ID: "toolu_1", Name: "missing_tool", Input: json.RawMessage(`{}`)},
				},
			})
			return
		}

		block := req.Messages[len(req.Messages)-1].Content[0]
		if !block.IsError {
			t.Error("unknown tool should produce an error result")
		}
		json.NewEncoder(w).Encode(claudeResponse{
			StopReason: "end_turn",
			Content:    []claudeContent{{Type: "text", Text: "Recovered."}},
		})
	})

	out, err := c.Invoke(context.Background(), testProfile(), "input", nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "Recovered." {
		t.Errorf("output = %q", out)
	}
}

func TestInvokeToolBudgetExhausted(t *testing.T) {
	c := claudeTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		// Always ask for another tool call.
		json.NewEncoder(w).Encode(claudeResponse{
			StopReason: "tool_use",
			Content: []claudeContent{
				{Type: "tool_use", ID: "toolu_n", Name: "spin", Input: json.RawMessage(`{}`)},
			},
		})
	})

	tools := []Tool{{
		Name:        "spin",
		InputSchema: json.RawMessage(`{"type": "object"}`),
		Run: func(context.Context, json.RawMessage) (string, error) {
			return "again", nil
		},
	}}

	_, err := c.Invoke(context.Background(), testProfile(), "input", tools)
	if err == nil || !strings.Contains(err.Error(), "tool-call budget exhausted") {
		t.Fatalf("err = %v, want tool-call exhaustion", err)
	}
}

func TestInvokeHTTPError(t *testing.T) {
	c := claudeTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Invoke(context.Background(), testProfile(), "input", nil)
	if err == nil {
		t.Fatal("expected error for overloaded API")
	}
}

func TestInvokeJoinsTextBlocks(t *testing.T) {
	c := claudeTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(claudeResponse{
			StopReason: "end_turn",
			Content: []claudeContent{
				{Type: "text", Text: "Part one."},
				{Type: "text", Text: "Part two."},
			},
		})
	})

	out, err := c.Invoke(context.Background(), testProfile(), "input", nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "Part one.\nPart two." {
		t.Errorf("output = %q", out)
	}
}
