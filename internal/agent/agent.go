// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package agent invokes LLM agent roles. An agent role is pure data: a stage
// name, an instruction text, and a model identifier. The package exposes one
// invocation capability plus the tool definitions the research role uses to
// drive the search aggregator; which tools to call, and with what queries,
// is the model's decision.
package agent

import (
	"context"
	"encoding/json"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Tool is a capability offered to the model during one invocation. Run
// executes the tool with the model-supplied arguments and returns the result
// serialized for the model to read.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Run         func(ctx context.Context, input json.RawMessage) (string, error)
}

// Invoker abstracts the LLM API so tests can supply a mock. One call runs a
// single agent role to completion, including any tool turns.
type Invoker interface {
	Invoke(ctx context.Context, profile types.AgentProfile, input string, tools []Tool) (string, error)
}
