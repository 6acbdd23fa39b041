// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// StageName identifies one step of the fixed four-stage pipeline.
type StageName string

const (
	StageResearch   StageName = "research"
	StageEvaluation StageName = "evaluation"
	StageAppraisal  StageName = "appraisal"
	StageReport     StageName = "report"
)

// StageOrder is the fixed execution order of the pipeline.
var StageOrder = []StageName{StageResearch, StageEvaluation, StageAppraisal, StageReport}

// StageArtifact is the output of one pipeline stage: the agent's Markdown
// plus timing and failure metadata. FinishedAt is set on both success and
// failure, so the duration is always defined.
type StageArtifact struct {
	// Stage names the pipeline step that produced this artifact.
	Stage StageName `json:"stage" yaml:"stage"`

	// Content is the agent's Markdown output. On failure it may be
	// partial or empty.
	Content string `json:"content" yaml:"content"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	// Error holds a human-readable cause when the stage failed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Succeeded reports whether the stage completed without error.
func (a StageArtifact) Succeeded() bool { return a.Error == "" }

// Duration returns how long the stage ran.
func (a StageArtifact) Duration() time.Duration {
	return a.FinishedAt.Sub(a.StartedAt)
}

// RunStatus is the lifecycle state of a pipeline run. A run is terminal once
// its status leaves StatusRunning.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// PipelineRun records one end-to-end execution of the pipeline. Artifacts is
// always a strict prefix of StageOrder: a failure at stage k leaves k-1
// completed artifacts plus one failed artifact, never a gap.
type PipelineRun struct {
	// Topic is the research topic supplied by the user.
	Topic string `json:"topic" yaml:"topic"`

	// Artifacts holds one entry per executed stage, in stage order.
	// Length 4 on success.
	Artifacts []StageArtifact `json:"artifacts" yaml:"artifacts"`

	Status RunStatus `json:"status" yaml:"status"`

	// FailedAtStage names the stage that failed, when Status is StatusFailed.
	FailedAtStage StageName `json:"failed_at_stage,omitempty" yaml:"failed_at_stage,omitempty"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}

// Artifact returns the artifact for the named stage, if present.
func (r *PipelineRun) Artifact(stage StageName) (StageArtifact, bool) {
	for _, a := range r.Artifacts {
		if a.Stage == stage {
			return a, true
		}
	}
	return StageArtifact{}, false
}

// AgentProfile describes one agent role as data: which stage it serves, the
// instructions it runs under, and the model that executes it. Profiles are
// configuration, not code; the pipeline carries no per-role branching.
type AgentProfile struct {
	// Role names the pipeline stage this profile serves.
	Role StageName `json:"role" yaml:"role"`

	// Instructions is the system prompt for the agent.
	Instructions string `json:"instructions" yaml:"instructions"`

	// Model is the model identifier used for this role.
	Model string `json:"model" yaml:"model"`
}
