// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates the fixed four-stage research flow:
// research, evaluation, appraisal, report. Each stage is one agent
// invocation; the output of completed stages feeds the next. The pipeline
// fails fast: a stage fault aborts the run, and completed work is persisted
// as-is.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/pdiddy/deep-research/internal/agent"
	"github.com/pdiddy/deep-research/internal/report"
	"github.com/pdiddy/deep-research/pkg/types"
)

// ExecuteStage runs one agent stage to completion. StartedAt is recorded
// before the invocation and FinishedAt after it, on success and failure
// alike, so every artifact has a defined duration. There is no retry here;
// whether to run again is the caller's decision.
func ExecuteStage(ctx context.Context, invoker agent.Invoker, profile types.AgentProfile, stage types.StageName, topic string, prior []types.StageArtifact, tools []agent.Tool) types.StageArtifact {
	artifact := types.StageArtifact{
		Stage:     stage,
		StartedAt: time.Now(),
	}

	content, err := invoker.Invoke(ctx, profile, stageInput(stage, topic, prior), tools)
	artifact.FinishedAt = time.Now()
	if err != nil {
		artifact.Error = fmt.Sprintf("%s stage: %v", stage, err)
		return artifact
	}
	artifact.Content = content
	return artifact
}

// stageInput builds the prompt for a stage from the topic and the outputs
// of every completed stage before it. The research stage sees only the
// topic; the report stage sees all three prior outputs labelled.
func stageInput(stage types.StageName, topic string, prior []types.StageArtifact) string {
	if len(prior) == 0 {
		return fmt.Sprintf("Research the following topic thoroughly: %s", topic)
	}

	labels := map[types.StageName]string{
		types.StageResearch:   "Research Summary",
		types.StageEvaluation: "Evaluation",
		types.StageAppraisal:  "Appraisal",
	}

	var b strings.Builder
	for _, a := range prior {
		fmt.Fprintf(&b, "%s:\n%s\n\n", labels[a.Stage], a.Content)
	}
	switch stage {
	case types.StageReport:
		fmt.Fprintf(&b, "Create a comprehensive research report on: %s", topic)
	default:
		fmt.Fprintf(&b, "The research topic is: %s", topic)
	}
	return b.String()
}

// stageColors matches the terminal color scheme of the progress banners to
// the stage being run.
var stageColors = map[types.StageName]*color.Color{
	types.StageResearch:   color.New(color.FgBlue, color.Bold),
	types.StageEvaluation: color.New(color.FgGreen, color.Bold),
	types.StageAppraisal:  color.New(color.FgYellow, color.Bold),
	types.StageReport:     color.New(color.FgRed, color.Bold),
}

// Runner drives a full pipeline run: stage execution in fixed order,
// progress output, and persistence of the results.
type Runner struct {
	invoker  agent.Invoker
	searcher agent.Searcher
	store    report.Store
	profiles []types.AgentProfile
	w        io.Writer
	verbose  bool
}

// NewRunner builds a pipeline runner. Progress goes to w.
func NewRunner(invoker agent.Invoker, searcher agent.Searcher, store report.Store, profiles []types.AgentProfile, w io.Writer, verbose bool) *Runner {
	return &Runner{
		invoker:  invoker,
		searcher: searcher,
		store:    store,
		profiles: profiles,
		w:        w,
		verbose:  verbose,
	}
}

// Run executes the four stages for the given topic. Stages run strictly in
// order and a failure stops the run: downstream stages are never invoked,
// the run is marked failed at the faulting stage, and everything completed
// so far is persisted. The returned error is non-nil when the run failed or
// could not be persisted; the run and the paths it produced are returned in
// both cases when they exist.
func (r *Runner) Run(ctx context.Context, topic string) (*types.PipelineRun, report.Paths, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, report.Paths{}, fmt.Errorf("research topic must not be empty")
	}

	run := &types.PipelineRun{
		Topic:     topic,
		Status:    types.StatusRunning,
		StartedAt: time.Now(),
	}

	fmt.Fprintf(r.w, "Starting research pipeline for: %s\n\n", topic)

	for i, stage := range types.StageOrder {
		profile, err := agent.ProfileFor(r.profiles, stage)
		if err != nil {
			return nil, report.Paths{}, err
		}

		banner := stageColors[stage].Sprintf("=== STEP %d/%d: %s ===", i+1, len(types.StageOrder), titleCase(string(stage)))
		fmt.Fprintf(r.w, "%s\n", banner)
		fmt.Fprintf(r.w, "Started: %s\n", report.FormattedTime(time.Now()))

		var tools []agent.Tool
		if stage == types.StageResearch {
			tools = agent.SearchTools(r.searcher)
		}

		artifact := ExecuteStage(ctx, r.invoker, profile, stage, topic, run.Artifacts, tools)
		run.Artifacts = append(run.Artifacts, artifact)

		fmt.Fprintf(r.w, "Duration: %s\n", report.FormatDuration(artifact.Duration()))
		if !artifact.Succeeded() {
			fmt.Fprintf(r.w, "%s\n\n", stageColors[stage].Sprintf("FAILED: %s", artifact.Error))
			run.Status = types.StatusFailed
			run.FailedAtStage = stage
			break
		}
		fmt.Fprintf(r.w, "Completed: %s\n\n", report.FormattedTime(artifact.FinishedAt))
		if r.verbose {
			fmt.Fprintf(r.w, "%s\n\n", artifact.Content)
		}
	}

	if run.Status == types.StatusRunning {
		run.Status = types.StatusSucceeded
	}
	run.FinishedAt = time.Now()

	paths, err := r.store.Persist(run)
	if err != nil {
		return run, paths, fmt.Errorf("persisting run results: %w", err)
	}
	if paths.Report != "" {
		fmt.Fprintf(r.w, "Report written to %s\n", paths.Report)
	}
	fmt.Fprintf(r.w, "Process log written to %s\n", paths.Steps)

	if run.Status == types.StatusFailed {
		return run, paths, fmt.Errorf("pipeline failed at the %s stage", run.FailedAtStage)
	}
	return run, paths, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
