// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report persists pipeline run outputs: the final research report
// and a process log that records, per stage, what happened and how long it
// took. The log is the audit trail of the run; failures land in it exactly
// as they occurred.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Paths locates the files one persisted run produced.
type Paths struct {
	Report string
	Steps  string
}

// Store persists a finished (or failed) pipeline run.
type Store interface {
	Persist(run *types.PipelineRun) (Paths, error)
}

// FileStore writes the report and process log as Markdown files. The report
// goes to the output directory, the process log to the steps directory.
type FileStore struct {
	cfg types.OutputConfig

	// now is substituted in tests.
	now func() time.Time
}

// NewFileStore builds a file-backed artifact store.
func NewFileStore(cfg types.OutputConfig) *FileStore {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}
	if cfg.StepsDir == "" {
		cfg.StepsDir = "steps_taken"
	}
	return &FileStore{cfg: cfg, now: time.Now}
}

// Persist writes the run's report (when the report stage completed) and its
// process log. A failed run still gets its log and any completed artifacts
// recorded; partial work is never silently discarded.
func (s *FileStore) Persist(run *types.PipelineRun) (Paths, error) {
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("creating output directory %s: %w", s.cfg.OutputDir, err)
	}
	if err := os.MkdirAll(s.cfg.StepsDir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("creating steps directory %s: %w", s.cfg.StepsDir, err)
	}

	stamp := Timestamp(s.now())
	slug := SanitizeFilename(run.Topic)

	var paths Paths
	if artifact, ok := run.Artifact(types.StageReport); ok && artifact.Succeeded() {
		paths.Report = s.cfg.ReportFile
		if paths.Report == "" {
			paths.Report = filepath.Join(s.cfg.OutputDir, fmt.Sprintf("%s_%s.md", slug, stamp))
		}
		if err := os.WriteFile(paths.Report, []byte(artifact.Content), 0o644); err != nil {
			return Paths{}, fmt.Errorf("writing report %s: %w", paths.Report, err)
		}
	}

	paths.Steps = filepath.Join(s.cfg.StepsDir, fmt.Sprintf("%s_steps_%s.md", slug, stamp))
	if err := os.WriteFile(paths.Steps, []byte(ProcessLog(run, s.cfg.Verbose)), 0o644); err != nil {
		return Paths{}, fmt.Errorf("writing process log %s: %w", paths.Steps, err)
	}

	return paths, nil
}

// stageDescriptions names what each phase does, for the log's overview.
var stageDescriptions = map[types.StageName]string{
	types.StageResearch:   "Web searches and information gathering",
	types.StageEvaluation: "Critical assessment of source quality and findings",
	types.StageAppraisal:  "Meta-analysis of research methodology and limitations",
	types.StageReport:     "Synthesis of findings into comprehensive final report",
}

// ProcessLog renders the run's audit trail as Markdown: one section per
// executed stage with start time, end time, duration, and outcome. Verbose
// mode appends each stage's full content.
func ProcessLog(run *types.PipelineRun, verbose bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Research Process: %s\n", run.Topic)
	fmt.Fprintf(&b, "*Generated on: %s*\n\n", FormattedTime(run.StartedAt))

	b.WriteString("## Process Overview\n")
	b.WriteString("This document details the step-by-step process used by the research pipeline:\n")
	for i, stage := range types.StageOrder {
		fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, titleCase(string(stage)), stageDescriptions[stage])
	}

	b.WriteString("\n## Detailed Process Log\n")
	for i, artifact := range run.Artifacts {
		fmt.Fprintf(&b, "\n### STEP %d: %s Phase\n", i+1, titleCase(string(artifact.Stage)))
		fmt.Fprintf(&b, "- **Started**: %s\n", FormattedTime(artifact.StartedAt))
		fmt.Fprintf(&b, "- **Completed**: %s\n", FormattedTime(artifact.FinishedAt))
		fmt.Fprintf(&b, "- **Duration**: %s\n", FormatDuration(artifact.Duration()))
		if artifact.Succeeded() {
			b.WriteString("- **Status**: completed\n")
		} else {
			fmt.Fprintf(&b, "- **Status**: FAILED — %s\n", artifact.Error)
		}
		if verbose && artifact.Content != "" {
			fmt.Fprintf(&b, "\n#### %s Output\n\n%s\n", titleCase(string(artifact.Stage)), artifact.Content)
		}
	}

	b.WriteString("\n## Outcome\n")
	switch run.Status {
	case types.StatusSucceeded:
		fmt.Fprintf(&b, "Run succeeded in %s.\n", FormatDuration(run.FinishedAt.Sub(run.StartedAt)))
	case types.StatusFailed:
		fmt.Fprintf(&b, "Run FAILED at the %s stage after %s.\n", run.FailedAtStage, FormatDuration(run.FinishedAt.Sub(run.StartedAt)))
	default:
		fmt.Fprintf(&b, "Run status: %s.\n", run.Status)
	}

	return b.String()
}

// titleCase uppercases the first letter of s.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// SanitizeFilename converts a topic to a safe filename fragment: every
// non-alphanumeric rune becomes an underscore and the result is capped at
// maxLength runes.
func SanitizeFilename(text string) string {
	const maxLength = 50

	var b strings.Builder
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
		if b.Len() >= maxLength {
			break
		}
	}
	return b.String()
}

// Timestamp formats t for use in filenames.
func Timestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// FormattedTime formats t for human-readable log lines.
func FormattedTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// FormatDuration renders a duration as seconds, or minutes plus seconds for
// anything over a minute.
func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()
	if seconds < 60 {
		return fmt.Sprintf("%.2f seconds", seconds)
	}
	minutes := int(seconds) / 60
	return fmt.Sprintf("%d minutes and %.2f seconds", minutes, seconds-float64(minutes*60))
}
