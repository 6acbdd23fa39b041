// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/deep-research/internal/agent"
	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/internal/history"
	"github.com/pdiddy/deep-research/internal/pipeline"
	"github.com/pdiddy/deep-research/internal/report"
	"github.com/pdiddy/deep-research/internal/search"
	"github.com/pdiddy/deep-research/pkg/types"
)

const defaultModel = "claude-sonnet-4-5-20250929"

var runCmd = &cobra.Command{
	Use:   "run [topic...]",
	Short: "Run the full research pipeline on a topic",
	Long: `Run executes the four-stage pipeline for the given topic: research with
live search tools, evaluation, critical appraisal, and report generation.
The final report lands in the output directory and a step-by-step process
log in the steps directory.

The topic may be given as multiple words without quoting:

    deep-research run renewable energy storage trends`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPipeline,
}

func runPipeline(cmd *cobra.Command, args []string) error {
	topic := strings.Join(args, " ")
	cfg := pipelineConfig(cmd)

	if cfg.AI.APIKey == "" {
		return fmt.Errorf("no Anthropic API key: set ANTHROPIC_API_KEY or add .secrets/anthropic-api-key")
	}

	c, err := cache.New(cfg.Cache)
	if err != nil {
		return err
	}
	if clear, _ := cmd.Flags().GetBool("clear-cache"); clear {
		removed, err := c.Clear()
		if err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared %d cached result(s)\n", removed)
	}

	client := &http.Client{Timeout: cfg.Search.Timeout}
	agg := search.NewAggregator(c, search.Enabled(cfg.Search, client), cfg.Search, os.Stderr)

	profiles, err := agentProfiles(cmd, cfg.AI.Model)
	if err != nil {
		return err
	}

	invoker := agent.NewClaude(cfg.AI, &http.Client{Timeout: cfg.AI.Timeout})
	store := report.NewFileStore(cfg.Output)
	runner := pipeline.NewRunner(invoker, agg, store, profiles, os.Stdout, cfg.Output.Verbose)

	run, paths, runErr := runner.Run(context.Background(), topic)
	if run != nil {
		recordHistory(cfg.History, run, paths)
	}
	return runErr
}

// recordHistory writes the run to the history database. History is an
// auxiliary record; a write failure is reported but never fails the run.
func recordHistory(cfg types.HistoryConfig, run *types.PipelineRun, paths report.Paths) {
	store, err := history.NewStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: history unavailable: %v\n", err)
		return
	}
	defer store.Close()

	if err := store.Record(run, paths); err != nil {
		fmt.Fprintf(os.Stderr, "warning: recording run history: %v\n", err)
	}
}

// agentProfiles loads profiles from the --agents YAML file when given, or
// falls back to the built-in four roles.
func agentProfiles(cmd *cobra.Command, model string) ([]types.AgentProfile, error) {
	path, _ := cmd.Flags().GetString("agents")
	if path == "" {
		return agent.DefaultProfiles(model), nil
	}
	profiles, err := agent.LoadProfiles(path)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		if profiles[i].Model == "" {
			profiles[i].Model = model
		}
	}
	return profiles, nil
}

// pipelineConfig assembles the run configuration from flags, config file
// values, and secrets, in that order of precedence.
func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	stepsDir, _ := cmd.Flags().GetString("steps-dir")
	reportFile, _ := cmd.Flags().GetString("output")
	verbose, _ := cmd.Flags().GetBool("verbose")
	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	model, _ := cmd.Flags().GetString("model")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	maxTurns, _ := cmd.Flags().GetInt("max-tool-turns")
	historyDir, _ := cmd.Flags().GetString("history-dir")

	if model == "" {
		model = viper.GetString("ai.model")
	}
	if model == "" {
		model = defaultModel
	}

	searchCfg := types.SearchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "deep-research/" + version,
		},
		BackendTimeout: 15 * time.Second,
		EnableWeb:      true,
		EnableOpenAlex: true,
		EnableCrossRef: true,
		ContactEmail:   secretDefault("openalex-email", viper.GetString("search.contact_email")),
	}

	return types.PipelineConfig{
		Search: searchCfg,
		Cache:  types.CacheConfig{Dir: cacheDir},
		AI: types.AIConfig{
			Model:        model,
			APIKey:       secretDefault("anthropic-api-key", os.Getenv("ANTHROPIC_API_KEY")),
			Timeout:      timeout,
			MaxToolTurns: maxTurns,
		},
		Output: types.OutputConfig{
			OutputDir:  outputDir,
			StepsDir:   stepsDir,
			ReportFile: reportFile,
			Verbose:    verbose,
		},
		History: types.HistoryConfig{Dir: historyDir},
	}
}

func init() {
	runCmd.Flags().StringP("output-dir", "d", "output", "directory for the final report")
	runCmd.Flags().StringP("steps-dir", "s", "steps_taken", "directory for the process log")
	runCmd.Flags().StringP("output", "o", "", "exact path for the report file (overrides --output-dir naming)")
	runCmd.Flags().BoolP("verbose", "v", false, "echo full stage output and include it in the process log")
	runCmd.Flags().Bool("clear-cache", false, "clear the search cache before running")
	runCmd.Flags().String("cache-dir", "search_cache", "directory for cached search results")
	runCmd.Flags().String("model", "", "model identifier for all agent roles")
	runCmd.Flags().Duration("timeout", 5*time.Minute, "timeout for a single agent invocation")
	runCmd.Flags().Int("max-tool-turns", 10, "maximum tool-use rounds per agent invocation")
	runCmd.Flags().String("agents", "", "YAML file overriding the built-in agent profiles")
	runCmd.Flags().String("history-dir", "history", "directory for the run history database")

	rootCmd.AddCommand(runCmd)
}
