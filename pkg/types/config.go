// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network
// requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "deep-research/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the search aggregation layer.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// BackendTimeout bounds each individual backend call. A slow backend
	// times out on its own without stalling the others (default 15s).
	BackendTimeout time.Duration `json:"backend_timeout" yaml:"backend_timeout"`

	// EnableWeb controls whether the DuckDuckGo web backend is available.
	EnableWeb bool `json:"enable_web" yaml:"enable_web"`

	// EnableOpenAlex controls whether the OpenAlex backend is available.
	EnableOpenAlex bool `json:"enable_openalex" yaml:"enable_openalex"`

	// EnableCrossRef controls whether the CrossRef backend is available.
	EnableCrossRef bool `json:"enable_crossref" yaml:"enable_crossref"`

	// ContactEmail is sent as the mailto parameter to OpenAlex for polite
	// pool access. Optional.
	ContactEmail string `json:"contact_email,omitempty" yaml:"contact_email,omitempty"`
}

// CacheConfig holds settings for the search result cache.
type CacheConfig struct {
	// Dir is the cache root directory. One JSON file per cache key.
	Dir string `json:"dir" yaml:"dir"`
}

// AIConfig holds settings for components that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Timeout bounds a single model invocation, including tool turns
	// (default 5m).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxToolTurns caps how many tool-use rounds one invocation may take
	// before it is treated as exhausted (default 10).
	MaxToolTurns int `json:"max_tool_turns" yaml:"max_tool_turns"`
}

// OutputConfig holds settings for persisting run outputs.
type OutputConfig struct {
	// OutputDir receives the final report files (default "output").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// StepsDir receives the process log files (default "steps_taken").
	StepsDir string `json:"steps_dir" yaml:"steps_dir"`

	// ReportFile overrides the auto-generated report filename when set.
	ReportFile string `json:"report_file,omitempty" yaml:"report_file,omitempty"`

	// Verbose includes full stage content in the process log.
	Verbose bool `json:"verbose" yaml:"verbose"`
}

// HistoryConfig holds settings for the run-history store.
type HistoryConfig struct {
	// Dir is the directory holding the history database (default "history").
	Dir string `json:"dir" yaml:"dir"`
}

// PipelineConfig groups all component configurations for one run.
type PipelineConfig struct {
	Search  SearchConfig  `json:"search" yaml:"search"`
	Cache   CacheConfig   `json:"cache" yaml:"cache"`
	AI      AIConfig      `json:"ai" yaml:"ai"`
	Output  OutputConfig  `json:"output" yaml:"output"`
	History HistoryConfig `json:"history" yaml:"history"`
}
