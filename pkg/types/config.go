// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Provider identifies the generative-text API behind the model client.
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
)

// NeedsAPIKey reports whether the provider requires a credential.
func (p Provider) NeedsAPIKey() bool {
	return p == ProviderGemini || p == ProviderAnthropic
}

// KeyEnv is the environment variable holding the provider credential.
func (p Provider) KeyEnv() string {
	switch p {
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	}
	return ""
}

// KeySecret is the file name of the credential under .secrets/.
func (p Provider) KeySecret() string {
	switch p {
	case ProviderGemini:
		return "gemini-api-key"
	case ProviderAnthropic:
		return "anthropic-api-key"
	}
	return ""
}

// ModelConfig holds settings for every stage that calls the model API.
type ModelConfig struct {
	// Provider selects the backend: gemini, anthropic, or ollama.
	Provider Provider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Name is the model identifier (e.g. "gemini-2.5-flash-lite").
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// BaseURL overrides the provider endpoint. Only ollama requires it.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// Temperature is used for per-project extraction (default 0.1).
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// ConsolidationDelta is added to Temperature for the consolidation
	// and report calls (default 0.1). Nil means unset; zero keeps both
	// phases at the same temperature.
	ConsolidationDelta *float64 `json:"consolidation_delta" yaml:"consolidation_delta" mapstructure:"consolidation_delta"`

	// MaxRetries is the total number of attempts per model request (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RetryDelay is the fixed pause between attempts of one request (default 2s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`

	// CallDelay spaces consecutive per-project calls (default 1s).
	CallDelay time.Duration `json:"call_delay" yaml:"call_delay" mapstructure:"call_delay"`

	// MaxOutputTokens caps the length of each answer (default 8192).
	MaxOutputTokens int `json:"max_output_tokens" yaml:"max_output_tokens" mapstructure:"max_output_tokens"`

	// NarrativeReport asks the model for an additional prose report after
	// consolidation.
	NarrativeReport bool `json:"narrative_report" yaml:"narrative_report" mapstructure:"narrative_report"`
}

// Model defaults applied by WithDefaults.
const (
	DefaultProvider           = ProviderGemini
	DefaultModelName          = "gemini-2.5-flash-lite"
	DefaultTemperature        = 0.1
	DefaultConsolidationDelta = 0.1
	DefaultMaxRetries         = 3
	DefaultRetryDelay         = 2 * time.Second
	DefaultCallDelay          = time.Second
	DefaultMaxOutputTokens    = 8192
)

// WithDefaults returns a copy with zero-valued fields filled in.
// Temperature is left alone because zero is a meaningful setting.
func (c ModelConfig) WithDefaults() ModelConfig {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.Name == "" {
		c.Name = DefaultModelName
	}
	if c.ConsolidationDelta == nil {
		d := DefaultConsolidationDelta
		c.ConsolidationDelta = &d
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.CallDelay < 0 {
		c.CallDelay = DefaultCallDelay
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = DefaultMaxOutputTokens
	}
	return c
}

// Delta returns the consolidation temperature delta, or the default when
// unset.
func (c ModelConfig) Delta() float64 {
	if c.ConsolidationDelta == nil {
		return DefaultConsolidationDelta
	}
	return *c.ConsolidationDelta
}

// BatchPaths is the per-batch entry of the configuration file.
type BatchPaths struct {
	Task     string `json:"task" yaml:"task" mapstructure:"task"`
	Rubric   string `json:"rubric" yaml:"rubric" mapstructure:"rubric"`
	Projects string `json:"projects" yaml:"projects" mapstructure:"projects"`
	Output   string `json:"output" yaml:"output" mapstructure:"output"`
	Grades   string `json:"grades,omitempty" yaml:"grades,omitempty" mapstructure:"grades"`
}

// BatchConfig identifies one batch of submissions to analyze. It is built
// once at startup and passed by value to every stage.
type BatchConfig struct {
	// ID is the batch identifier given on the command line.
	ID string `json:"id" yaml:"id"`

	// TaskPath is the assignment statement document.
	TaskPath string `json:"task" yaml:"task"`

	// RubricPath is the grading rubric document.
	RubricPath string `json:"rubric" yaml:"rubric"`

	// ProjectsDir holds one document per project.
	ProjectsDir string `json:"projects" yaml:"projects"`

	// OutputDir receives every artifact of the run.
	OutputDir string `json:"output" yaml:"output"`

	// GradesCSV is an optional grades export used by the grades phase.
	GradesCSV string `json:"grades,omitempty" yaml:"grades,omitempty"`

	// APIKey authenticates against the model provider. Never rendered.
	APIKey string `json:"-" yaml:"-"`

	Model ModelConfig `json:"model" yaml:"model"`
}

// Output layout below BatchConfig.OutputDir.
const (
	ExtractionsDir  = "phase1_extractions"
	ConsolidatedDir = "phase2_consolidated"
	GradesDir       = "phase3_grades"
	LogsDir         = "logs"
	RunSummaryFile  = "run_summary.json"
	LedgerFile      = "runs.db"
)
