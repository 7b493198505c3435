// Package config provides the Config struct and loader for .botvet.yaml
// project-level configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for configuration. These are the single source of truth;
// New() references them and no other code should duplicate them.
const (
	DefaultServiceTimeoutSeconds = 30
	DefaultTokenEnv              = "BOTVET_SERVICE_TOKEN"

	DefaultLLMKeyEnv    = "BOTVET_LLM_API_KEY"
	DefaultPersonaModel = "gpt-4o"
	DefaultJudgeModel   = "gpt-4o"

	DefaultTestGroup                  = "botvet-eval"
	DefaultBatchSize                  = 6
	DefaultRunsPerTask                = 2
	DefaultConversationTimeoutSeconds = 600
	DefaultAttemptRetries             = 2
	DefaultJudgeRetries               = 2

	DefaultPollMaxAttempts     = 10
	DefaultPollIntervalSeconds = 2

	DefaultReportsDir = "reports/"
)

// ServiceConfig points at the interview-bot service. The auth token is
// never stored in the file; TokenEnv names the environment variable that
// carries it.
type ServiceConfig struct {
	BaseURL        string `yaml:"base_url,omitempty"`
	GraphQLURL     string `yaml:"graphql_url,omitempty"`
	WSURL          string `yaml:"ws_url,omitempty"`
	TokenEnv       string `yaml:"token_env,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
}

// LLMConfig points at the OpenAI-compatible completion endpoint used by
// personas and the judge.
type LLMConfig struct {
	BaseURL      string `yaml:"base_url,omitempty"`
	APIKeyEnv    string `yaml:"api_key_env,omitempty"`
	PersonaModel string `yaml:"persona_model,omitempty"`
	JudgeModel   string `yaml:"judge_model,omitempty"`
}

// SkipEntry excludes one (persona, skill) pair from a run.
type SkipEntry struct {
	Persona string `yaml:"persona"`
	Skill   string `yaml:"skill"`
}

// RunConfig shapes the evaluation matrix and its failure budgets.
type RunConfig struct {
	Skills                     []string         `yaml:"skills,omitempty"`
	TestGroup                  string           `yaml:"test_group,omitempty"`
	BatchSize                  int              `yaml:"batch_size,omitempty"`
	RunsPerTask                int              `yaml:"runs_per_task,omitempty"`
	ConversationTimeoutSeconds int              `yaml:"conversation_timeout_seconds,omitempty"`
	AttemptRetries             *int             `yaml:"attempt_retries,omitempty"`
	JudgeRetries               *int             `yaml:"judge_retries,omitempty"`
	Skip                       []SkipEntry      `yaml:"skip,omitempty"`
	Personas                   []map[string]any `yaml:"personas,omitempty"`
}

// PollConfig bounds every session poll loop.
type PollConfig struct {
	MaxAttempts     int `yaml:"max_attempts,omitempty"`
	IntervalSeconds int `yaml:"interval_seconds,omitempty"`
}

// BlobConfig enables uploading reports to Azure Blob Storage instead of
// the local filesystem.
type BlobConfig struct {
	Enabled    bool   `yaml:"enabled,omitempty"`
	ServiceURL string `yaml:"service_url,omitempty"`
	Container  string `yaml:"container,omitempty"`
}

// ReportsConfig controls report persistence.
type ReportsConfig struct {
	Dir      string     `yaml:"dir,omitempty"`
	Compress bool       `yaml:"compress,omitempty"`
	Blob     BlobConfig `yaml:"blob,omitempty"`
}

// Config is the top-level configuration loaded from .botvet.yaml.
type Config struct {
	Service ServiceConfig `yaml:"service,omitempty"`
	LLM     LLMConfig     `yaml:"llm,omitempty"`
	Run     RunConfig     `yaml:"run,omitempty"`
	Poll    PollConfig    `yaml:"poll,omitempty"`
	Reports ReportsConfig `yaml:"reports,omitempty"`
}

// New returns a Config with all hard-coded defaults populated.
func New() *Config {
	return &Config{
		Service: ServiceConfig{
			TokenEnv:       DefaultTokenEnv,
			TimeoutSeconds: DefaultServiceTimeoutSeconds,
		},
		LLM: LLMConfig{
			APIKeyEnv:    DefaultLLMKeyEnv,
			PersonaModel: DefaultPersonaModel,
			JudgeModel:   DefaultJudgeModel,
		},
		Run: RunConfig{
			TestGroup:                  DefaultTestGroup,
			BatchSize:                  DefaultBatchSize,
			RunsPerTask:                DefaultRunsPerTask,
			ConversationTimeoutSeconds: DefaultConversationTimeoutSeconds,
			AttemptRetries:             intPtr(DefaultAttemptRetries),
			JudgeRetries:               intPtr(DefaultJudgeRetries),
		},
		Poll: PollConfig{
			MaxAttempts:     DefaultPollMaxAttempts,
			IntervalSeconds: DefaultPollIntervalSeconds,
		},
		Reports: ReportsConfig{
			Dir: DefaultReportsDir,
		},
	}
}

// Load finds .botvet.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults. If no file is
// found, returns defaults with a nil error.
func Load(startDir string) (*Config, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("loading .botvet.yaml: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing .botvet.yaml: %w", err)
	}

	merge(cfg, &fileCfg)
	return cfg, nil
}

// Validate rejects configurations that cannot produce a run.
func (c *Config) Validate() error {
	if c.Service.BaseURL == "" {
		return errors.New("service.base_url is required")
	}
	if c.LLM.BaseURL == "" {
		return errors.New("llm.base_url is required")
	}
	if len(c.Run.Skills) == 0 {
		return errors.New("run.skills must list at least one skill id")
	}
	if c.Run.BatchSize < 1 {
		return errors.New("run.batch_size must be at least 1")
	}
	if c.Run.RunsPerTask < 1 {
		return errors.New("run.runs_per_task must be at least 1")
	}
	return nil
}

// ServiceTimeout is the per-call timeout for interview-bot requests.
func (c *Config) ServiceTimeout() time.Duration {
	return time.Duration(c.Service.TimeoutSeconds) * time.Second
}

// ConversationTimeout is the wall-clock budget for one conversation phase.
func (c *Config) ConversationTimeout() time.Duration {
	return time.Duration(c.Run.ConversationTimeoutSeconds) * time.Second
}

// PollInterval is the fixed delay between session polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// findConfigFile walks up from dir looking for .botvet.yaml (max 10
// levels). Returns os.ErrNotExist if no config file is found; real I/O
// errors propagate.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, ".botvet.yaml")
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// merge overlays non-zero values from src onto dst.
func merge(dst, src *Config) {
	if src.Service.BaseURL != "" {
		dst.Service.BaseURL = src.Service.BaseURL
	}
	if src.Service.GraphQLURL != "" {
		dst.Service.GraphQLURL = src.Service.GraphQLURL
	}
	if src.Service.WSURL != "" {
		dst.Service.WSURL = src.Service.WSURL
	}
	if src.Service.TokenEnv != "" {
		dst.Service.TokenEnv = src.Service.TokenEnv
	}
	if src.Service.TimeoutSeconds != 0 {
		dst.Service.TimeoutSeconds = src.Service.TimeoutSeconds
	}

	if src.LLM.BaseURL != "" {
		dst.LLM.BaseURL = src.LLM.BaseURL
	}
	if src.LLM.APIKeyEnv != "" {
		dst.LLM.APIKeyEnv = src.LLM.APIKeyEnv
	}
	if src.LLM.PersonaModel != "" {
		dst.LLM.PersonaModel = src.LLM.PersonaModel
	}
	if src.LLM.JudgeModel != "" {
		dst.LLM.JudgeModel = src.LLM.JudgeModel
	}

	if len(src.Run.Skills) > 0 {
		dst.Run.Skills = src.Run.Skills
	}
	if src.Run.TestGroup != "" {
		dst.Run.TestGroup = src.Run.TestGroup
	}
	if src.Run.BatchSize != 0 {
		dst.Run.BatchSize = src.Run.BatchSize
	}
	if src.Run.RunsPerTask != 0 {
		dst.Run.RunsPerTask = src.Run.RunsPerTask
	}
	if src.Run.ConversationTimeoutSeconds != 0 {
		dst.Run.ConversationTimeoutSeconds = src.Run.ConversationTimeoutSeconds
	}
	if src.Run.AttemptRetries != nil {
		dst.Run.AttemptRetries = src.Run.AttemptRetries
	}
	if src.Run.JudgeRetries != nil {
		dst.Run.JudgeRetries = src.Run.JudgeRetries
	}
	if len(src.Run.Skip) > 0 {
		dst.Run.Skip = src.Run.Skip
	}
	if len(src.Run.Personas) > 0 {
		dst.Run.Personas = src.Run.Personas
	}

	if src.Poll.MaxAttempts != 0 {
		dst.Poll.MaxAttempts = src.Poll.MaxAttempts
	}
	if src.Poll.IntervalSeconds != 0 {
		dst.Poll.IntervalSeconds = src.Poll.IntervalSeconds
	}

	if src.Reports.Dir != "" {
		dst.Reports.Dir = src.Reports.Dir
	}
	if src.Reports.Compress {
		dst.Reports.Compress = true
	}
	if src.Reports.Blob.Enabled {
		dst.Reports.Blob = src.Reports.Blob
	}
}

func intPtr(v int) *int { return &v }
