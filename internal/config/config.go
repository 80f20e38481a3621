package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ci-log-analyzer/internal/domain"
)

type JenkinsConfig struct {
	BaseURL string        `yaml:"base_url"`
	User    string        `yaml:"user"`
	Token   string        `yaml:"-"` // env only, never written to disk
	Timeout time.Duration `yaml:"timeout"`
}

// BuildConfig carries the target build reference. Supplied per invocation by
// the orchestrating pipeline, so it is env-only.
type BuildConfig struct {
	JobName     string `yaml:"-"`
	BuildNumber int    `yaml:"-"`
}

type AIConfig struct {
	OpenAIKey     string        `yaml:"-"` // env only
	GeminiKey     string        `yaml:"-"` // env only
	CompatKey     string        `yaml:"-"` // env only
	CompatBaseURL string        `yaml:"compat_base_url"`
	DryRun        bool          `yaml:"dry_run"` // skip the provider call, emit a canned reply
	Model         string        `yaml:"model"`
	MaxOutTokens  int           `yaml:"max_out_tokens"`
	PromptBudget  int           `yaml:"prompt_budget"` // prompt token budget for the log excerpt
	Timeout       time.Duration `yaml:"timeout"`
}

type ParserConfig struct {
	TailLines int `yaml:"tail_lines"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type ServeConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	APIKey     string `yaml:"-"` // env only
}

type Config struct {
	Jenkins JenkinsConfig `yaml:"jenkins"`
	Build   BuildConfig   `yaml:"-"`
	AI      AIConfig      `yaml:"ai"`
	Parser  ParserConfig  `yaml:"parser"`
	Log     LogConfig     `yaml:"log"`
	Serve   ServeConfig   `yaml:"serve"`
}

// Load reads the optional YAML file named by ANALYZER_CONFIG (default
// config.yaml when present), then applies environment overrides. The
// environment is authoritative: the container contract passes everything
// through it.
func Load(getenv func(string) string) (*Config, error) {
	var cfg Config

	path := getenv("ANALYZER_CONFIG")
	explicit := path != ""
	if path == "" {
		path = "config.yaml"
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// no file is fine, env carries everything
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("JENKINS_BASE_URL"); v != "" {
		c.Jenkins.BaseURL = v
	}
	if v := getenv("JENKINS_USER"); v != "" {
		c.Jenkins.User = v
	}
	c.Jenkins.Token = getenv("JENKINS_API_TOKEN")

	c.Build.JobName = strings.TrimSpace(getenv("FAILED_JOB_NAME"))
	if v := strings.TrimSpace(getenv("FAILED_BUILD_NUMBER")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: FAILED_BUILD_NUMBER %q is not an integer", domain.ErrInvalidArgument, v)
		}
		c.Build.BuildNumber = n
	}

	c.AI.OpenAIKey = getenv("OPENAI_API_TOKEN")
	c.AI.GeminiKey = getenv("GEMINI_API_TOKEN")
	c.AI.CompatKey = getenv("COMPAT_API_TOKEN")
	if v := getenv("ANALYZER_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := strings.ToLower(getenv("ANALYZER_DRY_RUN")); v == "1" || v == "true" || v == "yes" {
		c.AI.DryRun = true
	}

	if v := getenv("ANALYZER_LISTEN_ADDR"); v != "" {
		c.Serve.ListenAddr = v
	}
	c.Serve.APIKey = getenv("ANALYZER_API_KEY")

	if v := getenv("ANALYZER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Jenkins.Timeout <= 0 {
		c.Jenkins.Timeout = 30 * time.Second
	}
	if c.AI.Timeout <= 0 {
		c.AI.Timeout = 60 * time.Second
	}
	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o-mini"
	}
	if c.AI.MaxOutTokens <= 0 {
		c.AI.MaxOutTokens = 1024
	}
	if c.AI.PromptBudget <= 0 {
		c.AI.PromptBudget = 6000
	}
	if c.Parser.TailLines <= 0 {
		c.Parser.TailLines = 100
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate checks everything both run modes need. Errors surface before any
// network call is made.
func (c *Config) Validate() error {
	if c.Jenkins.BaseURL == "" {
		return fmt.Errorf("%w: JENKINS_BASE_URL", domain.ErrMissingConfig)
	}
	if c.Jenkins.Token == "" {
		return fmt.Errorf("%w: JENKINS_API_TOKEN", domain.ErrMissingConfig)
	}
	if !c.AI.DryRun && c.AI.OpenAIKey == "" && c.AI.GeminiKey == "" && c.AI.CompatKey == "" {
		return fmt.Errorf("%w: one of OPENAI_API_TOKEN, GEMINI_API_TOKEN, COMPAT_API_TOKEN", domain.ErrMissingConfig)
	}
	if c.Serve.ListenAddr != "" && c.Serve.APIKey == "" {
		return fmt.Errorf("%w: ANALYZER_API_KEY is required when ANALYZER_LISTEN_ADDR is set", domain.ErrMissingConfig)
	}
	return nil
}

// ValidateBuild additionally requires the target build reference; the serve
// mode receives it per request instead.
func (c *Config) ValidateBuild() error {
	if c.Build.JobName == "" {
		return fmt.Errorf("%w: FAILED_JOB_NAME", domain.ErrMissingConfig)
	}
	if c.Build.BuildNumber <= 0 {
		return fmt.Errorf("%w: FAILED_BUILD_NUMBER", domain.ErrMissingConfig)
	}
	return nil
}
