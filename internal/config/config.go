package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/mitchellh/mapstructure"

	"github.com/neiii/stargate-better-auth/internal/core"
)

const (
	// DefaultCacheDuration is the verification record lifetime in minutes.
	DefaultCacheDuration = 15

	// DefaultGraceDuration is the "timed" grace-period length in seconds.
	DefaultGraceDuration = 3600

	// DefaultStarRequiredMessage is shown to users denied for a missing star.
	// %s is replaced with the repository key.
	DefaultStarRequiredMessage = "Please star %s to access this application"
)

type Config struct {
	// Repository is the gating repository, either "owner/repo" or
	// {owner: ..., repo: ...}.
	Repository RepositorySetting `yaml:"repository"`

	// CacheDuration is the verification record lifetime in minutes.
	CacheDuration int `yaml:"cache_duration"`

	// OnAPIFailure is the star-status assumption when GitHub cannot be
	// reached: "allow" (default) or "deny".
	OnAPIFailure core.FailureMode `yaml:"on_api_failure"`

	GracePeriod GracePeriodConfig `yaml:"grace_period"`

	// EnableLogging gates diagnostic output from the verifier and cache.
	// It has no effect on decisions.
	EnableLogging bool `yaml:"enable_logging"`

	Messages MessagesConfig `yaml:"messages"`
	Audit    AuditConfig    `yaml:"audit"`
	Session  SessionConfig  `yaml:"session"`
	GitHub   GitHubConfig   `yaml:"github"`
}

type GracePeriodConfig struct {
	// Strategy is "immediate" (default), "timed" or "never".
	Strategy core.GraceStrategy `yaml:"strategy"`

	// Duration of the grace period in seconds. Only meaningful for "timed".
	Duration int `yaml:"duration"`
}

type MessagesConfig struct {
	// StarRequired is the denial message; %s is replaced with the repository.
	StarRequired string `yaml:"star_required"`
}

// AuditConfig holds configuration for decision auditing.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Type    string `yaml:"type"` // e.g., "file", "memory"
}

type SessionConfig struct {
	// SigningKey is the HMAC key for session JWTs on the HTTP surface.
	SigningKey string `yaml:"signing_key"`
}

type GitHubConfig struct {
	// ServerURL is the GitHub Enterprise server URL.
	// For GitHub.com, this can be left empty.
	ServerURL string `yaml:"server"`
}

// RepositorySetting accepts the repository option in both shapes the host
// config allows: a plain "owner/repo" string, or a structured
// {owner: ..., repo: ...} mapping.
type RepositorySetting struct {
	raw string
}

func (r *RepositorySetting) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		r.raw = s
		return nil
	}

	var m map[string]any
	if err := unmarshal(&m); err != nil {
		return fmt.Errorf("repository must be a string or {owner, repo} mapping: %w", err)
	}

	var structured struct {
		Owner string `mapstructure:"owner"`
		Repo  string `mapstructure:"repo"`
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   &structured,
	})
	if err != nil {
		return fmt.Errorf("creating repository decoder: %w", err)
	}
	if err := decoder.Decode(m); err != nil {
		return fmt.Errorf("decoding structured repository: %w", err)
	}

	r.raw = structured.Owner + "/" + structured.Repo
	return nil
}

func (r RepositorySetting) String() string {
	return r.raw
}

// Ref parses the setting into a RepositoryRef. Malformed values fail here,
// which Validate surfaces at load time.
func (r RepositorySetting) Ref() (core.RepositoryRef, error) {
	return core.ParseRepositoryRef(r.raw)
}

// Load reads and parses the configuration file at the given path.
// It returns a Config with defaults applied, or an error if
// loading/parsing/validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.CacheDuration <= 0 {
		c.CacheDuration = DefaultCacheDuration
	}
	if c.OnAPIFailure == "" {
		c.OnAPIFailure = core.FailureAllow
	}
	if c.GracePeriod.Strategy == "" {
		c.GracePeriod.Strategy = core.StrategyImmediate
	}
	if c.GracePeriod.Duration <= 0 {
		c.GracePeriod.Duration = DefaultGraceDuration
	}
	if c.Messages.StarRequired == "" {
		c.Messages.StarRequired = DefaultStarRequiredMessage
	}
}

func (c *Config) Validate() error {
	if _, err := c.Repository.Ref(); err != nil {
		return err
	}
	if !c.OnAPIFailure.IsValid() {
		return fmt.Errorf("on_api_failure must be %q or %q, got %q",
			core.FailureAllow, core.FailureDeny, c.OnAPIFailure)
	}
	if !c.GracePeriod.Strategy.IsValid() {
		return fmt.Errorf("grace_period.strategy must be one of %q, %q, %q, got %q",
			core.StrategyImmediate, core.StrategyTimed, core.StrategyNever, c.GracePeriod.Strategy)
	}
	if c.Audit.Enabled && c.Audit.Type == "file" && c.Audit.Path == "" {
		return fmt.Errorf("audit.path is required for file auditing")
	}
	return nil
}

// CacheTTL returns the cache duration as a time.Duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheDuration) * time.Minute
}

// GraceDuration returns the grace-period length as a time.Duration.
func (c *Config) GraceDuration() time.Duration {
	return time.Duration(c.GracePeriod.Duration) * time.Second
}
