// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/apply-agent/internal/pacing"
	"github.com/jonathan/apply-agent/internal/types"
)

// QuotaConfig caps how many submissions a window may grant.
type QuotaConfig struct {
	Hourly int `json:"hourly,omitempty" validate:"gte=0"`
	Daily  int `json:"daily,omitempty" validate:"gte=0"`
}

// GenerationConfig tunes the content-generation collaborator.
type GenerationConfig struct {
	Model          string `json:"model,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" validate:"gte=0"`
	MaxRetries     int    `json:"max_retries,omitempty" validate:"gte=0"`
	Concurrency    int    `json:"concurrency,omitempty" validate:"gte=0,lte=16"`
}

// DelayBounds is one action class's delay range in milliseconds.
type DelayBounds struct {
	MinMs int64 `json:"min_ms" validate:"gte=0"`
	MaxMs int64 `json:"max_ms" validate:"gtefield=MinMs"`
}

// SubmissionConfig tunes the submission loop.
type SubmissionConfig struct {
	MaxAttempts          int `json:"max_attempts,omitempty" validate:"gte=0,lte=10"`
	BlockCooldownMinutes int `json:"block_cooldown_minutes,omitempty" validate:"gte=0"`
}

// Config represents the CLI configuration loaded from a JSON file.
// Credentials are never stored here; they come from the environment.
type Config struct {
	// Candidate
	Profile types.CandidateProfile `json:"profile"`

	// Discovery
	Boards  []string `json:"boards,omitempty" validate:"dive,oneof=linkedin indeed ziprecruiter"`
	MaxJobs int      `json:"max_jobs,omitempty" validate:"gte=0"`

	// Behavior
	Quotas     QuotaConfig            `json:"quotas,omitempty"`
	Generation GenerationConfig       `json:"generation,omitempty"`
	Submission SubmissionConfig       `json:"submission,omitempty"`
	Pacing     map[string]DelayBounds `json:"pacing,omitempty" validate:"dive"`

	// Infrastructure
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key; GEMINI_API_KEY wins
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	ContentDir  string `json:"content_dir,omitempty"`  // Where generated documents are written
	Visible     bool   `json:"visible,omitempty"`      // Run the browser with a visible window
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information
}

// DefaultConfig returns the built-in defaults applied under a loaded file.
func DefaultConfig() Config {
	return Config{
		Boards:  []string{"linkedin", "indeed", "ziprecruiter"},
		MaxJobs: 50,
		Quotas:  QuotaConfig{Hourly: 10, Daily: 40},
		Generation: GenerationConfig{
			Model:          "gemini-2.5-flash",
			TimeoutSeconds: 90,
			MaxRetries:     2,
			Concurrency:    3,
		},
		Submission: SubmissionConfig{
			MaxAttempts:          3,
			BlockCooldownMinutes: 60,
		},
		ContentDir: "data/content",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values. Required fields
// that CLI flags can still supply are checked after merging, not here.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("config error: field %q failed %q validation", f.Namespace(), f.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.Profile.Preferences.Sponsorship != "" {
		switch c.Profile.Preferences.Sponsorship {
		case types.SponsorshipOff, types.SponsorshipPrefer, types.SponsorshipStrict:
		default:
			return fmt.Errorf("config error: unknown sponsorship mode %q", c.Profile.Preferences.Sponsorship)
		}
	}

	// Validate file paths exist (if specified)
	if c.Profile.ResumePath != "" {
		if _, err := os.Stat(c.Profile.ResumePath); os.IsNotExist(err) {
			return fmt.Errorf("config error: resume file not found: %s", c.Profile.ResumePath)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with unset fields filled from
// defaults. This is used to apply built-in defaults under config file values.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if len(result.Boards) == 0 {
		result.Boards = defaults.Boards
	}
	if result.MaxJobs == 0 {
		result.MaxJobs = defaults.MaxJobs
	}
	if result.Quotas.Hourly == 0 {
		result.Quotas.Hourly = defaults.Quotas.Hourly
	}
	if result.Quotas.Daily == 0 {
		result.Quotas.Daily = defaults.Quotas.Daily
	}
	if result.Generation.Model == "" {
		result.Generation.Model = defaults.Generation.Model
	}
	if result.Generation.TimeoutSeconds == 0 {
		result.Generation.TimeoutSeconds = defaults.Generation.TimeoutSeconds
	}
	if result.Generation.MaxRetries == 0 {
		result.Generation.MaxRetries = defaults.Generation.MaxRetries
	}
	if result.Generation.Concurrency == 0 {
		result.Generation.Concurrency = defaults.Generation.Concurrency
	}
	if result.Submission.MaxAttempts == 0 {
		result.Submission.MaxAttempts = defaults.Submission.MaxAttempts
	}
	if result.Submission.BlockCooldownMinutes == 0 {
		result.Submission.BlockCooldownMinutes = defaults.Submission.BlockCooldownMinutes
	}
	if result.ContentDir == "" {
		result.ContentDir = defaults.ContentDir
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// PacingPolicy builds the delay policy: defaults overridden per class by the
// config's pacing section.
func (c *Config) PacingPolicy() (*pacing.Policy, error) {
	policy := pacing.DefaultPolicy()
	for class, b := range c.Pacing {
		ac := pacing.ActionClass(class)
		if _, ok := policy.Delays[ac]; !ok {
			return nil, fmt.Errorf("config error: unknown pacing class %q", class)
		}
		policy.Delays[ac] = pacing.Bounds{
			Min: time.Duration(b.MinMs) * time.Millisecond,
			Max: time.Duration(b.MaxMs) * time.Millisecond,
		}
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	return policy, nil
}

// GenerationTimeout returns the generation timeout as a duration.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.Generation.TimeoutSeconds) * time.Second
}

// BlockCooldown returns the block cooldown as a duration.
func (c *Config) BlockCooldown() time.Duration {
	return time.Duration(c.Submission.BlockCooldownMinutes) * time.Minute
}
