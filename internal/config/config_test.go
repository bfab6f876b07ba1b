package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/apply-agent/internal/pacing"
	"github.com/jonathan/apply-agent/internal/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `{
		"profile": {
			"name": "Ada Example",
			"email": "ada@example.com",
			"version": 2,
			"preferences": {
				"titles": ["Software Engineer"],
				"locations": ["Remote"],
				"sponsorship": "strict"
			}
		},
		"boards": ["linkedin", "indeed"],
		"quotas": {"hourly": 3, "daily": 12},
		"verbose": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Ada Example", cfg.Profile.Name)
	assert.Equal(t, 2, cfg.Profile.Version)
	assert.Equal(t, types.SponsorshipStrict, cfg.Profile.Preferences.Sponsorship)
	assert.Equal(t, []string{"linkedin", "indeed"}, cfg.Boards)
	assert.Equal(t, 3, cfg.Quotas.Hourly)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "not json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := DefaultConfig()
	bad.Boards = []string{"monster"}
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Profile.Preferences.Sponsorship = "sometimes"
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Profile.ResumePath = filepath.Join(t.TempDir(), "missing.pdf")
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Quotas.Daily = -1
	assert.Error(t, bad.Validate())
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{
		Quotas: QuotaConfig{Daily: 5},
	}
	merged := cfg.MergeWithDefaults(DefaultConfig())

	assert.Equal(t, 5, merged.Quotas.Daily, "explicit value wins")
	assert.Equal(t, DefaultConfig().Quotas.Hourly, merged.Quotas.Hourly)
	assert.Equal(t, DefaultConfig().Boards, merged.Boards)
	assert.Equal(t, DefaultConfig().Generation.Model, merged.Generation.Model)
	assert.Equal(t, DefaultConfig().ContentDir, merged.ContentDir)
}

func TestPacingPolicyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pacing = map[string]DelayBounds{
		"click": {MinMs: 100, MaxMs: 300},
	}

	policy, err := cfg.PacingPolicy()
	require.NoError(t, err)
	assert.Equal(t, pacing.Bounds{Min: 100 * time.Millisecond, Max: 300 * time.Millisecond},
		policy.Delays[pacing.ActionClick])
	// Untouched classes keep their defaults.
	assert.Equal(t, pacing.DefaultPolicy().Delays[pacing.ActionGap], policy.Delays[pacing.ActionGap])
}

func TestPacingPolicyRejectsUnknownClass(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pacing = map[string]DelayBounds{"teleport": {MinMs: 1, MaxMs: 2}}

	_, err := cfg.PacingPolicy()
	assert.Error(t, err)
}

func TestPacingPolicyRejectsInvertedBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pacing = map[string]DelayBounds{"click": {MinMs: 500, MaxMs: 100}}

	_, err := cfg.PacingPolicy()
	assert.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 90*time.Second, cfg.GenerationTimeout())
	assert.Equal(t, time.Hour, cfg.BlockCooldown())
}
