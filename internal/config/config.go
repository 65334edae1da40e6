// Package config defines the chattmt configuration surface and its loader.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// OpenAIConfig configures the oracle binding, including the retry policy
// the provider applies before a transport failure is surfaced.
type OpenAIConfig struct {
	APIKey           string `yaml:"apiKey"`
	APIBase          string `yaml:"apiBase"`
	Model            string `yaml:"model"`
	MaxRetryAttempts int    `yaml:"maxRetryAttempts"`
	RetryDelayMs     int    `yaml:"retryDelayMs"`
}

// MemoryConfig holds the compaction thresholds, expressed in the token
// estimator's units.
type MemoryConfig struct {
	// RawTokenThreshold triggers summarization of the raw message log.
	RawTokenThreshold int `yaml:"rawTokenThreshold"`
	// SummaryTokenThreshold triggers compression of an existing summary.
	SummaryTokenThreshold int `yaml:"summaryTokenThreshold"`
	// KeepRecentN is how many messages survive a summarization.
	// One turn is two messages, so 16 keeps the last 8 turns.
	KeepRecentN int `yaml:"keepRecentN"`
}

// PipelineConfig holds the per-turn window sizes and the clarification
// round bound. MaxClarificationRounds of zero means never ask back.
type PipelineConfig struct {
	LightContextSize       int `yaml:"lightContextSize"`
	RecentContextSize      int `yaml:"recentContextSize"`
	MaxClarificationRounds int `yaml:"maxClarificationRounds"`
}

// StageConfig tunes one oracle call site.
type StageConfig struct {
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"maxTokens"`
}

// StagesConfig groups the per-stage oracle settings. The summarizer and
// rewriter run cold for consistent extraction; the answer stage runs warmer
// for natural responses.
type StagesConfig struct {
	Rewriter   StageConfig `yaml:"rewriter"`
	Clarifier  StageConfig `yaml:"clarifier"`
	Answer     StageConfig `yaml:"answer"`
	Summarizer StageConfig `yaml:"summarizer"`
}

// SessionsConfig locates the persisted session records.
type SessionsConfig struct {
	Dir string `yaml:"dir"`
}

// AutosaveConfig schedules periodic persistence of dirty sessions.
// Schedule accepts any robfig/cron spec, including "@every" intervals.
type AutosaveConfig struct {
	Schedule string `yaml:"schedule"`
}

// Config is the full chattmt configuration.
type Config struct {
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Memory   MemoryConfig   `yaml:"memory"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Stages   StagesConfig   `yaml:"stages"`
	Sessions SessionsConfig `yaml:"sessions"`
	Autosave AutosaveConfig `yaml:"autosave"`
}

// DefaultConfig returns the built-in defaults. Thresholds match the token
// estimator's units; see internal/tokens.
func DefaultConfig() Config {
	return Config{
		OpenAI: OpenAIConfig{
			APIBase:          "https://api.openai.com/v1",
			Model:            "gpt-4o-mini",
			MaxRetryAttempts: 3,
			RetryDelayMs:     500,
		},
		Memory: MemoryConfig{
			RawTokenThreshold:     10000,
			SummaryTokenThreshold: 2000,
			KeepRecentN:           16,
		},
		Pipeline: PipelineConfig{
			LightContextSize:       8,
			RecentContextSize:      10,
			MaxClarificationRounds: 2,
		},
		Stages: StagesConfig{
			Rewriter:   StageConfig{Temperature: 0.2, MaxTokens: 1000},
			Clarifier:  StageConfig{Temperature: 0.3, MaxTokens: 500},
			Answer:     StageConfig{Temperature: 0.7, MaxTokens: 2000},
			Summarizer: StageConfig{Temperature: 0.2, MaxTokens: 2000},
		},
		Sessions: SessionsConfig{
			Dir: filepath.Join(DataDir(), "sessions"),
		},
		Autosave: AutosaveConfig{
			Schedule: "@every 2m",
		},
	}
}

// ConfigPath returns the default configuration file path: ~/.chattmt/config.yaml.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// DataDir returns the chattmt data directory: ~/.chattmt.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chattmt"
	}
	return filepath.Join(home, ".chattmt")
}

// Validate rejects configurations the memory lifecycle cannot run with.
func (c *Config) Validate() error {
	if c.Memory.RawTokenThreshold <= 0 {
		return fmt.Errorf("memory.rawTokenThreshold must be positive")
	}
	if c.Memory.SummaryTokenThreshold <= 0 {
		return fmt.Errorf("memory.summaryTokenThreshold must be positive")
	}
	if c.Memory.KeepRecentN <= 0 {
		return fmt.Errorf("memory.keepRecentN must be positive")
	}
	if c.Pipeline.LightContextSize <= 0 {
		return fmt.Errorf("pipeline.lightContextSize must be positive")
	}
	if c.Pipeline.RecentContextSize <= 0 {
		return fmt.Errorf("pipeline.recentContextSize must be positive")
	}
	if c.Pipeline.MaxClarificationRounds < 0 {
		return fmt.Errorf("pipeline.maxClarificationRounds must be non-negative")
	}
	return nil
}
