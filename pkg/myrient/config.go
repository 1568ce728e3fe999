// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package myrient

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConcurrencyConfig bounds how many downloads may run at once.
type ConcurrencyConfig struct {
	Global  int `json:"global"`  // max downloads across all hosts
	PerHost int `json:"perHost"` // max downloads per host
}

// RateLimitConfig configures the per-host token bucket.
type RateLimitConfig struct {
	TokensPerSec float64 `json:"tokensPerSec"`
	Burst        int     `json:"burst"`
}

// TimeoutConfig configures HTTP client timeouts.
type TimeoutConfig struct {
	Connect time.Duration `json:"connect"`
	Read    time.Duration `json:"read"`
}

// RetryConfig configures retry/backoff behavior.
type RetryConfig struct {
	MaxAttempts int           `json:"maxAttempts"`
	BackoffBase time.Duration `json:"backoffBase"`
	BackoffCap  time.Duration `json:"backoffCap"`
}

// Config is the top-level configuration for a crawl/download session.
//
// Defaults are ported from the reference implementation's configuration
// defaults and are deliberately conservative: a descriptive User-Agent,
// a low global concurrency, and a gentle per-host rate limit.
type Config struct {
	UserAgent    string `json:"userAgent"`
	DownloadRoot string `json:"downloadRoot"`
	DatabasePath string `json:"databasePath"`
	BaseURL      string `json:"baseUrl"`

	Concurrency ConcurrencyConfig `json:"concurrency"`
	RateLimit   RateLimitConfig   `json:"rateLimit"`
	Timeouts    TimeoutConfig     `json:"timeouts"`
	Retries     RetryConfig       `json:"retries"`

	IncludePatterns []string `json:"includePatterns"`
	ExcludePatterns []string `json:"excludePatterns"`

	VerifyChecksums bool  `json:"verifyChecksums"`
	ResumeDownloads bool  `json:"resumeDownloads"`
	MaxDownloadSize int64 `json:"maxDownloadSize"` // 0 = unlimited
}

// DefaultConfig returns Config populated with the reference defaults.
//
//	cfg := myrient.DefaultConfig()
//	cfg.DownloadRoot = "/data/roms"
func DefaultConfig() Config {
	return Config{
		UserAgent:    "myrientDL/1.0 (Educational/Archival Use)",
		DownloadRoot: "./downloads",
		DatabasePath: "./myrient.db",
		BaseURL:      "https://myrient.erista.me/files/",
		Concurrency: ConcurrencyConfig{
			Global:  8,
			PerHost: 3,
		},
		RateLimit: RateLimitConfig{
			TokensPerSec: 1.0,
			Burst:        3,
		},
		Timeouts: TimeoutConfig{
			Connect: 10 * time.Second,
			Read:    120 * time.Second,
		},
		Retries: RetryConfig{
			MaxAttempts: 3,
			BackoffBase: time.Second,
			BackoffCap:  30 * time.Second,
		},
		IncludePatterns: []string{"*.zip", "*.7z", "*.rar", "*.iso", "*.wbfs", "*.rvz", "*.wux"},
		ExcludePatterns: []string{"*BIOS*", "*bios*", "*System*"},
		VerifyChecksums: true,
		ResumeDownloads: true,
		MaxDownloadSize: 0,
	}
}

// applyDefaults fills any zero-valued fields of cfg with the reference
// defaults. Used by config loaders so a partial JSON/YAML file only
// needs to specify the fields it wants to override.
func applyDefaults(cfg *Config) {
	d := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = d.UserAgent
	}
	if cfg.DownloadRoot == "" {
		cfg.DownloadRoot = d.DownloadRoot
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = d.DatabasePath
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = d.BaseURL
	}
	if cfg.Concurrency.Global <= 0 {
		cfg.Concurrency.Global = d.Concurrency.Global
	}
	if cfg.Concurrency.PerHost <= 0 {
		cfg.Concurrency.PerHost = d.Concurrency.PerHost
	}
	if cfg.RateLimit.TokensPerSec <= 0 {
		cfg.RateLimit.TokensPerSec = d.RateLimit.TokensPerSec
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = d.RateLimit.Burst
	}
	if cfg.Timeouts.Connect <= 0 {
		cfg.Timeouts.Connect = d.Timeouts.Connect
	}
	if cfg.Timeouts.Read <= 0 {
		cfg.Timeouts.Read = d.Timeouts.Read
	}
	if cfg.Retries.MaxAttempts <= 0 {
		cfg.Retries.MaxAttempts = d.Retries.MaxAttempts
	}
	if cfg.Retries.BackoffBase <= 0 {
		cfg.Retries.BackoffBase = d.Retries.BackoffBase
	}
	if cfg.Retries.BackoffCap <= 0 {
		cfg.Retries.BackoffCap = d.Retries.BackoffCap
	}
	if cfg.IncludePatterns == nil {
		cfg.IncludePatterns = d.IncludePatterns
	}
	if cfg.ExcludePatterns == nil {
		cfg.ExcludePatterns = d.ExcludePatterns
	}
}

// LoadConfig reads a JSON or YAML config file (format chosen by the
// path's extension) and layers it over DefaultConfig, so the file only
// needs to set the fields it wants to override.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("invalid YAML config file: %w", err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("invalid JSON config file: %w", err)
		}
	}

	applyDefaults(&cfg)
	return cfg, nil
}
