// Package config loads service configuration from a file, a .env file and
// the process environment, in that order of increasing precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Backend kinds.
const (
	BackendSynthetic = "synthetic"
	BackendHTTP      = "http"
)

// Dedup store kinds.
const (
	DedupMemory = "memory"
	DedupRedis  = "redis"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by Defaults.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir    string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	OutputsDir   string `json:"outputs_dir" yaml:"outputs_dir" toml:"outputs_dir"`
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`
	Device       string `json:"device" yaml:"device" toml:"device"`

	JobRetentionMinutes    int `json:"job_retention_minutes" yaml:"job_retention_minutes" toml:"job_retention_minutes"`
	CleanupIntervalSeconds int `json:"cleanup_interval_seconds" yaml:"cleanup_interval_seconds" toml:"cleanup_interval_seconds"`
	DedupWindowSeconds     int `json:"dedup_window_seconds" yaml:"dedup_window_seconds" toml:"dedup_window_seconds"`
	MaxConcurrent          int `json:"max_concurrent" yaml:"max_concurrent" toml:"max_concurrent"`

	EncryptionEnabled bool   `json:"enable_inference_encryption" yaml:"enable_inference_encryption" toml:"enable_inference_encryption"`
	EncryptionSecret  string `json:"inference_encryption_secret" yaml:"inference_encryption_secret" toml:"inference_encryption_secret"`

	Backend    string `json:"backend" yaml:"backend" toml:"backend"`
	BackendURL string `json:"backend_url" yaml:"backend_url" toml:"backend_url"`
	// StepDelayMS slows the synthetic backend down per step.
	StepDelayMS int `json:"step_delay_ms" yaml:"step_delay_ms" toml:"step_delay_ms"`
	// LoadTimeoutSeconds bounds how long a /load-model caller waits. Zero waits indefinitely.
	LoadTimeoutSeconds int `json:"load_timeout_seconds" yaml:"load_timeout_seconds" toml:"load_timeout_seconds"`

	DedupBackend string `json:"dedup_backend" yaml:"dedup_backend" toml:"dedup_backend"`
	RedisURL     string `json:"redis_url" yaml:"redis_url" toml:"redis_url"`

	LogLevel     string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat    string `json:"log_format" yaml:"log_format" toml:"log_format"`
	LogFile      string `json:"log_file" yaml:"log_file" toml:"log_file"`
	HTTPLogLevel string `json:"http_log_level" yaml:"http_log_level" toml:"http_log_level"`

	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSEnabled  bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Addr:                   ":8000",
		ModelsDir:              "./models",
		OutputsDir:             "./outputs",
		Device:                 "cpu",
		JobRetentionMinutes:    3,
		CleanupIntervalSeconds: 30,
		DedupWindowSeconds:     30,
		MaxConcurrent:          1,
		LoadTimeoutSeconds:     300,
		Backend:                BackendSynthetic,
		DedupBackend:           DedupMemory,
		LogLevel:               "info",
		LogFormat:              "json",
		HTTPLogLevel:           "info",
		MaxBodyBytes:           16 << 20,
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Merge overlays the non-zero fields of over onto c.
func (c Config) Merge(over Config) Config {
	setS := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setI := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	setS(&c.Addr, over.Addr)
	setS(&c.ModelsDir, over.ModelsDir)
	setS(&c.OutputsDir, over.OutputsDir)
	setS(&c.DefaultModel, over.DefaultModel)
	setS(&c.Device, over.Device)
	setI(&c.JobRetentionMinutes, over.JobRetentionMinutes)
	setI(&c.CleanupIntervalSeconds, over.CleanupIntervalSeconds)
	setI(&c.DedupWindowSeconds, over.DedupWindowSeconds)
	setI(&c.MaxConcurrent, over.MaxConcurrent)
	if over.EncryptionEnabled {
		c.EncryptionEnabled = true
	}
	setS(&c.EncryptionSecret, over.EncryptionSecret)
	setS(&c.Backend, over.Backend)
	setS(&c.BackendURL, over.BackendURL)
	setI(&c.StepDelayMS, over.StepDelayMS)
	setI(&c.LoadTimeoutSeconds, over.LoadTimeoutSeconds)
	setS(&c.DedupBackend, over.DedupBackend)
	setS(&c.RedisURL, over.RedisURL)
	setS(&c.LogLevel, over.LogLevel)
	setS(&c.LogFormat, over.LogFormat)
	setS(&c.LogFile, over.LogFile)
	setS(&c.HTTPLogLevel, over.HTTPLogLevel)
	if over.MaxBodyBytes != 0 {
		c.MaxBodyBytes = over.MaxBodyBytes
	}
	if over.CORSEnabled {
		c.CORSEnabled = true
	}
	if len(over.CORSOrigins) > 0 {
		c.CORSOrigins = append([]string(nil), over.CORSOrigins...)
	}
	return c
}

// Retention is how long jobs stay queryable.
func (c Config) Retention() time.Duration {
	return time.Duration(c.JobRetentionMinutes) * time.Minute
}

// SweepInterval is the period of the retention sweeper.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSeconds) * time.Second
}

// DedupWindow is how long identical requests map to the same job.
func (c Config) DedupWindow() time.Duration {
	return time.Duration(c.DedupWindowSeconds) * time.Second
}

// StepDelay is the synthetic backend per-step delay.
func (c Config) StepDelay() time.Duration {
	return time.Duration(c.StepDelayMS) * time.Millisecond
}

// LoadTimeout bounds a /load-model request.
func (c Config) LoadTimeout() time.Duration {
	return time.Duration(c.LoadTimeoutSeconds) * time.Second
}
