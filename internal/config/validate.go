package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate rejects values the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.JobRetentionMinutes <= 0 {
		errs = append(errs, fmt.Errorf("job_retention_minutes must be positive, got %d", c.JobRetentionMinutes))
	}
	if c.CleanupIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("cleanup_interval_seconds must be positive, got %d", c.CleanupIntervalSeconds))
	}
	if c.DedupWindowSeconds <= 0 {
		errs = append(errs, fmt.Errorf("dedup_window_seconds must be positive, got %d", c.DedupWindowSeconds))
	}
	if c.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("max_concurrent must be positive, got %d", c.MaxConcurrent))
	}
	if c.LoadTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("load_timeout_seconds must not be negative, got %d", c.LoadTimeoutSeconds))
	}
	if c.EncryptionEnabled && strings.TrimSpace(c.EncryptionSecret) == "" {
		errs = append(errs, errors.New("inference_encryption_secret is required when encryption is enabled"))
	}
	switch c.Backend {
	case BackendSynthetic:
	case BackendHTTP:
		if c.BackendURL == "" {
			errs = append(errs, errors.New("backend_url is required for the http backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	switch c.DedupBackend {
	case DedupMemory:
	case DedupRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("redis_url is required for the redis dedup store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown dedup backend %q", c.DedupBackend))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}
