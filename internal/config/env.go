package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"imaged/internal/common/fsutil"
)

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" || !fsutil.PathExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FromEnv overlays environment variables on base.
func FromEnv(base Config) (Config, error) {
	return fromLookup(base, os.LookupEnv)
}

func fromLookup(base Config, lookup func(string) (string, bool)) (Config, error) {
	c := base
	var errs []string
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: not an integer: %q", key, v))
			return
		}
		*dst = n
	}
	flag := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: not a boolean: %q", key, v))
			return
		}
		*dst = b
	}

	num("JOB_RETENTION_MINUTES", &c.JobRetentionMinutes)
	num("CLEANUP_INTERVAL_SECONDS", &c.CleanupIntervalSeconds)
	num("DEDUP_WINDOW_SECONDS", &c.DedupWindowSeconds)
	flag("ENABLE_INFERENCE_ENCRYPTION", &c.EncryptionEnabled)
	str("INFERENCE_ENCRYPTION_SECRET", &c.EncryptionSecret)
	str("DEVICE", &c.Device)
	str("MODELS_DIR", &c.ModelsDir)
	str("OUTPUTS_DIR", &c.OutputsDir)
	str("DEFAULT_MODEL", &c.DefaultModel)
	str("IMAGED_ADDR", &c.Addr)
	str("IMAGED_LOG_LEVEL", &c.LogLevel)
	str("IMAGED_LOG_FORMAT", &c.LogFormat)
	str("IMAGED_LOG_FILE", &c.LogFile)
	str("IMAGED_HTTP_LOG_LEVEL", &c.HTTPLogLevel)
	str("IMAGED_BACKEND", &c.Backend)
	str("IMAGED_BACKEND_URL", &c.BackendURL)
	num("IMAGED_STEP_DELAY_MS", &c.StepDelayMS)
	num("IMAGED_LOAD_TIMEOUT_SECONDS", &c.LoadTimeoutSeconds)
	str("IMAGED_DEDUP_BACKEND", &c.DedupBackend)
	str("REDIS_URL", &c.RedisURL)
	num("IMAGED_MAX_CONCURRENT", &c.MaxConcurrent)
	if v, ok := lookup("IMAGED_MAX_BODY_BYTES"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("IMAGED_MAX_BODY_BYTES: not an integer: %q", v))
		} else {
			c.MaxBodyBytes = n
		}
	}
	flag("IMAGED_CORS_ENABLED", &c.CORSEnabled)
	if v, ok := lookup("IMAGED_CORS_ORIGINS"); ok && strings.TrimSpace(v) != "" {
		c.CORSOrigins = SplitCSV(v)
	}

	if len(errs) > 0 {
		return base, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return c, nil
}

// SplitCSV splits a comma-separated list, trimming blanks.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
