package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"imaged/internal/config"
)

type rootFlags struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	rf := &rootFlags{}
	root := &cobra.Command{
		Use:           "imaged",
		Short:         "Asynchronous image generation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&rf.configPath, "config", "", "Config file (.yaml, .json or .toml)")
	root.PersistentFlags().StringVar(&rf.envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")

	root.AddCommand(newServeCmd(rf), newConfigCmd(rf))
	return root
}

func newServeCmd(rf *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(rf, cmd.Flags())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	addServeFlags(cmd.Flags())
	return cmd
}

func newConfigCmd(rf *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration and validate it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(rf, cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.EncryptionSecret != "" {
				cfg.EncryptionSecret = "********"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", cfg)
			return nil
		},
	}
	addServeFlags(cmd.Flags())
	return cmd
}

func addServeFlags(fs *pflag.FlagSet) {
	d := config.Defaults()
	fs.String("addr", d.Addr, "HTTP listen address, e.g. :8000")
	fs.String("models-dir", d.ModelsDir, "Directory scanned for checkpoints and bundles")
	fs.String("outputs-dir", d.OutputsDir, "Directory generated images are written to")
	fs.String("default-model", "", "Model used when a request names none")
	fs.String("device", d.Device, "Device reported by the synthetic backend")
	fs.String("backend", d.Backend, "Backend kind: synthetic|http")
	fs.String("backend-url", "", "Base URL of the remote worker for the http backend")
	fs.String("dedup", d.DedupBackend, "Dedup store: memory|redis")
	fs.String("redis-url", "", "Redis URL for the redis dedup store")
	fs.String("log-level", d.LogLevel, "Log level: debug|info|warn|error")
	fs.String("log-format", d.LogFormat, "Log format: json|console")
	fs.String("log-file", "", "Also write logs to this file with rotation")
	fs.Int("max-concurrent", d.MaxConcurrent, "Generations running on the backend at once")
	fs.Int("step-delay-ms", 0, "Per-step delay of the synthetic backend")
	fs.Int("load-timeout-seconds", d.LoadTimeoutSeconds, "How long a /load-model request waits (0 waits indefinitely)")
	fs.String("cors-origins", "", "Comma-separated CORS origins; enables CORS when set")
}

// resolveConfig layers defaults, the config file, .env, the environment and
// explicitly set flags, then validates the result.
func resolveConfig(rf *rootFlags, fs *pflag.FlagSet) (config.Config, error) {
	cfg := config.Defaults()
	if rf.configPath != "" {
		fileCfg, err := config.Load(rf.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = cfg.Merge(fileCfg)
	}
	if err := config.LoadDotEnv(rf.envFile); err != nil {
		return cfg, err
	}
	cfg, err := config.FromEnv(cfg)
	if err != nil {
		return cfg, err
	}
	applyFlags(&cfg, fs)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config, fs *pflag.FlagSet) {
	str := func(name string, dst *string) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	num := func(name string, dst *int) {
		if fs.Changed(name) {
			if n, err := fs.GetInt(name); err == nil {
				*dst = n
			}
		}
	}
	str("addr", &cfg.Addr)
	str("models-dir", &cfg.ModelsDir)
	str("outputs-dir", &cfg.OutputsDir)
	str("default-model", &cfg.DefaultModel)
	str("device", &cfg.Device)
	str("backend", &cfg.Backend)
	str("backend-url", &cfg.BackendURL)
	str("dedup", &cfg.DedupBackend)
	str("redis-url", &cfg.RedisURL)
	str("log-level", &cfg.LogLevel)
	str("log-format", &cfg.LogFormat)
	str("log-file", &cfg.LogFile)
	num("max-concurrent", &cfg.MaxConcurrent)
	num("step-delay-ms", &cfg.StepDelayMS)
	num("load-timeout-seconds", &cfg.LoadTimeoutSeconds)
	if fs.Changed("cors-origins") {
		v, _ := fs.GetString("cors-origins")
		cfg.CORSOrigins = config.SplitCSV(v)
		cfg.CORSEnabled = len(cfg.CORSOrigins) > 0
	}
}
