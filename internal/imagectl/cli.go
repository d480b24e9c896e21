// Package imagectl implements a command line client for the imaged API.
package imagectl

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"imaged/internal/client"
	"imaged/internal/gateway"
)

// Config holds the persistent flag values shared by all subcommands.
type Config struct {
	Server  string
	Secret  string
	Timeout time.Duration
	LogLvl  string
	NoColor bool
}

// DefaultConfig reads IMAGECTL_* variables with local defaults.
func DefaultConfig() *Config {
	return &Config{
		Server:  envStr("IMAGECTL_SERVER", "http://localhost:8000"),
		Secret:  envStr("IMAGECTL_SECRET", ""),
		Timeout: time.Duration(envInt("IMAGECTL_TIMEOUT_SECONDS", 300)) * time.Second,
		LogLvl:  envStr("IMAGECTL_LOG_LEVEL", "info"),
	}
}

// Main runs the CLI and returns the process exit code.
func Main(args []string) int {
	return run(args, os.Stdout, os.Stderr, DefaultConfig())
}

func run(args []string, out, errOut io.Writer, cfg *Config) int {
	root := buildRootCmd(cfg, out, errOut)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	if err := root.Execute(); err != nil {
		newPrinter(out, errOut, cfg.LogLvl).errl("%v", err)
		return 1
	}
	return 0
}

// session is built per invocation after flags are parsed.
type session struct {
	cfg *Config
	c   *client.Client
	p   *printer
}

func (s *session) context(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.cfg.Timeout)
}

func buildRootCmd(cfg *Config, out, errOut io.Writer) *cobra.Command {
	s := &session{cfg: cfg}
	root := &cobra.Command{
		Use:           "imagectl",
		Short:         "Command line client for the imaged API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.Server, "server", cfg.Server, "Server base URL (defaults IMAGECTL_SERVER)")
	root.PersistentFlags().StringVar(&cfg.Secret, "secret", cfg.Secret, "Shared secret when the server encrypts payloads (defaults IMAGECTL_SECRET)")
	root.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Overall timeout per command")
	root.PersistentFlags().StringVar(&cfg.LogLvl, "log-level", cfg.LogLvl, "Log level: debug|info|warn|error")
	root.PersistentFlags().BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "Disable colored output")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if cfg.NoColor {
			color.NoColor = true
		}
		s.p = newPrinter(out, errOut, cfg.LogLvl)
		var opts []client.Option
		if cfg.Secret != "" {
			opts = append(opts, client.WithCipher(gateway.NewCipher(true, cfg.Secret)))
		}
		s.c = client.New(cfg.Server, opts...)
		s.p.debug("server %s (encrypted=%v)", cfg.Server, cfg.Secret != "")
	}

	root.AddCommand(
		&cobra.Command{Use: "health", Short: "Show service health", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
			return s.fnHealth(cmd.Context())
		}},
		&cobra.Command{Use: "samplers", Short: "List samplers", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
			return s.fnSamplers(cmd.Context())
		}},
		&cobra.Command{Use: "models", Short: "List loaded and available models", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
			return s.fnModels(cmd.Context())
		}},
		&cobra.Command{Use: "status <job-id>", Short: "Show a job's status", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
			return s.fnStatus(cmd.Context(), args[0])
		}},
	)

	var (
		modelType string
		reload    bool
	)
	loadCmd := &cobra.Command{
		Use:     "load-model <path-or-hub-id>",
		Short:   "Load a model and make it current",
		Example: "  imagectl load-model runwayml/stable-diffusion-v1-5\n  imagectl load-model ./models/dream.safetensors --type sd15",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.fnLoadModel(cmd.Context(), args[0], modelType, reload)
		},
	}
	loadCmd.Flags().StringVar(&modelType, "type", "", "Model type hint: sd15|sdxl|safetensors|ckpt|bin|diffusers")
	loadCmd.Flags().BoolVar(&reload, "reload", false, "Reload even if the model is already cached")
	root.AddCommand(loadCmd)

	g := &generateOpts{}
	genCmd := &cobra.Command{
		Use:     "generate <prompt>",
		Short:   "Submit a generation job",
		Example: "  imagectl generate \"a lighthouse at dusk\" --steps 25 --wait --out ./imgs",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g.prompt = args[0]
			g.seedSet = cmd.Flags().Changed("seed")
			return s.fnGenerate(cmd.Context(), g)
		},
	}
	f := genCmd.Flags()
	f.StringVar(&g.negative, "negative", "", "Negative prompt")
	f.IntVar(&g.width, "width", 0, "Width in pixels")
	f.IntVar(&g.height, "height", 0, "Height in pixels")
	f.IntVar(&g.steps, "steps", 0, "Denoising steps")
	f.Float64Var(&g.cfgScale, "cfg", 0, "Guidance scale")
	f.StringVar(&g.sampler, "sampler", "", "Sampler name (see `imagectl samplers`)")
	f.Int64Var(&g.seed, "seed", -1, "Seed; -1 picks one")
	f.IntVar(&g.batch, "batch", 0, "Images per job")
	f.StringVar(&g.model, "model", "", "Model reference")
	f.BoolVar(&g.lcm, "lcm", false, "Use the LCM scheduler")
	f.StringVar(&g.initImage, "init-image", "", "Path to an init image for img2img")
	f.Float64Var(&g.strength, "strength", -1, "img2img strength (0-1)")
	f.BoolVar(&g.wait, "wait", false, "Poll until the job finishes")
	f.DurationVar(&g.poll, "poll", 500*time.Millisecond, "Poll interval with --wait")
	f.StringVar(&g.outDir, "out", "", "With --wait, download images into this directory")
	root.AddCommand(genCmd)

	return root
}
