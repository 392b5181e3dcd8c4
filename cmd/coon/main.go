// Package main implements the coon CLI: compress Flutter widget source
// into COON notation, expand it back, and serve both over HTTP and MCP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/coon/internal/config"
	"github.com/fyrsmithlabs/coon/internal/logging"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// cli holds global flags and the application built from them.
type cli struct {
	configPath   string
	envFile      string
	logLevel     string
	registryPath string
	strategy     string

	app *app
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "coon",
		Short: "Compress Flutter widget source for LLM prompts",
		Long: `coon rewrites Dart/Flutter widget code into COON, a compact notation that
uses fewer tokens, and expands COON back into Dart.

Configuration is read from ~/.config/coon/config.yaml (or --config),
then COON_* environment variables, then flags. A .env file in the
working directory is loaded first when present.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return c.teardown(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default ~/.config/coon/config.yaml)")
	pf.StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before configuration")
	pf.StringVar(&c.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	pf.StringVar(&c.registryPath, "registry", "", "component registry file (JSON or TOML)")
	pf.StringVarP(&c.strategy, "strategy", "s", "", "compression strategy (default from config)")

	root.AddCommand(
		c.compressCmd(),
		c.decompressCmd(),
		c.analyzeCmd(),
		c.validateCmd(),
		c.roundtripCmd(),
		c.registryCmd(),
		c.benchCmd(),
		c.selftestCmd(),
		c.serveCmd(),
		c.mcpCmd(),
		versionCmd(),
	)
	return root
}

// setup loads .env, configuration and flag overrides, then builds the app.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if err := loadEnvFile(c.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	if c.registryPath != "" {
		cfg.Registry.Path = c.registryPath
	}
	if c.strategy != "" {
		cfg.Compression.DefaultStrategy = c.strategy
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	c.app = a

	ctx := logging.WithRequestID(cmd.Context(), uuid.NewString())
	ctx = logging.WithLogger(ctx, a.logger)
	cmd.SetContext(ctx)
	return nil
}

func (c *cli) teardown(ctx context.Context) error {
	if c.app == nil {
		return nil
	}
	return c.app.Close(context.WithoutCancel(ctx))
}

// loadEnvFile loads path into the environment without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		// No config or services are needed to print the version.
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "coon by Fyrsmith Labs\n")
	fmt.Fprintf(w, "Version:    %s\n", version)
	fmt.Fprintf(w, "Commit:     %s\n", gitCommit)
	fmt.Fprintf(w, "Build Date: %s\n", buildDate)
}
