package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cadenza/internal/catalog"
	"cadenza/internal/config"
	"cadenza/internal/store"
)

var (
	// Global flags
	verbose    bool
	configPath string
	storePath  string

	// Loaded configuration
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cadenza",
	Short: "cadenza - meaning resolution for conversational music editing",
	Long: `cadenza resolves the meaning of natural-language mixing instructions.

It runs three resolution mechanisms over each utterance: ellipsis
expansion ("do that again"), metonymy disambiguation ("the chorus"),
and quantifier scope ranking. Every decision is recorded in a
provenance graph, so any produced meaning can be traced back to the
words, rules, and defaults that caused it.

Resolution is a pure per-turn function: prior goals and antecedents go
in with the request, open clarifications come back out as holes.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		path := configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		if storePath != "" {
			cfg.Store.Path = storePath
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		return initLogger()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// initLogger builds the process logger from config. Logs go to stderr so
// rendered output on stdout stays pipeable.
func initLogger() error {
	zc := zap.NewProductionConfig()

	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(cfg.Logging.Level)); err == nil {
			zc.Level = zap.NewAtomicLevelAt(lvl)
		}
	}
	if cfg.Logging.Format == "text" {
		zc.Encoding = "console"
	}
	if cfg.Logging.File != "" {
		zc.OutputPaths = []string{cfg.Logging.File}
	}

	var err error
	logger, err = zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// openStore opens the audit store at the configured path.
func openStore() (*store.AuditStore, error) {
	return store.NewAuditStore(cfg.Store.Path, logger)
}

// loadRegistry builds the catalog registry with extensions from dir merged
// over the built-ins. An empty or missing dir leaves the built-ins alone.
func loadRegistry(dir string) (*catalog.Registry, error) {
	reg := catalog.NewRegistry()
	if dir == "" {
		return reg, nil
	}
	if err := reg.Reload(dir); err != nil {
		return nil, fmt.Errorf("failed to load catalog extensions: %w", err)
	}
	return reg, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./cadenza.yaml)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Audit store database path (overrides config)")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(auditCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
