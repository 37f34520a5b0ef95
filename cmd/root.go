// File: cmd/root.go

// Package cmd wires the raccoon CLI: configuration loading, logger
// initialization, and the recon subcommand that runs the agent loop.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/raccoon-cli/internal/config"
	"github.com/xkilldash9x/raccoon-cli/internal/observability"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "raccoon",
	Short: "Raccoon is an LLM-driven web reconnaissance agent.",
	Long: `Raccoon runs a bounded agent loop against a target web application:
an LLM proposes structured HTTP requests, raccoon executes them, and the
observed traffic is fed back into the next prompt so the agent can refine
its exploration.`,
	// Version is set at build time. See cmd/version.go.
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(); err != nil {
			return err
		}

		var cfg config.Config
		if err := viper.Unmarshal(&cfg); err != nil {
			// Fall back to a usable logger so the error itself gets reported.
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "raccoon"})
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logger.Level = level
		}
		observability.InitializeLogger(cfg.Logger)

		observability.GetLogger().Debug("Starting raccoon", zap.String("version", Version))
		return nil
	},
}

// Execute runs the root command under a signal-aware context. SIGINT and
// SIGTERM cancel the run at its next suspension point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	observability.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./raccoon.yaml, then $HOME/.raccoon/raccoon.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// initializeConfig reads defaults, the config file, and RACCOON_* environment
// variables into viper.
func initializeConfig() error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".raccoon"))
		}
		viper.SetConfigName("raccoon")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("RACCOON")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars apply.
	}
	return nil
}
