// File: cmd/recon.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/raccoon-cli/api/schemas"
	"github.com/xkilldash9x/raccoon-cli/internal/config"
	"github.com/xkilldash9x/raccoon-cli/internal/llmclient"
	"github.com/xkilldash9x/raccoon-cli/internal/network"
	"github.com/xkilldash9x/raccoon-cli/internal/observability"
	"github.com/xkilldash9x/raccoon-cli/internal/orchestrator"
	"github.com/xkilldash9x/raccoon-cli/internal/reporting"
	"github.com/xkilldash9x/raccoon-cli/internal/session"
)

func init() {
	rootCmd.AddCommand(newReconCmd())
}

// newReconCmd creates and configures the `recon` command.
func newReconCmd() *cobra.Command {
	reconCmd := &cobra.Command{
		Use:   "recon",
		Short: "Runs the bounded agent loop against the configured target",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their viper keys so command-line values override
			// the config file and environment with the right precedence.
			bindings := map[string]string{
				"recon.goal":        "goal",
				"llm.generator_id":  "generator-id",
				"recon.base_url":    "base-url",
				"recon.iterations":  "iterations",
				"recon.max_actions": "max-actions",
				"recon.parallel":    "parallel",
				"recon.output":      "output",
				"network.proxy":     "proxy",
			}
			for key, flag := range bindings {
				if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Context from Execute; cancels on SIGINT/SIGTERM.
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			runID := uuid.New().String()
			logger.Info("Starting recon run",
				zap.String("run_id", runID),
				zap.String("target", cfg.Recon.BaseURL),
				zap.String("goal", cfg.Recon.Goal),
				zap.Int("iterations", cfg.Recon.Iterations),
				zap.Int("max_actions", cfg.Recon.MaxActions),
			)

			components, err := initializeReconComponents(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize recon components: %w", err)
			}
			defer components.Shutdown()

			if err := components.Orchestrator.Run(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Recon run aborted", zap.String("run_id", runID))
					return fmt.Errorf("recon aborted by user signal")
				}
				logger.Error("Recon run failed", zap.Error(err), zap.String("run_id", runID))
				return err
			}

			traffic := components.State.Traffic()
			logger.Info("Recon run complete",
				zap.String("run_id", runID),
				zap.Int("traffic_entries", len(traffic)),
			)

			if cfg.Recon.Output != "" {
				if err := writeTrafficReport(cfg.Recon.Output, runID, traffic, logger); err != nil {
					return err
				}
			}

			return nil
		},
	}

	reconCmd.Flags().String("goal", "Explore all endpoints in the app.", "Initial goal pushed onto the goal stack")
	reconCmd.Flags().String("generator-id", "ollama/llama3.1,api_base=http://localhost:11434", "LLM backend selector (provider/model[,key=value...])")
	reconCmd.Flags().String("base-url", "http://localhost:3000", "Target base URL request paths resolve against")
	reconCmd.Flags().Int("iterations", 20, "Total agent-loop rounds")
	reconCmd.Flags().Int("max-actions", 2, "Cap on actions executed per round")
	reconCmd.Flags().Bool("parallel", false, "Run each round's actions concurrently (traffic lands in completion order)")
	reconCmd.Flags().String("proxy", "", "Outbound HTTP proxy URL")
	reconCmd.Flags().StringP("output", "o", "", "JSONL traffic export path. If unset, no report is written.")

	return reconCmd
}

// reconComponents holds the initialized services for one run.
type reconComponents struct {
	LLM          schemas.LLMClient
	State        *session.State
	Orchestrator *orchestrator.Orchestrator
}

// Shutdown releases held resources.
func (rc *reconComponents) Shutdown() {
	if rc.LLM != nil {
		if err := rc.LLM.Close(); err != nil {
			observability.GetLogger().Warn("Error closing LLM client", zap.Error(err))
		}
	}
}

// initializeReconComponents handles dependency injection for the loop.
func initializeReconComponents(cfg *config.Config, logger *zap.Logger) (*reconComponents, error) {
	// 1. Generation backend
	llm, err := llmclient.NewClient(cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	// 2. HTTP client and executor
	clientCfg := network.NewDefaultClientConfig()
	clientCfg.RequestTimeout = cfg.Network.RequestTimeout
	clientCfg.IgnoreTLSErrors = cfg.Network.IgnoreTLSErrors
	clientCfg.ForceHTTP2 = cfg.Network.ForceHTTP2
	clientCfg.MaxIdleConns = cfg.Network.MaxIdleConns
	if cfg.Network.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Network.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		clientCfg.ProxyURL = proxyURL
	}

	executor, err := network.NewExecutor(network.ExecutorConfig{
		BaseURL:           cfg.Recon.BaseURL,
		RequestsPerSecond: cfg.Network.RequestsPerSecond,
		Headers:           cfg.Network.Headers,
	}, network.NewClient(clientCfg), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP executor: %w", err)
	}

	// 3. Session state
	state := session.NewState(executor, cfg.Recon.MaxActions, cfg.Recon.Parallel, logger)
	state.PushGoal(cfg.Recon.Goal)

	// 4. Agent loop
	orch, err := orchestrator.New(orchestrator.Config{
		Iterations: cfg.Recon.Iterations,
		Options: schemas.GenerationOptions{
			Temperature: cfg.LLM.Temperature,
			TopP:        cfg.LLM.TopP,
			TopK:        cfg.LLM.TopK,
			MaxTokens:   cfg.LLM.MaxTokens,
		},
	}, llm, state, logger)
	if err != nil {
		llm.Close()
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	return &reconComponents{
		LLM:          llm,
		State:        state,
		Orchestrator: orch,
	}, nil
}

// writeTrafficReport exports the traffic log after the loop has completed.
func writeTrafficReport(outputPath, runID string, traffic []session.TrafficEntry, logger *zap.Logger) error {
	reporter, err := reporting.New(outputPath)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	defer func() {
		if err := reporter.Close(); err != nil {
			logger.Error("Failed to close reporter", zap.Error(err))
		}
	}()

	if err := reporter.WriteTraffic(runID, traffic); err != nil {
		return fmt.Errorf("failed to write traffic report: %w", err)
	}

	logger.Info("Traffic report written", zap.String("path", outputPath), zap.Int("records", len(traffic)))
	return nil
}
