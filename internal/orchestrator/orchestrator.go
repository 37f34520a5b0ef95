// File: internal/orchestrator/orchestrator.go

// Package orchestrator drives the agent loop: for a bounded number of rounds
// it renders the session into a prompt, obtains a completion from the
// generation service, parses the completion into actions, and executes them.
package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/raccoon-cli/api/schemas"
	"github.com/xkilldash9x/raccoon-cli/internal/protocol"
	"github.com/xkilldash9x/raccoon-cli/internal/session"
)

// SystemPrompt sets the model's persona for every generation call.
const SystemPrompt = `
You are a persistent application reconnaissance agent. Your job is to explore a modern JavaScript web app by issuing HTTP requests that simulate user behavior. Look for forms, authentication, API endpoints, and any signs of sensitive logic. Maximize surface discovery.
`

// Config bounds one run of the loop.
type Config struct {
	// Iterations is the total number of rounds. The loop performs exactly
	// this many, regardless of how many actions each round yields.
	Iterations int
	// Options are the generation parameters passed to every completion call.
	Options schemas.GenerationOptions
}

// Orchestrator owns the single control flow of a run. The session state and
// the generation client are mutated and called only from here; no other
// goroutine touches them.
type Orchestrator struct {
	cfg    Config
	llm    schemas.LLMClient
	state  *session.State
	logger *zap.Logger
}

// New wires the loop to its collaborators.
func New(cfg Config, llm schemas.LLMClient, state *session.State, logger *zap.Logger) (*Orchestrator, error) {
	if llm == nil || state == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	if cfg.Iterations <= 0 {
		return nil, fmt.Errorf("iterations must be positive, got %d", cfg.Iterations)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:    cfg,
		llm:    llm,
		state:  state,
		logger: logger.Named("orchestrator"),
	}, nil
}

// Run executes the bounded loop. Each round builds the prompt from current
// state, obtains one completion, parses it into zero or more actions (the
// per-round cap is applied by the session), and executes them. A round that
// parses to zero actions still counts; the loop always advances.
//
// A generation failure, after the client's own retries, aborts the run.
// Context cancellation stops the loop at the next suspension point.
func (o *Orchestrator) Run(ctx context.Context) error {
	for i := 0; i < o.cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		o.logger.Info(fmt.Sprintf("Iteration %d/%d", i+1, o.cfg.Iterations))

		completion, err := o.llm.Generate(ctx, schemas.GenerationRequest{
			SystemPrompt: SystemPrompt,
			UserPrompt:   o.state.GetPrompt(),
			Options:      o.cfg.Options,
		})
		if err != nil {
			return fmt.Errorf("generation failed on iteration %d: %w", i+1, err)
		}

		requests := protocol.ParseMany(completion)
		o.state.QueueRequests(requests)

		if err := o.state.Step(ctx); err != nil {
			return err
		}
	}

	o.logger.Info("Agent loop finished",
		zap.Int("iterations", o.cfg.Iterations),
		zap.Int("traffic_entries", len(o.state.Traffic())),
	)
	return nil
}
