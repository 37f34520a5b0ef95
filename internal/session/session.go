// File: internal/session/session.go

// Package session holds the mutable state of one recon run: the goal stack,
// the queue of actions for the current round, and the append-only traffic
// log, plus the prompt rendering that turns all of it into text for the
// model.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/raccoon-cli/api/schemas"
	"github.com/xkilldash9x/raccoon-cli/internal/protocol"
)

// defaultGoal guides the model when the goal stack is empty.
const defaultGoal = "Explore the app"

// TrafficEntry is one executed (request, response) pair in the run's ordered
// history.
type TrafficEntry struct {
	Request  *schemas.Request  `json:"request"`
	Response *schemas.Response `json:"response"`
}

// State is the session for a single run. It is created once with an initial
// goal, mutated only by the agent loop, and discarded when the run ends;
// nothing persists across runs.
//
// The orchestrator is the single writer. The mutex exists for the traffic
// append path, which opt-in parallel rounds hit from multiple goroutines.
type State struct {
	executor   Executor
	maxActions int
	parallel   bool
	logger     *zap.Logger

	goals       []string
	nextActions []Action

	mu      sync.Mutex
	traffic []TrafficEntry
}

// NewState creates the session with its per-round action cap. A negative cap
// is treated as zero.
func NewState(executor Executor, maxActions int, parallel bool, logger *zap.Logger) *State {
	if maxActions < 0 {
		maxActions = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &State{
		executor:   executor,
		maxActions: maxActions,
		parallel:   parallel,
		logger:     logger.Named("session"),
	}
}

// PushGoal pushes a goal onto the stack; the most recent goal is active.
func (s *State) PushGoal(goal string) {
	if goal == "" {
		return
	}
	s.goals = append(s.goals, goal)
}

// ActiveGoal returns the top of the goal stack, or the default exploration
// goal when the stack is empty.
func (s *State) ActiveGoal() string {
	if len(s.goals) == 0 {
		return defaultGoal
	}
	return s.goals[len(s.goals)-1]
}

// QueueRequests wraps parsed requests as actions and stores them as the
// current round's queue, truncated to the first maxActions entries. Excess
// proposals are discarded silently; proposing more than the cap is not an
// error.
func (s *State) QueueRequests(requests []*schemas.Request) {
	if len(requests) > s.maxActions {
		s.logger.Debug("Truncating proposed actions to the per-round cap",
			zap.Int("proposed", len(requests)),
			zap.Int("cap", s.maxActions),
		)
		requests = requests[:s.maxActions]
	}

	actions := make([]Action, 0, len(requests))
	for _, req := range requests {
		actions = append(actions, NewRequestAction(req, s.executor, s.logger))
	}
	s.nextActions = actions
}

// SetNextActions replaces the round's queue directly, applying the same cap.
func (s *State) SetNextActions(actions []Action) {
	if len(actions) > s.maxActions {
		actions = actions[:s.maxActions]
	}
	s.nextActions = actions
}

// PendingActions reports how many actions are queued for the current round.
func (s *State) PendingActions() int {
	return len(s.nextActions)
}

// Step runs every queued action and clears the queue. In the default mode
// actions run strictly in queue order, each awaited before the next starts.
// In parallel mode they run concurrently and traffic lands in completion
// order; rounds themselves are still strictly ordered.
//
// The error return is reserved for context cancellation. Individual action
// failures are recorded in traffic, not returned.
func (s *State) Step(ctx context.Context) error {
	s.logger.Info(fmt.Sprintf("Running %d action(s)", len(s.nextActions)))

	actions := s.nextActions
	s.nextActions = nil

	if s.parallel && len(actions) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for _, action := range actions {
			g.Go(func() error {
				_, err := action.Run(gctx, s)
				return err
			})
		}
		return g.Wait()
	}

	for _, action := range actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := action.Run(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// RecordTraffic appends one executed pair to the history. Traffic is
// append-only: entries are never reordered, truncated, or removed, and the
// full history stays visible to prompt construction for the whole run.
func (s *State) RecordTraffic(req *schemas.Request, resp *schemas.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.traffic = append(s.traffic, TrafficEntry{Request: req, Response: resp})
}

// Traffic returns a snapshot copy of the history for reporting.
func (s *State) Traffic() []TrafficEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TrafficEntry, len(s.traffic))
	copy(out, s.traffic)
	return out
}

// GetPrompt renders the entire session into the per-round prompt: the traffic
// summary, the active goal, and the action format instructions with the
// canonical example. This string is everything the generation service sees
// about the run; cross-round memory flows through the traffic section, not
// through chat history.
func (s *State) GetPrompt() string {
	s.mu.Lock()
	lines := make([]string, 0, len(s.traffic))
	for _, entry := range s.traffic {
		lines = append(lines, fmt.Sprintf("%s %s -> %d",
			entry.Request.Method, entry.Request.Path, entry.Response.StatusCode))
	}
	s.mu.Unlock()

	traffic := strings.Join(lines, "\n")
	if traffic == "" {
		traffic = "No traffic yet"
	}

	return fmt.Sprintf(`
# Traffic
%s

# Goal
%s

# Actions
Use the format below to send new HTTP requests.

%s
`, traffic, s.ActiveGoal(), protocol.RenderExample())
}
