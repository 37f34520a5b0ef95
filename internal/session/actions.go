// File: internal/session/actions.go
package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/raccoon-cli/api/schemas"
	"github.com/xkilldash9x/raccoon-cli/internal/protocol"
)

// Executor abstracts request execution so the session never touches the
// transport directly. Implemented by network.Executor.
type Executor interface {
	Execute(ctx context.Context, req *schemas.Request) (*schemas.Response, error)
}

// Action is one executable unit proposed by the agent. The variant set is
// closed: Request is the only current kind, but the interface leaves room for
// future kinds (a wait, a follow-redirect) without disturbing the codec or
// the loop.
type Action interface {
	// Run executes the action against the session, records its outcome, and
	// returns a textual result suitable for feeding back to the model. The
	// error return is reserved for context cancellation; domain failures are
	// recorded in state instead.
	Run(ctx context.Context, state *State) (string, error)
}

// requestAction adapts a parsed request into the Action interface.
type requestAction struct {
	request  *schemas.Request
	executor Executor
	logger   *zap.Logger
}

// NewRequestAction wraps a parsed request for execution through the given
// executor.
func NewRequestAction(req *schemas.Request, executor Executor, logger *zap.Logger) Action {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &requestAction{
		request:  req,
		executor: executor,
		logger:   logger,
	}
}

// Run executes the request, appends the (request, response) pair to traffic,
// and returns the rendered response text.
//
// A transport failure does not abort the round: it is recorded as a synthetic
// response with status code zero carrying the error text, so the model sees a
// "-> 0" traffic line and can route around the dead path instead of the run
// dying on the first refused connection.
func (a *requestAction) Run(ctx context.Context, state *State) (string, error) {
	response, err := a.executor.Execute(ctx, a.request)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		response = &schemas.Response{
			StatusCode: 0,
			Body:       fmt.Sprintf("request failed: %v", err),
		}
		a.logger.Warn("Request action failed",
			zap.String("method", a.request.Method),
			zap.String("path", a.request.Path),
			zap.Error(err),
		)
	} else {
		a.logger.Info(fmt.Sprintf("%s '%s' -> %d", a.request.Method, a.request.Path, response.StatusCode))
	}

	state.RecordTraffic(a.request, response)
	return protocol.RenderResponse(response), nil
}
