// File: internal/session/actions_test.go
package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/raccoon-cli/internal/session"
)

func TestRequestActionReturnsRenderedResponse(t *testing.T) {
	exec := &fakeExecutor{status: 404}
	state := session.NewState(exec, 2, false, zap.NewNop())

	action := session.NewRequestAction(get("/missing"), exec, zap.NewNop())
	result, err := action.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Contains(t, result, `<response status-code="404">`)
	assert.Contains(t, result, "<body>ok</body>")
	require.Len(t, state.Traffic(), 1)
}

func TestRequestActionPropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The executor reports the context error; the action must not record a
	// synthetic response for a run that was cancelled.
	exec := &fakeExecutor{err: errors.New("context canceled")}
	state := session.NewState(exec, 2, false, zap.NewNop())

	action := session.NewRequestAction(get("/x"), exec, zap.NewNop())
	_, err := action.Run(ctx, state)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, state.Traffic())
}
