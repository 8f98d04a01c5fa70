package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/config"
	"github.com/evenodd-league/tournament/internal/protocol"
)

func TestErrorRecoveryManager_ManagerCrashedPausesTournament(t *testing.T) {
	m := NewErrorRecoveryManager(config.Default(), zap.NewNop(), nil, nil, nil)

	paused := false
	m.OnPause(func() { paused = true })

	m.Handle(context.Background(), RecoveryEvent{Kind: ErrorKindManagerCrashed})
	assert.True(t, paused)
}

func TestErrorRecoveryManager_UnknownKindIsANoOp(t *testing.T) {
	m := NewErrorRecoveryManager(config.Default(), zap.NewNop(), nil, nil, nil)
	assert.NotPanics(t, func() {
		m.Handle(context.Background(), RecoveryEvent{Kind: ErrorKind("BOGUS")})
	})
}

func TestErrorRecoveryManager_SetHandlerOverridesDefault(t *testing.T) {
	m := NewErrorRecoveryManager(config.Default(), zap.NewNop(), nil, nil, nil)

	called := false
	m.SetHandler(ErrorKindAgentCrashed, func(ctx context.Context, ev RecoveryEvent) {
		called = true
	})

	m.Handle(context.Background(), RecoveryEvent{Kind: ErrorKindAgentCrashed, AgentID: "referee-1", Role: protocol.RoleReferee})
	assert.True(t, called)
}
