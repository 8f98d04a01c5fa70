package referee

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evenodd-league/tournament/internal/protocol"
)

func newTestRequest() protocol.AssignMatchRequest {
	return protocol.AssignMatchRequest{
		MatchID: "R1M1",
		PlayerA: protocol.RefereeGrant{PlayerID: "p1", Endpoint: "http://localhost:9001", Token: "tok_p1"},
		PlayerB: protocol.RefereeGrant{PlayerID: "p2", Endpoint: "http://localhost:9002", Token: "tok_p2"},
	}
}

func TestNewMatch_StartsIdle(t *testing.T) {
	m := newMatch(&Referee{}, newTestRequest())
	assert.Equal(t, protocol.GameIdle, m.state)
}

func TestMatch_Transition_FollowsStateMachine(t *testing.T) {
	m := newMatch(&Referee{}, newTestRequest())

	require.NoError(t, m.transition(protocol.GameWaitingForPlayers))
	require.NoError(t, m.transition(protocol.GameCollectingChoices))
	require.NoError(t, m.transition(protocol.GameDrawingNumber))
	require.NoError(t, m.transition(protocol.GameEvaluating))
	require.NoError(t, m.transition(protocol.GameFinished))
}

func TestMatch_Transition_RejectsIllegalJump(t *testing.T) {
	m := newMatch(&Referee{}, newTestRequest())
	err := m.transition(protocol.GameFinished)
	assert.Error(t, err)
	assert.Equal(t, protocol.GameIdle, m.state, "state must not change on a rejected transition")
}

func TestMatch_Evaluate_WinnerIsWhoeverMatchesDrawnParity(t *testing.T) {
	m := newMatch(&Referee{}, newTestRequest())

	choices := map[string]protocol.Parity{"p1": protocol.ParityEven, "p2": protocol.ParityOdd}
	assert.Equal(t, "p1", m.evaluate(choices, protocol.ParityEven))
	assert.Equal(t, "p2", m.evaluate(choices, protocol.ParityOdd))
}

func TestMatch_DrawNumber_InRange(t *testing.T) {
	m := newMatch(&Referee{}, newTestRequest())
	for i := 0; i < 100; i++ {
		n, err := m.drawNumber()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 10)
	}
}
