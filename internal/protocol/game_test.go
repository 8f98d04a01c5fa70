package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParity_Valid(t *testing.T) {
	assert.True(t, ParityEven.Valid())
	assert.True(t, ParityOdd.Valid())
	assert.False(t, Parity("maybe").Valid())
}

func TestCanTransition_GameStateMachine(t *testing.T) {
	assert.True(t, CanTransition(GameIdle, GameWaitingForPlayers))
	assert.True(t, CanTransition(GameWaitingForPlayers, GameCollectingChoices))
	assert.True(t, CanTransition(GameCollectingChoices, GameDrawingNumber))
	assert.True(t, CanTransition(GameCollectingChoices, GameFinished)) // technical win skips the draw
	assert.True(t, CanTransition(GameDrawingNumber, GameEvaluating))
	assert.True(t, CanTransition(GameEvaluating, GameFinished))

	assert.False(t, CanTransition(GameIdle, GameFinished))
	assert.False(t, CanTransition(GameFinished, GameIdle))
	assert.False(t, CanTransition(GameDrawingNumber, GameCollectingChoices))
}

func TestCanTransitionTournament(t *testing.T) {
	assert.True(t, CanTransitionTournament(TournamentInitializing, TournamentRegistration))
	assert.True(t, CanTransitionTournament(TournamentRoundActive, TournamentRoundActive))
	assert.True(t, CanTransitionTournament(TournamentRoundActive, TournamentCompleted))
	assert.False(t, CanTransitionTournament(TournamentCompleted, TournamentRoundActive))
}
