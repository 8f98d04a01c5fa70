package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evenodd-league/tournament/internal/protocol"
)

func TestRandom_AlwaysValidChoice(t *testing.T) {
	r := Random{}
	for i := 0; i < 200; i++ {
		c, err := r.Choose(History{})
		require.NoError(t, err)
		assert.True(t, c.Valid())
	}
}

func TestAdaptive_FallsBackBelowMinSamples(t *testing.T) {
	a := NewAdaptive(10, 0.05)
	history := History{OpponentChoices: []protocol.Parity{protocol.ParityEven, protocol.ParityEven}}

	for i := 0; i < 50; i++ {
		c, err := a.Choose(history)
		require.NoError(t, err)
		assert.True(t, c.Valid())
	}
}

func TestAdaptive_DetectsStrongBiasAndExploitsMinority(t *testing.T) {
	a := NewAdaptive(5, 0.05)
	choices := make([]protocol.Parity, 0, 20)
	for i := 0; i < 18; i++ {
		choices = append(choices, protocol.ParityEven)
	}
	for i := 0; i < 2; i++ {
		choices = append(choices, protocol.ParityOdd)
	}
	history := History{OpponentChoices: choices}

	c, err := a.Choose(history)
	require.NoError(t, err)
	assert.Equal(t, protocol.ParityOdd, c)
}

func TestAdaptive_NoSignificantBiasFallsBackToRandom(t *testing.T) {
	a := NewAdaptive(5, 0.05)
	choices := []protocol.Parity{
		protocol.ParityEven, protocol.ParityOdd, protocol.ParityEven, protocol.ParityOdd,
		protocol.ParityEven, protocol.ParityOdd,
	}
	history := History{OpponentChoices: choices}

	for i := 0; i < 50; i++ {
		c, err := a.Choose(history)
		require.NoError(t, err)
		assert.True(t, c.Valid())
	}
}

func TestParityOf(t *testing.T) {
	assert.Equal(t, protocol.ParityEven, protocol.ParityOf(2))
	assert.Equal(t, protocol.ParityOdd, protocol.ParityOf(3))
	assert.Equal(t, protocol.ParityEven, protocol.ParityOf(10))
	assert.Equal(t, protocol.ParityOdd, protocol.ParityOf(1))
}
