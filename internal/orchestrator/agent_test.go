package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tierIDs(tier []AgentSpec) []string {
	out := make([]string, len(tier))
	for i, s := range tier {
		out[i] = s.ID
	}
	return out
}

func TestTopologicalOrder_IndependentAgentsShareATier(t *testing.T) {
	specs := []AgentSpec{
		{ID: "manager"},
		{ID: "referee-1", Dependencies: []string{"manager"}},
		{ID: "referee-2", Dependencies: []string{"manager"}},
	}

	tiers, err := topologicalOrder(specs)
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	assert.Equal(t, []string{"manager"}, tierIDs(tiers[0]))
	assert.ElementsMatch(t, []string{"referee-1", "referee-2"}, tierIDs(tiers[1]))
}

func TestTopologicalOrder_ChainOrdersOneAgentPerTier(t *testing.T) {
	specs := []AgentSpec{
		{ID: "a"},
		{ID: "b", Dependencies: []string{"a"}},
		{ID: "c", Dependencies: []string{"b"}},
	}

	tiers, err := topologicalOrder(specs)
	require.NoError(t, err)
	require.Len(t, tiers, 3)
	assert.Equal(t, []string{"a"}, tierIDs(tiers[0]))
	assert.Equal(t, []string{"b"}, tierIDs(tiers[1]))
	assert.Equal(t, []string{"c"}, tierIDs(tiers[2]))
}

func TestTopologicalOrder_CycleIsAnError(t *testing.T) {
	specs := []AgentSpec{
		{ID: "a", Dependencies: []string{"b"}},
		{ID: "b", Dependencies: []string{"a"}},
	}

	_, err := topologicalOrder(specs)
	assert.Error(t, err)
}

func TestTopologicalOrder_UnknownDependencyIsAnError(t *testing.T) {
	specs := []AgentSpec{
		{ID: "a", Dependencies: []string{"ghost"}},
	}

	_, err := topologicalOrder(specs)
	assert.Error(t, err)
}
