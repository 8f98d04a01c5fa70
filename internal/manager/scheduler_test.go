package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSchedule_EveryPairExactlyOnce(t *testing.T) {
	players := []string{"p1", "p2", "p3", "p4"}
	referees := []string{"r1", "r2"}

	sched, err := BuildSchedule(players, referees, nil)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, round := range sched.Rounds {
		for _, m := range round.Matches {
			key := pairKey(m.PlayerA, m.PlayerB)
			seen[key]++
		}
	}

	assert.Len(t, seen, 6) // C(4,2)
	for pair, count := range seen {
		assert.Equalf(t, 1, count, "pair %s scheduled %d times, want exactly 1", pair, count)
	}
}

func TestBuildSchedule_NoPlayerTwiceInARound(t *testing.T) {
	players := []string{"p1", "p2", "p3", "p4", "p5"}
	referees := []string{"r1"}

	sched, err := BuildSchedule(players, referees, nil)
	require.NoError(t, err)

	for _, round := range sched.Rounds {
		appearances := make(map[string]int)
		for _, m := range round.Matches {
			appearances[m.PlayerA]++
			appearances[m.PlayerB]++
		}
		for player, count := range appearances {
			assert.LessOrEqualf(t, count, 1, "player %s appears %d times in round %s", player, count, round.RoundID)
		}
	}
}

func TestBuildSchedule_MatchIDsUnique(t *testing.T) {
	players := []string{"p1", "p2", "p3", "p4", "p5", "p6"}
	referees := []string{"r1", "r2"}

	sched, err := BuildSchedule(players, referees, nil)
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, round := range sched.Rounds {
		for _, m := range round.Matches {
			assert.False(t, ids[m.MatchID], "duplicate match_id %s", m.MatchID)
			ids[m.MatchID] = true
			assert.NotEmpty(t, m.Referee)
		}
	}
}

func TestBuildSchedule_RejectsTooFewPlayers(t *testing.T) {
	_, err := BuildSchedule([]string{"p1"}, []string{"r1"}, nil)
	assert.Error(t, err)
}

func TestBuildSchedule_RejectsNoReferees(t *testing.T) {
	_, err := BuildSchedule([]string{"p1", "p2"}, nil, nil)
	assert.Error(t, err)
}

func TestBuildSchedule_MaxConcurrentPerRoundHonored(t *testing.T) {
	players := []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"}
	referees := []string{"r1", "r2", "r3", "r4"}
	caps := map[string]int{"r1": 1, "r2": 1, "r3": 1, "r4": 1}

	sched, err := BuildSchedule(players, referees, caps)
	require.NoError(t, err)

	for _, round := range sched.Rounds {
		refCount := make(map[string]int)
		for _, m := range round.Matches {
			refCount[m.Referee]++
		}
		for ref, count := range refCount {
			assert.LessOrEqualf(t, count, 1, "referee %s assigned %d matches in round %s, max is 1", ref, count, round.RoundID)
		}
	}
}

func TestBuildSchedule_UnregisteredCapIsUnlimited(t *testing.T) {
	players := []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"}
	referees := []string{"r1", "r2"}
	caps := map[string]int{"r1": 1} // r2 has no registered cap

	sched, err := BuildSchedule(players, referees, caps)
	require.NoError(t, err)

	r2Assignments := 0
	for _, round := range sched.Rounds {
		for _, m := range round.Matches {
			if m.Referee == "r2" {
				r2Assignments++
			}
		}
	}
	assert.Greater(t, r2Assignments, 1, "referee with no registered cap must not be limited to 1 per round")
}

func pairKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}
