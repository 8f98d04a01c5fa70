package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evenodd-league/tournament/internal/config"
	"github.com/evenodd-league/tournament/internal/protocol"
)

func defaultScoring() config.ScoringPolicy {
	return config.ScoringPolicy{Win: 3, Draw: 1, Loss: 0}
}

func TestStandings_ApplyWinLoss(t *testing.T) {
	s := NewStandings(defaultScoring())
	s.Init([]string{"p1", "p2"})

	s.Apply("p1", "p2", "p1", false)

	snap := s.Snapshot()
	require.Len(t, snap.Rows, 2)

	byID := rowsByID(snap)
	assert.Equal(t, 1, byID["p1"].Wins)
	assert.Equal(t, 0, byID["p1"].Losses)
	assert.Equal(t, 3, byID["p1"].Points)
	assert.Equal(t, 1, byID["p2"].Losses)
	assert.Equal(t, 0, byID["p2"].Points)
	assert.Equal(t, 1, byID["p1"].Played)
	assert.Equal(t, 1, byID["p2"].Played)
}

func TestStandings_ApplyDoubleAbort_OnlyPlayedIncrements(t *testing.T) {
	s := NewStandings(defaultScoring())
	s.Init([]string{"p1", "p2"})

	s.Apply("p1", "p2", "", false)

	byID := rowsByID(s.Snapshot())
	assert.Equal(t, 1, byID["p1"].Played)
	assert.Equal(t, 1, byID["p2"].Played)
	assert.Equal(t, 0, byID["p1"].Draws)
	assert.Equal(t, 0, byID["p2"].Draws)
	assert.Equal(t, 0, byID["p1"].Wins)
	assert.Equal(t, 0, byID["p1"].Losses)
	assert.Equal(t, 0, byID["p1"].Points)
	assert.Equal(t, 0, byID["p2"].Points)
}

func TestStandings_ApplyDraw_AwardsDrawPointsToBoth(t *testing.T) {
	s := NewStandings(defaultScoring())
	s.Init([]string{"p1", "p2"})

	s.Apply("p1", "p2", "", true)

	byID := rowsByID(s.Snapshot())
	assert.Equal(t, 1, byID["p1"].Draws)
	assert.Equal(t, 1, byID["p2"].Draws)
	assert.Equal(t, 1, byID["p1"].Points)
	assert.Equal(t, 1, byID["p2"].Points)
}

func TestStandings_SnapshotSortedByPointsThenID(t *testing.T) {
	s := NewStandings(defaultScoring())
	s.Init([]string{"a", "b", "c"})

	s.Apply("a", "b", "a", false) // a: 3pts
	s.Apply("c", "b", "c", false) // c: 3pts, b: 0pts twice

	snap := s.Snapshot()
	require.Len(t, snap.Rows, 3)
	// a and c tied at 3 points with no head-to-head between them: player_id ascending.
	assert.Equal(t, "a", snap.Rows[0].PlayerID)
	assert.Equal(t, "c", snap.Rows[1].PlayerID)
	assert.Equal(t, "b", snap.Rows[2].PlayerID)
}

func TestStandings_TwoWayTieBrokenByHeadToHead(t *testing.T) {
	s := NewStandings(defaultScoring())
	s.Init([]string{"a", "b", "c"})

	// b beats a directly (head-to-head edge between the two tied players).
	s.Apply("b", "a", "b", false)
	// a beats c to land at the same point total as b.
	s.Apply("a", "c", "a", false)

	snap := s.Snapshot()
	byID := rowsByID(snap)
	assert.Equal(t, 3, byID["a"].Points)
	assert.Equal(t, 3, byID["b"].Points)
	assert.Equal(t, 0, byID["c"].Points)
	// ID order alone would put a first; head-to-head puts b first.
	assert.Equal(t, "b", snap.Rows[0].PlayerID)
	assert.Equal(t, "a", snap.Rows[1].PlayerID)
}

func TestStandings_ConcurrentApplyIsRace_Free(t *testing.T) {
	s := NewStandings(defaultScoring())
	s.Init([]string{"a", "b"})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Apply("a", "b", "a", false)
		}
		close(done)
	}()
	for i := 0; i < 100; i++ {
		_ = s.Snapshot()
	}
	<-done

	byID := rowsByID(s.Snapshot())
	assert.Equal(t, 100, byID["a"].Wins)
}

func rowsByID(s protocol.Standings) map[string]*protocol.StandingRow {
	out := make(map[string]*protocol.StandingRow, len(s.Rows))
	for i := range s.Rows {
		out[s.Rows[i].PlayerID] = &s.Rows[i]
	}
	return out
}
