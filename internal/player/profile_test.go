package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evenodd-league/tournament/internal/protocol"
)

func TestOpponentProfile_RecordTracksCounts(t *testing.T) {
	p := OpponentProfile{OpponentID: "p2"}
	p.record(protocol.ParityEven, "20260101T000000Z")
	p.record(protocol.ParityOdd, "20260101T000001Z")
	p.record(protocol.ParityEven, "20260101T000002Z")

	assert.Equal(t, 2, p.NEven)
	assert.Equal(t, 1, p.NOdd)
	assert.Equal(t, []protocol.Parity{protocol.ParityEven, protocol.ParityOdd, protocol.ParityEven}, p.Choices)
	assert.Equal(t, "20260101T000002Z", p.LastUpdated)
}

func TestOpponentProfile_RecordCapsHistory(t *testing.T) {
	p := OpponentProfile{OpponentID: "p2"}
	for i := 0; i < opponentHistoryCapacity+50; i++ {
		p.record(protocol.ParityEven, "t")
	}
	assert.Len(t, p.Choices, opponentHistoryCapacity)
	assert.Equal(t, opponentHistoryCapacity+50, p.NEven)
}

func TestProfileStore_GetUnknownOpponentReturnsEmptyProfile(t *testing.T) {
	s := newProfileStore(10)
	got := s.get("ghost")
	assert.Equal(t, "ghost", got.OpponentID)
	assert.Equal(t, 0, got.NEven)
}

func TestProfileStore_UpdateThenGetReflectsChoice(t *testing.T) {
	s := newProfileStore(10)
	s.update("p2", protocol.ParityOdd, "20260101T000000Z")

	got := s.get("p2")
	assert.Equal(t, 1, got.NOdd)
	assert.Equal(t, 0, got.NEven)
}

func TestProfileStore_CacheIsFreshUntilUpdate(t *testing.T) {
	s := newProfileStore(10)

	_, ok := s.cached("p2")
	assert.False(t, ok, "no cache entry yet")

	s.cache("p2", protocol.ParityEven)
	choice, ok := s.cached("p2")
	require.True(t, ok)
	assert.Equal(t, protocol.ParityEven, choice)

	s.update("p2", protocol.ParityOdd, "20260101T000000Z")
	_, ok = s.cached("p2")
	assert.False(t, ok, "update must invalidate the freshness cache")
}

func TestProfileStore_AllReturnsIndependentCopies(t *testing.T) {
	s := newProfileStore(10)
	s.update("p2", protocol.ParityEven, "t")

	snapshot := s.all()
	snapshot["p2"].NEven = 999

	got := s.get("p2")
	assert.Equal(t, 1, got.NEven, "mutating a snapshot must not affect the store")
}
