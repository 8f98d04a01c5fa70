package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/config"
	"github.com/evenodd-league/tournament/internal/protocol"
	"github.com/evenodd-league/tournament/internal/rpcclient"
	"github.com/evenodd-league/tournament/internal/storage"
	"github.com/evenodd-league/tournament/internal/strategy"
)

type fixedStrategy struct {
	choice protocol.Parity
	err    error
}

func (f fixedStrategy) Choose(strategy.History) (protocol.Parity, error) { return f.choice, f.err }

func newTestPlayer(t *testing.T, strat strategy.Strategy) *Player {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	layout := storage.NewLayout(cfg.DataDir)
	client := rpcclient.New(zap.NewNop(), cfg.ReportRetry, cfg.Circuit)
	tokens := protocol.NewTokenStore()

	p := New(cfg.LeagueID, cfg, zap.NewNop(), client, layout, strat, tokens)
	p.ID = "p1"
	return p
}

func TestPlayer_HandleInvitation_AlwaysAccepts(t *testing.T) {
	p := newTestPlayer(t, fixedStrategy{choice: protocol.ParityEven})
	ack := p.handleInvitation()
	assert.True(t, ack.Accept)
	assert.NotEmpty(t, ack.ArrivalTimestamp)
}

func TestPlayer_ChooseParity_UsesStrategyOutput(t *testing.T) {
	p := newTestPlayer(t, fixedStrategy{choice: protocol.ParityOdd})
	choice := p.chooseParity("p2")
	assert.Equal(t, protocol.ParityOdd, choice)
}

func TestPlayer_ChooseParity_ClampsInvalidStrategyOutputToEven(t *testing.T) {
	p := newTestPlayer(t, fixedStrategy{choice: protocol.Parity("garbage")})
	choice := p.chooseParity("p2")
	assert.Equal(t, protocol.ParityEven, choice)
}

func TestPlayer_ChooseParity_IsCachedUntilNotifyResult(t *testing.T) {
	p := newTestPlayer(t, fixedStrategy{choice: protocol.ParityOdd})
	first := p.chooseParity("p2")
	assert.Equal(t, protocol.ParityOdd, first)

	p.strategy = fixedStrategy{choice: protocol.ParityEven}
	second := p.chooseParity("p2")
	assert.Equal(t, protocol.ParityOdd, second, "cached decision must survive until the opponent's profile is updated")
}

func TestPlayer_NotifyResult_UpdatesProfileAndPersistsHistory(t *testing.T) {
	p := newTestPlayer(t, fixedStrategy{choice: protocol.ParityEven})

	winner := "p1"
	record := protocol.MatchRecord{
		MatchID:    "R1M1",
		Players:    [2]string{"p1", "p2"},
		Choices:    map[string]protocol.Parity{"p1": protocol.ParityEven, "p2": protocol.ParityOdd},
		WinnerID:   &winner,
		Status:     protocol.MatchStatusCompleted,
		FinishedAt: "20260101T000000Z",
	}

	require.NoError(t, p.notifyResult(record))

	profile := p.profiles.get("p2")
	assert.Equal(t, 1, profile.NOdd)

	header, persisted, err := storage.ReadRecord[[]protocol.MatchRecord](p.matchHistoryPath())
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "R1M1", persisted[0].MatchID)
	assert.Equal(t, "p1", header.ID)
	assert.Equal(t, storage.CurrentSchemaVersion, header.SchemaVersion)
	assert.NotEmpty(t, header.LastUpdated)
}
