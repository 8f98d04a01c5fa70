package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/config"
	"github.com/evenodd-league/tournament/internal/protocol"
	"github.com/evenodd-league/tournament/internal/rpcclient"
)

type fakeManagerRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  protocol.Envelope `json:"params"`
	ID      string            `json:"id"`
}

// fakeManager simulates just enough of the Manager's league_query /
// start_league surface to drive TournamentController through one full run.
type fakeManager struct {
	queriesBeforeReady int32
	started            int32
	queriesAfterStart  int32
}

func (f *fakeManager) handler(w http.ResponseWriter, r *http.Request) {
	var req fakeManagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var result any
	switch req.Method {
	case "league_query":
		var body protocol.LeagueQueryRequest
		_ = req.Params.DecodeBody(&body)
		if body.Kind == "roster" {
			n := atomic.AddInt32(&f.queriesBeforeReady, 1)
			ready := n >= 2
			refs, plys := 0, 0
			if ready {
				refs, plys = 1, 2
			}
			result = protocol.LeagueQueryResponse{RefereeCount: refs, PlayerCount: plys}
		} else {
			n := atomic.AddInt32(&f.queriesAfterStart, 1)
			state := protocol.TournamentRoundActive
			round := 0
			if n >= 2 {
				state = protocol.TournamentCompleted
			}
			result = protocol.LeagueQueryResponse{TournamentState: state, CurrentRound: round}
		}
	case "start_league":
		atomic.AddInt32(&f.started, 1)
		result = protocol.StartLeagueResponse{Schedule: protocol.Schedule{}}
	}

	resp := map[string]any{"jsonrpc": "2.0", "result": result, "id": req.ID}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func TestTournamentController_RunReachesCompletion(t *testing.T) {
	fm := &fakeManager{}
	ts := httptest.NewServer(http.HandlerFunc(fm.handler))
	defer ts.Close()

	cfg := config.Default()
	client := rpcclient.New(zap.NewNop(), cfg.ReportRetry, cfg.Circuit)
	controller := NewTournamentController(client, ts.URL, "tok_orch", 1, 2, 10*time.Millisecond, zap.NewNop())

	var completed bool
	controller.OnCompleted(func(protocol.LeagueQueryResponse) { completed = true })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := controller.Run(ctx)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, controllerCompleted, controller.State())
	assert.Equal(t, int32(1), atomic.LoadInt32(&fm.started))
}
