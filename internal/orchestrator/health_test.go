package orchestrator

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/config"
	"github.com/evenodd-league/tournament/internal/protocol"
)

func TestHealthMonitor_ProbeMarksHealthyOn200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	lifecycle := NewLifecycleManager(config.Default(), zap.NewNop())
	hm, err := NewHealthMonitor(config.Default(), zap.NewNop(), lifecycle, func(string, protocol.AgentHealthStatus) {})
	require.NoError(t, err)

	spec := AgentSpec{ID: "player-1", HealthURL: ts.URL}
	hm.probe(spec)

	snap := hm.Snapshot()
	assert.Equal(t, protocol.HealthHealthy, snap["player-1"].Status)
	assert.Equal(t, 0, snap["player-1"].ConsecutiveFailures)
}

func TestHealthMonitor_ProbeEscalatesToUnhealthyAfterThreeFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	lifecycle := NewLifecycleManager(config.Default(), zap.NewNop())
	var recoveryCalls int32
	hm, err := NewHealthMonitor(config.Default(), zap.NewNop(), lifecycle, func(agentID string, status protocol.AgentHealthStatus) {
		atomic.AddInt32(&recoveryCalls, 1)
	})
	require.NoError(t, err)

	spec := AgentSpec{ID: "player-1", HealthURL: ts.URL}
	hm.probe(spec)
	hm.probe(spec)
	assert.Equal(t, int32(0), atomic.LoadInt32(&recoveryCalls), "must not escalate before 3 consecutive failures")

	hm.probe(spec)
	snap := hm.Snapshot()
	assert.Equal(t, protocol.HealthUnhealthy, snap["player-1"].Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&recoveryCalls))

	hm.probe(spec)
	assert.Equal(t, int32(1), atomic.LoadInt32(&recoveryCalls), "must only fire recovery once per unhealthy transition")
}
