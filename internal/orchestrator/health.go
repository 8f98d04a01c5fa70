package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/config"
	"github.com/evenodd-league/tournament/internal/protocol"
)

// healthCheckResponse is the GET /health payload every agent exposes.
type healthCheckResponse struct {
	Status string `json:"status"`
	Role   string `json:"role"`
	ID     string `json:"id"`
}

// RecoveryFunc is invoked when an agent transitions to UNHEALTHY or
// CRASHED.
type RecoveryFunc func(agentID string, status protocol.AgentHealthStatus)

// HealthMonitor probes every known agent's /health on a fixed interval.
// Modeled on gocron's scheduler.Scheduler usage elsewhere in the pack,
// which registers one job per policy in singleton mode; here one job is
// registered per agent, tagged by agent_id, probing health instead of
// running a backup.
type HealthMonitor struct {
	cfg      config.Config
	logger   *zap.Logger
	http     *http.Client
	cron     gocron.Scheduler
	lifecycle *LifecycleManager
	recovery RecoveryFunc

	mu     sync.Mutex
	health map[string]*protocol.AgentHealth
}

func NewHealthMonitor(cfg config.Config, logger *zap.Logger, lifecycle *LifecycleManager, recovery RecoveryFunc) (*HealthMonitor, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &HealthMonitor{
		cfg:       cfg,
		logger:    logger.Named("health"),
		http:      &http.Client{Timeout: 2 * time.Second},
		cron:      cron,
		lifecycle: lifecycle,
		recovery:  recovery,
		health:    make(map[string]*protocol.AgentHealth),
	}, nil
}

// Watch registers a periodic probe job for spec, starting at STARTING.
func (h *HealthMonitor) Watch(spec AgentSpec) error {
	h.mu.Lock()
	h.health[spec.ID] = &protocol.AgentHealth{Status: protocol.HealthStarting}
	h.mu.Unlock()

	_, err := h.cron.NewJob(
		gocron.DurationJob(time.Duration(h.cfg.HealthCheckIntervalS*float64(time.Second))),
		gocron.NewTask(func() { h.probe(spec) }),
		gocron.WithTags(spec.ID),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

func (h *HealthMonitor) probe(spec AgentSpec) {
	if handle, ok := h.lifecycle.Handle(spec.ID); ok {
		if exited, _ := handle.Exited(); exited {
			h.setStatus(spec.ID, protocol.HealthCrashed, 0)
			h.recovery(spec.ID, protocol.HealthCrashed)
			return
		}
	}

	resp, err := h.http.Get(spec.HealthURL)
	ok := err == nil && resp != nil && resp.StatusCode == http.StatusOK
	if resp != nil {
		resp.Body.Close()
	}

	h.mu.Lock()
	rec := h.health[spec.ID]
	if rec == nil {
		rec = &protocol.AgentHealth{}
		h.health[spec.ID] = rec
	}
	if ok {
		rec.Status = protocol.HealthHealthy
		rec.ConsecutiveFailures = 0
	} else {
		rec.ConsecutiveFailures++
	}
	rec.LastProbeAt = protocol.FormatTime(time.Now())
	becameUnhealthy := !ok && rec.ConsecutiveFailures >= 3 && rec.Status != protocol.HealthUnhealthy
	if !ok && rec.ConsecutiveFailures >= 3 {
		rec.Status = protocol.HealthUnhealthy
	}
	h.mu.Unlock()

	if becameUnhealthy {
		h.logger.Warn("agent unhealthy", zap.String("agent_id", spec.ID))
		h.recovery(spec.ID, protocol.HealthUnhealthy)
	}
}

func (h *HealthMonitor) setStatus(agentID string, status protocol.AgentHealthStatus, failures int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec := h.health[agentID]
	if rec == nil {
		rec = &protocol.AgentHealth{}
		h.health[agentID] = rec
	}
	rec.Status = status
	rec.ConsecutiveFailures = failures
	rec.LastProbeAt = protocol.FormatTime(time.Now())
}

// Snapshot returns a copy of every known agent's health record.
func (h *HealthMonitor) Snapshot() map[string]protocol.AgentHealth {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]protocol.AgentHealth, len(h.health))
	for k, v := range h.health {
		out[k] = *v
	}
	return out
}

func (h *HealthMonitor) Start(ctx context.Context) { h.cron.Start() }
func (h *HealthMonitor) Stop() error                { return h.cron.Shutdown() }

// CommunicationVerifier is a one-shot post-startup check: for each agent,
// confirm /health reports the expected role and /initialize returns a
// compliant handshake
type CommunicationVerifier struct {
	http   *http.Client
	logger *zap.Logger
}

func NewCommunicationVerifier(logger *zap.Logger) *CommunicationVerifier {
	return &CommunicationVerifier{http: &http.Client{Timeout: 3 * time.Second}, logger: logger.Named("verifier")}
}

func (v *CommunicationVerifier) Verify(spec AgentSpec) error {
	resp, err := v.http.Get(spec.HealthURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	var health healthCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return err
	}
	if health.Role != string(spec.Role) {
		v.logger.Warn("unexpected role in /health", zap.String("agent_id", spec.ID), zap.String("got", health.Role))
	}

	initResp, err := v.http.Post(strings.TrimSuffix(spec.HealthURL, "/health")+"/initialize", "application/json", nil)
	if err != nil {
		return err
	}
	defer initResp.Body.Close()
	var handshake map[string]string
	if err := json.NewDecoder(initResp.Body).Decode(&handshake); err != nil {
		return err
	}
	if handshake["protocol"] != protocol.ProtocolVersion || handshake["role"] != string(spec.Role) {
		return fmt.Errorf("orchestrator: %s returned a non-compliant /initialize handshake", spec.ID)
	}
	return nil
}
