package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/config"
	"github.com/evenodd-league/tournament/internal/protocol"
)

// ErrorKind classifies a recoverable failure for ErrorRecoveryManager
// dispatch.
type ErrorKind string

const (
	ErrorKindAgentCrashed    ErrorKind = "AGENT_CRASHED"
	ErrorKindAgentUnhealthy  ErrorKind = "AGENT_UNHEALTHY"
	ErrorKindManagerCrashed  ErrorKind = "MANAGER_CRASHED"
	ErrorKindRefereeCrashed  ErrorKind = "REFEREE_CRASHED"
)

// RecoveryEvent describes one error the manager must react to.
type RecoveryEvent struct {
	Kind    ErrorKind
	AgentID string
	Role    protocol.Role
}

// RecoveryHandler reacts to a RecoveryEvent. ctx is cancelled if the
// Orchestrator itself is shutting down.
type RecoveryHandler func(ctx context.Context, ev RecoveryEvent)

// ErrorRecoveryManager dispatches recovery events to pluggable handlers
// keyed by kind. Built-in handlers implement: restart a crashed agent
// with the same backoff schedule as report_retry, pause the tournament
// while the Manager is down, and rely on the
// Manager's own at-most-once dedup when a Referee crashes mid-match
// instead of re-running the match.
type ErrorRecoveryManager struct {
	cfg        config.Config
	logger     *zap.Logger
	lifecycle  *LifecycleManager
	health     *HealthMonitor
	specsByID  map[string]AgentSpec
	handlers   map[ErrorKind]RecoveryHandler
	pauseFn    func()
	resumeFn   func()
}

func NewErrorRecoveryManager(cfg config.Config, logger *zap.Logger, lifecycle *LifecycleManager, health *HealthMonitor, specs []AgentSpec) *ErrorRecoveryManager {
	byID := make(map[string]AgentSpec, len(specs))
	for _, s := range specs {
		byID[s.ID] = s
	}
	m := &ErrorRecoveryManager{
		cfg:       cfg,
		logger:    logger.Named("recovery"),
		lifecycle: lifecycle,
		health:    health,
		specsByID: byID,
		handlers:  make(map[ErrorKind]RecoveryHandler),
	}
	m.handlers[ErrorKindAgentCrashed] = m.restartAgent
	m.handlers[ErrorKindAgentUnhealthy] = m.restartAgent
	m.handlers[ErrorKindManagerCrashed] = m.pauseOnManagerCrash
	m.handlers[ErrorKindRefereeCrashed] = m.abortMatchOnRefereeCrash
	return m
}

// OnPause/OnResume register the tournament-level pause/resume hooks used
// by pauseOnManagerCrash.
func (m *ErrorRecoveryManager) OnPause(f func())  { m.pauseFn = f }
func (m *ErrorRecoveryManager) OnResume(f func()) { m.resumeFn = f }

// SetHandler overrides (or adds) the handler for kind.
func (m *ErrorRecoveryManager) SetHandler(kind ErrorKind, h RecoveryHandler) {
	m.handlers[kind] = h
}

// Handle dispatches ev to its registered handler, if any.
func (m *ErrorRecoveryManager) Handle(ctx context.Context, ev RecoveryEvent) {
	h, ok := m.handlers[ev.Kind]
	if !ok {
		m.logger.Warn("no recovery handler registered", zap.String("kind", string(ev.Kind)))
		return
	}
	m.logger.Info("handling recovery event", zap.String("kind", string(ev.Kind)), zap.String("agent_id", ev.AgentID))
	h(ctx, ev)
}

func (m *ErrorRecoveryManager) restartAgent(ctx context.Context, ev RecoveryEvent) {
	spec, ok := m.specsByID[ev.AgentID]
	if !ok {
		m.logger.Warn("restart requested for unknown agent", zap.String("agent_id", ev.AgentID))
		return
	}
	if ev.Role == protocol.RoleManager {
		m.handlers[ErrorKindManagerCrashed](ctx, ev)
	}

	delay := time.Duration(m.cfg.ReportRetry.InitialDelayS * float64(time.Second))
	for attempt := 1; attempt <= m.cfg.ReportRetry.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if err := m.lifecycle.StartAgent(ctx, spec); err != nil {
			m.logger.Warn("agent restart attempt failed", zap.String("agent_id", spec.ID), zap.Int("attempt", attempt), zap.Error(err))
			delay = time.Duration(float64(delay) * m.cfg.ReportRetry.Multiplier)
			continue
		}
		m.logger.Info("agent restarted", zap.String("agent_id", spec.ID), zap.Int("attempt", attempt))
		if ev.Role == protocol.RoleManager && m.resumeFn != nil {
			m.resumeFn()
		}
		return
	}
	m.logger.Error("agent restart exhausted retries", zap.String("agent_id", spec.ID))
}

func (m *ErrorRecoveryManager) pauseOnManagerCrash(ctx context.Context, ev RecoveryEvent) {
	if m.pauseFn != nil {
		m.pauseFn()
	}
	m.logger.Warn("tournament paused pending manager recovery")
}

// abortMatchOnRefereeCrash does not restart the match itself — the Manager's
// report_match_result dedup means a re-assigned referee (or a manual
// intervention) can safely re-report without double-counting, so recovery
// here is limited to bringing the referee process back.
func (m *ErrorRecoveryManager) abortMatchOnRefereeCrash(ctx context.Context, ev RecoveryEvent) {
	m.restartAgent(ctx, ev)
}
