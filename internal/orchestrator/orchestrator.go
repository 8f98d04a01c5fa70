package orchestrator

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/config"
	"github.com/evenodd-league/tournament/internal/orchestrator/dashboard"
	"github.com/evenodd-league/tournament/internal/protocol"
	"github.com/evenodd-league/tournament/internal/rpcclient"
)

// Orchestrator wires every subcomponent into one supervising process: it
// never speaks the league's match protocol directly, only /health,
// /initialize, start_league, and league_query.
type Orchestrator struct {
	cfg    config.Config
	logger *zap.Logger

	Lifecycle *LifecycleManager
	Health    *HealthMonitor
	Verifier  *CommunicationVerifier
	Controller *TournamentController
	Recovery  *ErrorRecoveryManager
	Dashboard *dashboard.Server
	Logs      *LogAggregator

	specs []AgentSpec
}

// Options carries the Orchestrator's own construction-time configuration:
// the agent roster to launch and the Manager endpoint to drive.
type Options struct {
	Specs          []AgentSpec
	ManagerURL     string
	ManagerToken   string
	MinReferees    int
	MinPlayers     int
	DashboardAddr  string
}

func New(cfg config.Config, logger *zap.Logger, opts Options) *Orchestrator {
	lifecycle := NewLifecycleManager(cfg, logger)
	dash := dashboard.NewServer(logger)
	client := rpcclient.New(logger, cfg.ReportRetry, cfg.Circuit)

	o := &Orchestrator{
		cfg:        cfg,
		logger:     logger.Named("orchestrator"),
		Lifecycle:  lifecycle,
		Verifier:   NewCommunicationVerifier(logger),
		Dashboard:  dash,
		Logs:       NewLogAggregator(logger, dash, 2*time.Second),
		specs:      opts.Specs,
		Controller: NewTournamentController(client, opts.ManagerURL, opts.ManagerToken, opts.MinReferees, opts.MinPlayers, time.Duration(cfg.HealthCheckIntervalS*float64(time.Second)), logger),
	}

	health, err := NewHealthMonitor(cfg, logger, lifecycle, o.handleHealthEvent)
	if err != nil {
		logger.Fatal("orchestrator: constructing health monitor", zap.Error(err))
	}
	o.Health = health
	o.Recovery = NewErrorRecoveryManager(cfg, logger, lifecycle, health, opts.Specs)

	o.Controller.OnStandings(func(s protocol.Standings) { dash.PublishStandings(s) })
	o.Controller.OnRound(func(r protocol.LeagueQueryResponse) { dash.PublishRound(r) })
	o.Controller.OnCompleted(func(r protocol.LeagueQueryResponse) { dash.PublishMatch(r) })

	return o
}

// handleHealthEvent translates a HealthMonitor status change into a
// RecoveryEvent and publishes it to the dashboard.
func (o *Orchestrator) handleHealthEvent(agentID string, status protocol.AgentHealthStatus) {
	role := protocol.Role("")
	for _, s := range o.specs {
		if s.ID == agentID {
			role = s.Role
		}
	}
	o.Dashboard.PublishHealth(map[string]string{"agent_id": agentID, "status": string(status)})

	kind := ErrorKindAgentUnhealthy
	switch {
	case status == protocol.HealthCrashed && role == protocol.RoleManager:
		kind = ErrorKindManagerCrashed
	case status == protocol.HealthCrashed && role == protocol.RoleReferee:
		kind = ErrorKindRefereeCrashed
	case status == protocol.HealthCrashed:
		kind = ErrorKindAgentCrashed
	}
	o.Recovery.Handle(context.Background(), RecoveryEvent{Kind: kind, AgentID: agentID, Role: role})
}

// Run brings up every agent, verifies communication, starts health
// monitoring and log aggregation, then drives the tournament to
// completion via the TournamentController.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.Lifecycle.StartAll(ctx, o.specs); err != nil {
		return err
	}

	for _, spec := range o.specs {
		if err := o.Verifier.Verify(spec); err != nil {
			o.logger.Warn("communication verification failed", zap.String("agent_id", spec.ID), zap.Error(err))
		}
		if err := o.Health.Watch(spec); err != nil {
			return err
		}
	}
	o.Health.Start(ctx)

	go o.Logs.Run(ctx)

	return o.Controller.Run(ctx)
}

// DashboardRouter returns the HTTP handler serving /ws and /metrics.
func (o *Orchestrator) DashboardRouter() http.Handler { return o.Dashboard.Router() }
