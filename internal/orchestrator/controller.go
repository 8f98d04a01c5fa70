package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/protocol"
	"github.com/evenodd-league/tournament/internal/rpcclient"
)

// controllerState is the TournamentController's own view of progress,
// distinct from the Manager's TournamentState — it additionally tracks
// whether the minimum roster has registered yet.
type controllerState string

const (
	controllerWaitingForAgents controllerState = "WAITING_FOR_AGENTS"
	controllerAwaitingMinimum  controllerState = "AWAITING_MINIMUM_ROSTER"
	controllerStarting         controllerState = "STARTING"
	controllerRunning          controllerState = "RUNNING"
	controllerCompleted        controllerState = "COMPLETED"
)

// TournamentController drives the league from outside once every agent is
// healthy: wait for a minimum roster, call start_league,
// then poll league_query until the league reaches COMPLETED.
type TournamentController struct {
	client       *rpcclient.Client
	managerURL   string
	managerToken string
	minReferees  int
	minPlayers   int
	pollInterval time.Duration
	logger       *zap.Logger

	onStandings func(protocol.Standings)
	onRound     func(protocol.LeagueQueryResponse)
	onCompleted func(protocol.LeagueQueryResponse)

	state controllerState
}

func NewTournamentController(
	client *rpcclient.Client,
	managerURL, managerToken string,
	minReferees, minPlayers int,
	pollInterval time.Duration,
	logger *zap.Logger,
) *TournamentController {
	return &TournamentController{
		client:       client,
		managerURL:   managerURL,
		managerToken: managerToken,
		minReferees:  minReferees,
		minPlayers:   minPlayers,
		pollInterval: pollInterval,
		logger:       logger.Named("controller"),
		state:        controllerWaitingForAgents,
	}
}

// OnStandings/OnRound/OnCompleted register dashboard-publishing callbacks.
func (c *TournamentController) OnStandings(f func(protocol.Standings))           { c.onStandings = f }
func (c *TournamentController) OnRound(f func(protocol.LeagueQueryResponse))     { c.onRound = f }
func (c *TournamentController) OnCompleted(f func(protocol.LeagueQueryResponse)) { c.onCompleted = f }

// Run blocks until the league completes or ctx is cancelled.
func (c *TournamentController) Run(ctx context.Context) error {
	c.state = controllerAwaitingMinimum
	if err := c.awaitMinimumRoster(ctx); err != nil {
		return err
	}

	c.state = controllerStarting
	if err := c.startLeague(ctx); err != nil {
		return err
	}

	c.state = controllerRunning
	return c.pollUntilComplete(ctx)
}

func (c *TournamentController) queryRoster(ctx context.Context) (protocol.LeagueQueryResponse, error) {
	env, err := protocol.NewEnvelope(protocol.MsgLeagueQueryRequest, "orchestrator", protocol.LeagueQueryRequest{Kind: "roster"})
	if err != nil {
		return protocol.LeagueQueryResponse{}, err
	}
	env.AuthToken = c.managerToken
	var resp protocol.LeagueQueryResponse
	err = c.client.Call(ctx, c.managerURL, "league_query", env, &resp)
	return resp, err
}

func (c *TournamentController) awaitMinimumRoster(ctx context.Context) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		if resp, err := c.queryRoster(ctx); err == nil {
			if resp.RefereeCount >= c.minReferees && resp.PlayerCount >= c.minPlayers {
				c.logger.Info("minimum roster reached", zap.Int("referees", resp.RefereeCount), zap.Int("players", resp.PlayerCount))
				return nil
			}
		} else {
			c.logger.Warn("league_query (roster) failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *TournamentController) startLeague(ctx context.Context) error {
	env, err := protocol.NewEnvelope(protocol.MsgStartLeagueRequest, "orchestrator", protocol.StartLeagueRequest{})
	if err != nil {
		return err
	}
	env.AuthToken = c.managerToken
	var resp protocol.StartLeagueResponse
	if err := c.client.Call(ctx, c.managerURL, "start_league", env, &resp); err != nil {
		return err
	}
	c.logger.Info("league started", zap.Int("rounds", len(resp.Schedule.Rounds)))
	return nil
}

func (c *TournamentController) pollUntilComplete(ctx context.Context) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	lastRound := -1
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		env, err := protocol.NewEnvelope(protocol.MsgLeagueQueryRequest, "orchestrator", protocol.LeagueQueryRequest{Kind: "state"})
		if err != nil {
			return err
		}
		env.AuthToken = c.managerToken
		var resp protocol.LeagueQueryResponse
		if err := c.client.Call(ctx, c.managerURL, "league_query", env, &resp); err != nil {
			c.logger.Warn("league_query failed", zap.Error(err))
			continue
		}

		if resp.CurrentRound != lastRound {
			lastRound = resp.CurrentRound
			if c.onRound != nil {
				c.onRound(resp)
			}
		}
		if resp.Standings != nil && c.onStandings != nil {
			c.onStandings(*resp.Standings)
		}

		if resp.TournamentState == protocol.TournamentCompleted {
			c.state = controllerCompleted
			if c.onCompleted != nil {
				c.onCompleted(resp)
			}
			return nil
		}
	}
}

// State returns the controller's own progress state.
func (c *TournamentController) State() controllerState { return c.state }
