// Package referee implements the match orchestrator: the six-phase match
// protocol, driven per match by an independent task so many matches can
// run concurrently. The Manager's scheduler keeps each referee within the
// capacity it registered; AssignMatch itself does not refuse extra matches.
package referee

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/config"
	"github.com/evenodd-league/tournament/internal/protocol"
	"github.com/evenodd-league/tournament/internal/rpcclient"
	"github.com/evenodd-league/tournament/internal/storage"
)

// Referee runs zero or more concurrent Match tasks and reports their
// outcomes upstream to the Manager.
type Referee struct {
	ID             string
	LeagueID       string
	ManagerEndpoint string
	cfg            config.Config
	logger         *zap.Logger
	client         *rpcclient.Client
	layout         storage.Layout
	tokens         *protocol.TokenStore // the Manager's token + per-match player grants
	token          string               // this referee's own auth token, presented on outbound calls

	mu     sync.Mutex
	active map[string]*Match
}

func New(id, leagueID, managerEndpoint string, cfg config.Config, logger *zap.Logger, client *rpcclient.Client, layout storage.Layout, tokens *protocol.TokenStore, token string) *Referee {
	return &Referee{
		ID:              id,
		LeagueID:        leagueID,
		ManagerEndpoint: managerEndpoint,
		cfg:             cfg,
		logger:          logger.Named("referee"),
		client:          client,
		layout:          layout,
		tokens:          tokens,
		token:           token,
		active:          make(map[string]*Match),
	}
}

// Register calls the Manager's register_referee once at startup and
// returns a Referee constructed with the assigned identity, mirroring
// player.Register. A referee that cannot register after the client's
// retry policy is exhausted returns an error; the Orchestrator is
// expected to restart the process.
func Register(ctx context.Context, managerEndpoint, displayName, endpoint, version string, maxConcurrent int, cfg config.Config, logger *zap.Logger, client *rpcclient.Client, layout storage.Layout, tokens *protocol.TokenStore) (*Referee, error) {
	body := protocol.RefereeRegisterRequest{
		DisplayName:          displayName,
		Endpoint:             endpoint,
		Version:              version,
		GameTypes:            []string{protocol.GameTypeEvenOdd},
		MaxConcurrentMatches: maxConcurrent,
	}
	env, err := protocol.NewEnvelope(protocol.MsgRefereeRegisterRequest, "referee:unregistered", body)
	if err != nil {
		return nil, err
	}

	var resp protocol.RegisterResponse
	if err := client.Call(ctx, managerEndpoint, "register_referee", env, &resp); err != nil {
		return nil, fmt.Errorf("referee: register_referee failed: %w", err)
	}
	if resp.Status != "REGISTERED" {
		return nil, fmt.Errorf("referee: registration rejected: %s", resp.Reason)
	}

	tokens.Put(protocol.FormatSender(protocol.RoleManager, "manager"), resp.ManagerToken)
	r := New(resp.AssignedID, resp.LeagueID, managerEndpoint, cfg, logger, client, layout, tokens, resp.AuthToken)
	r.logger.Info("registered with manager", zap.String("referee_id", r.ID))
	return r, nil
}

// AssignMatch spawns the asynchronous match task and returns immediately,
//: "the referee spawns a bounded-lifetime match task and
// returns acknowledgement immediately".
func (r *Referee) AssignMatch(req protocol.AssignMatchRequest) {
	r.tokens.Put(protocol.FormatSender(protocol.RolePlayer, req.PlayerA.PlayerID), req.PlayerA.Token)
	r.tokens.Put(protocol.FormatSender(protocol.RolePlayer, req.PlayerB.PlayerID), req.PlayerB.Token)

	match := newMatch(r, req)

	r.mu.Lock()
	r.active[req.MatchID] = match
	r.mu.Unlock()

	go func() {
		match.Run(context.Background())
		r.mu.Lock()
		delete(r.active, req.MatchID)
		r.mu.Unlock()
		r.tokens.Delete(protocol.FormatSender(protocol.RolePlayer, req.PlayerA.PlayerID))
		r.tokens.Delete(protocol.FormatSender(protocol.RolePlayer, req.PlayerB.PlayerID))
	}()
}
