package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/config"
	"github.com/evenodd-league/tournament/internal/protocol"
	"github.com/evenodd-league/tournament/internal/rpcclient"
	"github.com/evenodd-league/tournament/internal/storage"
	"github.com/evenodd-league/tournament/internal/strategy"
)

// Player is the Player Agent: identity acquired once at startup via
// register_player, a pluggable Strategy, and the per-opponent profile
// store backing choose_parity.
type Player struct {
	ID       string
	LeagueID string
	token    string
	cfg      config.Config
	logger   *zap.Logger
	client   *rpcclient.Client
	layout   storage.Layout
	strategy strategy.Strategy
	tokens   *protocol.TokenStore // the Manager's token + each referee's token learned from round announcements

	profiles *profileStore

	mu      sync.Mutex
	history []protocol.MatchRecord
}

func New(leagueID string, cfg config.Config, logger *zap.Logger, client *rpcclient.Client, layout storage.Layout, strat strategy.Strategy, tokens *protocol.TokenStore) *Player {
	return &Player{
		LeagueID: leagueID,
		cfg:      cfg,
		logger:   logger.Named("player"),
		client:   client,
		layout:   layout,
		strategy: strat,
		tokens:   tokens,
		profiles: newProfileStore(64),
	}
}

// Register calls the Manager's register_player once at startup. A player
// that cannot register after the client's retry policy is exhausted
// returns an error; callers should exit non-zero and rely on the
// Orchestrator to restart.
func (p *Player) Register(ctx context.Context, managerEndpoint, displayName, endpoint, version string) error {
	body := protocol.LeagueRegisterRequest{
		DisplayName: displayName,
		Endpoint:    endpoint,
		Version:     version,
		GameTypes:   []string{protocol.GameTypeEvenOdd},
	}
	env, err := protocol.NewEnvelope(protocol.MsgLeagueRegisterRequest, "player:unregistered", body)
	if err != nil {
		return err
	}

	var resp protocol.RegisterResponse
	if err := p.client.Call(ctx, managerEndpoint, "register_player", env, &resp); err != nil {
		return fmt.Errorf("player: register_player failed: %w", err)
	}
	if resp.Status != "REGISTERED" {
		return fmt.Errorf("player: registration rejected: %s", resp.Reason)
	}

	p.ID = resp.AssignedID
	p.token = resp.AuthToken
	p.tokens.Put(protocol.FormatSender(protocol.RoleManager, "manager"), resp.ManagerToken)
	p.logger.Info("registered with manager", zap.String("player_id", p.ID))
	p.loadHistory()
	return nil
}

func (p *Player) matchHistoryPath() string { return p.layout.MatchHistoryFile(p.ID) }

func (p *Player) loadHistory() {
	var records []protocol.MatchRecord
	if storage.Exists(p.matchHistoryPath()) {
		var err error
		_, records, err = storage.ReadRecord[[]protocol.MatchRecord](p.matchHistoryPath())
		if err != nil {
			p.logger.Warn("loading match history failed", zap.Error(err))
			return
		}
	}
	p.mu.Lock()
	p.history = records
	p.mu.Unlock()
}

func (p *Player) appendHistory(record protocol.MatchRecord) error {
	p.mu.Lock()
	p.history = append(p.history, record)
	snapshot := append([]protocol.MatchRecord(nil), p.history...)
	p.mu.Unlock()
	return storage.WriteRecord(p.matchHistoryPath(), p.ID, snapshot)
}

func (p *Player) persistProfiles() error {
	return storage.WriteRecord(p.layout.OpponentProfilesFile(p.ID), p.ID, p.profiles.all())
}

// handleInvitation always accepts — the invitation
// serves only as a synchronization barrier before the choice call.
func (p *Player) handleInvitation() protocol.GameJoinAck {
	return protocol.GameJoinAck{Accept: true, ArrivalTimestamp: protocol.FormatTime(time.Now())}
}

// chooseParity delegates to the configured Strategy, clamping any invalid
// output to "even" with a logged warning so this method never returns an
// error — an error here guarantees a technical loss.
func (p *Player) chooseParity(opponentID string) protocol.Parity {
	if cached, ok := p.profiles.cached(opponentID); ok {
		return cached
	}

	profile := p.profiles.get(opponentID)
	choice, err := p.strategy.Choose(strategy.History{OpponentChoices: profile.Choices})
	if err != nil || !choice.Valid() {
		p.logger.Warn("strategy returned invalid choice, clamping to even", zap.Error(err), zap.String("opponent_id", opponentID))
		choice = protocol.ParityEven
	}
	p.profiles.cache(opponentID, choice)
	return choice
}

// notifyResult appends record to history, updates the opponent's profile
// with the result, and persists both atomically.
func (p *Player) notifyResult(record protocol.MatchRecord) error {
	opponentID := record.Players[0]
	if opponentID == p.ID {
		opponentID = record.Players[1]
	}
	if choice, ok := record.Choices[opponentID]; ok {
		p.profiles.update(opponentID, choice, record.FinishedAt)
	}
	if err := p.persistProfiles(); err != nil {
		p.logger.Warn("persisting opponent profiles failed", zap.Error(err))
	}
	return p.appendHistory(record)
}
