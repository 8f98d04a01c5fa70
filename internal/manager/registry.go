// Package manager implements the League Manager: the tournament authority
// owning AgentRegistry, Schedule, Standings, and the round coordinator.
// The registry's shape is modeled on an in-memory agent manager keyed by
// connection, generalized from "connected agent with an open stream" to
// "registered referee or player with an endpoint and auth token".
package manager

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/config"
	"github.com/evenodd-league/tournament/internal/protocol"
)

// Registrant is one registered referee or player.
type Registrant struct {
	Identity protocol.AgentIdentity
	Token    string
}

// Registry is the Manager's exclusive registry of referees and players, and
// the single source of truth for every token it has ever minted. Safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	logger    *zap.Logger
	cfg       config.Config
	managerID string

	referees     map[string]Registrant // keyed by referee id
	players      map[string]Registrant // keyed by player id
	refereeOrder []string              // registration order, for cyclic assignment
	playerOrder  []string

	refSeq int
	plySeq int

	tokens *protocol.TokenStore
}

func NewRegistry(logger *zap.Logger, cfg config.Config, managerID string, tokens *protocol.TokenStore) *Registry {
	return &Registry{
		logger:    logger.Named("registry"),
		cfg:       cfg,
		managerID: managerID,
		referees:  make(map[string]Registrant),
		players:   make(map[string]Registrant),
		tokens:    tokens,
	}
}

// RegisterReferee assigns the next sequential REF<nn> ID, mints a token, and
// records the referee. Returns REJECTED (zero-valued Registrant, ok=false)
// once MaxReferees is reached.
func (r *Registry) RegisterReferee(req protocol.RefereeRegisterRequest) (Registrant, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.referees) >= r.cfg.MaxReferees {
		return Registrant{}, false, nil
	}

	r.refSeq++
	id := fmt.Sprintf("REF%02d", r.refSeq)
	token, err := protocol.NewAuthToken(protocol.RoleReferee, id)
	if err != nil {
		return Registrant{}, false, err
	}

	reg := Registrant{
		Identity: protocol.AgentIdentity{
			Role:                 protocol.RoleReferee,
			ID:                   id,
			DisplayName:          req.DisplayName,
			Endpoint:             req.Endpoint,
			Version:              req.Version,
			GameTypes:            req.GameTypes,
			MaxConcurrentMatches: req.MaxConcurrentMatches,
		},
		Token: token,
	}
	r.referees[id] = reg
	r.refereeOrder = append(r.refereeOrder, id)
	r.tokens.Put(protocol.FormatSender(protocol.RoleReferee, id), token)
	r.logger.Info("referee registered", zap.String("referee_id", id), zap.String("endpoint", req.Endpoint))
	return reg, true, nil
}

// RegisterPlayer assigns the next sequential P<nn> ID, mints a token, and
// records the player. Returns REJECTED once MaxPlayers is reached.
func (r *Registry) RegisterPlayer(req protocol.LeagueRegisterRequest) (Registrant, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) >= r.cfg.MaxPlayers {
		return Registrant{}, false, nil
	}

	r.plySeq++
	id := fmt.Sprintf("P%02d", r.plySeq)
	token, err := protocol.NewAuthToken(protocol.RolePlayer, id)
	if err != nil {
		return Registrant{}, false, err
	}

	reg := Registrant{
		Identity: protocol.AgentIdentity{
			Role:        protocol.RolePlayer,
			ID:          id,
			DisplayName: req.DisplayName,
			Endpoint:    req.Endpoint,
			Version:     req.Version,
			GameTypes:   req.GameTypes,
		},
		Token: token,
	}
	r.players[id] = reg
	r.playerOrder = append(r.playerOrder, id)
	r.tokens.Put(protocol.FormatSender(protocol.RolePlayer, id), token)
	r.logger.Info("player registered", zap.String("player_id", id), zap.String("endpoint", req.Endpoint))
	return reg, true, nil
}

// Referee looks up a registered referee by id.
func (r *Registry) Referee(id string) (Registrant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.referees[id]
	return reg, ok
}

// Player looks up a registered player by id.
func (r *Registry) Player(id string) (Registrant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.players[id]
	return reg, ok
}

// PlayerIDs returns the registered player IDs in registration order.
func (r *Registry) PlayerIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.playerOrder))
	copy(out, r.playerOrder)
	return out
}

// RefereeIDs returns the registered referee IDs in registration order.
func (r *Registry) RefereeIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.refereeOrder))
	copy(out, r.refereeOrder)
	return out
}

// RefereeCaps returns each registered referee's own max_concurrent_matches,
// as captured at registration. A referee that registered without one (or
// with zero) is absent from the map, meaning unlimited.
func (r *Registry) RefereeCaps() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int, len(r.referees))
	for id, reg := range r.referees {
		if reg.Identity.MaxConcurrentMatches > 0 {
			out[id] = reg.Identity.MaxConcurrentMatches
		}
	}
	return out
}

// Counts returns the number of registered referees and players.
func (r *Registry) Counts() (referees, players int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.referees), len(r.players)
}
