// Package player implements the Player Agent: its three RPC handlers,
// per-opponent profiling, and the strategy delegation that decides each
// match's parity choice.
package player

import (
	"sync"

	"github.com/decred/dcrd/lru"

	"github.com/evenodd-league/tournament/internal/protocol"
)

// OpponentProfile is this player's exclusively-owned view of one
// opponent's historical choices.
type OpponentProfile struct {
	OpponentID  string           `json:"opponent_id"`
	NEven       int              `json:"n_even"`
	NOdd        int              `json:"n_odd"`
	Choices     []protocol.Parity `json:"choices"`
	LastUpdated string           `json:"last_updated"`
}

const opponentHistoryCapacity = 200

func (p *OpponentProfile) record(choice protocol.Parity, updatedAt string) {
	if choice == protocol.ParityEven {
		p.NEven++
	} else {
		p.NOdd++
	}
	p.Choices = append(p.Choices, choice)
	if len(p.Choices) > opponentHistoryCapacity {
		p.Choices = p.Choices[len(p.Choices)-opponentHistoryCapacity:]
	}
	p.LastUpdated = updatedAt
}

// profileStore owns every OpponentProfile this player has observed, plus a
// freshness cache: an LRU set of opponent IDs whose cached chi-squared
// decision is still valid since the last notify_match_result for them.
// Grounded on PayRpc/Bitcoin-Sprint's use of decred/dcrd/lru as a seen-set,
// generalized from "inventory hash already relayed" to "opponent stats
// unchanged since last cache fill".
type profileStore struct {
	mu            sync.RWMutex
	profiles      map[string]*OpponentProfile
	fresh         *lru.Cache
	cachedChoice  map[string]protocol.Parity
}

func newProfileStore(cacheCapacity uint) *profileStore {
	return &profileStore{
		profiles:     make(map[string]*OpponentProfile),
		fresh:        lru.NewCache(cacheCapacity),
		cachedChoice: make(map[string]protocol.Parity),
	}
}

// cached returns the last computed strategy decision for opponentID, if its
// freshness entry is still valid.
func (s *profileStore) cached(opponentID string) (protocol.Parity, bool) {
	if !s.isFresh(opponentID) {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cachedChoice[opponentID]
	return c, ok
}

func (s *profileStore) cache(opponentID string, choice protocol.Parity) {
	s.mu.Lock()
	s.cachedChoice[opponentID] = choice
	s.mu.Unlock()
	s.markFresh(opponentID)
}

func (s *profileStore) get(opponentID string) OpponentProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[opponentID]; ok {
		return *p
	}
	return OpponentProfile{OpponentID: opponentID}
}

// isFresh reports whether opponentID's cached strategy decision inputs are
// still valid.
func (s *profileStore) isFresh(opponentID string) bool {
	return s.fresh.Contains(opponentID)
}

func (s *profileStore) markFresh(opponentID string) {
	s.fresh.Add(opponentID)
}

// update appends choice to opponentID's profile and invalidates its
// freshness entry, called from notify_match_result.
func (s *profileStore) update(opponentID string, choice protocol.Parity, updatedAt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[opponentID]
	if !ok {
		p = &OpponentProfile{OpponentID: opponentID}
		s.profiles[opponentID] = p
	}
	p.record(choice, updatedAt)
	s.fresh.Delete(opponentID)
}

func (s *profileStore) all() map[string]*OpponentProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*OpponentProfile, len(s.profiles))
	for k, v := range s.profiles {
		cp := *v
		out[k] = &cp
	}
	return out
}
