package protocol

import (
	"crypto/subtle"
	"sync"
)

// TokenStore is the sender->auth_token lookup every RPC server consults
// before executing a non-registration method. The Manager's instance owns
// every token it ever minted; a Referee or Player's instance is seeded with
// the tokens it has been authorized to trust (the Manager's own token at
// startup, then the match participants' tokens as they are disclosed to it
// in assign_match / ROUND_ANNOUNCEMENT dispatches), matching a trusted-
// network auth model. Modeled on a validateToken shared-secret check,
// generalized from one static secret to a per-sender table.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]string // sender ("role:id") -> token
}

func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]string)}
}

// Put records the token Manager minted for sender, or that sender has since
// been authorized to present (e.g. a manager-vouched participant token).
func (s *TokenStore) Put(sender, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[sender] = token
}

// Verify reports whether token is exactly the token on file for sender,
// using a constant-time comparison so token length/content differences
// cannot be timed by a hostile caller.
func (s *TokenStore) Verify(sender, token string) bool {
	s.mu.RLock()
	want, ok := s.tokens[sender]
	s.mu.RUnlock()
	if !ok || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 1
}

// Delete forgets sender's token, used when an agent's custody of a
// delegated token (e.g. a match participant's) expires with the match.
func (s *TokenStore) Delete(sender string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, sender)
}
