package protocol

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

// AgentIdentity is the discriminated record the Manager creates on
// successful registration. It is immutable thereafter.
type AgentIdentity struct {
	Role                 Role     `json:"role"`
	ID                   string   `json:"id"`
	DisplayName          string   `json:"display_name"`
	Endpoint             string   `json:"endpoint"`
	Version              string   `json:"version"`
	GameTypes            []string `json:"game_types"`
	MaxConcurrentMatches int      `json:"max_concurrent_matches,omitempty"`
}

// GameTypeEvenOdd is the only supported game type in this closed-world
// tournament. Kept as a named constant so future game types have a home.
const GameTypeEvenOdd = "even_odd"

// rolePrefix maps a role to the prefix embedded in its auth tokens, per the
// tok_<role-prefix><id>_<random> format.
func rolePrefix(role Role) string {
	switch role {
	case RoleManager:
		return "mgr"
	case RoleReferee:
		return "ref"
	case RolePlayer:
		return "ply"
	default:
		return "agt"
	}
}

// NewAuthToken mints an opaque bearer token with at least 128 bits of
// entropy in the format tok_<role-prefix><id>_<random>. The random segment
// is base32-encoded (no padding) crypto/rand output.
func NewAuthToken(role Role, id string) (string, error) {
	buf := make([]byte, 20) // 160 bits, comfortably above the 128-bit floor
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("protocol: generating auth token: %w", err)
	}
	random := strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf))
	return fmt.Sprintf("tok_%s%s_%s", rolePrefix(role), id, random), nil
}

// ParseSender splits a "<role>:<id>" sender string. Returns an error if the
// shape does not match.
func ParseSender(sender string) (Role, string, error) {
	parts := strings.SplitN(sender, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("protocol: malformed sender %q", sender)
	}
	return Role(parts[0]), parts[1], nil
}

// FormatSender builds the "<role>:<id>" sender string for an identity.
func FormatSender(role Role, id string) string {
	return fmt.Sprintf("%s:%s", role, id)
}
