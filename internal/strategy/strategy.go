// Package strategy implements the player's parity-choosing policies: a
// Nash-equilibrium baseline (uniform random) and an adaptive policy that
// exploits an opponent's detected bias. Modeled on an enum-and-interface
// strategy style; the chi-squared test itself has no suitable ecosystem
// library, so it is hand-rolled on the math stdlib, with crypto/rand for
// the random choices (documented
// in DESIGN.md).
package strategy

import (
	"crypto/rand"
	"math"
	"math/big"

	"github.com/evenodd-league/tournament/internal/protocol"
)

// History is the subset of a player's stored match history relevant to
// choosing against one opponent: every past choice that opponent made
// against this player.
type History struct {
	OpponentChoices []protocol.Parity
}

// Strategy decides a parity for one match.
type Strategy interface {
	Choose(h History) (protocol.Parity, error)
}

// Random is the Nash-equilibrium baseline: each choice is uniform random
// and independent of history, making it unexploitable by a rational
// opponent.
type Random struct{}

func (Random) Choose(History) (protocol.Parity, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(2))
	if err != nil {
		return "", err
	}
	if n.Int64() == 0 {
		return protocol.ParityEven, nil
	}
	return protocol.ParityOdd, nil
}

// Adaptive runs a chi-squared goodness-of-fit test against the opponent's
// historical choices once at least MinSamples observations exist. Below
// the sample floor, or when the distribution is not significantly different
// from uniform at Alpha, it falls back to Random.
type Adaptive struct {
	MinSamples int
	Alpha      float64
	fallback   Random
}

func NewAdaptive(minSamples int, alpha float64) *Adaptive {
	return &Adaptive{MinSamples: minSamples, Alpha: alpha}
}

// chiSquaredCriticalValue1DoF is the critical value of the chi-squared
// distribution with 1 degree of freedom at the three significance levels this
// strategy is configured with in practice (default alpha=0.05).
// A small lookup table is sufficient since df is always 1 here (two
// outcomes, even/odd) and alpha is an operator-tunable constant, not a
// per-call variable.
var chiSquaredCriticalValue1DoF = map[float64]float64{
	0.10: 2.706,
	0.05: 3.841,
	0.01: 6.635,
}

func criticalValue(alpha float64) float64 {
	if v, ok := chiSquaredCriticalValue1DoF[alpha]; ok {
		return v
	}
	return 3.841 // default to alpha=0.05's threshold for any unlisted alpha
}

func (a *Adaptive) Choose(h History) (protocol.Parity, error) {
	n := len(h.OpponentChoices)
	if n < a.MinSamples {
		return a.fallback.Choose(h)
	}

	var evenCount int
	for _, c := range h.OpponentChoices {
		if c == protocol.ParityEven {
			evenCount++
		}
	}
	oddCount := n - evenCount

	expected := float64(n) / 2
	chiSq := math.Pow(float64(evenCount)-expected, 2)/expected + math.Pow(float64(oddCount)-expected, 2)/expected

	if chiSq <= criticalValue(a.Alpha) {
		return a.fallback.Choose(h)
	}

	// Bias detected. Play the opponent's minority choice.
	if evenCount > oddCount {
		return protocol.ParityOdd, nil
	}
	return protocol.ParityEven, nil
}
