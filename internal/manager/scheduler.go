package manager

import (
	"fmt"
	"sort"

	"github.com/evenodd-league/tournament/internal/protocol"
)

// BuildSchedule computes the round-robin schedule for players: enumerate
// all unordered pairs in lexicographic order on player ID, greedily place
// each pair into the earliest round in which neither
// endpoint already appears, then assign referees cyclically across
// matches in schedule order, skipping a referee already at its own
// registered max_concurrent_matches within the round being filled.
// The schedule starts with N-1 rounds (even N) or N rounds (odd N); a pair
// that fits none of the existing rounds opens a new round, so the greedy
// order can yield more rounds than that.
// refereeCaps holds each referee's own cap; a referee absent from it (or
// mapped to <= 0) is treated as unlimited for the round. When every
// referee is already at its cap, the next referee in the cycle is
// assigned anyway.
func BuildSchedule(players, referees []string, refereeCaps map[string]int) (protocol.Schedule, error) {
	n := len(players)
	if n < 2 {
		return protocol.Schedule{}, fmt.Errorf("manager: need at least 2 players to schedule, got %d", n)
	}
	if len(referees) == 0 {
		return protocol.Schedule{}, fmt.Errorf("manager: need at least 1 referee to schedule")
	}

	sorted := append([]string(nil), players...)
	sort.Strings(sorted)

	numRounds := n - 1
	if n%2 != 0 {
		numRounds = n
	}

	roundPlayers := make([]map[string]bool, numRounds)
	roundMatches := make([][]protocol.Match, numRounds)
	for i := range roundPlayers {
		roundPlayers[i] = make(map[string]bool)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := sorted[i], sorted[j]
			placed := false
			for r := 0; r < len(roundPlayers); r++ {
				if !roundPlayers[r][a] && !roundPlayers[r][b] {
					roundPlayers[r][a] = true
					roundPlayers[r][b] = true
					roundMatches[r] = append(roundMatches[r], protocol.Match{PlayerA: a, PlayerB: b, RoundNum: r + 1})
					placed = true
					break
				}
			}
			if !placed {
				roundPlayers = append(roundPlayers, map[string]bool{a: true, b: true})
				roundMatches = append(roundMatches, []protocol.Match{{PlayerA: a, PlayerB: b, RoundNum: len(roundMatches) + 1}})
			}
		}
	}
	numRounds = len(roundMatches)

	const unlimited = 1 << 30
	capFor := func(refereeID string) int {
		if cap, ok := refereeCaps[refereeID]; ok && cap > 0 {
			return cap
		}
		return unlimited
	}

	schedule := protocol.Schedule{Rounds: make([]protocol.Round, numRounds)}
	refIdx := 0
	for r := 0; r < numRounds; r++ {
		refCount := make(map[string]int)
		matches := roundMatches[r]
		assigned := make([]protocol.Match, len(matches))
		for mi, m := range matches {
			var chosen string
			for attempts := 0; attempts < len(referees); attempts++ {
				cand := referees[refIdx%len(referees)]
				refIdx++
				if refCount[cand] < capFor(cand) {
					chosen = cand
					break
				}
			}
			if chosen == "" {
				chosen = referees[refIdx%len(referees)]
				refIdx++
			}
			refCount[chosen]++
			m.MatchID = fmt.Sprintf("R%dM%d", r+1, mi+1)
			m.Referee = chosen
			assigned[mi] = m
		}
		schedule.Rounds[r] = protocol.Round{
			RoundID: fmt.Sprintf("R%d", r+1),
			Number:  r + 1,
			Matches: assigned,
		}
	}
	return schedule, nil
}
