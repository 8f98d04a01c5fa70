package manager

import (
	"sort"
	"sync"

	"github.com/evenodd-league/tournament/internal/config"
	"github.com/evenodd-league/tournament/internal/protocol"
)

// headToHead records points earned by one player against another, used
// only to break a tie between exactly two players, at any rank.
type headToHead struct {
	points map[[2]string]int // [winnerID, loserID] -> accumulated points; draws not keyed (can't occur)
}

// Standings is the Manager's exclusive standings engine. Every mutation
// rebuilds the full view and atomically replaces it: readers never
// observe a partially applied update.
type Standings struct {
	mu      sync.RWMutex
	rows    map[string]*protocol.StandingRow
	scoring config.ScoringPolicy
	h2h     headToHead
}

func NewStandings(scoring config.ScoringPolicy) *Standings {
	return &Standings{
		rows:    make(map[string]*protocol.StandingRow),
		scoring: scoring,
		h2h:     headToHead{points: make(map[[2]string]int)},
	}
}

// Init seeds a zeroed row for each player, called once registration closes.
func (s *Standings) Init(playerIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range playerIDs {
		if _, ok := s.rows[id]; !ok {
			s.rows[id] = &protocol.StandingRow{PlayerID: id}
		}
	}
}

// Apply records the outcome of one completed match. winnerID is empty for
// either a draw (isDraw true) or a double-abort (isDraw false, no winner
// and no draw — both players merely played, no points change). Even/Odd
// itself never produces a draw; isDraw exists for a future game type that
// can, per the reserved Draws/scoring.Draw bookkeeping below.
func (s *Standings) Apply(playerA, playerB, winnerID string, isDraw bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ra := s.rowLocked(playerA)
	rb := s.rowLocked(playerB)
	ra.Played++
	rb.Played++

	switch {
	case winnerID == playerA:
		ra.Wins++
		rb.Losses++
		ra.Points += s.scoring.Win
		rb.Points += s.scoring.Loss
		s.recordH2H(playerA, playerB, s.scoring.Win)
	case winnerID == playerB:
		rb.Wins++
		ra.Losses++
		rb.Points += s.scoring.Win
		ra.Points += s.scoring.Loss
		s.recordH2H(playerB, playerA, s.scoring.Win)
	case isDraw:
		ra.Draws++
		rb.Draws++
		ra.Points += s.scoring.Draw
		rb.Points += s.scoring.Draw
	default:
		// Double-abort: no winner, no draw. Played already incremented above;
		// standings are otherwise unchanged for both players.
	}
}

func (s *Standings) rowLocked(id string) *protocol.StandingRow {
	row, ok := s.rows[id]
	if !ok {
		row = &protocol.StandingRow{PlayerID: id}
		s.rows[id] = row
	}
	return row
}

func (s *Standings) recordH2H(winner, loser string, points int) {
	s.h2h.points[[2]string{winner, loser}] += points
}

// Snapshot returns a freshly materialized, ranked view safe to hand to a
// reader without further synchronization: points descending, then
// head-to-head among an exactly-two-way tie, then player_id ascending.
func (s *Standings) Snapshot() protocol.Standings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]protocol.StandingRow, 0, len(s.rows))
	for _, r := range s.rows {
		rows = append(rows, *r)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].PlayerID < rows[j].PlayerID
	})

	s.breakTwoWayTies(rows)
	return protocol.Standings{Rows: rows}
}

// breakTwoWayTies re-orders any adjacent pair with identical points by
// head-to-head points when exactly two players share that point total.
func (s *Standings) breakTwoWayTies(rows []protocol.StandingRow) {
	for i := 0; i < len(rows)-1; i++ {
		j := i + 1
		if rows[i].Points != rows[j].Points {
			continue
		}
		// Only apply when exactly two players are tied at this point total.
		if i > 0 && rows[i-1].Points == rows[i].Points {
			continue
		}
		if j+1 < len(rows) && rows[j+1].Points == rows[j].Points {
			continue
		}
		a, b := rows[i].PlayerID, rows[j].PlayerID
		aPts := s.h2h.points[[2]string{a, b}]
		bPts := s.h2h.points[[2]string{b, a}]
		if bPts > aPts {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
}
