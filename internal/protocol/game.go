package protocol

// Parity is a player's choice in the Even/Odd game.
type Parity string

const (
	ParityEven Parity = "even"
	ParityOdd  Parity = "odd"
)

// Valid reports whether p is one of the two legal parity values.
func (p Parity) Valid() bool {
	return p == ParityEven || p == ParityOdd
}

// ParityOf returns the parity of n, per the referee's drawn_number rule.
func ParityOf(n int) Parity {
	if n%2 == 0 {
		return ParityEven
	}
	return ParityOdd
}

// MatchStatus is the terminal disposition of a MatchRecord.
type MatchStatus string

const (
	MatchStatusCompleted MatchStatus = "COMPLETED"
	MatchStatusAborted   MatchStatus = "ABORTED"
)

// Match describes one scheduled pairing.
type Match struct {
	MatchID  string `json:"match_id"`
	PlayerA  string `json:"player_a"`
	PlayerB  string `json:"player_b"`
	Referee  string `json:"referee_id"`
	RoundNum int    `json:"round_num"`
}

// Round is an unordered set of matches that is a matching (no player
// appears twice).
type Round struct {
	RoundID string  `json:"round_id"`
	Number  int     `json:"number"`
	Matches []Match `json:"matches"`
}

// Schedule is the ordered sequence of rounds produced by the scheduler.
type Schedule struct {
	Rounds []Round `json:"rounds"`
}

// MatchRecord is the append-only record of one played (or aborted) match.
type MatchRecord struct {
	MatchID      string         `json:"match_id"`
	Players      [2]string      `json:"players"`
	Choices      map[string]Parity `json:"choices"`
	DrawnNumber  *int           `json:"drawn_number"`
	NumberParity Parity         `json:"number_parity,omitempty"`
	WinnerID     *string        `json:"winner_player_id"`
	Reason       string         `json:"reason,omitempty"`
	StartedAt    string         `json:"started_at"`
	FinishedAt   string         `json:"finished_at"`
	Status       MatchStatus    `json:"status"`
}

// StandingRow is one player's row in the standings table.
type StandingRow struct {
	PlayerID string `json:"player_id"`
	Played   int    `json:"played"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Draws    int    `json:"draws"`
	Points   int    `json:"points"`
}

// Standings is the full standings view, a snapshot safe to hand to readers
// without further synchronization.
type Standings struct {
	Rows []StandingRow `json:"rows"`
}

// ─── State machines ──────────────────────────────────────────────────────

// GameState is the referee-owned per-match state machine.
type GameState string

const (
	GameIdle               GameState = "IDLE"
	GameWaitingForPlayers  GameState = "WAITING_FOR_PLAYERS"
	GameCollectingChoices  GameState = "COLLECTING_CHOICES"
	GameDrawingNumber      GameState = "DRAWING_NUMBER"
	GameEvaluating         GameState = "EVALUATING"
	GameFinished           GameState = "FINISHED"
	GameAborted            GameState = "ABORTED"
)

// gameTransitions is the explicit transition table for GameState. An
// attempted transition not present here is a hard error, never a silent
// no-op, per the design notes.
var gameTransitions = map[GameState]map[GameState]bool{
	GameIdle:              {GameWaitingForPlayers: true, GameAborted: true},
	GameWaitingForPlayers: {GameCollectingChoices: true, GameAborted: true},
	GameCollectingChoices: {GameDrawingNumber: true, GameAborted: true, GameFinished: true},
	GameDrawingNumber:     {GameEvaluating: true, GameAborted: true},
	GameEvaluating:        {GameFinished: true, GameAborted: true},
}

// CanTransition reports whether from -> to is a legal GameState edge.
func CanTransition(from, to GameState) bool {
	return gameTransitions[from][to]
}

// RoundState is the Manager-owned per-round state machine.
type RoundState string

const (
	RoundPending    RoundState = "PENDING"
	RoundAnnounced  RoundState = "ANNOUNCED"
	RoundInProgress RoundState = "IN_PROGRESS"
	RoundCompleted  RoundState = "COMPLETED"
)

var roundTransitions = map[RoundState]map[RoundState]bool{
	RoundPending:    {RoundAnnounced: true},
	RoundAnnounced:  {RoundInProgress: true},
	RoundInProgress: {RoundCompleted: true},
}

// CanTransitionRound reports whether from -> to is a legal RoundState edge.
func CanTransitionRound(from, to RoundState) bool {
	return roundTransitions[from][to]
}

// TournamentState is the Manager-owned overall tournament state machine.
type TournamentState string

const (
	TournamentInitializing TournamentState = "INITIALIZING"
	TournamentRegistration TournamentState = "REGISTRATION"
	TournamentScheduling   TournamentState = "SCHEDULING"
	TournamentRoundActive  TournamentState = "ROUND_ACTIVE"
	TournamentCompleted    TournamentState = "COMPLETED"
)

var tournamentTransitions = map[TournamentState]map[TournamentState]bool{
	TournamentInitializing: {TournamentRegistration: true},
	TournamentRegistration: {TournamentScheduling: true},
	TournamentScheduling:   {TournamentRoundActive: true},
	TournamentRoundActive:  {TournamentRoundActive: true, TournamentCompleted: true},
}

// CanTransitionTournament reports whether from -> to is a legal
// TournamentState edge.
func CanTransitionTournament(from, to TournamentState) bool {
	return tournamentTransitions[from][to]
}

// AgentHealthStatus is the Orchestrator-owned per-agent health state.
type AgentHealthStatus string

const (
	HealthUnknown   AgentHealthStatus = "UNKNOWN"
	HealthStarting  AgentHealthStatus = "STARTING"
	HealthHealthy   AgentHealthStatus = "HEALTHY"
	HealthUnhealthy AgentHealthStatus = "UNHEALTHY"
	HealthCrashed   AgentHealthStatus = "CRASHED"
)

// AgentHealth is the health record the Orchestrator maintains per agent.
type AgentHealth struct {
	Status              AgentHealthStatus `json:"status"`
	ConsecutiveFailures int               `json:"consecutive_failures"`
	LastProbeAt         string            `json:"last_probe_at"`
}
