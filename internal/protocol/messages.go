package protocol

// Message bodies for every RPC the league protocol defines, carried as the
// envelope's Body. Field names favor the wire vocabulary over idiomatic Go
// naming so the JSON on the wire matches the protocol's own terms.

// RefereeRegisterRequest is the body of REFEREE_REGISTER_REQUEST.
type RefereeRegisterRequest struct {
	DisplayName          string   `json:"display_name"`
	Endpoint             string   `json:"endpoint"`
	Version              string   `json:"version"`
	GameTypes            []string `json:"game_types"`
	MaxConcurrentMatches int      `json:"max_concurrent_matches,omitempty"`
}

// LeagueRegisterRequest is the body of LEAGUE_REGISTER_REQUEST (player
// registration, named for the tournament rather than the agent).
type LeagueRegisterRequest struct {
	DisplayName string   `json:"display_name"`
	Endpoint    string   `json:"endpoint"`
	Version     string   `json:"version"`
	GameTypes   []string `json:"game_types"`
}

// RegisterResponse is the common shape of both registration responses,
//: "{status, assigned_id, auth_token, league_id}". Status
// is "REGISTERED" or "REJECTED". ManagerToken discloses the Manager's own
// identity token so the registrant can authenticate subsequent
// Manager-originated calls (assign_match, ROUND_ANNOUNCEMENT) — an
// extension of the "transmitted once to owner" rule to the Manager's own
// self-registered identity.
type RegisterResponse struct {
	Status       string `json:"status"`
	AssignedID   string `json:"assigned_id,omitempty"`
	AuthToken    string `json:"auth_token,omitempty"`
	LeagueID     string `json:"league_id"`
	ManagerToken string `json:"manager_token,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// RefereeGrant discloses one player's identity, endpoint and token to the
// referee handling a match with that player; the referee keeps the token
// in its TokenStore for the lifetime of the match. GAME_JOIN_ACK and
// CHOOSE_PARITY_RESPONSE arrive as replies to the referee's own calls.
type RefereeGrant struct {
	PlayerID string `json:"player_id"`
	Endpoint string `json:"endpoint"`
	Token    string `json:"token"`
}

// AssignMatchRequest is the body of assign_match (Manager -> Referee).
type AssignMatchRequest struct {
	MatchID  string       `json:"match_id"`
	RoundID  string       `json:"round_id"`
	PlayerA  RefereeGrant `json:"player_a"`
	PlayerB  RefereeGrant `json:"player_b"`
}

// AssignMatchResponse acknowledges assign_match before the match runs.
type AssignMatchResponse struct {
	Accepted bool `json:"accepted"`
}

// PlayerGrant discloses a referee's identity and token to a player so it
// can authenticate inbound calls from that referee for the match.
type PlayerGrant struct {
	MatchID    string `json:"match_id"`
	RefereeID  string `json:"referee_id"`
	Endpoint   string `json:"endpoint"`
	Token      string `json:"token"`
	Opponent   string `json:"opponent_id"`
}

// RoundAnnouncement is the body of ROUND_ANNOUNCEMENT (Manager -> Player).
type RoundAnnouncement struct {
	RoundID string        `json:"round_id"`
	Number  int           `json:"number"`
	Matches []PlayerGrant `json:"matches"`
}

// RoundAnnouncementAck acknowledges ROUND_ANNOUNCEMENT.
type RoundAnnouncementAck struct {
	Acknowledged bool `json:"acknowledged"`
}

// GameInvitationRequest is the body of GAME_INVITATION (Referee -> Player).
type GameInvitationRequest struct {
	MatchID   string `json:"match_id"`
	Opponent  string `json:"opponent_id"`
}

// GameJoinAck is the body of GAME_JOIN_ACK, the player's invitation reply.
type GameJoinAck struct {
	Accept          bool   `json:"accept"`
	ArrivalTimestamp string `json:"arrival_timestamp"`
}

// ChooseParityCall is the body of CHOOSE_PARITY_CALL (Referee -> Player).
type ChooseParityCall struct {
	MatchID          string `json:"match_id"`
	Opponent         string `json:"opponent_id"`
	StandingsSnapshot Standings `json:"standings_snapshot"`
}

// ChooseParityResponse is the body of CHOOSE_PARITY_RESPONSE.
type ChooseParityResponse struct {
	Choice Parity `json:"choice"`
}

// GameOver is the body of GAME_OVER / notify_match_result (Referee -> Player).
type GameOver struct {
	MatchRecord MatchRecord `json:"match_record"`
}

// GameOverAck acknowledges notify_match_result.
type GameOverAck struct {
	Acknowledged bool `json:"acknowledged"`
}

// MatchResultReport is the body of MATCH_RESULT_REPORT (Referee -> Manager).
type MatchResultReport struct {
	MatchRecord MatchRecord `json:"match_record"`
}

// MatchResultAck acknowledges report_match_result.
type MatchResultAck struct {
	Acknowledged bool `json:"acknowledged"`
	Duplicate    bool `json:"duplicate,omitempty"`
}

// StartLeagueRequest is the body of start_league.
type StartLeagueRequest struct{}

// StartLeagueResponse acknowledges start_league.
type StartLeagueResponse struct {
	Started  bool     `json:"started"`
	Schedule Schedule `json:"schedule,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

// LeagueQueryRequest is the body of league_query; Kind selects the view.
type LeagueQueryRequest struct {
	Kind string `json:"kind"` // "standings" | "schedule" | "state" | "roster"
}

// LeagueQueryResponse is the body of the league_query reply.
type LeagueQueryResponse struct {
	TournamentState TournamentState `json:"tournament_state"`
	CurrentRound    int             `json:"current_round,omitempty"`
	Standings       *Standings      `json:"standings,omitempty"`
	Schedule        *Schedule       `json:"schedule,omitempty"`
	RefereeCount    int             `json:"referee_count,omitempty"`
	PlayerCount     int             `json:"player_count,omitempty"`
}

// LeagueStandingsUpdate is the body of LEAGUE_STANDINGS_UPDATE.
type LeagueStandingsUpdate struct {
	Standings Standings `json:"standings"`
}

// RoundCompleted is the body of ROUND_COMPLETED.
type RoundCompleted struct {
	RoundID string `json:"round_id"`
	Number  int    `json:"number"`
}

// LeagueCompleted is the body of LEAGUE_COMPLETED.
type LeagueCompleted struct {
	ChampionID string    `json:"champion_id"`
	Standings  Standings `json:"standings"`
}
