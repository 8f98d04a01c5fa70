package manager

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/config"
	"github.com/evenodd-league/tournament/internal/protocol"
	"github.com/evenodd-league/tournament/internal/rpcclient"
	"github.com/evenodd-league/tournament/internal/storage"
)

// Manager is the League Manager: tournament authority owning the
// AgentRegistry, Schedule, Standings, and round coordinator.
type Manager struct {
	ID           string
	LeagueID     string
	cfg          config.Config
	logger       *zap.Logger
	layout       storage.Layout
	client       *rpcclient.Client
	managerToken string // this manager's own identity token, disclosed once to every registrant

	Registry  *Registry
	Standings *Standings

	mu        sync.Mutex
	state     protocol.TournamentState
	schedule  protocol.Schedule
	round     int // 1-indexed, 0 before start
	outstanding map[string]bool // match_id still awaiting report, current round only
	reported    map[string]bool // match_id ever reported, for at-most-once dedup across the tournament
}

func New(id, leagueID string, cfg config.Config, logger *zap.Logger, layout storage.Layout, client *rpcclient.Client, tokens *protocol.TokenStore) (*Manager, error) {
	managerToken, err := protocol.NewAuthToken(protocol.RoleManager, id)
	if err != nil {
		return nil, err
	}
	tokens.Put(protocol.FormatSender(protocol.RoleManager, "manager"), managerToken)
	return &Manager{
		ID:           id,
		LeagueID:     leagueID,
		cfg:          cfg,
		logger:       logger.Named("manager"),
		layout:       layout,
		client:       client,
		managerToken: managerToken,
		Registry:     NewRegistry(logger, cfg, id, tokens),
		Standings:    NewStandings(cfg.Scoring),
		state:        protocol.TournamentInitializing,
		outstanding:  make(map[string]bool),
		reported:     make(map[string]bool),
	}, nil
}

// State returns the current tournament state.
func (m *Manager) State() protocol.TournamentState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) transition(to protocol.TournamentState) error {
	if !protocol.CanTransitionTournament(m.state, to) {
		return fmt.Errorf("manager: illegal tournament transition %s -> %s", m.state, to)
	}
	m.state = to
	m.logger.Info("tournament state transition", zap.String("to", string(to)))
	return nil
}

// StartLeague computes the schedule, persists it, moves to ROUND_ACTIVE, and
// kicks off round 1. It is idempotent: a second call when already active
// returns the existing schedule without recomputing it.
func (m *Manager) StartLeague(ctx context.Context) (protocol.Schedule, error) {
	m.mu.Lock()
	if m.state == protocol.TournamentRoundActive || m.state == protocol.TournamentCompleted {
		sched := m.schedule
		m.mu.Unlock()
		return sched, nil
	}
	if err := m.transition(protocol.TournamentRegistration); err != nil {
		m.mu.Unlock()
		return protocol.Schedule{}, err
	}
	if err := m.transition(protocol.TournamentScheduling); err != nil {
		m.mu.Unlock()
		return protocol.Schedule{}, err
	}

	players := m.Registry.PlayerIDs()
	referees := m.Registry.RefereeIDs()
	m.Standings.Init(players)

	sched, err := BuildSchedule(players, referees, m.Registry.RefereeCaps())
	if err != nil {
		m.mu.Unlock()
		return protocol.Schedule{}, err
	}
	m.schedule = sched

	if err := m.transition(protocol.TournamentRoundActive); err != nil {
		m.mu.Unlock()
		return protocol.Schedule{}, err
	}
	m.round = 1
	m.mu.Unlock()

	if err := storage.WriteRecord(m.layout.ScheduleFile(m.LeagueID), m.LeagueID, sched); err != nil {
		m.logger.Warn("persisting schedule failed", zap.Error(err))
	}

	go m.startRound(context.Background(), 1)
	return sched, nil
}

// startRound broadcasts ROUND_ANNOUNCEMENT to every player in the round,
// then dispatches assign_match to each match's referee.
func (m *Manager) startRound(ctx context.Context, number int) {
	m.mu.Lock()
	var round protocol.Round
	for _, r := range m.schedule.Rounds {
		if r.Number == number {
			round = r
			break
		}
	}
	m.outstanding = make(map[string]bool)
	for _, match := range round.Matches {
		m.outstanding[match.MatchID] = true
	}
	m.mu.Unlock()

	m.broadcastRoundAnnouncement(ctx, round)

	for _, match := range round.Matches {
		go m.dispatchAssignMatch(ctx, round, match)
	}
}

func (m *Manager) broadcastRoundAnnouncement(ctx context.Context, round protocol.Round) {
	byPlayer := make(map[string][]protocol.PlayerGrant)
	for _, match := range round.Matches {
		refReg, _ := m.Registry.Referee(match.Referee)
		byPlayer[match.PlayerA] = append(byPlayer[match.PlayerA], protocol.PlayerGrant{
			MatchID: match.MatchID, RefereeID: match.Referee, Endpoint: refReg.Identity.Endpoint, Token: refReg.Token, Opponent: match.PlayerB,
		})
		byPlayer[match.PlayerB] = append(byPlayer[match.PlayerB], protocol.PlayerGrant{
			MatchID: match.MatchID, RefereeID: match.Referee, Endpoint: refReg.Identity.Endpoint, Token: refReg.Token, Opponent: match.PlayerA,
		})
	}

	for playerID, grants := range byPlayer {
		reg, ok := m.Registry.Player(playerID)
		if !ok {
			continue
		}
		body := protocol.RoundAnnouncement{RoundID: round.RoundID, Number: round.Number, Matches: grants}
		env, err := protocol.NewEnvelope(protocol.MsgRoundAnnouncement, protocol.FormatSender(protocol.RoleManager, "manager"), body)
		if err != nil {
			m.logger.Error("building round announcement", zap.Error(err))
			continue
		}
		env.LeagueID = m.LeagueID
		env.RoundID = round.RoundID
		env.AuthToken = m.managerToken
		if err := m.client.Call(ctx, reg.Identity.Endpoint, "round_announcement", env, nil); err != nil {
			m.logger.Warn("round announcement delivery failed", zap.String("player_id", playerID), zap.Error(err))
		}
	}
}

func (m *Manager) dispatchAssignMatch(ctx context.Context, round protocol.Round, match protocol.Match) {
	refReg, ok := m.Registry.Referee(match.Referee)
	if !ok {
		m.logger.Error("assign_match: unknown referee", zap.String("referee_id", match.Referee))
		return
	}
	playerA, _ := m.Registry.Player(match.PlayerA)
	playerB, _ := m.Registry.Player(match.PlayerB)

	body := protocol.AssignMatchRequest{
		MatchID: match.MatchID,
		RoundID: round.RoundID,
		PlayerA: protocol.RefereeGrant{PlayerID: match.PlayerA, Endpoint: playerA.Identity.Endpoint, Token: playerA.Token},
		PlayerB: protocol.RefereeGrant{PlayerID: match.PlayerB, Endpoint: playerB.Identity.Endpoint, Token: playerB.Token},
	}
	env, err := protocol.NewEnvelope(protocol.MsgGameInvitation, protocol.FormatSender(protocol.RoleManager, "manager"), body)
	if err != nil {
		m.logger.Error("building assign_match envelope", zap.Error(err))
		return
	}
	env.LeagueID = m.LeagueID
	env.RoundID = round.RoundID
	env.MatchID = match.MatchID
	env.AuthToken = m.managerToken

	var resp protocol.AssignMatchResponse
	if err := m.client.Call(ctx, refReg.Identity.Endpoint, "assign_match", env, &resp); err != nil {
		m.logger.Error("assign_match failed", zap.String("match_id", match.MatchID), zap.Error(err))
	}
}

// ReportMatchResult handles MATCH_RESULT_REPORT. Idempotent on match_id: a
// repeat report for an already-closed match is accepted, logged, and
// discarded without mutating standings twice, per the at-most-once,
// Manager-owned dedup policy.
func (m *Manager) ReportMatchResult(record protocol.MatchRecord) (duplicate bool, err error) {
	m.mu.Lock()
	if m.reported[record.MatchID] {
		m.mu.Unlock()
		m.logger.Info("duplicate match result discarded", zap.String("match_id", record.MatchID))
		return true, nil
	}
	m.reported[record.MatchID] = true
	delete(m.outstanding, record.MatchID)
	remaining := len(m.outstanding)
	currentRound := m.round
	m.mu.Unlock()

	winner := ""
	if record.WinnerID != nil {
		winner = *record.WinnerID
	}
	m.Standings.Apply(record.Players[0], record.Players[1], winner, false)

	if err := storage.WriteRecord(m.layout.MatchFile(m.LeagueID, fmt.Sprintf("R%d", currentRound), record.MatchID), record.MatchID, record); err != nil {
		m.logger.Warn("persisting match record failed", zap.Error(err))
	}
	if err := storage.WriteRecord(m.layout.StandingsFile(m.LeagueID), m.LeagueID, m.Standings.Snapshot()); err != nil {
		m.logger.Warn("persisting standings failed", zap.Error(err))
	}

	if remaining == 0 {
		go m.completeRound(context.Background(), currentRound)
	}
	return false, nil
}

func (m *Manager) completeRound(ctx context.Context, number int) {
	m.logger.Info("round completed", zap.Int("round", number))

	totalRounds := len(m.schedule.Rounds)
	if number >= totalRounds {
		m.mu.Lock()
		_ = m.transition(protocol.TournamentCompleted)
		m.mu.Unlock()
		champion := m.champion()
		m.logger.Info("league completed", zap.String("champion_id", champion))
		return
	}

	m.mu.Lock()
	m.round = number + 1
	next := m.round
	m.mu.Unlock()
	m.startRound(ctx, next)
}

func (m *Manager) champion() string {
	snap := m.Standings.Snapshot()
	if len(snap.Rows) == 0 {
		return ""
	}
	return snap.Rows[0].PlayerID
}

// Query answers league_query for the given view kind.
func (m *Manager) Query(kind string) protocol.LeagueQueryResponse {
	m.mu.Lock()
	state := m.state
	round := m.round
	sched := m.schedule
	m.mu.Unlock()

	referees, players := m.Registry.Counts()
	resp := protocol.LeagueQueryResponse{TournamentState: state, CurrentRound: round, RefereeCount: referees, PlayerCount: players}
	switch kind {
	case "schedule":
		resp.Schedule = &sched
	case "roster":
	default:
		snap := m.Standings.Snapshot()
		resp.Standings = &snap
	}
	return resp
}
