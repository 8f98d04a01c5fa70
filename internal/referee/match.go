package referee

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/evenodd-league/tournament/internal/protocol"
)

// Match drives one assigned pairing through the six-phase match protocol.
// Owned exclusively by the referee that accepted it; its resources are
// dropped as soon as the match concludes.
type Match struct {
	ref *Referee
	req protocol.AssignMatchRequest

	state     protocol.GameState
	startedAt time.Time
}

func newMatch(ref *Referee, req protocol.AssignMatchRequest) *Match {
	return &Match{ref: ref, req: req, state: protocol.GameIdle, startedAt: time.Now()}
}

func (m *Match) transition(to protocol.GameState) error {
	if !protocol.CanTransition(m.state, to) {
		return fmt.Errorf("referee: illegal match transition %s -> %s for %s", m.state, to, m.req.MatchID)
	}
	m.state = to
	return nil
}

// Run executes all six phases in order, reporting the final MatchRecord to
// the Manager before returning. It never returns an error: any failure
// becomes a MatchRecord with status=ABORTED.
func (m *Match) Run(ctx context.Context) {
	logger := m.ref.logger.With(zap.String("match_id", m.req.MatchID))

	record := protocol.MatchRecord{
		MatchID:   m.req.MatchID,
		Players:   [2]string{m.req.PlayerA.PlayerID, m.req.PlayerB.PlayerID},
		Choices:   make(map[string]protocol.Parity),
		StartedAt: protocol.FormatTime(m.startedAt),
	}

	if err := m.transition(protocol.GameWaitingForPlayers); err != nil {
		logger.Error("phase transition failed", zap.Error(err))
		return
	}

	if abortReason, ok := m.phaseInvitations(ctx); !ok {
		m.finishAborted(ctx, &record, abortReason, "")
		return
	}

	if err := m.transition(protocol.GameCollectingChoices); err != nil {
		logger.Error("phase transition failed", zap.Error(err))
		return
	}

	choices, failedA, failedB := m.phaseCollectChoices(ctx)
	for id, c := range choices {
		record.Choices[id] = c
	}

	switch {
	case failedA && failedB:
		m.finishAborted(ctx, &record, "both players timed out", "")
		return
	case failedA:
		winner := m.req.PlayerB.PlayerID
		m.finishTechnical(ctx, &record, winner, "player "+m.req.PlayerA.PlayerID+" failed to choose")
		return
	case failedB:
		winner := m.req.PlayerA.PlayerID
		m.finishTechnical(ctx, &record, winner, "player "+m.req.PlayerB.PlayerID+" failed to choose")
		return
	}

	if err := m.transition(protocol.GameDrawingNumber); err != nil {
		logger.Error("phase transition failed", zap.Error(err))
		return
	}
	drawn, err := m.drawNumber()
	if err != nil {
		logger.Error("drawing number failed", zap.Error(err))
		m.finishAborted(ctx, &record, "number draw failed: "+err.Error(), "")
		return
	}
	parity := protocol.ParityOf(drawn)
	record.DrawnNumber = &drawn
	record.NumberParity = parity

	if err := m.transition(protocol.GameEvaluating); err != nil {
		logger.Error("phase transition failed", zap.Error(err))
		return
	}

	winner := m.evaluate(record.Choices, parity)
	m.finishCompleted(ctx, &record, winner)
}

// phaseInvitations calls handle_game_invitation on both players in
// parallel, per the fairness invariant both dispatches happen before
// either result is awaited.
func (m *Match) phaseInvitations(ctx context.Context) (abortReason string, ok bool) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(m.ref.cfg.InvitationTimeoutS*float64(time.Second)))
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.inviteOne(gctx, m.req.PlayerA) })
	g.Go(func() error { return m.inviteOne(gctx, m.req.PlayerB) })

	if err := g.Wait(); err != nil {
		return err.Error(), false
	}
	return "", true
}

func (m *Match) inviteOne(ctx context.Context, grant protocol.RefereeGrant) error {
	opponent := m.req.PlayerA.PlayerID
	if grant.PlayerID == m.req.PlayerA.PlayerID {
		opponent = m.req.PlayerB.PlayerID
	}
	body := protocol.GameInvitationRequest{MatchID: m.req.MatchID, Opponent: opponent}
	env, err := protocol.NewEnvelope(protocol.MsgGameInvitation, protocol.FormatSender(protocol.RoleReferee, m.ref.ID), body)
	if err != nil {
		return err
	}
	env.AuthToken = m.ref.token
	env.MatchID = m.req.MatchID

	var resp protocol.GameJoinAck
	if err := m.ref.client.Call(ctx, grant.Endpoint, "handle_game_invitation", env, &resp); err != nil {
		return fmt.Errorf("invitation to %s failed: %w", grant.PlayerID, err)
	}
	if !resp.Accept {
		return fmt.Errorf("player %s declined invitation", grant.PlayerID)
	}
	return nil
}

// phaseCollectChoices calls choose_parity on both players, launching both
// calls before awaiting either result (the simultaneous-collection
// fairness invariant), via errgroup's fan-out.
func (m *Match) phaseCollectChoices(ctx context.Context) (choices map[string]protocol.Parity, failedA, failedB bool) {
	deadline := time.Duration(m.ref.cfg.ChoiceTimeoutS * float64(time.Second))
	choices = make(map[string]protocol.Parity)

	var g errgroup.Group
	var mu sync.Mutex

	collect := func(grant protocol.RefereeGrant) func() error {
		return func() error {
			cctx, cancel := context.WithTimeout(ctx, deadline)
			defer cancel()
			choice, err := m.chooseOne(cctx, grant)
			mu.Lock()
			defer mu.Unlock()
			if err != nil || !choice.Valid() {
				return err
			}
			choices[grant.PlayerID] = choice
			return nil
		}
	}

	g.Go(collect(m.req.PlayerA))
	g.Go(collect(m.req.PlayerB))
	_ = g.Wait()

	_, okA := choices[m.req.PlayerA.PlayerID]
	_, okB := choices[m.req.PlayerB.PlayerID]
	return choices, !okA, !okB
}

func (m *Match) chooseOne(ctx context.Context, grant protocol.RefereeGrant) (protocol.Parity, error) {
	opponent := m.req.PlayerA.PlayerID
	if grant.PlayerID == m.req.PlayerA.PlayerID {
		opponent = m.req.PlayerB.PlayerID
	}
	body := protocol.ChooseParityCall{MatchID: m.req.MatchID, Opponent: opponent}
	env, err := protocol.NewEnvelope(protocol.MsgChooseParityCall, protocol.FormatSender(protocol.RoleReferee, m.ref.ID), body)
	if err != nil {
		return "", err
	}
	env.AuthToken = m.ref.token
	env.MatchID = m.req.MatchID

	var resp protocol.ChooseParityResponse
	if err := m.ref.client.Call(ctx, grant.Endpoint, "choose_parity", env, &resp); err != nil {
		return "", err
	}
	if resp.Choice.Valid() {
		return resp.Choice, nil
	}
	return "", fmt.Errorf("invalid choice from %s", grant.PlayerID)
}

func (m *Match) drawNumber() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()) + 1, nil
}

// evaluate returns the winner's player ID: exactly one choice matches
// number_parity since choices are drawn from a two-element set.
func (m *Match) evaluate(choices map[string]protocol.Parity, parity protocol.Parity) string {
	if choices[m.req.PlayerA.PlayerID] == parity {
		return m.req.PlayerA.PlayerID
	}
	return m.req.PlayerB.PlayerID
}

func (m *Match) finishCompleted(ctx context.Context, record *protocol.MatchRecord, winner string) {
	record.WinnerID = &winner
	record.Status = protocol.MatchStatusCompleted
	record.FinishedAt = protocol.FormatTime(time.Now())
	_ = m.transition(protocol.GameFinished)
	m.notifyAndReport(ctx, record)
}

func (m *Match) finishTechnical(ctx context.Context, record *protocol.MatchRecord, winner, reason string) {
	record.WinnerID = &winner
	record.Reason = reason
	record.Status = protocol.MatchStatusAborted
	record.FinishedAt = protocol.FormatTime(time.Now())
	_ = m.transition(protocol.GameFinished)
	m.notifyAndReport(ctx, record)
}

func (m *Match) finishAborted(ctx context.Context, record *protocol.MatchRecord, reason, winner string) {
	if winner != "" {
		record.WinnerID = &winner
	}
	record.Reason = reason
	record.Status = protocol.MatchStatusAborted
	record.FinishedAt = protocol.FormatTime(time.Now())
	_ = m.transition(protocol.GameAborted)
	m.notifyAndReport(ctx, record)
}

// notifyAndReport fires notify_match_result to both players (best-effort,
// failures logged but non-blocking), then synchronously reports the result
// to the Manager with retry — the authoritative completion signal.
func (m *Match) notifyAndReport(ctx context.Context, record *protocol.MatchRecord) {
	for _, grant := range []protocol.RefereeGrant{m.req.PlayerA, m.req.PlayerB} {
		go m.notifyOne(ctx, grant, *record)
	}
	m.report(ctx, *record)
}

func (m *Match) notifyOne(ctx context.Context, grant protocol.RefereeGrant, record protocol.MatchRecord) {
	body := protocol.GameOver{MatchRecord: record}
	env, err := protocol.NewEnvelope(protocol.MsgGameOver, protocol.FormatSender(protocol.RoleReferee, m.ref.ID), body)
	if err != nil {
		m.ref.logger.Warn("building notify envelope failed", zap.Error(err))
		return
	}
	env.AuthToken = m.ref.token
	env.MatchID = record.MatchID

	var resp protocol.GameOverAck
	if err := m.ref.client.Call(ctx, grant.Endpoint, "notify_match_result", env, &resp); err != nil {
		m.ref.logger.Warn("notify_match_result failed", zap.String("player_id", grant.PlayerID), zap.Error(err))
	}
}

func (m *Match) report(ctx context.Context, record protocol.MatchRecord) {
	body := protocol.MatchResultReport{MatchRecord: record}
	env, err := protocol.NewEnvelope(protocol.MsgMatchResultReport, protocol.FormatSender(protocol.RoleReferee, m.ref.ID), body)
	if err != nil {
		m.ref.logger.Error("building report envelope failed", zap.Error(err))
		return
	}
	env.AuthToken = m.ref.token
	env.LeagueID = m.ref.LeagueID
	env.MatchID = record.MatchID

	var resp protocol.MatchResultAck
	if err := m.ref.client.Call(ctx, m.ref.ManagerEndpoint, "report_match_result", env, &resp); err != nil {
		m.ref.logger.Error("report_match_result failed", zap.String("match_id", record.MatchID), zap.Error(err))
	}
}
