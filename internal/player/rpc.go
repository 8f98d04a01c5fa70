package player

import (
	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/protocol"
	"github.com/evenodd-league/tournament/internal/rpcserver"
)

// RegisterHandlers binds the player's three RPC methods —
// handle_game_invitation, choose_parity, notify_match_result.
// round_announcement is also accepted here so the player can learn its
// assigned referee's token ahead of being contacted.
func (p *Player) RegisterHandlers(srv *rpcserver.Server) {
	srv.Register("handle_game_invitation", true, p.handleGameInvitation)
	srv.Register("choose_parity", true, p.handleChooseParity)
	srv.Register("notify_match_result", true, p.handleNotifyMatchResult)
	srv.Register("round_announcement", true, p.handleRoundAnnouncement)
}

func (p *Player) handleGameInvitation(rc *rpcserver.RequestContext) (any, *protocol.RPCError) {
	return p.handleInvitation(), nil
}

func (p *Player) handleChooseParity(rc *rpcserver.RequestContext) (any, *protocol.RPCError) {
	var req protocol.ChooseParityCall
	if err := rc.Envelope.DecodeBody(&req); err != nil {
		// Never error out of choose_parity: an invalid request still
		// yields a clamped choice rather than a guaranteed loss via error.
		return protocol.ChooseParityResponse{Choice: protocol.ParityEven}, nil
	}
	choice := p.chooseParity(req.Opponent)
	return protocol.ChooseParityResponse{Choice: choice}, nil
}

func (p *Player) handleNotifyMatchResult(rc *rpcserver.RequestContext) (any, *protocol.RPCError) {
	var req protocol.GameOver
	if err := rc.Envelope.DecodeBody(&req); err != nil {
		return nil, &protocol.RPCError{Code: protocol.RPCErrInvalidParams, Message: err.Error()}
	}
	if err := p.notifyResult(req.MatchRecord); err != nil {
		p.logger.Warn("notifyResult failed", zap.Error(err))
	}
	return protocol.GameOverAck{Acknowledged: true}, nil
}

func (p *Player) handleRoundAnnouncement(rc *rpcserver.RequestContext) (any, *protocol.RPCError) {
	var req protocol.RoundAnnouncement
	if err := rc.Envelope.DecodeBody(&req); err != nil {
		return nil, &protocol.RPCError{Code: protocol.RPCErrInvalidParams, Message: err.Error()}
	}
	for _, grant := range req.Matches {
		p.tokens.Put(protocol.FormatSender(protocol.RoleReferee, grant.RefereeID), grant.Token)
	}
	return protocol.RoundAnnouncementAck{Acknowledged: true}, nil
}
