package manager

import (
	"github.com/evenodd-league/tournament/internal/protocol"
	"github.com/evenodd-league/tournament/internal/rpcserver"
)

// RegisterHandlers binds the Manager's public RPC surface — register_referee,
// register_player, start_league, report_match_result, league_query — onto
// srv
func (m *Manager) RegisterHandlers(srv *rpcserver.Server) {
	srv.Register("register_referee", false, m.handleRegisterReferee)
	srv.Register("register_player", false, m.handleRegisterPlayer)
	srv.Register("start_league", true, m.handleStartLeague)
	srv.Register("report_match_result", true, m.handleReportMatchResult)
	srv.Register("league_query", true, m.handleLeagueQuery)
}

func (m *Manager) handleRegisterReferee(rc *rpcserver.RequestContext) (any, *protocol.RPCError) {
	var req protocol.RefereeRegisterRequest
	if err := rc.Envelope.DecodeBody(&req); err != nil {
		return nil, &protocol.RPCError{Code: protocol.RPCErrInvalidParams, Message: err.Error()}
	}
	reg, ok, err := m.Registry.RegisterReferee(req)
	if err != nil {
		return nil, protocol.NewRPCError(protocol.NewDomainError(protocol.ErrCodeUnexpected, err.Error(), nil))
	}
	if !ok {
		return protocol.RegisterResponse{Status: "REJECTED", LeagueID: m.LeagueID, Reason: "max_referees reached"}, nil
	}
	return protocol.RegisterResponse{
		Status:       "REGISTERED",
		AssignedID:   reg.Identity.ID,
		AuthToken:    reg.Token,
		LeagueID:     m.LeagueID,
		ManagerToken: m.managerToken,
	}, nil
}

func (m *Manager) handleRegisterPlayer(rc *rpcserver.RequestContext) (any, *protocol.RPCError) {
	var req protocol.LeagueRegisterRequest
	if err := rc.Envelope.DecodeBody(&req); err != nil {
		return nil, &protocol.RPCError{Code: protocol.RPCErrInvalidParams, Message: err.Error()}
	}
	reg, ok, err := m.Registry.RegisterPlayer(req)
	if err != nil {
		return nil, protocol.NewRPCError(protocol.NewDomainError(protocol.ErrCodeUnexpected, err.Error(), nil))
	}
	if !ok {
		return protocol.RegisterResponse{Status: "REJECTED", LeagueID: m.LeagueID, Reason: "max_players reached"}, nil
	}
	return protocol.RegisterResponse{
		Status:       "REGISTERED",
		AssignedID:   reg.Identity.ID,
		AuthToken:    reg.Token,
		LeagueID:     m.LeagueID,
		ManagerToken: m.managerToken,
	}, nil
}

func (m *Manager) handleStartLeague(rc *rpcserver.RequestContext) (any, *protocol.RPCError) {
	sched, err := m.StartLeague(rc.Request.Context())
	if err != nil {
		return nil, protocol.NewRPCError(protocol.NewDomainError(protocol.ErrCodeValidation, err.Error(), nil))
	}
	return protocol.StartLeagueResponse{Started: true, Schedule: sched}, nil
}

func (m *Manager) handleReportMatchResult(rc *rpcserver.RequestContext) (any, *protocol.RPCError) {
	var req protocol.MatchResultReport
	if err := rc.Envelope.DecodeBody(&req); err != nil {
		return nil, &protocol.RPCError{Code: protocol.RPCErrInvalidParams, Message: err.Error()}
	}
	dup, err := m.ReportMatchResult(req.MatchRecord)
	if err != nil {
		return nil, protocol.NewRPCError(protocol.NewDomainError(protocol.ErrCodeUnexpected, err.Error(), nil))
	}
	return protocol.MatchResultAck{Acknowledged: true, Duplicate: dup}, nil
}

func (m *Manager) handleLeagueQuery(rc *rpcserver.RequestContext) (any, *protocol.RPCError) {
	var req protocol.LeagueQueryRequest
	_ = rc.Envelope.DecodeBody(&req)
	return m.Query(req.Kind), nil
}
