package referee

import (
	"github.com/evenodd-league/tournament/internal/protocol"
	"github.com/evenodd-league/tournament/internal/rpcserver"
)

// RegisterHandlers binds the referee's single public RPC method,
// assign_match
func (r *Referee) RegisterHandlers(srv *rpcserver.Server) {
	srv.Register("assign_match", true, r.handleAssignMatch)
}

func (r *Referee) handleAssignMatch(rc *rpcserver.RequestContext) (any, *protocol.RPCError) {
	var req protocol.AssignMatchRequest
	if err := rc.Envelope.DecodeBody(&req); err != nil {
		return nil, &protocol.RPCError{Code: protocol.RPCErrInvalidParams, Message: err.Error()}
	}
	r.AssignMatch(req)
	return protocol.AssignMatchResponse{Accepted: true}, nil
}
