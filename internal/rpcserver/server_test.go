package rpcserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/protocol"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	tokens := protocol.NewTokenStore()
	s := NewServer(protocol.RoleManager, "manager", tokens, zap.NewNop())
	return s, httptest.NewServer(s.Router())
}

func postMCP(t *testing.T, base, method string, env protocol.Envelope) (int, jsonrpcResponse) {
	t.Helper()
	params, err := json.Marshal(env)
	require.NoError(t, err)
	req := jsonrpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(base+"/mcp", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out jsonrpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestServer_Health_ReportsOkByDefault(t *testing.T) {
	s, ts := newTestServer(t)
	defer ts.Close()
	_ = s

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "manager", body["id"])
}

func TestServer_Health_ReportsNotReadyWhenProbeFails(t *testing.T) {
	s, ts := newTestServer(t)
	defer ts.Close()
	s.SetReady(func() bool { return false })

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_MCP_UnknownMethodReturnsMethodNotFound(t *testing.T) {
	_, ts := newTestServer(t)
	defer ts.Close()

	env, err := protocol.NewEnvelope(protocol.MsgLeagueQueryRequest, "player:p1", struct{}{})
	require.NoError(t, err)

	_, out := postMCP(t, ts.URL, "no_such_method", env)
	require.NotNil(t, out.Error)
	assert.Equal(t, protocol.RPCErrMethodNotFound, out.Error.Code)
}

func TestServer_MCP_AuthRequiredMethodRejectsMissingToken(t *testing.T) {
	s, ts := newTestServer(t)
	defer ts.Close()
	s.Register("league_query", true, func(ctx *RequestContext) (any, *protocol.RPCError) {
		return "should not reach here", nil
	})

	env, err := protocol.NewEnvelope(protocol.MsgLeagueQueryRequest, "player:p1", struct{}{})
	require.NoError(t, err)

	_, out := postMCP(t, ts.URL, "league_query", env)
	require.NotNil(t, out.Error)
}

func TestServer_MCP_AuthRequiredMethodRejectsWrongToken(t *testing.T) {
	s, ts := newTestServer(t)
	defer ts.Close()
	s.Tokens.Put("player:p1", "tok_correct")
	s.Register("league_query", true, func(ctx *RequestContext) (any, *protocol.RPCError) {
		return "should not reach here", nil
	})

	env, err := protocol.NewEnvelope(protocol.MsgLeagueQueryRequest, "player:p1", struct{}{})
	require.NoError(t, err)
	env.AuthToken = "tok_wrong"

	_, out := postMCP(t, ts.URL, "league_query", env)
	require.NotNil(t, out.Error)
}

func TestServer_MCP_RegistrationMethodSkipsAuth(t *testing.T) {
	s, ts := newTestServer(t)
	defer ts.Close()
	called := false
	s.Register("register_player", false, func(ctx *RequestContext) (any, *protocol.RPCError) {
		called = true
		return map[string]string{"status": "REGISTERED"}, nil
	})

	env, err := protocol.NewEnvelope(protocol.MsgLeagueRegisterRequest, "player:unregistered", struct{}{})
	require.NoError(t, err)

	status, out := postMCP(t, ts.URL, "register_player", env)
	assert.Equal(t, http.StatusOK, status)
	assert.Nil(t, out.Error)
	assert.True(t, called)
}

func TestServer_MCP_ValidAuthReachesHandler(t *testing.T) {
	s, ts := newTestServer(t)
	defer ts.Close()
	s.Tokens.Put("player:p1", "tok_correct")
	s.Register("league_query", true, func(ctx *RequestContext) (any, *protocol.RPCError) {
		return map[string]string{"ok": "yes"}, nil
	})

	env, err := protocol.NewEnvelope(protocol.MsgLeagueQueryRequest, "player:p1", struct{}{})
	require.NoError(t, err)
	env.AuthToken = "tok_correct"

	_, out := postMCP(t, ts.URL, "league_query", env)
	assert.Nil(t, out.Error)
	require.NotNil(t, out.Result)
}
