// Package rpcserver is the JSON-RPC 2.0 over HTTP dispatcher every agent
// (Manager, Referee, Player) runs to expose its /health, /initialize, and
// /mcp endpoints. Built on chi's router/middleware stack, adapted from a
// REST-style resource router to a single-method-dispatch JSON-RPC endpoint.
package rpcserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/protocol"
)

// Handler processes one decoded, authenticated envelope and returns either a
// result value (marshaled into the JSON-RPC response's result field) or an
// RPCError.
type Handler func(ctx *RequestContext) (any, *protocol.RPCError)

// RequestContext carries the decoded envelope and request-scoped values into
// a Handler.
type RequestContext struct {
	Envelope protocol.Envelope
	Request  *http.Request
}

// method pairs a registered Handler with whether it is exempt from the auth
// check — only the two registration methods are exempt.
type method struct {
	fn            Handler
	skipAuthCheck bool
}

// Server is the chi-backed JSON-RPC dispatcher embedded by every agent's
// cmd/*/main.go. One Server instance serves exactly one agent process.
type Server struct {
	Role   protocol.Role
	ID     string
	Tokens *protocol.TokenStore
	Logger *zap.Logger

	methods map[string]method
	ready   func() bool // reports readiness for /health; nil means always ready
}

// NewServer constructs a Server for the given agent identity. tokens is the
// TokenStore this agent's /mcp endpoint authenticates incoming callers
// against — the Manager's instance owns every minted token; a Referee or
// Player's instance holds only the tokens it has been authorized to trust.
func NewServer(role protocol.Role, id string, tokens *protocol.TokenStore, logger *zap.Logger) *Server {
	return &Server{
		Role:    role,
		ID:      id,
		Tokens:  tokens,
		Logger:  logger,
		methods: make(map[string]method),
	}
}

// SetReady installs the readiness probe reported at GET /health. If never
// called, /health always reports ready.
func (s *Server) SetReady(fn func() bool) { s.ready = fn }

// Register binds an RPC method name to a Handler. requiresAuth should be
// false only for register_player and register_referee.
func (s *Server) Register(name string, requiresAuth bool, fn Handler) {
	s.methods[name] = method{fn: fn, skipAuthCheck: !requiresAuth}
}

// Router builds the chi.Router serving /health, /initialize, and /mcp.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/initialize", s.handleInitialize)
	r.Post("/mcp", s.handleMCP)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ok := s.ready == nil || s.ready()
	status := "ok"
	code := http.StatusOK
	if !ok {
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"role":   string(s.Role),
		"id":     s.ID,
	})
}

// handleInitialize is the MCP handshake endpoint: it echoes back the
// protocol version and this agent's identity so a caller can confirm it is
// talking to the role it expects before issuing domain RPCs.
func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"protocol": protocol.ProtocolVersion,
		"role":     string(s.Role),
		"id":       s.ID,
	})
}

// jsonrpcRequest and jsonrpcResponse are the JSON-RPC 2.0 envelope shapes
// carried over POST /mcp. Params decodes into a protocol.Envelope.
type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type jsonrpcResponse struct {
	JSONRPC string             `json:"jsonrpc"`
	Result  any                `json:"result,omitempty"`
	Error   *protocol.RPCError `json:"error,omitempty"`
	ID      any                `json:"id"`
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	var req jsonrpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeRPCError(w, nil, &protocol.RPCError{Code: protocol.RPCErrParse, Message: "invalid JSON-RPC request"})
		return
	}

	m, ok := s.methods[req.Method]
	if !ok {
		s.writeRPCError(w, req.ID, &protocol.RPCError{Code: protocol.RPCErrMethodNotFound, Message: "unknown method: " + req.Method})
		return
	}

	var env protocol.Envelope
	if err := json.Unmarshal(req.Params, &env); err != nil {
		s.writeRPCError(w, req.ID, &protocol.RPCError{Code: protocol.RPCErrInvalidParams, Message: "invalid envelope params"})
		return
	}

	if !m.skipAuthCheck {
		if env.AuthToken == "" {
			s.writeDomainError(w, req.ID, protocol.ErrCodeAuthMissingToken, "auth_token is required", nil)
			return
		}
		if s.Tokens == nil || !s.Tokens.Verify(env.Sender, env.AuthToken) {
			s.writeDomainError(w, req.ID, protocol.ErrCodeAuthInvalidToken, "auth_token does not match sender", nil)
			return
		}
	}

	result, rpcErr := m.fn(&RequestContext{Envelope: env, Request: r})
	if rpcErr != nil {
		s.writeRPCError(w, req.ID, rpcErr)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(jsonrpcResponse{JSONRPC: "2.0", Result: result, ID: req.ID})
}

func (s *Server) writeDomainError(w http.ResponseWriter, id any, code, desc string, context any) {
	s.writeRPCError(w, id, protocol.NewRPCError(protocol.NewDomainError(code, desc, context)))
}

func (s *Server) writeRPCError(w http.ResponseWriter, id any, rpcErr *protocol.RPCError) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(jsonrpcResponse{JSONRPC: "2.0", Error: rpcErr, ID: id})
}
