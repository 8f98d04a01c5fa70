// Package rpcclient is the outbound JSON-RPC 2.0 caller every agent uses to
// reach another agent's /mcp endpoint. Each remote endpoint gets its own
// circuit breaker and retry policy. Modeled on the reconnect-with-backoff
// shape of a persistent-connection manager, adapted from a persistent
// gRPC stream to discrete HTTP calls, and on a separate pack's use of
// sony/gobreaker + cenkalti/backoff for upstream RPC resilience.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/config"
	"github.com/evenodd-league/tournament/internal/protocol"
)

// Client calls a fixed set of remote /mcp endpoints, each behind its own
// circuit breaker, retrying transient failures per the configured
// RetryPolicy. One Client is shared by all outbound calls an agent process
// makes.
type Client struct {
	http    *http.Client
	logger  *zap.Logger
	retry   config.RetryPolicy
	circuit config.CircuitPolicy

	breakersMu sync.RWMutex
	breakers   map[string]*gobreaker.CircuitBreaker
}

func New(logger *zap.Logger, retry config.RetryPolicy, circuit config.CircuitPolicy) *Client {
	return &Client{
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
		retry:    retry,
		circuit:  circuit,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// breakerFor returns (creating on first use) the circuit breaker guarding
// calls to endpoint. Each remote endpoint gets an independent breaker so one
// misbehaving referee or player cannot trip calls to the others. Referee
// match phases dispatch to player A and player B concurrently, so this is
// called from multiple goroutines on the same Client; double-checked
// locking keeps the common (already-created) path to a read lock.
func (c *Client) breakerFor(endpoint string) *gobreaker.CircuitBreaker {
	c.breakersMu.RLock()
	cb, ok := c.breakers[endpoint]
	c.breakersMu.RUnlock()
	if ok {
		return cb
	}

	c.breakersMu.Lock()
	defer c.breakersMu.Unlock()
	if cb, ok := c.breakers[endpoint]; ok {
		return cb
	}
	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        endpoint,
		MaxRequests: uint32(c.circuit.SuccessThreshold),
		Timeout:     time.Duration(c.circuit.ResetTimeoutS * float64(time.Second)),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(c.circuit.FailureThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change",
				zap.String("endpoint", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	c.breakers[endpoint] = cb
	return cb
}

type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  protocol.Envelope `json:"params"`
	ID      string          `json:"id"`
}

// rpcError mirrors protocol.RPCError but keeps Data as raw JSON so it can be
// decoded into a concrete protocol.DomainError without losing type
// information across the wire, since JSON alone cannot round-trip Go's
// interface{} Data field on protocol.RPCError.
type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      string          `json:"id"`
}

// Call invokes method on endpoint's /mcp with env as params, decoding the
// JSON-RPC result into result (if non-nil). Transient failures (network
// errors and domain errors marked Retryable) are retried per the configured
// RetryPolicy; each attempt, including retries, passes through the
// endpoint's circuit breaker, so a breaker that trips mid-retry fails the
// remaining attempts fast instead of continuing to hammer a down endpoint.
func (c *Client) Call(ctx context.Context, endpoint, method string, env protocol.Envelope, result any) error {
	cb := c.breakerFor(endpoint)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(c.retry.InitialDelayS * float64(time.Second))
	b.Multiplier = c.retry.Multiplier
	b.MaxElapsedTime = 0
	bo := backoff.WithMaxRetries(b, uint64(c.retry.MaxAttempts-1))

	var raw json.RawMessage
	operation := func() error {
		v, err := cb.Execute(func() (any, error) {
			return c.doOnce(ctx, endpoint, method, env)
		})
		if err != nil {
			if derr, ok := err.(*protocol.DomainError); ok && !derr.Retryable {
				return backoff.Permanent(err)
			}
			return err
		}
		raw = v.(json.RawMessage)
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("rpcclient: calling %s on %s: %w", method, endpoint, err)
	}
	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("rpcclient: decoding result of %s: %w", method, err)
		}
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, endpoint, method string, env protocol.Envelope) (json.RawMessage, error) {
	body, err := json.Marshal(jsonrpcRequest{JSONRPC: "2.0", Method: method, Params: env, ID: env.ConversationID})
	if err != nil {
		return nil, fmt.Errorf("rpcclient: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/mcp", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rpcclient: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, protocol.NewDomainError(protocol.ErrCodeConnReset, err.Error(), nil)
	}
	defer resp.Body.Close()

	var rpcResp jsonrpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("rpcclient: decoding response from %s: %w", endpoint, err)
	}
	if rpcResp.Error != nil {
		var derr protocol.DomainError
		if len(rpcResp.Error.Data) > 0 && json.Unmarshal(rpcResp.Error.Data, &derr) == nil && derr.ErrorCode != "" {
			return nil, &derr
		}
		return nil, backoff.Permanent(fmt.Errorf("rpcclient: %s returned %s", endpoint, rpcResp.Error.Message))
	}
	return rpcResp.Result, nil
}
