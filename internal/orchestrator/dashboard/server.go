package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server is the Orchestrator's dashboard HTTP+WebSocket endpoint, serving
// live standings/health/round events over /ws plus a /metrics Prometheus
// endpoint.
type Server struct {
	Hub    *Hub
	logger *zap.Logger

	CircuitState   *prometheus.GaugeVec
	AgentHealth    *prometheus.GaugeVec
	RetryCount     *prometheus.CounterVec
}

func NewServer(logger *zap.Logger) *Server {
	s := &Server{
		Hub:    NewHub(),
		logger: logger.Named("dashboard"),
		CircuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "evenodd_circuit_breaker_state",
			Help: "Circuit breaker state per endpoint (0=closed,1=half_open,2=open).",
		}, []string{"endpoint"}),
		AgentHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "evenodd_agent_health_state",
			Help: "Agent health state (0=unknown,1=starting,2=healthy,3=unhealthy,4=crashed).",
		}, []string{"agent_id", "role"}),
		RetryCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evenodd_rpc_retry_total",
			Help: "Total RPC retry attempts issued by this process's client.",
		}, []string{"endpoint"}),
	}
	prometheus.MustRegister(s.CircuitState, s.AgentHealth, s.RetryCount)
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.handleWS)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	c, err := NewClient(s.Hub, w, r, s.logger)
	if err != nil {
		s.logger.Warn("dashboard websocket upgrade failed", zap.Error(err))
		return
	}
	c.Run()
}

func (s *Server) PublishHealth(payload any)    { s.Hub.Publish(Message{Type: EventHealth, Payload: payload}) }
func (s *Server) PublishStandings(payload any) { s.Hub.Publish(Message{Type: EventStandings, Payload: payload}) }
func (s *Server) PublishRound(payload any)     { s.Hub.Publish(Message{Type: EventRound, Payload: payload}) }
func (s *Server) PublishMatch(payload any)     { s.Hub.Publish(Message{Type: EventMatch, Payload: payload}) }
func (s *Server) PublishError(payload any)     { s.Hub.Publish(Message{Type: EventError, Payload: payload}) }
