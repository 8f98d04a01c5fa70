package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/config"
)

// LifecycleManager owns every spawned agent's ChildProcessHandle and drives
// dependency-ordered startup.
type LifecycleManager struct {
	cfg    config.Config
	logger *zap.Logger
	http   *http.Client

	mu       sync.Mutex
	handles  map[string]*ChildProcessHandle
}

func NewLifecycleManager(cfg config.Config, logger *zap.Logger) *LifecycleManager {
	return &LifecycleManager{
		cfg:     cfg,
		logger:  logger.Named("lifecycle"),
		http:    &http.Client{Timeout: 2 * time.Second},
		handles: make(map[string]*ChildProcessHandle),
	}
}

// StartAll launches every agent in dependency order, parallelizing within
// a tier.
func (l *LifecycleManager) StartAll(ctx context.Context, specs []AgentSpec) error {
	tiers, err := topologicalOrder(specs)
	if err != nil {
		return err
	}
	for _, tier := range tiers {
		var wg sync.WaitGroup
		errs := make([]error, len(tier))
		for i, spec := range tier {
			wg.Add(1)
			go func(i int, spec AgentSpec) {
				defer wg.Done()
				errs[i] = l.StartAgent(ctx, spec)
			}(i, spec)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// StartAgent spawns the configured command, then polls /health every 500ms
// up to AgentStartupTimeoutS.
func (l *LifecycleManager) StartAgent(ctx context.Context, spec AgentSpec) error {
	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("orchestrator: starting %s: %w", spec.ID, err)
	}

	handle := &ChildProcessHandle{Spec: spec, cmd: cmd, StartedAt: time.Now()}
	l.mu.Lock()
	l.handles[spec.ID] = handle
	l.mu.Unlock()

	go func() {
		err := cmd.Wait()
		handle.markExited(err)
	}()

	deadline := time.Now().Add(time.Duration(l.cfg.AgentStartupTimeoutS * float64(time.Second)))
	for time.Now().Before(deadline) {
		if exited, _ := handle.Exited(); exited {
			return fmt.Errorf("orchestrator: %s exited during startup", spec.ID)
		}
		if l.probeHealth(spec.HealthURL) {
			l.logger.Info("agent healthy", zap.String("agent_id", spec.ID))
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("orchestrator: %s did not become healthy within %.0fs", spec.ID, l.cfg.AgentStartupTimeoutS)
}

func (l *LifecycleManager) probeHealth(url string) bool {
	resp, err := l.http.Get(url)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Handle returns the ChildProcessHandle for id, if spawned by this manager.
func (l *LifecycleManager) Handle(id string) (*ChildProcessHandle, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.handles[id]
	return h, ok
}

// Handles returns every spawned agent's handle.
func (l *LifecycleManager) Handles() map[string]*ChildProcessHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]*ChildProcessHandle, len(l.handles))
	for k, v := range l.handles {
		out[k] = v
	}
	return out
}
