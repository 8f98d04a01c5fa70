// Package orchestrator implements the master controller that spawns,
// supervises, and drives an Even/Odd league: LifecycleManager,
// HealthMonitor, CommunicationVerifier, TournamentController,
// ErrorRecoveryManager, DashboardServer, and LogAggregator.
package orchestrator

import (
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/evenodd-league/tournament/internal/protocol"
)

// AgentSpec is one agent's static launch configuration, built by the
// Orchestrator at startup: command, working directory, health endpoint,
// and the agent_ids it depends on for startup ordering.
type AgentSpec struct {
	ID           string
	Role         protocol.Role
	Command      string
	Args         []string
	Dir          string
	HealthURL    string
	Dependencies []string
}

// ChildProcessHandle is the Orchestrator's exclusive handle to one spawned
// agent process.
type ChildProcessHandle struct {
	Spec      AgentSpec
	cmd       *exec.Cmd
	StartedAt time.Time

	mu      sync.Mutex
	exited  bool
	exitErr error
}

func (h *ChildProcessHandle) markExited(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exited = true
	h.exitErr = err
}

// Exited reports whether the process has terminated, and with what error
// (nil on a clean exit).
func (h *ChildProcessHandle) Exited() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exited, h.exitErr
}

// Stop kills the child process immediately (SIGKILL on Unix).
func (h *ChildProcessHandle) Stop() error {
	if h.cmd == nil || h.cmd.Process == nil {
		return nil
	}
	return h.cmd.Process.Kill()
}

func topologicalOrder(specs []AgentSpec) ([][]AgentSpec, error) {
	byID := make(map[string]AgentSpec, len(specs))
	for _, s := range specs {
		byID[s.ID] = s
	}

	done := make(map[string]bool)
	var tiers [][]AgentSpec

	for len(done) < len(specs) {
		var tier []AgentSpec
		for _, s := range specs {
			if done[s.ID] {
				continue
			}
			ready := true
			for _, dep := range s.Dependencies {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				tier = append(tier, s)
			}
		}
		if len(tier) == 0 {
			return nil, fmt.Errorf("orchestrator: dependency cycle or unknown dependency among agents")
		}
		for _, s := range tier {
			done[s.ID] = true
		}
		tiers = append(tiers, tier)
	}
	return tiers, nil
}
