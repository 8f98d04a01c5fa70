package orchestrator

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/orchestrator/dashboard"
)

// logLine is the shape logged by every agent's zap JSONL sink.
type logLine struct {
	Level   string `json:"level"`
	Time    json.RawMessage `json:"ts"`
	Message string `json:"msg"`
	AgentID string `json:"agent_id"`
}

// LogAggregator tails every agent's JSONL log file and forwards
// ERROR/CRITICAL lines to the dashboard, following each append-only log
// file from a known byte offset rather than subscribing to an external
// log shipper.
type LogAggregator struct {
	logger    *zap.Logger
	dashboard *dashboard.Server
	sources   map[string]string // agent_id -> log file path
	offsets   map[string]int64
	interval  time.Duration
}

func NewLogAggregator(logger *zap.Logger, dash *dashboard.Server, interval time.Duration) *LogAggregator {
	return &LogAggregator{
		logger:    logger.Named("logs"),
		dashboard: dash,
		sources:   make(map[string]string),
		offsets:   make(map[string]int64),
		interval:  interval,
	}
}

// Watch registers path as the JSONL log file for agentID.
func (a *LogAggregator) Watch(agentID, path string) {
	a.sources[agentID] = path
}

// Run polls every watched file until ctx is cancelled.
func (a *LogAggregator) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.tailAll()
		}
	}
}

func (a *LogAggregator) tailAll() {
	for agentID, path := range a.sources {
		a.tailOne(agentID, path)
	}
}

func (a *LogAggregator) tailOne(agentID, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	offset := a.offsets[agentID]
	if _, err := f.Seek(offset, 0); err != nil {
		return
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var read int64
	for scanner.Scan() {
		line := scanner.Text()
		read += int64(len(line)) + 1
		a.process(agentID, line)
	}
	a.offsets[agentID] = offset + read
}

func (a *LogAggregator) process(agentID, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	var entry logLine
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return
	}
	if entry.AgentID == "" {
		entry.AgentID = agentID
	}

	switch strings.ToUpper(entry.Level) {
	case "ERROR", "DPANIC", "PANIC", "FATAL", "CRITICAL":
		a.dashboard.PublishError(map[string]string{
			"agent_id": entry.AgentID,
			"time":     string(entry.Time),
			"message":  entry.Message,
		})
	}
}
