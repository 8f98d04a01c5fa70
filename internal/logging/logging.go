// Package logging builds the zap loggers used by every agent process.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Build returns a zap.Logger configured for the given level
// ("debug", "info", "warn", "error"; any other value defaults to "info").
// Debug uses zap's development config (human-friendly console encoding);
// everything else uses the production JSON encoder, matching the split
// used throughout the pack. Any extraOutputPaths are appended to stderr —
// callers pass the agent's JSONL log file here once its identity (and
// therefore its log path) is known, so the Orchestrator's LogAggregator
// has something to tail.
func Build(level string, extraOutputPaths ...string) (*zap.Logger, error) {
	var cfg zap.Config

	if level == "debug" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	for _, p := range extraOutputPaths {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, err
		}
		cfg.OutputPaths = append(cfg.OutputPaths, p)
		cfg.ErrorOutputPaths = append(cfg.ErrorOutputPaths, p)
	}

	return cfg.Build()
}
