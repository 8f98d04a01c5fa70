// Package config loads the recognized configuration options from an
// optional JSON config file, environment variables, and CLI flag defaults,
// in that order of increasing precedence: an envOrDefault + godotenv
// convention rather than a generic config-file parser. Parsing arbitrary
// config file formats beyond the recognized option set is out of scope.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// RetryPolicy mirrors the report_retry.* options.
type RetryPolicy struct {
	MaxAttempts  int     `json:"max_attempts"`
	InitialDelayS float64 `json:"initial_delay_s"`
	Multiplier   float64 `json:"multiplier"`
}

// CircuitPolicy mirrors the circuit.* options.
type CircuitPolicy struct {
	FailureThreshold int     `json:"failure_threshold"`
	ResetTimeoutS    float64 `json:"reset_timeout_s"`
	SuccessThreshold int     `json:"success_threshold"`
}

// AdaptivePolicy mirrors the adaptive.* strategy options.
type AdaptivePolicy struct {
	MinSamples int     `json:"min_samples"`
	Alpha      float64 `json:"alpha"`
}

// ScoringPolicy mirrors the scoring.* options.
type ScoringPolicy struct {
	Win  int `json:"win"`
	Draw int `json:"draw"`
	Loss int `json:"loss"`
}

// Config is the full recognized option set.
type Config struct {
	LeagueID                string         `json:"league_id"`
	MaxPlayers              int            `json:"max_players"`
	MaxReferees             int            `json:"max_referees"`
	InvitationTimeoutS      float64        `json:"invitation_timeout_s"`
	ChoiceTimeoutS          float64        `json:"choice_timeout_s"`
	ReportRetry             RetryPolicy    `json:"report_retry"`
	Circuit                 CircuitPolicy  `json:"circuit"`
	HealthCheckIntervalS    float64        `json:"health_check_interval_s"`
	AgentStartupTimeoutS    float64        `json:"agent_startup_timeout_s"`
	Adaptive                AdaptivePolicy `json:"adaptive"`
	Scoring                 ScoringPolicy  `json:"scoring"`
	DataDir                 string         `json:"data_dir"`
	OrchestratorToken       string         `json:"orchestrator_token"`
}

// Default returns the recognized option set filled with defaults suitable
// for a single-machine local run.
func Default() Config {
	return Config{
		LeagueID:             "league-default",
		MaxPlayers:           16,
		MaxReferees:          10,
		InvitationTimeoutS:   5,
		ChoiceTimeoutS:       30,
		ReportRetry:          RetryPolicy{MaxAttempts: 3, InitialDelayS: 2, Multiplier: 2},
		Circuit:              CircuitPolicy{FailureThreshold: 5, ResetTimeoutS: 60, SuccessThreshold: 2},
		HealthCheckIntervalS: 5,
		AgentStartupTimeoutS: 30,
		Adaptive:             AdaptivePolicy{MinSamples: 5, Alpha: 0.05},
		Scoring:              ScoringPolicy{Win: 3, Draw: 1, Loss: 0},
		DataDir:              "./data",
		OrchestratorToken:    "tok_orch_default",
	}
}

// Load reads a .env file (if present, non-fatal if missing) then a JSON
// config file at path (if path is non-empty), overlaying onto defaults.
// Unrecognized keys in the file are silently ignored by the decoder — this
// package never interprets options beyond the recognized set.
func Load(path string) (Config, error) {
	_ = godotenv.Load() // best-effort; CLI flags and JSON file still apply if absent

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// EnvOrDefault returns the environment variable named key, or defaultVal
// if it is unset or empty. Matches the pack's envOrDefault convention used
// to build CLI flag defaults.
func EnvOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
