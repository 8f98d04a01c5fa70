package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/config"
	"github.com/evenodd-league/tournament/internal/logging"
	"github.com/evenodd-league/tournament/internal/orchestrator"
	"github.com/evenodd-league/tournament/internal/protocol"
	"github.com/evenodd-league/tournament/internal/storage"
)

var (
	version = "dev"
	commit  = "none"
)

type cliConfig struct {
	dashboardAddr string
	managerAddr   string
	configPath    string
	logLevel      string
	binDir        string
	numReferees   int
	numPlayers    int
	minReferees   int
	minPlayers    int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cli := &cliConfig{}

	root := &cobra.Command{
		Use:   "evenodd-orchestrator",
		Short: "Orchestrator — spawns, supervises, and drives an Even/Odd league",
		Long: `The Orchestrator spawns the Manager, Referee, and Player processes,
verifies they can talk to each other, waits for a minimum roster, starts
the league, and tracks it to completion, surfacing health, standings,
and errors on a WebSocket dashboard.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cli)
		},
	}

	root.AddCommand(newVersionCmd())

	root.PersistentFlags().StringVar(&cli.dashboardAddr, "dashboard-addr", config.EnvOrDefault("EVENODD_DASHBOARD_ADDR", ":7900"), "HTTP listen address for the dashboard (/ws, /metrics)")
	root.PersistentFlags().StringVar(&cli.managerAddr, "manager-addr", config.EnvOrDefault("EVENODD_MANAGER_ADDR", "http://localhost:7000"), "The League Manager's endpoint")
	root.PersistentFlags().StringVar(&cli.configPath, "config", config.EnvOrDefault("EVENODD_CONFIG", ""), "Path to a JSON config file overlaying the recognized defaults")
	root.PersistentFlags().StringVar(&cli.logLevel, "log-level", config.EnvOrDefault("EVENODD_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&cli.binDir, "bin-dir", config.EnvOrDefault("EVENODD_BIN_DIR", "."), "Directory containing the evenodd-manager/evenodd-referee/evenodd-player binaries")
	root.PersistentFlags().IntVar(&cli.numReferees, "referees", 2, "Number of referee processes to spawn")
	root.PersistentFlags().IntVar(&cli.numPlayers, "players", 4, "Number of player processes to spawn")
	root.PersistentFlags().IntVar(&cli.minReferees, "min-referees", 2, "Minimum registered referees before start_league is called")
	root.PersistentFlags().IntVar(&cli.minPlayers, "min-players", 4, "Minimum registered players before start_league is called")

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("evenodd-orchestrator %s (commit: %s)\n", version, commit)
		},
	}
}

func run(ctx context.Context, cli *cliConfig) error {
	logger, err := logging.Build(cli.logLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load(cli.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	specs := buildSpecs(cli)

	opts := orchestrator.Options{
		Specs:         specs,
		ManagerURL:    cli.managerAddr,
		ManagerToken:  cfg.OrchestratorToken,
		MinReferees:   cli.minReferees,
		MinPlayers:    cli.minPlayers,
		DashboardAddr: cli.dashboardAddr,
	}
	orch := orchestrator.New(cfg, logger, opts)

	for _, spec := range specs {
		orch.Logs.Watch(spec.ID, logFilePath(cfg, spec))
	}

	dashboardSrv := &http.Server{
		Addr:         cli.dashboardAddr,
		Handler:      orch.DashboardRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // WebSocket connections are long-lived
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("dashboard listening", zap.String("addr", cli.dashboardAddr))
		if err := dashboardSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("dashboard http server error", zap.Error(err))
		}
	}()

	runErr := orch.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = dashboardSrv.Shutdown(shutdownCtx)
	_ = orch.Health.Stop()

	if runErr != nil && runErr != context.Canceled {
		return fmt.Errorf("orchestrator run failed: %w", runErr)
	}
	return nil
}

func buildSpecs(cli *cliConfig) []orchestrator.AgentSpec {
	bin := func(name string) string {
		return strings.TrimSuffix(cli.binDir, "/") + "/" + name
	}

	specs := []orchestrator.AgentSpec{
		{
			ID:      "manager",
			Role:    protocol.RoleManager,
			Command: bin("evenodd-manager"),
			Args: []string{
				"--addr", listenAddrFromURL(cli.managerAddr),
				"--data-dir", config.EnvOrDefault("EVENODD_DATA_DIR", "./data"),
			},
			HealthURL: cli.managerAddr + "/health",
		},
	}

	for i := 1; i <= cli.numReferees; i++ {
		id := fmt.Sprintf("referee-%d", i)
		port := 7100 + i
		specs = append(specs, orchestrator.AgentSpec{
			ID:      id,
			Role:    protocol.RoleReferee,
			Command: bin("evenodd-referee"),
			Args: []string{
				"--addr", fmt.Sprintf(":%d", port),
				"--endpoint", fmt.Sprintf("http://localhost:%d", port),
				"--manager-addr", cli.managerAddr,
				"--display-name", id,
			},
			HealthURL:    fmt.Sprintf("http://localhost:%d/health", port),
			Dependencies: []string{"manager"},
		})
	}

	for i := 1; i <= cli.numPlayers; i++ {
		id := fmt.Sprintf("player-%d", i)
		port := 7200 + i
		specs = append(specs, orchestrator.AgentSpec{
			ID:      id,
			Role:    protocol.RolePlayer,
			Command: bin("evenodd-player"),
			Args: []string{
				"--addr", fmt.Sprintf(":%d", port),
				"--endpoint", fmt.Sprintf("http://localhost:%d", port),
				"--manager-addr", cli.managerAddr,
				"--display-name", id,
			},
			HealthURL:    fmt.Sprintf("http://localhost:%d/health", port),
			Dependencies: []string{"manager"},
		})
	}

	return specs
}

func logFilePath(cfg config.Config, spec orchestrator.AgentSpec) string {
	return storage.NewLayout(cfg.DataDir).LogFile(string(spec.Role), spec.ID)
}

// listenAddrFromURL turns an advertised endpoint like "http://localhost:7000"
// into a bind address like ":7000" for the spawned process's --addr flag.
func listenAddrFromURL(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Port() == "" {
		return ":7000"
	}
	return ":" + u.Port()
}
