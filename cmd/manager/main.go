package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evenodd-league/tournament/internal/config"
	"github.com/evenodd-league/tournament/internal/logging"
	"github.com/evenodd-league/tournament/internal/manager"
	"github.com/evenodd-league/tournament/internal/protocol"
	"github.com/evenodd-league/tournament/internal/rpcclient"
	"github.com/evenodd-league/tournament/internal/rpcserver"
	"github.com/evenodd-league/tournament/internal/storage"
)

var (
	version = "dev"
	commit  = "none"
)

type cliConfig struct {
	addr       string
	configPath string
	logLevel   string
	dataDir    string
	leagueID   string
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
		Use:   "evenodd-manager",
		Short: "League Manager — tournament authority for the Even/Odd league",
		Long: `The League Manager owns agent registration, scheduling, standings,
and round coordination for an Even/Odd tournament. Referees and Players
register with it once at startup and follow its instructions for the
remainder of the league.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cli)
		},
	}

	root.AddCommand(newVersionCmd())

	root.PersistentFlags().StringVar(&cli.addr, "addr", config.EnvOrDefault("EVENODD_MANAGER_ADDR", ":7000"), "HTTP listen address for the manager's JSON-RPC endpoint")
	root.PersistentFlags().StringVar(&cli.configPath, "config", config.EnvOrDefault("EVENODD_CONFIG", ""), "Path to a JSON config file overlaying the recognized defaults")
	root.PersistentFlags().StringVar(&cli.logLevel, "log-level", config.EnvOrDefault("EVENODD_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&cli.dataDir, "data-dir", config.EnvOrDefault("EVENODD_DATA_DIR", "./data"), "Directory for persisted league state")
	root.PersistentFlags().StringVar(&cli.leagueID, "league-id", config.EnvOrDefault("EVENODD_LEAGUE_ID", ""), "Override the league_id recognized from config (defaults to config's league_id)")

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("evenodd-manager %s (commit: %s)\n", version, commit)
		},
	}
}

func run(ctx context.Context, cli *cliConfig) error {
	cfg, err := config.Load(cli.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cli.dataDir != "" {
		cfg.DataDir = cli.dataDir
	}
	if cli.leagueID != "" {
		cfg.LeagueID = cli.leagueID
	}

	layout := storage.NewLayout(cfg.DataDir)
	logger, err := logging.Build(cli.logLevel, layout.LogFile(string(protocol.RoleManager), "manager"))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting league manager",
		zap.String("version", version),
		zap.String("addr", cli.addr),
		zap.String("league_id", cfg.LeagueID),
	)

	tokens := protocol.NewTokenStore()
	tokens.Put("orchestrator", cfg.OrchestratorToken)
	client := rpcclient.New(logger, cfg.ReportRetry, cfg.Circuit)

	mgr, err := manager.New("manager", cfg.LeagueID, cfg, logger, layout, client, tokens)
	if err != nil {
		return fmt.Errorf("failed to construct manager: %w", err)
	}

	srv := rpcserver.NewServer(protocol.RoleManager, mgr.ID, tokens, logger)
	mgr.RegisterHandlers(srv)

	httpSrv := &http.Server{
		Addr:         cli.addr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("manager listening", zap.String("addr", cli.addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("manager http server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down league manager")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("manager graceful shutdown error", zap.Error(err))
	}
	return nil
}
