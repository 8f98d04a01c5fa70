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
	"github.com/evenodd-league/tournament/internal/protocol"
	"github.com/evenodd-league/tournament/internal/referee"
	"github.com/evenodd-league/tournament/internal/rpcclient"
	"github.com/evenodd-league/tournament/internal/rpcserver"
	"github.com/evenodd-league/tournament/internal/storage"
)

var (
	version = "dev"
	commit  = "none"
)

type cliConfig struct {
	addr          string
	endpoint      string
	managerAddr   string
	displayName   string
	configPath    string
	logLevel      string
	dataDir       string
	maxConcurrent int
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
		Use:   "evenodd-referee",
		Short: "Referee agent — drives its assigned matches concurrently through the Even/Odd protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cli)
		},
	}

	root.AddCommand(newVersionCmd())

	root.PersistentFlags().StringVar(&cli.addr, "addr", config.EnvOrDefault("EVENODD_REFEREE_ADDR", ":7100"), "HTTP listen address for this referee's JSON-RPC endpoint")
	root.PersistentFlags().StringVar(&cli.endpoint, "endpoint", config.EnvOrDefault("EVENODD_REFEREE_ENDPOINT", "http://localhost:7100"), "This referee's own endpoint, as advertised to the manager at registration")
	root.PersistentFlags().StringVar(&cli.managerAddr, "manager-addr", config.EnvOrDefault("EVENODD_MANAGER_ADDR", "http://localhost:7000"), "The League Manager's endpoint")
	root.PersistentFlags().StringVar(&cli.displayName, "display-name", config.EnvOrDefault("EVENODD_REFEREE_NAME", "referee"), "Display name presented at registration")
	root.PersistentFlags().StringVar(&cli.configPath, "config", config.EnvOrDefault("EVENODD_CONFIG", ""), "Path to a JSON config file overlaying the recognized defaults")
	root.PersistentFlags().StringVar(&cli.logLevel, "log-level", config.EnvOrDefault("EVENODD_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&cli.dataDir, "data-dir", config.EnvOrDefault("EVENODD_DATA_DIR", "./data"), "Directory for persisted agent state")
	root.PersistentFlags().IntVar(&cli.maxConcurrent, "max-concurrent-matches", 4, "Advertised concurrent match capacity")

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("evenodd-referee %s (commit: %s)\n", version, commit)
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

	layout := storage.NewLayout(cfg.DataDir)
	logger, err := logging.Build(cli.logLevel, layout.LogFile(string(protocol.RoleReferee), cli.displayName))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	tokens := protocol.NewTokenStore()
	client := rpcclient.New(logger, cfg.ReportRetry, cfg.Circuit)

	ref, err := referee.Register(ctx, cli.managerAddr, cli.displayName, cli.endpoint, version, cli.maxConcurrent, cfg, logger, client, layout, tokens)
	if err != nil {
		cancel()
		return fmt.Errorf("referee registration failed: %w", err)
	}

	srv := rpcserver.NewServer(protocol.RoleReferee, ref.ID, tokens, logger)
	ref.RegisterHandlers(srv)

	httpSrv := &http.Server{
		Addr:         cli.addr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("referee listening", zap.String("addr", cli.addr), zap.String("referee_id", ref.ID))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("referee http server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down referee")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("referee graceful shutdown error", zap.Error(err))
	}
	return nil
}
