package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jensholdgaard/issue-triage-bot/internal/bot"
	"github.com/jensholdgaard/issue-triage-bot/internal/clock"
	"github.com/jensholdgaard/issue-triage-bot/internal/collector"
	"github.com/jensholdgaard/issue-triage-bot/internal/config"
	"github.com/jensholdgaard/issue-triage-bot/internal/health"
	"github.com/jensholdgaard/issue-triage-bot/internal/leader"
	"github.com/jensholdgaard/issue-triage-bot/internal/store"
	"github.com/jensholdgaard/issue-triage-bot/internal/telemetry"
	"github.com/jensholdgaard/issue-triage-bot/internal/triage"
	"github.com/jensholdgaard/issue-triage-bot/internal/version"

	// Register store drivers so they are available via store.Open.
	_ "github.com/jensholdgaard/issue-triage-bot/internal/store/memory"
	_ "github.com/jensholdgaard/issue-triage-bot/internal/store/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		info := version.Info()
		fmt.Printf("triagebot %s (commit %s, built %s, %s)\n",
			info["version"], info["git_commit"], info["build_date"], info["go_version"])
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = version.Version
	}

	tp, err := telemetry.Setup(ctx, cfg.Telemetry, os.Stdout)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer repos.Closer.Close()

	logger.InfoContext(ctx, "event store ready", slog.String("driver", cfg.Database.Driver))

	board := triage.NewBoard(repos.Events, logger, tp.TracerProvider, clk)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collector.NewBoardCollector(board),
	)

	healthHandler := health.NewHandler(clk, version.Version,
		health.Checker{
			Name:  "event_store",
			Check: repos.Ping,
		},
	)

	// Health and metrics run on all replicas.
	mux := http.NewServeMux()
	healthHandler.Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "starting http server", slog.Int("port", cfg.Server.Port))
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "http server error", slog.Any("error", listenErr))
		}
	}()

	// serve runs the bot and the escalation sweeper until ctx is done. Only
	// the leader runs it.
	serve := func(ctx context.Context) error {
		discordBot, botErr := bot.New(cfg.Discord, board, logger, tp.TracerProvider)
		if botErr != nil {
			return fmt.Errorf("creating bot: %w", botErr)
		}
		if botErr = discordBot.Start(ctx); botErr != nil {
			return fmt.Errorf("starting bot: %w", botErr)
		}

		sweeperDone := make(chan struct{})
		go func() {
			defer close(sweeperDone)
			board.RunSweeper(ctx, cfg.Triage.SweepInterval, discordBot.Notify)
		}()

		healthHandler.SetReady(true)
		logger.InfoContext(ctx, "triagebot is running", slog.String("version", version.Version))

		<-ctx.Done()

		healthHandler.SetReady(false)
		<-sweeperDone
		if stopErr := discordBot.Stop(); stopErr != nil {
			logger.Error("bot shutdown error", slog.Any("error", stopErr))
		}
		return nil
	}

	if cfg.LeaderElection.Enabled {
		logger.InfoContext(ctx, "leader election enabled, waiting for leadership...")

		if leaderErr := leader.Run(ctx, cfg.LeaderElection, logger,
			func(ctx context.Context) {
				if serveErr := serve(ctx); serveErr != nil {
					logger.ErrorContext(ctx, "leader work failed", slog.Any("error", serveErr))
					cancel()
				}
			},
			func() {
				logger.Info("lost leadership, shutting down...")
				cancel()
			},
		); leaderErr != nil {
			return fmt.Errorf("leader election: %w", leaderErr)
		}
	} else if err := serve(ctx); err != nil {
		return err
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}
