package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/danyaalu/whitelist-bot/internal/config"
	"github.com/danyaalu/whitelist-bot/internal/metrics"
	"github.com/danyaalu/whitelist-bot/internal/minecraft/rcon"
	"github.com/danyaalu/whitelist-bot/internal/minecraft/status"
	"github.com/danyaalu/whitelist-bot/internal/monitor"
	"github.com/danyaalu/whitelist-bot/internal/profile"
	"github.com/danyaalu/whitelist-bot/internal/store"
	"github.com/danyaalu/whitelist-bot/internal/telegram"
	"github.com/danyaalu/whitelist-bot/internal/tracing"
	"github.com/danyaalu/whitelist-bot/internal/whitelist"
)

const statusTimeout = 3 * time.Second

func main() {
	envFile := pflag.String("env-file", ".env", "optional dotenv file")
	serversFile := pflag.String("servers", "", "servers YAML file (overrides SERVERS_FILE)")
	pflag.Parse()

	if *serversFile != "" {
		os.Setenv("SERVERS_FILE", *serversFile)
	}

	cfg, err := config.Init(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	allowedUsers := parseAllowedUsers(cfg.Telegram.AllowedUsers)

	db, err := store.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer db.Close()

	tp, err := tracing.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
			logger.Warn("tracing shutdown", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	profileOpts := []profile.Option{
		profile.WithBaseURL(cfg.Profile.BaseURL),
		profile.WithRateLimit(cfg.Profile.RateLimit, 5),
	}
	if cfg.Profile.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Profile.RedisAddr})
		defer rdb.Close()
		profileOpts = append(profileOpts, profile.WithCache(profile.NewRedisCache(rdb, cfg.Profile.CacheTTL)))
	}
	profiles := profile.NewClient(profileOpts...)

	governor := rcon.NewGovernor(
		rcon.NewClient(cfg.Rcon.ConnectTimeout, cfg.Rcon.CommandTimeout),
		rcon.WithTimeouts(cfg.Rcon.ConnectTimeout, cfg.Rcon.CommandTimeout),
	)
	orchestrator := whitelist.NewOrchestrator(governor,
		whitelist.WithMetrics(m),
		whitelist.WithTracer(tp.Tracer("github.com/danyaalu/whitelist-bot/internal/whitelist")),
		whitelist.WithKickAfterRemove(cfg.Rcon.KickOnRemove),
	)
	aggregator := whitelist.NewAggregator(orchestrator, whitelist.WithConcurrency(cfg.Rcon.Concurrency))

	statusChecker := status.NewChecker(statusTimeout)

	// Start the monitor server first so /health answers while we connect to Telegram.
	monitorSrv := monitor.NewServer(cfg.Monitor.Addr, reg, logger.With("component", "monitor"))
	go func() {
		if err := monitorSrv.ListenAndServe(); err != nil {
			logger.Error("monitor server", "error", err)
			stop()
		}
	}()

	watcher := monitor.NewWatcher(statusChecker, cfg.Servers, m, logger.With("component", "watcher"))
	if err := watcher.Start(cfg.Monitor.ProbeSchedule); err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer watcher.Stop()

	bot, err := telegram.NewBot(telegram.Config{
		Token:        cfg.Telegram.BotToken,
		AllowedUsers: allowedUsers,
		Servers:      cfg.Servers,
		Whitelist:    orchestrator,
		Aggregator:   aggregator,
		Profiles:     profiles,
		Store:        store.NewWhitelist(db),
		Status:       statusChecker,
	})
	if err != nil {
		return fmt.Errorf("telegram bot: %w", err)
	}

	monitorSrv.SetReady()
	logger.Info("whitelist bot ready", "servers", len(cfg.Servers))

	bot.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return monitorSrv.Shutdown(shutdownCtx)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseAllowedUsers(s string) map[int64]struct{} {
	users := make(map[int64]struct{})
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var id int64
		if _, err := fmt.Sscanf(part, "%d", &id); err == nil && id != 0 {
			users[id] = struct{}{}
		}
	}
	return users
}
