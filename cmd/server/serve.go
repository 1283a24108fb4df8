package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	httpapi "github.com/survey-hub/survey-hub/internal/api/http"
	"github.com/survey-hub/survey-hub/internal/application/dispatch"
	"github.com/survey-hub/survey-hub/internal/application/flowsync"
	"github.com/survey-hub/survey-hub/internal/application/maintenance"
	"github.com/survey-hub/survey-hub/internal/application/transition"
	"github.com/survey-hub/survey-hub/internal/clock"
	"github.com/survey-hub/survey-hub/internal/config"
	"github.com/survey-hub/survey-hub/internal/domain/postback"
	"github.com/survey-hub/survey-hub/internal/domain/profile"
	"github.com/survey-hub/survey-hub/internal/domain/ratelimit"
	"github.com/survey-hub/survey-hub/internal/domain/session"
	"github.com/survey-hub/survey-hub/internal/infrastructure/flowfile"
	"github.com/survey-hub/survey-hub/internal/infrastructure/lineapi"
	"github.com/survey-hub/survey-hub/internal/infrastructure/memory"
	"github.com/survey-hub/survey-hub/internal/infrastructure/postgres"
	"github.com/survey-hub/survey-hub/internal/infrastructure/redisstore"
	"github.com/survey-hub/survey-hub/internal/infrastructure/reply"
	"github.com/survey-hub/survey-hub/internal/migrations"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger(cfg.LogLevel, cfg.LogFormat))
		},
	}
}

type stores struct {
	limiter   ratelimit.Limiter
	sessions  session.Store
	postbacks postback.Deduplicator
	checks    map[string]httpapi.HealthCheck
	close     func()
}

func serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	source, closeSource, err := openFlowSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	reloader, err := flowsync.NewReloader(ctx, source, logger)
	if err != nil {
		return fmt.Errorf("load flow: %w", err)
	}
	graph := reloader.Graph()
	logger.Info().Str("flow", graph.Name()).Str("root", graph.RootStepID()).Int("steps", graph.Len()).Msg("flow loaded")

	st, err := openStores(ctx, cfg, graph.RootStepID())
	if err != nil {
		return err
	}
	defer st.close()
	logger.Info().Str("backend", cfg.StoreBackend).Msg("session stores ready")

	// without a token every user gets the configured guest name
	var profiles profile.Resolver
	if cfg.ChannelAccessToken != "" {
		profiles = lineapi.NewProfileClient(cfg.ProfileAPIURL, cfg.ChannelAccessToken, 5*time.Second)
	}

	clk := clock.System{}
	dispatcher := dispatch.NewDispatcher(
		st.limiter,
		st.sessions,
		st.postbacks,
		transition.NewValidator(graph, logger),
		graph,
		profiles,
		cfg.GuestName,
		clk,
		cfg.TriggerKeywords,
		logger,
	)

	// background loops
	sweeper := maintenance.NewSweeper(clk, logger,
		maintenance.Target{Name: "sessions", Store: st.sessions},
		maintenance.Target{Name: "rate_windows", Store: st.limiter},
		maintenance.Target{Name: "postbacks", Store: st.postbacks},
	)
	sweepTicker := time.NewTicker(cfg.SweepInterval)
	defer sweepTicker.Stop()
	go sweeper.Run(ctx, sweepTicker.C)

	reloadTicker := time.NewTicker(cfg.FlowReloadInterval)
	defer reloadTicker.Stop()
	go reloader.Run(ctx, reloadTicker.C)

	apiServer := httpapi.NewServer(dispatcher, reply.NewLogSender(logger), cfg.ChannelSecret, st.checks, logger)
	if cfg.ChannelSecret == "" {
		logger.Warn().Msg("LINE_CHANNEL_SECRET not set, webhook signatures are not verified")
	}
	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	// graceful shutdown
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info().Msg("shutting down")
	return httpServer.Shutdown(ctxShutdown)
}

func openFlowSource(ctx context.Context, cfg *config.Config) (flowsync.Source, func(), error) {
	if cfg.FlowSource == config.FlowFromFile {
		return flowfile.NewSource(cfg.FlowFile), func() {}, nil
	}
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("db error: %w", err)
	}
	if err := postgres.RunMigrations(ctx, pool, migrations.FS); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migration error: %w", err)
	}
	return postgres.NewFlowSource(postgres.NewFlowRepository(pool), cfg.FlowName), pool.Close, nil
}

func openStores(ctx context.Context, cfg *config.Config, root string) (*stores, error) {
	if cfg.StoreBackend == config.BackendMemory {
		return &stores{
			limiter:   memory.NewRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMax),
			sessions:  memory.NewSessionStore(root, cfg.SessionTTL),
			postbacks: memory.NewPostbackStore(cfg.PostbackTTL, cfg.PostbackCap),
			close:     func() {},
		}, nil
	}
	client, err := redisstore.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	var uc redis.UniversalClient = client
	return &stores{
		limiter:   redisstore.NewRateLimiter(uc, cfg.RateLimitWindow, cfg.RateLimitMax),
		sessions:  redisstore.NewSessionStore(uc, root, cfg.SessionTTL, cfg.InFlightTTL),
		postbacks: redisstore.NewPostbackStore(uc, cfg.PostbackTTL, cfg.PostbackCap),
		checks: map[string]httpapi.HealthCheck{
			"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
		},
		close: func() { _ = client.Close() },
	}, nil
}
