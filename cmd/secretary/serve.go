package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aitarf0921/AI-Secretary/pkg/answer"
	"github.com/aitarf0921/AI-Secretary/pkg/cache"
	cachepkg "github.com/aitarf0921/AI-Secretary/pkg/cache/sqlite"
	"github.com/aitarf0921/AI-Secretary/pkg/config"
	"github.com/aitarf0921/AI-Secretary/pkg/knowledge"
	"github.com/aitarf0921/AI-Secretary/pkg/logging"
	"github.com/aitarf0921/AI-Secretary/pkg/mailer"
	"github.com/aitarf0921/AI-Secretary/pkg/otp"
	"github.com/aitarf0921/AI-Secretary/pkg/payment"
	"github.com/aitarf0921/AI-Secretary/pkg/provider"
	"github.com/aitarf0921/AI-Secretary/pkg/router"
	"github.com/aitarf0921/AI-Secretary/pkg/server"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		envFile    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the widget and query server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, configPath, envFile)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "secretary.yaml", "path to config file")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	return cmd
}

// loadConfig reads envFile (if present) into the environment, then the
// config file, and validates the result.
func loadConfig(configPath, envFile string) (*config.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Finalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, configPath, envFile string) error {
	cfg, err := loadConfig(configPath, envFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	g, ctx := errgroup.WithContext(ctx)

	var answers cache.Cache
	switch cfg.Cache.Backend {
	case "sqlite":
		c, err := cachepkg.New(cfg.Cache.DBPath)
		if err != nil {
			return fmt.Errorf("init cache: %w", err)
		}
		defer func() { _ = c.Close() }()
		answers = c
		g.Go(func() error {
			purgeExpired(ctx, c, cfg.Cache.JanitorInterval, logger)
			return nil
		})
	default:
		c := cache.NewMemory(cache.WithJanitor(cfg.Cache.JanitorInterval))
		defer func() { _ = c.Close() }()
		answers = c
	}

	store, err := knowledge.Open(ctx, cfg.Knowledge)
	if err != nil {
		return fmt.Errorf("open knowledge store: %w", err)
	}
	defer func() { _ = store.Close() }()

	generators, err := provider.FromConfig(ctx, cfg.Providers)
	if err != nil {
		return fmt.Errorf("init providers: %w", err)
	}
	routes, err := router.New(cfg)
	if err != nil {
		return fmt.Errorf("resolve candidates: %w", err)
	}
	chain := provider.NewChain(generators, cfg.ProviderTimeout, logger)

	sender, err := mailer.New(cfg.OTP, logger)
	if err != nil {
		return fmt.Errorf("init mailer: %w", err)
	}

	var payments *payment.EventLog
	if cfg.Payment.IPNSecret != "" {
		payments, err = payment.NewEventLog(cfg.Payment.DBPath)
		if err != nil {
			return fmt.Errorf("init payment log: %w", err)
		}
		defer func() { _ = payments.Close() }()
	}

	srv := server.New(server.Deps{
		Config: cfg,
		Answers: answer.New(answers, store, chain, answer.Options{
			MultiTenant: cfg.MultiTenant(),
			CacheTTL:    cfg.Cache.TTL,
			Routes:      routes,
			Logger:      logger,
		}),
		OTP:      otp.New(answers, store, sender, cfg.OTP.TTL, logger),
		Store:    store,
		Payments: payments,
		Logger:   logger,
	})

	logger.Info("starting secretary",
		zap.String("listen", cfg.Listen),
		zap.String("tenancy", cfg.Tenancy),
		zap.Stringers("candidates", routes.Candidates("")),
		zap.Int("site_chains", len(cfg.SiteCandidates)),
	)
	g.Go(func() error { return srv.ListenAndServe(ctx) })
	return g.Wait()
}

// purgeExpired drops expired rows from the sqlite cache until ctx is done.
func purgeExpired(ctx context.Context, c *cachepkg.Cache, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.Clear(ctx, true)
			if err != nil {
				logger.Warn("purge expired cache entries", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("purged expired cache entries", zap.Int64("count", n))
			}
		}
	}
}
