package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sjsage522/eventworker/internal"
	"sjsage522/eventworker/internal/extractor"
	"sjsage522/eventworker/internal/metrics"
	"sjsage522/eventworker/logger"
	"sjsage522/eventworker/services/cache"
	"sjsage522/eventworker/services/store"
	"sjsage522/eventworker/services/worker"
)

var showDetails bool

func init() {
	sentCmd.Flags().BoolVar(&showDetails, "details", false, "print sent time and title of each record")
	rootCmd.AddCommand(runCmd, serveCmd, sentCmd, unblockCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one collection pass and exit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		deps, err := internal.NewDependencies(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initialize services: %w", err)
		}
		defer deps.Close()

		res, err := deps.Job().Run(ctx)
		if err != nil {
			return err
		}
		logger.Default.Info().
			Int("extracted", res.Extracted).
			Int("failures", len(res.Failures)).
			Int("sent", len(res.Sent)).
			Msg("run complete")
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run on the configured interval and expose /metrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Default

		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}

		// Set up signal handling
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		deps, err := internal.NewDependencies(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initialize services: %w", err)
		}
		defer deps.Close()

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.LogError("metrics", err, "metrics server on %s stopped", cfg.MetricsAddr)
			}
		}()

		log.Info().
			Str("environment", cfg.Environment).
			Dur("crawl_interval", cfg.CrawlInterval).
			Str("metrics_addr", cfg.MetricsAddr).
			Msg("Starting event worker")

		err = worker.NewWorker(ctx, deps.Job(), cfg.CrawlInterval).Start()

		// Graceful shutdown
		log.Info().Msg("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown: %v", err)
		}

		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

var sentCmd = &cobra.Command{
	Use:   "sent [--details]",
	Short: "List the events recorded as already notified.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		kv := store.NewRedisStore(store.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), cfg.StoreTimeout)
		defer kv.Close()
		tracker := store.NewSentTracker(kv, cfg.SentKeyPrefix, cfg.SentTTL, cfg.StoreReadConcurrency)

		keys, err := tracker.ListSent(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, k := range keys {
			if !showDetails {
				fmt.Fprintf(out, "%s\t%s\n", k.SiteID, k.EventID)
				continue
			}
			rec, err := tracker.Record(ctx, k)
			if err != nil {
				fmt.Fprintf(out, "%s\t%s\t(%v)\n", k.SiteID, k.EventID, err)
				continue
			}
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", k.SiteID, k.EventID, rec.SentAt, rec.Title)
		}
		fmt.Fprintf(out, "%d records\n", len(keys))
		return nil
	},
}

var unblockCmd = &cobra.Command{
	Use:   "unblock <site>...",
	Short: "Lift the rate-limit block of the given sites before it expires.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}

		mc := cache.NewMemcacheService(cfg.MemcacheAddr)
		for _, site := range args {
			if err := extractor.ClearRateLimit(mc, site); err != nil {
				return fmt.Errorf("unblock %s: %w", site, err)
			}
			logger.Info("Cleared rate-limit block of %s", site)
		}
		return nil
	},
}
