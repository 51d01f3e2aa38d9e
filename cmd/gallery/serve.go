package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/galleryhost/gallery/internal/api"
	"github.com/galleryhost/gallery/internal/config"
	"github.com/galleryhost/gallery/internal/database"
	"github.com/galleryhost/gallery/internal/filetype"
	"github.com/galleryhost/gallery/internal/identity"
	"github.com/galleryhost/gallery/internal/index"
	"github.com/galleryhost/gallery/internal/invalidator"
	"github.com/galleryhost/gallery/internal/layout"
	"github.com/galleryhost/gallery/internal/metrics"
	"github.com/galleryhost/gallery/internal/thumbnail"
)

func runServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gallery HTTP server, filesystem watcher, and thumbnail pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	metricsManager := metrics.NewManager()
	collector := metricsManager.Collector()

	registry := filetype.New()
	registry.Load(filetype.DefaultSeeds())

	normalizer := identity.NewDefaultNormalizer()
	syncer := index.NewSyncer(db, normalizer, registry, cfg, collector)
	engine := layout.NewEngine(db, syncer, registry, cfg)
	syncer.OnDirectoryValidated(engine.Invalidate)

	resolver := index.NewResolver(db)
	thumbStore := thumbnail.NewStore(db)
	backend := thumbnail.NewPillowBackend()
	pipeline := thumbnail.NewPipeline(thumbStore, resolver, registry, backend, cfg, collector)
	defer pipeline.Close()

	inv := invalidator.New(cfg.ManagedRoot, syncer, cfg, collector, engine.InvalidatePath)
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go inv.Run(watchCtx)
	defer inv.Stop()

	stopSweep := startThumbnailSweep(ctx, cfg, thumbStore)
	defer stopSweep()

	router := api.NewRouter(&api.Dependencies{
		Config:   cfg,
		Engine:   engine,
		Syncer:   syncer,
		Pipeline: pipeline,
	})
	apiServer := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(metricsManager.GetRegistry(), promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("gallery HTTP server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info().Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
	return nil
}

// startThumbnailSweep runs the optional periodic orphaned-thumbnail GC
// (spec.md §9's deferred-allowance item, SPEC_FULL.md's supplemented
// sweep feature). Disabled when ThumbnailSweepInterval is zero, the
// default.
func startThumbnailSweep(ctx context.Context, cfg *config.Config, store *thumbnail.Store) func() {
	if cfg.ThumbnailSweepInterval <= 0 {
		return func() {}
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	ticker := time.NewTicker(cfg.ThumbnailSweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				n, err := store.DeleteOrphaned(sweepCtx)
				if err != nil {
					log.Warn().Err(err).Msg("thumbnail sweep failed")
					continue
				}
				if n > 0 {
					log.Info().Int("removed", n).Msg("thumbnail sweep removed orphaned records")
				}
			}
		}
	}()
	return cancel
}
