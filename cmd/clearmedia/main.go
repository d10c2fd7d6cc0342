// Package main wires the ClearMedia daemon: Scanner, Producer, and Worker
// pool sharing one SQLite store, fronted by the Control API. Grounded on
// cmd/daemon/main.go's bootstrap shape (flag parsing, logger configuration,
// signal-driven graceful shutdown) adapted away from the streaming-specific
// proxy/TLS/OpenWebIF wiring that shape originally carried.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zhinengfan/clearmedia-go/internal/api"
	"github.com/zhinengfan/clearmedia-go/internal/cache"
	"github.com/zhinengfan/clearmedia-go/internal/config"
	"github.com/zhinengfan/clearmedia-go/internal/ingest/producer"
	"github.com/zhinengfan/clearmedia-go/internal/ingest/scanner"
	"github.com/zhinengfan/clearmedia-go/internal/ingest/worker"
	cmlog "github.com/zhinengfan/clearmedia-go/internal/log"
	"github.com/zhinengfan/clearmedia-go/internal/mediastore"
	"github.com/zhinengfan/clearmedia-go/internal/resolver"
	"github.com/zhinengfan/clearmedia-go/internal/resolver/llm"
	"github.com/zhinengfan/clearmedia-go/internal/resolver/tmdb"
	"github.com/zhinengfan/clearmedia-go/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	dotfile := flag.String("env-file", ".env", "path to a KEY=VALUE config file")
	listenAddr := flag.String("listen", ":8080", "Control API listen address")
	flag.Parse()

	if *showVersion {
		fmt.Printf("clearmedia %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cmlog.Configure(cmlog.Config{Level: os.Getenv("LOG_LEVEL")})
	logger := cmlog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(*dotfile)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().Err(err).Str("event", "config.load_failed").Msg("failed to load configuration")
	}

	store, err := mediastore.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "store.open_failed").Msg("failed to open media store")
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("error closing media store")
		}
	}()

	holder := config.NewConfigHolder(loader, config.NewDBOverrideSource(store))
	if err := holder.Reload(ctx); err != nil {
		logger.Fatal().Err(err).Str("event", "config.reload_failed").Msg("failed to materialize initial configuration")
	}
	cfg = holder.Current()

	cmlog.Configure(cmlog.Config{Level: cfg.LogLevel})

	if err := holder.StartWatcher(ctx); err != nil {
		logger.Warn().Err(err).Msg("dotfile watcher unavailable, continuing without hot reload")
	}
	defer func() {
		if cerr := holder.Stop(); cerr != nil {
			logger.Warn().Err(cerr).Msg("error stopping config watcher")
		}
	}()

	configSvc := config.NewService(holder, store)
	if n, err := configSvc.Cleanup(ctx); err != nil {
		logger.Warn().Err(err).Msg("config cleanup failed")
	} else if n > 0 {
		logger.Info().Int("removed", n).Msg("removed stale config overrides")
	}

	if n, err := store.ResetStaleRows(ctx); err != nil {
		logger.Error().Err(err).Msg("crash-recovery sweep failed")
	} else if n > 0 {
		logger.Info().Int("count", n).Msg("reset stale QUEUED/PROCESSING rows to PENDING on startup")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("source_dir", cfg.SourceDir).
		Str("target_dir", cfg.TargetDir).
		Int("worker_count", cfg.WorkerCount).
		Msg("starting clearmedia")

	tracerProvider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    "clearmedia",
		ServiceVersion: version,
		ExporterType:   cfg.TracingExporter,
		Endpoint:       cfg.TracingEndpoint,
		SamplingRate:   1.0,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("tracing unavailable, continuing without it")
		cfg.TracingEnabled = false
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("tracing shutdown failed")
			}
		}()
	}

	redisCfg := cache.RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}

	var llmClient resolver.FilenameParser
	if cfg.EnableLLM {
		llmClient = llm.New(llm.Config{
			APIKey:        cfg.OpenAIAPIKey,
			BaseURL:       cfg.OpenAIAPIBase,
			Model:         cfg.OpenAIModel,
			CacheCapacity: cfg.CacheCapacity,
			CacheBackend:  cfg.CacheBackend,
			Redis:         redisCfg,
		})
	}

	var tmdbClient resolver.MetadataMatcher
	if cfg.EnableTMDB {
		c, err := tmdb.New(tmdb.Config{
			APIKey:        cfg.TMDBAPIKey,
			Language:      cfg.TMDBLanguage,
			Concurrency:   cfg.TMDBConcurrency,
			CacheCapacity: cfg.CacheCapacity,
			CacheBackend:  cfg.CacheBackend,
			Redis:         redisCfg,
		})
		if err != nil {
			logger.Fatal().Err(err).Str("event", "tmdb.init_failed").Msg("failed to initialize TMDB client")
		}
		tmdbClient = c
	}

	resolv := resolver.New(llmClient, tmdbClient)
	sm := mediastore.NewStatusManager(store)

	queue := make(chan int64, cfg.ProducerBatchSize*2)

	scan := scanner.New(store, scanner.Config{
		SourceDir:            cfg.SourceDir,
		TargetDir:            cfg.TargetDir,
		ScanIntervalSeconds:  cfg.ScanIntervalSeconds,
		VideoExtensions:      cfg.VideoExtensions,
		MinFileSizeMB:        cfg.MinFileSizeMB,
		ScanExcludeTargetDir: cfg.ScanExcludeTargetDir,
		ScanFollowSymlinks:   cfg.ScanFollowSymlinks,
	})

	prod := producer.New(store, queue, producer.Config{
		BatchSize:       cfg.ProducerBatchSize,
		IntervalSeconds: cfg.ProducerIntervalSeconds,
	})

	pool := worker.New(store, sm, resolv, queue, worker.Config{
		Count:      cfg.WorkerCount,
		EnableLLM:  cfg.EnableLLM,
		EnableTMDB: cfg.EnableTMDB,
		TargetDir:  cfg.TargetDir,
	})

	tracingServiceName := ""
	if cfg.TracingEnabled {
		tracingServiceName = "clearmedia-api"
	}

	router := api.NewRouter(api.Deps{
		Store:              store,
		StatusManager:      sm,
		Config:             configSvc,
		CORSOrigins:        cfg.CORSOrigins,
		TracingServiceName: tracingServiceName,
	})

	mux := http.NewServeMux()
	mux.Handle("/", router)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              *listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 4)
	go func() { errCh <- scan.Run(ctx) }()
	go func() { errCh <- prod.Run(ctx) }()
	go func() { errCh <- pool.Run(ctx) }()
	go func() {
		logger.Info().Str("addr", *listenAddr).Msg("Control API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("control API server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("component exited unexpectedly, shutting down")
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown of Control API failed")
	}

	logger.Info().Msg("clearmedia stopped")
}
