package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streamvault/vodfetch/internal/batch"
	"github.com/streamvault/vodfetch/internal/config"
	"github.com/streamvault/vodfetch/internal/database"
	"github.com/streamvault/vodfetch/internal/download"
	"github.com/streamvault/vodfetch/internal/logging"
	"github.com/streamvault/vodfetch/internal/metrics"
	"github.com/streamvault/vodfetch/internal/remux"
	"github.com/streamvault/vodfetch/internal/runlock"
	"github.com/streamvault/vodfetch/internal/tracing"
	"github.com/streamvault/vodfetch/internal/transport"
	"github.com/streamvault/vodfetch/internal/twitch"
)

// runLockTTL caps how long a crashed run can keep others out.
const runLockTTL = 6 * time.Hour

func main() {
	videoID := flag.String("video", "", "download a single video by its platform ID instead of running a batch")
	flag.Parse()

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	// Initialize tracing
	if cfg.Tracing.Enabled {
		_, closer, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			logger.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer closer.Close()
	}

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	// Metrics server
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Port)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("metrics server stopped", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsServer.Shutdown(shutdownCtx)
		}()
	}

	// Optional batch run lock
	var locker batch.Locker
	if cfg.Redis.Host != "" {
		lock, err := runlock.New(cfg.Redis, runLockTTL)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer lock.Close()
		locker = lock
	}

	// Build the download pipeline
	httpClient := transport.New(cfg.HTTP, logger)
	platform := twitch.NewClient(httpClient, cfg.Twitch, logger)
	ffmpeg := remux.NewFFmpeg("")
	downloader := download.NewDownloader(platform, ffmpeg, httpClient, cfg.Downloader, logger)
	driver := batch.NewDriver(repo, downloader, locker, cfg.Downloader, logger)

	// Handle shutdown gracefully
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warn("shutting down")
		cancel()
	}()

	if *videoID != "" {
		if err := driver.RunOne(ctx, *videoID); err != nil {
			logger.Fatalf("Failed to download video %s: %v", *videoID, err)
		}
		return
	}

	if err := driver.Run(ctx); err != nil {
		logger.Fatalf("Batch run failed: %v", err)
	}
	logger.Info("batch run finished")
}
