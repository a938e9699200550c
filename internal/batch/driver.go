// Package batch selects pending videos from the store and drives them
// through the download pipeline one at a time, with a backpressure gate
// protecting local disk from piling up downloads the upload stage has not
// moved out yet.
package batch

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/streamvault/vodfetch/internal/config"
	"github.com/streamvault/vodfetch/internal/logging"
	"github.com/streamvault/vodfetch/internal/metrics"
	"github.com/streamvault/vodfetch/pkg/models"
)

// maxInFlight is the backpressure threshold: when this many videos sit in
// the downloading..uploading window, a run does not start any new work.
const maxInFlight = 3

// Repository is the slice of the video store the driver needs.
type Repository interface {
	ListByStatus(ctx context.Context, status models.Status, limit int) ([]*models.Video, error)
	CountInFlight(ctx context.Context) (int, error)
	UpdateStatus(ctx context.Context, id int64, status models.Status) error
	GetByTwitchID(ctx context.Context, twitchID string) (*models.Video, error)
}

// VideoDownloader performs one end-to-end video download.
type VideoDownloader interface {
	Download(ctx context.Context, videoID, quality string) (string, error)
}

// Locker guards a whole batch run. Optional.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Driver runs download batches.
type Driver struct {
	repo       Repository
	downloader VideoDownloader
	locker     Locker
	cfg        config.DownloaderConfig
	logger     *logging.Logger
}

// NewDriver creates a new batch driver. locker may be nil when no run lock
// is configured.
func NewDriver(
	repo Repository,
	downloader VideoDownloader,
	locker Locker,
	cfg config.DownloaderConfig,
	logger *logging.Logger,
) *Driver {
	return &Driver{
		repo:       repo,
		downloader: downloader,
		locker:     locker,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run executes one batch pass. A single video's failure is logged and never
// stops the rest of the batch; Run only returns an error when the pass
// itself cannot proceed.
func (d *Driver) Run(ctx context.Context) error {
	logger := d.logger.WithRunID(uuid.New().String())

	if d.locker != nil {
		ok, err := d.locker.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("run lock: %w", err)
		}
		if !ok {
			logger.Warn("another run holds the lock, skipping this run")
			metrics.BatchRunsTotal.WithLabelValues("locked").Inc()
			return nil
		}
		defer func() {
			if err := d.locker.Release(ctx); err != nil {
				logger.ErrorWithErr("failed to release run lock", err)
			}
		}()
	}

	inFlight, err := d.repo.CountInFlight(ctx)
	if err != nil {
		return fmt.Errorf("failed to count in-flight videos: %w", err)
	}
	metrics.VideosInFlight.Set(float64(inFlight))

	if inFlight >= maxInFlight {
		logger.Warnf("%d videos in flight (limit %d), skipping this run", inFlight, maxInFlight)
		metrics.BatchRunsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	videos, err := d.repo.ListByStatus(ctx, models.StatusNotStarted, d.cfg.MaxVideosPerRun)
	if err != nil {
		return fmt.Errorf("failed to list pending videos: %w", err)
	}
	logger.Infof("processing %d pending videos", len(videos))

	for _, video := range videos {
		if err := d.process(ctx, video, logger); err != nil {
			logger.WithVideoID(video.TwitchID).ErrorWithErr("video failed", err)
		}
	}

	metrics.BatchRunsTotal.WithLabelValues("completed").Inc()
	return nil
}

// RunOne downloads a single video by its platform identity, outside the
// batch selection and backpressure policy.
func (d *Driver) RunOne(ctx context.Context, twitchID string) error {
	video, err := d.repo.GetByTwitchID(ctx, twitchID)
	if err != nil {
		return err
	}
	return d.process(ctx, video, d.logger)
}

// process moves one video through the status machine around a download
// attempt. The downloading status is persisted before the first network
// call so a crash leaves an honest record.
func (d *Driver) process(ctx context.Context, video *models.Video, logger *logging.Logger) error {
	log := logger.WithVideoID(video.TwitchID)

	if err := d.repo.UpdateStatus(ctx, video.ID, models.StatusDownloading); err != nil {
		return fmt.Errorf("failed to mark video downloading: %w", err)
	}

	path, err := d.downloader.Download(ctx, video.TwitchID, d.cfg.Quality)
	if err != nil {
		// Best effort: a failed status write must not mask the download error.
		if uerr := d.repo.UpdateStatus(ctx, video.ID, models.StatusFailed); uerr != nil {
			log.ErrorWithErr("failed to mark video failed", uerr)
		}
		return err
	}

	log.Infof("downloaded video to %s", path)
	if err := d.repo.UpdateStatus(ctx, video.ID, models.StatusDownloaded); err != nil {
		return fmt.Errorf("failed to mark video downloaded: %w", err)
	}

	return nil
}
