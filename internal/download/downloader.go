// Package download implements the single-asset download pipeline: manifest
// resolution, bounded-concurrency segment fetching, deterministic reassembly
// and the final remux into an MP4.
package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/streamvault/vodfetch/internal/config"
	"github.com/streamvault/vodfetch/internal/logging"
	"github.com/streamvault/vodfetch/internal/metrics"
	"github.com/streamvault/vodfetch/internal/playlist"
	"github.com/streamvault/vodfetch/internal/tracing"
	"github.com/streamvault/vodfetch/internal/transport"
	"github.com/streamvault/vodfetch/internal/twitch"
)

// unmuteMaxAgeHours bounds the window in which the platform may still have
// unmuted replacement segments available.
const unmuteMaxAgeHours = 24

const (
	streamFileName = "video.ts"
	remuxFileName  = "video.mp4"
)

// InfoResolver resolves a video's manifest into segment references.
type InfoResolver interface {
	DownloadInfo(ctx context.Context, videoID, quality string) (*twitch.DownloadInfo, error)
}

// Remuxer repackages a stream file into the final container.
type Remuxer interface {
	Remux(ctx context.Context, inputPath, outputPath string) error
}

// Downloader performs end-to-end single-video downloads.
type Downloader struct {
	resolver InfoResolver
	remuxer  Remuxer
	http     *transport.Client
	cfg      config.DownloaderConfig
	logger   *logging.Logger
}

// NewDownloader creates a new downloader
func NewDownloader(
	resolver InfoResolver,
	remuxer Remuxer,
	http *transport.Client,
	cfg config.DownloaderConfig,
	logger *logging.Logger,
) *Downloader {
	return &Downloader{
		resolver: resolver,
		remuxer:  remuxer,
		http:     http,
		cfg:      cfg,
		logger:   logger,
	}
}

// Download fetches one video and returns the final MP4 path.
//
// On a segment failure the attempt is abandoned but already-written scratch
// files are left behind on purpose: the scratch directory emptiness check
// only runs before an attempt, and the leftovers are what an operator has to
// look at.
func (d *Downloader) Download(ctx context.Context, videoID, quality string) (string, error) {
	span, ctx := tracing.StartSpan(ctx, "download_video")
	defer span.Finish()
	tracing.SetTag(span, "video_id", videoID)
	tracing.SetTag(span, "quality", quality)

	start := time.Now()
	finalPath, err := d.download(ctx, videoID, quality)
	metrics.VideoDownloadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		tracing.LogError(span, err)
		metrics.VideosDownloadedTotal.WithLabelValues("failed").Inc()
		return "", err
	}

	metrics.VideosDownloadedTotal.WithLabelValues("success").Inc()
	return finalPath, nil
}

func (d *Downloader) download(ctx context.Context, videoID, quality string) (string, error) {
	logger := d.logger.WithVideoID(videoID)

	scratchDir := filepath.Join(d.cfg.OutputDir, videoID)
	finalPath := filepath.Join(d.cfg.OutputDir, videoID+".mp4")

	if err := checkTargets(finalPath, scratchDir); err != nil {
		return "", err
	}

	info, err := d.resolver.DownloadInfo(ctx, videoID, quality)
	if err != nil {
		return "", err
	}
	if len(info.Segments) == 0 {
		return "", ErrEmptyPlaylist
	}

	paths, err := d.fetchAllSegments(ctx, info, scratchDir, logger)
	if err != nil {
		return "", err
	}

	if err := playlist.SortSegmentFiles(paths); err != nil {
		return "", err
	}

	if err := d.assemble(ctx, paths, scratchDir, finalPath, logger); err != nil {
		return "", err
	}

	logger.Infof("downloaded video to %s", finalPath)
	return finalPath, nil
}

// fetchAllSegments fans the segment fetches out under the concurrency bound
// and collects local paths indexed by playlist position. Completion order is
// irrelevant; ordering is re-established by the sort that follows. After the
// first failure no new fetches start, in-flight ones drain and their results
// are discarded.
func (d *Downloader) fetchAllSegments(ctx context.Context, info *twitch.DownloadInfo, scratchDir string, logger *logging.Logger) ([]string, error) {
	tryUnmute := info.Age != nil && *info.Age < unmuteMaxAgeHours
	bound := concurrencyBound(d.cfg.ThreadCount, len(info.Segments))
	logger.Debugf("fetching %d segments with concurrency %d (unmute=%v)", len(info.Segments), bound, tryUnmute)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bound)

	paths := make([]string, len(info.Segments))
	for i, seg := range info.Segments {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// A slot can free up after a sibling already failed.
			if err := gctx.Err(); err != nil {
				return err
			}
			// The fetch runs on the parent context so a sibling's failure
			// lets it finish instead of tearing it down mid-write.
			path, err := d.fetchSegment(ctx, info.BaseURL, seg, scratchDir, tryUnmute)
			if err != nil {
				return fmt.Errorf("segment %s: %w", seg.URI, err)
			}

			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("failed to canonicalize segment path: %w", err)
			}
			paths[i] = abs
			metrics.SegmentsDownloadedTotal.Inc()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// assemble turns the sorted segment files into the final MP4: concatenate,
// remux, then atomically rename so no partial file is ever visible at the
// final path.
func (d *Downloader) assemble(ctx context.Context, paths []string, scratchDir, finalPath string, logger *logging.Logger) error {
	span, ctx := tracing.StartSpan(ctx, "assemble_video")
	defer span.Finish()
	tracing.SetTag(span, "segments", len(paths))

	streamPath := filepath.Join(scratchDir, streamFileName)
	remuxPath := filepath.Join(scratchDir, remuxFileName)

	logger.Debugf("concatenating %d segments", len(paths))
	if err := concatSegments(paths, streamPath); err != nil {
		tracing.LogError(span, err)
		return err
	}

	if err := d.remuxer.Remux(ctx, streamPath, remuxPath); err != nil {
		tracing.LogError(span, err)
		return err
	}
	if err := os.Remove(streamPath); err != nil {
		return fmt.Errorf("failed to remove stream file: %w", err)
	}

	if err := os.Rename(remuxPath, finalPath); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	if err := os.RemoveAll(scratchDir); err != nil {
		return fmt.Errorf("failed to remove scratch directory: %w", err)
	}

	return nil
}

// checkTargets enforces the attempt preconditions: the final file must not
// exist, and the scratch directory must be absent or an empty directory.
func checkTargets(finalPath, scratchDir string) error {
	if _, err := os.Stat(finalPath); err == nil {
		return &TargetExistsError{Path: finalPath}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat target path: %w", err)
	}

	fi, err := os.Stat(scratchDir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(scratchDir, 0755); err != nil {
			return fmt.Errorf("failed to create scratch directory: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to stat scratch directory: %w", err)
	case !fi.IsDir():
		return &ScratchNotDirError{Path: scratchDir}
	default:
		entries, err := os.ReadDir(scratchDir)
		if err != nil {
			return fmt.Errorf("failed to read scratch directory: %w", err)
		}
		if len(entries) > 0 {
			return &ScratchNotEmptyError{Path: scratchDir}
		}
	}

	return nil
}

// concurrencyBound clamps the configured fetch parallelism to [1, segments].
func concurrencyBound(configured, segments int) int {
	if configured < 1 {
		return 1
	}
	if configured > segments {
		return segments
	}
	return configured
}
