package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/streamvault/vodfetch/internal/metrics"
	"github.com/streamvault/vodfetch/internal/playlist"
)

const muteMarker = "-muted"

// fetchSegment downloads one segment into dir and returns the local path.
//
// When tryUnmute is set and the segment name carries the mute marker, the
// unmuted URL (marker stripped) is attempted first; very recent VODs often
// have an unmuted replacement. Any failure there falls back to the muted
// original, and it is the fallback's error that the caller sees.
func (d *Downloader) fetchSegment(ctx context.Context, baseURL string, seg playlist.Segment, dir string, tryUnmute bool) (string, error) {
	mutedURL := baseURL + seg.URI
	targetPath := filepath.Join(dir, seg.URI)

	if tryUnmute && strings.Contains(seg.URI, muteMarker) {
		unmutedURL := baseURL + strings.ReplaceAll(seg.URI, muteMarker, "")
		if path, err := d.fetchToFile(ctx, unmutedURL, targetPath); err == nil {
			return path, nil
		}
		d.logger.Debugf("unmuted fetch failed for %s, falling back to muted", seg.URI)
		metrics.UnmuteFallbacksTotal.Inc()
	}

	return d.fetchToFile(ctx, mutedURL, targetPath)
}

// fetchToFile streams one URL into a newly created file.
func (d *Downloader) fetchToFile(ctx context.Context, url, targetPath string) (string, error) {
	resp, err := d.http.Get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("segment request failed: %w", err)
	}
	defer resp.Body.Close()

	file, err := os.Create(targetPath)
	if err != nil {
		return "", fmt.Errorf("failed to create segment file: %w", err)
	}
	defer file.Close()

	n, err := io.Copy(file, resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to stream segment to disk: %w", err)
	}
	metrics.SegmentBytesTotal.Add(float64(n))

	return targetPath, nil
}
