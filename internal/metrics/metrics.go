package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Download Metrics
	VideosDownloadedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vodfetch_videos_downloaded_total",
			Help: "Total number of video download attempts by outcome",
		},
		[]string{"status"},
	)

	VideoDownloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vodfetch_video_download_duration_seconds",
			Help:    "End-to-end duration of one video download attempt",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~2.5 hours
		},
	)

	SegmentsDownloadedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vodfetch_segments_downloaded_total",
			Help: "Total number of segments fetched",
		},
	)

	SegmentBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vodfetch_segment_bytes_total",
			Help: "Total bytes of segment data written to disk",
		},
	)

	UnmuteFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vodfetch_unmute_fallbacks_total",
			Help: "Unmuted fetch attempts that fell back to the muted segment",
		},
	)

	// Batch Metrics
	BatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vodfetch_batch_runs_total",
			Help: "Total number of batch runs by outcome (completed, skipped, locked)",
		},
		[]string{"outcome"},
	)

	VideosInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vodfetch_videos_in_flight",
			Help: "Videos in the downloading..uploading backpressure window at run start",
		},
	)
)
