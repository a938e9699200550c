package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streamvault/vodfetch/internal/config"
	"github.com/streamvault/vodfetch/internal/logging"
	"github.com/streamvault/vodfetch/internal/playlist"
	"github.com/streamvault/vodfetch/internal/transport"
	"github.com/streamvault/vodfetch/internal/twitch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	info  *twitch.DownloadInfo
	err   error
	calls atomic.Int32
}

func (f *fakeResolver) DownloadInfo(ctx context.Context, videoID, quality string) (*twitch.DownloadInfo, error) {
	f.calls.Add(1)
	return f.info, f.err
}

// copyRemuxer stands in for ffmpeg: it copies the stream file to the output.
type copyRemuxer struct{}

func (copyRemuxer) Remux(ctx context.Context, inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0644)
}

type failingRemuxer struct{}

func (failingRemuxer) Remux(ctx context.Context, inputPath, outputPath string) error {
	return errors.New("remux exploded")
}

func testHTTP() *transport.Client {
	return transport.New(config.HTTPConfig{
		Timeout:      5 * time.Second,
		RetryMax:     0,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: time.Millisecond,
	}, logging.NewNop())
}

func newTestDownloader(t *testing.T, resolver InfoResolver, remuxer Remuxer, threads int) (*Downloader, string) {
	t.Helper()
	outputDir := t.TempDir()
	d := NewDownloader(resolver, remuxer, testHTTP(), config.DownloaderConfig{
		OutputDir:   outputDir,
		ThreadCount: threads,
	}, logging.NewNop())
	return d, outputDir
}

func intPtr(n int) *int { return &n }

func segments(uris ...string) []playlist.Segment {
	segs := make([]playlist.Segment, 0, len(uris))
	for _, u := range uris {
		segs = append(segs, playlist.Segment{URI: u, Duration: 2})
	}
	return segs
}

func TestConcurrencyBound(t *testing.T) {
	assert.Equal(t, 1, concurrencyBound(0, 5))
	assert.Equal(t, 1, concurrencyBound(-3, 5))
	assert.Equal(t, 5, concurrencyBound(100, 5))
	assert.Equal(t, 3, concurrencyBound(3, 5))
	assert.Equal(t, 1, concurrencyBound(4, 1))
}

func TestDownloadEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "data-%s;", filepath.Base(r.URL.Path))
	}))
	defer srv.Close()

	resolver := &fakeResolver{info: &twitch.DownloadInfo{
		Segments: segments("3.ts", "1.ts", "2.ts"),
		BaseURL:  srv.URL + "/vod/",
	}}

	d, outputDir := newTestDownloader(t, resolver, copyRemuxer{}, 2)

	finalPath, err := d.Download(context.Background(), "123456", "source")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outputDir, "123456.mp4"), finalPath)

	// Assembly order follows sequence numbers, not playlist or completion order.
	data, err := os.ReadFile(finalPath)
	require.NoError(t, err)
	assert.Equal(t, "data-1.ts;data-2.ts;data-3.ts;", string(data))

	// Scratch directory is gone after success.
	_, err = os.Stat(filepath.Join(outputDir, "123456"))
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadTargetAlreadyExists(t *testing.T) {
	resolver := &fakeResolver{info: &twitch.DownloadInfo{
		Segments: segments("1.ts"),
		BaseURL:  "http://unused/",
	}}

	d, outputDir := newTestDownloader(t, resolver, copyRemuxer{}, 1)
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "123456.mp4"), []byte("old"), 0644))

	_, err := d.Download(context.Background(), "123456", "source")

	var existsErr *TargetExistsError
	require.ErrorAs(t, err, &existsErr)
	// Nothing happened beyond the existence check.
	assert.Equal(t, int32(0), resolver.calls.Load())
	_, statErr := os.Stat(filepath.Join(outputDir, "123456"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadScratchPreconditions(t *testing.T) {
	resolver := &fakeResolver{info: &twitch.DownloadInfo{
		Segments: segments("1.ts"),
		BaseURL:  "http://unused/",
	}}

	t.Run("scratch path is a file", func(t *testing.T) {
		d, outputDir := newTestDownloader(t, resolver, copyRemuxer{}, 1)
		require.NoError(t, os.WriteFile(filepath.Join(outputDir, "123456"), nil, 0644))

		_, err := d.Download(context.Background(), "123456", "source")

		var notDirErr *ScratchNotDirError
		assert.ErrorAs(t, err, &notDirErr)
	})

	t.Run("scratch directory not empty", func(t *testing.T) {
		d, outputDir := newTestDownloader(t, resolver, copyRemuxer{}, 1)
		scratch := filepath.Join(outputDir, "123456")
		require.NoError(t, os.MkdirAll(scratch, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(scratch, "4.ts"), []byte("leftover"), 0644))

		_, err := d.Download(context.Background(), "123456", "source")

		var notEmptyErr *ScratchNotEmptyError
		assert.ErrorAs(t, err, &notEmptyErr)
	})
}

func TestDownloadEmptyPlaylist(t *testing.T) {
	resolver := &fakeResolver{info: &twitch.DownloadInfo{BaseURL: "http://unused/"}}

	d, _ := newTestDownloader(t, resolver, copyRemuxer{}, 1)

	_, err := d.Download(context.Background(), "123456", "source")
	assert.ErrorIs(t, err, ErrEmptyPlaylist)
}

func TestDownloadSegmentFailureLeavesScratchFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if filepath.Base(r.URL.Path) == "2.ts" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, "data")
	}))
	defer srv.Close()

	resolver := &fakeResolver{info: &twitch.DownloadInfo{
		Segments: segments("1.ts", "2.ts", "3.ts"),
		BaseURL:  srv.URL + "/vod/",
	}}

	d, outputDir := newTestDownloader(t, resolver, copyRemuxer{}, 1)

	_, err := d.Download(context.Background(), "123456", "source")
	require.Error(t, err)

	var statusErr *transport.StatusError
	assert.ErrorAs(t, err, &statusErr)

	// No final file, but the scratch directory and the successful segment
	// stay behind for inspection.
	_, statErr := os.Stat(filepath.Join(outputDir, "123456.mp4"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(outputDir, "123456", "1.ts"))
	assert.NoError(t, statErr)
}

func TestDownloadRemuxFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data")
	}))
	defer srv.Close()

	resolver := &fakeResolver{info: &twitch.DownloadInfo{
		Segments: segments("1.ts"),
		BaseURL:  srv.URL + "/vod/",
	}}

	d, outputDir := newTestDownloader(t, resolver, failingRemuxer{}, 1)

	_, err := d.Download(context.Background(), "123456", "source")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remux exploded")

	_, statErr := os.Stat(filepath.Join(outputDir, "123456.mp4"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadResolverFailure(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("token exchange failed")}

	d, _ := newTestDownloader(t, resolver, copyRemuxer{}, 1)

	_, err := d.Download(context.Background(), "123456", "source")
	assert.ErrorContains(t, err, "token exchange failed")
}

func TestDownloadHonorsConcurrencyBound(t *testing.T) {
	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()

		fmt.Fprint(w, "data")
	}))
	defer srv.Close()

	uris := make([]string, 12)
	for i := range uris {
		uris[i] = fmt.Sprintf("%d.ts", i+1)
	}
	resolver := &fakeResolver{info: &twitch.DownloadInfo{
		Segments: segments(uris...),
		BaseURL:  srv.URL + "/vod/",
	}}

	d, _ := newTestDownloader(t, resolver, copyRemuxer{}, 3)

	_, err := d.Download(context.Background(), "123456", "source")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, maxInFlight, 3)
}
