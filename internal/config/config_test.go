package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
twitch:
  clientID: test-client-id
downloader:
  outputDir: /tmp/videos
  threadCount: 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-client-id", cfg.Twitch.ClientID)
	assert.Equal(t, "/tmp/videos", cfg.Downloader.OutputDir)
	assert.Equal(t, 8, cfg.Downloader.ThreadCount)

	// Defaults fill in everything not set in the file.
	assert.Equal(t, "source", cfg.Downloader.Quality)
	assert.Equal(t, 5, cfg.Downloader.MaxVideosPerRun)
	assert.Equal(t, "https://gql.twitch.tv/gql", cfg.Twitch.GraphQLURL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 4, cfg.HTTP.RetryMax)
	assert.Equal(t, 60*time.Second, cfg.HTTP.Timeout)
}

func TestLoadMissingClientID(t *testing.T) {
	path := writeConfigFile(t, `
downloader:
  outputDir: /tmp/videos
`)

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "clientID")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
