// Package twitch resolves a video's playable media playlist: token exchange,
// master playlist addressing, variant selection and media playlist parsing.
package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/streamvault/vodfetch/internal/config"
	"github.com/streamvault/vodfetch/internal/logging"
	"github.com/streamvault/vodfetch/internal/playlist"
	"github.com/streamvault/vodfetch/internal/transport"
)

var (
	// ErrAccessTokenEmpty is returned when the exchange succeeds but the
	// token field is absent, i.e. the video is not playable or not found.
	ErrAccessTokenEmpty = errors.New("server did not provide an access token")

	// ErrAccessTokenParse is returned when the exchange response body is not
	// the expected shape.
	ErrAccessTokenParse = errors.New("could not parse access token response")

	// ErrInvalidPlaylistURL is returned when a media playlist URL has no
	// path to derive the segment base URL from.
	ErrInvalidPlaylistURL = errors.New("playlist url did not contain the expected information")
)

// Client talks to the platform's token and playlist endpoints.
type Client struct {
	http   *transport.Client
	cfg    config.TwitchConfig
	logger *logging.Logger
	now    func() time.Time
}

// DownloadInfo is everything one download attempt needs: the segment list in
// playlist order, the URL prefix the segment URIs are relative to, and the
// broadcast age in hours (nil when the playlist does not carry one).
type DownloadInfo struct {
	Segments []playlist.Segment
	BaseURL  string
	Age      *int
}

// NewClient creates a new platform client
func NewClient(http *transport.Client, cfg config.TwitchConfig, logger *logging.Logger) *Client {
	return &Client{
		http:   http,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// AccessToken performs the token exchange that authorizes playlist access for
// one video.
func (c *Client) AccessToken(ctx context.Context, videoID string) (value, signature string, err error) {
	body, err := json.Marshal(gqlRequest{
		OperationName: "PlaybackAccessToken_Template",
		Query:         accessTokenQuery,
		Variables: gqlVariables{
			IsLive:     false,
			Login:      "",
			IsVod:      true,
			VodID:      videoID,
			PlayerType: c.cfg.PlayerType,
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal token request: %w", err)
	}

	headers := map[string]string{"Client-ID": c.cfg.ClientID}
	resp, err := c.http.Post(ctx, c.cfg.GraphQLURL, headers, body)
	if err != nil {
		return "", "", fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	var tokenResp accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrAccessTokenParse, err)
	}

	token := tokenResp.Data.VideoPlaybackAccessToken
	if token == nil {
		return "", "", ErrAccessTokenEmpty
	}

	return token.Value, token.Signature, nil
}

// MasterPlaylist fetches the master playlist text for a video.
func (c *Client) MasterPlaylist(ctx context.Context, videoID string) (string, error) {
	token, signature, err := c.AccessToken(ctx, videoID)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	query.Set("nauth", token)
	query.Set("nauthsig", signature)
	query.Set("allow_source", "true")
	query.Set("player", "twitchweb")
	masterURL := fmt.Sprintf("%s/vod/%s?%s", c.cfg.UsherURL, videoID, query.Encode())

	text, err := c.fetchText(ctx, masterURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch master playlist: %w", err)
	}

	return text, nil
}

// MediaPlaylistURL resolves the media playlist URL for the requested quality,
// falling back to the highest available quality when it is absent.
func (c *Client) MediaPlaylistURL(ctx context.Context, videoID, quality string) (string, error) {
	master, err := c.MasterPlaylist(ctx, videoID)
	if err != nil {
		return "", err
	}

	mediaURL, fellBack, err := playlist.SelectVariant(master, quality)
	if err != nil {
		return "", err
	}
	if fellBack {
		c.logger.WithVideoID(videoID).
			Warnf("quality %q not found, using highest available", quality)
	}

	return mediaURL, nil
}

// DownloadInfo resolves and parses the media playlist for one download
// attempt.
func (c *Client) DownloadInfo(ctx context.Context, videoID, quality string) (*DownloadInfo, error) {
	mediaURL, err := c.MediaPlaylistURL(ctx, videoID, quality)
	if err != nil {
		return nil, err
	}

	text, err := c.fetchText(ctx, mediaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch media playlist: %w", err)
	}

	slash := strings.LastIndex(mediaURL, "/")
	if slash < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPlaylistURL, mediaURL)
	}
	baseURL := mediaURL[:slash+1]

	parsed, err := playlist.ParseMedia(text, c.now())
	if err != nil {
		return nil, err
	}

	return &DownloadInfo{
		Segments: parsed.Segments,
		BaseURL:  baseURL,
		Age:      parsed.Age,
	}, nil
}

func (c *Client) fetchText(ctx context.Context, rawURL string) (string, error) {
	resp, err := c.http.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(body), nil
}
