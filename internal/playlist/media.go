package playlist

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnexpectedEOF is returned when a duration tag is not followed by a
	// segment URI line.
	ErrUnexpectedEOF = errors.New("unexpected end of playlist")

	// ErrInvalidTimeFormat is returned when the broadcast timestamp tag
	// cannot be parsed.
	ErrInvalidTimeFormat = errors.New("invalid time format in playlist")
)

const (
	streamedDateTag = "#ID3-EQUIV-TDTG:"
	segmentTag      = "#EXTINF:"
	byteRangeTag    = "#EXT-X-BYTERANGE:"

	broadcastTimeLayout = "2006-01-02T15:04:05"
)

// Segment is one media chunk reference: its playlist-relative URI and its
// advisory duration in seconds.
type Segment struct {
	URI      string
	Duration float64
}

// MediaPlaylist is the parsed form of a media playlist. Segments keeps
// document order. Age is the broadcast age in whole hours, nil when the
// playlist carries no timestamp tag.
type MediaPlaylist struct {
	Segments []Segment
	Age      *int
}

// ParseMedia parses media playlist text. now anchors the age computation.
// An empty segment list is not an error here; the download orchestrator
// decides whether emptiness is fatal.
func ParseMedia(text string, now time.Time) (*MediaPlaylist, error) {
	lines := splitLines(text)

	pl := &MediaPlaylist{}
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if rest, ok := strings.CutPrefix(line, streamedDateTag); ok {
			streamedAt, err := parseBroadcastTime(rest)
			if err != nil {
				return nil, err
			}
			age := int(now.Sub(streamedAt).Hours())
			pl.Age = &age
			continue
		}

		if rest, ok := strings.CutPrefix(line, segmentTag); ok {
			i++
			if i >= len(lines) {
				return nil, fmt.Errorf("%w: duration tag without segment", ErrUnexpectedEOF)
			}
			if strings.HasPrefix(lines[i], byteRangeTag) {
				i++
				if i >= len(lines) {
					return nil, fmt.Errorf("%w: byterange without segment", ErrUnexpectedEOF)
				}
			}

			duration, err := strconv.ParseFloat(strings.Trim(rest, ","), 64)
			if err != nil {
				duration = 0
			}

			pl.Segments = append(pl.Segments, Segment{
				URI:      strings.TrimSpace(lines[i]),
				Duration: duration,
			})
		}
		// every other line is ignored
	}

	return pl, nil
}

// parseBroadcastTime parses a timestamp like 2023-10-07T23:33:29, optionally
// wrapped in quotes.
func parseBroadcastTime(value string) (time.Time, error) {
	value = strings.Trim(strings.TrimSpace(value), `"`)

	ts, err := time.Parse(broadcastTimeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, value)
	}
	return ts, nil
}
