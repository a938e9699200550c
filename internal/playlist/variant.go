// Package playlist contains the pure text transforms for the platform's
// HLS-style playlists: master variant selection, media playlist parsing and
// downloaded-segment ordering. Nothing in this package performs I/O.
package playlist

import (
	"errors"
	"strings"
)

// ErrNoQualities is returned when a master playlist declares no variants.
var ErrNoQualities = errors.New("playlist did not specify any qualities")

const mediaTag = "#EXT-X-MEDIA"

// splitLines splits playlist text into lines without a trailing empty line,
// so a tag at the end of the document is really the last line.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Variant is one quality entry of a master playlist.
type Variant struct {
	Name string
	URL  string
}

// ParseVariants extracts the quality variants of a master playlist in
// document order. The first occurrence of a quality name wins; the first
// variant overall is the platform's highest quality. Declaration lines whose
// URL line (two lines below) is missing are skipped.
func ParseVariants(text string) []Variant {
	lines := splitLines(text)

	var variants []Variant
	seen := make(map[string]struct{})
	for i, line := range lines {
		if !strings.Contains(line, mediaTag) {
			continue
		}

		_, rest, found := strings.Cut(line, `NAME="`)
		if !found {
			continue
		}
		name, _, found := strings.Cut(rest, `"`)
		if !found {
			continue
		}

		if _, dup := seen[name]; dup {
			continue
		}
		if i+2 >= len(lines) {
			continue
		}

		seen[name] = struct{}{}
		variants = append(variants, Variant{
			Name: name,
			URL:  strings.TrimSpace(lines[i+2]),
		})
	}

	return variants
}

// SelectVariant returns the media playlist URL for the requested quality.
// When the quality is absent the first (highest) variant is used and
// fellBack is true, so callers can log the substitution.
func SelectVariant(text, quality string) (url string, fellBack bool, err error) {
	variants := ParseVariants(text)
	if len(variants) == 0 {
		return "", false, ErrNoQualities
	}

	for _, v := range variants {
		if v.Name == quality {
			return v.URL, false, nil
		}
	}

	return variants[0].URL, true, nil
}
