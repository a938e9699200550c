package playlist

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// SegmentNameError is returned when a downloaded segment's name does not
// encode a sequence number. It fails only the attempt it belongs to.
type SegmentNameError struct {
	Name string
}

func (e *SegmentNameError) Error() string {
	return fmt.Sprintf("cannot recover sequence number from segment name %q", e.Name)
}

// SortSegmentFiles orders downloaded segment files ascending by the sequence
// number encoded in their names, e.g. 1.ts, 2-muted.ts, 3-unmuted.ts.
// Download completion order carries no meaning; this sort alone decides
// assembly order.
func SortSegmentFiles(paths []string) error {
	keys := make(map[string]uint64, len(paths))
	for _, path := range paths {
		n, err := sequenceNumber(path)
		if err != nil {
			return err
		}
		keys[path] = n
	}

	sort.Slice(paths, func(i, j int) bool {
		return keys[paths[i]] < keys[paths[j]]
	})

	return nil
}

// sequenceNumber parses the numeric part of a segment file name after
// stripping the extension and the mute markers. Names like 1094734-2.ts keep
// a single separator; the part after it is the sequence number.
func sequenceNumber(path string) (uint64, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.ReplaceAll(stem, "-muted", "")
	stem = strings.ReplaceAll(stem, "-unmuted", "")

	if n, err := strconv.ParseUint(stem, 10, 32); err == nil {
		return n, nil
	}

	parts := strings.Split(stem, "-")
	if len(parts) == 2 {
		if n, err := strconv.ParseUint(parts[1], 10, 32); err == nil {
			return n, nil
		}
	}

	return 0, &SegmentNameError{Name: stem}
}
