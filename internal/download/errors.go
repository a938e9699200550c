package download

import (
	"errors"
	"fmt"
)

// ErrEmptyPlaylist is returned when the media playlist resolves to zero
// segments. The asset cannot be downloaded.
var ErrEmptyPlaylist = errors.New("playlist did not contain any segments")

// TargetExistsError is returned when the final output file already exists.
// The attempt stops before any network or filesystem mutation.
type TargetExistsError struct {
	Path string
}

func (e *TargetExistsError) Error() string {
	return fmt.Sprintf("target path already exists: %s", e.Path)
}

// ScratchNotDirError is returned when the per-video scratch path exists but
// is not a directory.
type ScratchNotDirError struct {
	Path string
}

func (e *ScratchNotDirError) Error() string {
	return fmt.Sprintf("scratch path is not a directory: %s", e.Path)
}

// ScratchNotEmptyError is returned when the per-video scratch directory
// already holds files, e.g. from a crashed attempt an operator has not
// inspected yet.
type ScratchNotEmptyError struct {
	Path string
}

func (e *ScratchNotEmptyError) Error() string {
	return fmt.Sprintf("scratch directory is not empty: %s", e.Path)
}
