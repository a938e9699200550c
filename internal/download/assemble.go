package download

import (
	"bufio"
	"fmt"
	"os"
)

// concatSegments appends the already-sorted segment files into one stream
// file. Each source is deleted right after it is appended, so peak disk
// usage stays near one segment plus the growing stream.
func concatSegments(paths []string, targetPath string) error {
	target, err := os.Create(targetPath)
	if err != nil {
		return fmt.Errorf("failed to create stream file: %w", err)
	}
	defer target.Close()

	w := bufio.NewWriter(target)
	for _, path := range paths {
		if err := appendFile(w, path); err != nil {
			return err
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove appended segment: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush stream file: %w", err)
	}
	if err := target.Close(); err != nil {
		return fmt.Errorf("failed to close stream file: %w", err)
	}

	return nil
}

func appendFile(w *bufio.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open segment: %w", err)
	}
	defer file.Close()

	if _, err := w.ReadFrom(file); err != nil {
		return fmt.Errorf("failed to append segment: %w", err)
	}

	return nil
}
