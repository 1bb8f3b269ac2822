package observers

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// PurgeArtifacts deletes session artifacts (timelines, recordings,
// records) in dir whose modification time is older than maxAge.
// Subdirectories are left alone. Returns the number of files removed;
// removal failures are joined so one stuck file does not halt the
// sweep.
func PurgeArtifacts(dir string, maxAge time.Duration) (int, error) {
	if dir == "" || maxAge <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("purge artifacts: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	stale := make([]string, 0, len(entries))
	var errs error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = errors.Join(errs, err)
			}
			continue
		}
		if info.ModTime().Before(cutoff) {
			stale = append(stale, filepath.Join(dir, entry.Name()))
		}
	}

	var removed int
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		removed++
	}
	return removed, errs
}
