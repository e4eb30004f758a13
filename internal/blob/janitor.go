package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Janitor removes staged uploads that were never moved into place.
type Janitor struct {
	fs     afero.Fs
	dir    string
	maxAge time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewJanitor returns a janitor sweeping the tmp/ directory of an FSStore.
func NewJanitor(store *FSStore, maxAge time.Duration, logger zerolog.Logger) *Janitor {
	return &Janitor{
		fs:     store.fs,
		dir:    filepath.Join(store.root, tmpDir),
		maxAge: maxAge,
		logger: logger,
		now:    time.Now,
	}
}

// Sweep deletes staged files older than maxAge and returns how many were removed.
func (j *Janitor) Sweep() (int, error) {
	entries, err := afero.ReadDir(j.fs, j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read tmp dir: %w", err)
	}

	cutoff := j.now().Add(-j.maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || entry.ModTime().After(cutoff) {
			continue
		}
		if err := j.fs.Remove(filepath.Join(j.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// Run sweeps every interval until ctx is cancelled. A non-positive interval disables it.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		j.logger.Debug().Msg("tmp cleanup disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := j.Sweep()
			if err != nil {
				j.logger.Error().Err(err).Msg("tmp cleanup failed")
				continue
			}
			if removed > 0 {
				j.logger.Info().Int("removed", removed).Msg("tmp cleanup finished")
			}
		}
	}
}
