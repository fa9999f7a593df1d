package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/runoshun/git-murm/internal/domain"
)

// Migrate moves files from the legacy parallel-* layout to their current
// names. A file moves only if the old path exists and the new one does not,
// so running it again is a no-op. It returns the moves performed.
func Migrate(moves []domain.PathMigration) ([]domain.PathMigration, error) {
	var done []domain.PathMigration
	for _, m := range moves {
		if _, err := os.Stat(m.Old); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return done, fmt.Errorf("stat %s: %w", m.Old, err)
		}
		if _, err := os.Stat(m.New); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(m.New), 0o750); err != nil {
			return done, fmt.Errorf("create directory for %s: %w", m.New, err)
		}
		if err := os.Rename(m.Old, m.New); err != nil {
			return done, fmt.Errorf("migrate %s: %w", m.Old, err)
		}
		done = append(done, m)
	}
	return done, nil
}
