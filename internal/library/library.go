// Package library manages the generated items stored under a project's
// image directory. The directory listing is the source of truth: callers
// re-list after every mutation rather than trusting any cached view.
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"kestrel/internal/config"
	"kestrel/internal/errors"
	"kestrel/internal/log"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
)

// Library lists and deletes generated items for projects.
type Library struct {
	patterns []glob.Glob
}

// New compiles the configured image filename patterns.
func New(patterns []string) (*Library, error) {
	if len(patterns) == 0 {
		patterns = []string{"*.png", "*.jpg", "*.jpeg", "*.webp"}
	}
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, errors.NewConfigError("invalid image pattern", p, errors.InvalidConfig, err)
		}
		compiled = append(compiled, g)
	}
	return &Library{patterns: compiled}, nil
}

// List returns the project's generated items sorted by filename in
// descending order. Generated names embed a sortable UTC timestamp, so
// this puts the most recent items first and, crucially, is deterministic
// across repeated listings: cursor and selection semantics in the TUI
// depend on that.
func (l *Library) List(project *config.Project) ([]string, error) {
	entries, err := os.ReadDir(project.ImagesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewFileError("failed to list images", project.ImagesDir(), errors.FileOperationFailed, err)
	}

	var items []string
	for _, entry := range entries {
		if entry.IsDir() || !l.matches(entry.Name()) {
			continue
		}
		items = append(items, filepath.Join(project.ImagesDir(), entry.Name()))
	}

	sort.Sort(sort.Reverse(sort.StringSlice(items)))
	return items, nil
}

func (l *Library) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, g := range l.patterns {
		if g.Match(lower) {
			return true
		}
	}
	return false
}

// Delete removes a single generated item from storage.
func (l *Library) Delete(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errors.NewFileError("image not found", path, errors.FileNotFound, err)
		}
		return errors.NewFileError("failed to delete image", path, errors.FileOperationFailed, err)
	}
	log.Info("deleted %s", path)
	return nil
}

// ItemName builds a collision-resistant filename for a newly generated
// image. The leading timestamp keeps the descending listing order
// meaningful and the random suffix keeps rapid successive or concurrent
// generations from ever colliding, so writers need no lock.
func ItemName(t time.Time, index int, ext string) string {
	stamp := t.UTC().Format("20060102-150405")
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("gen_%s_%s_%d%s", stamp, suffix, index, ext)
}
