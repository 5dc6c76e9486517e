package watcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ritzau/trust-graph/pkg/csvio"
	"github.com/ritzau/trust-graph/pkg/logging"
)

// Importer replaces the live graph with the content of a CSV file.
type Importer interface {
	ImportCSV(ctx context.Context, text string) (*csvio.Result, error)
}

// ChangeDetector imports the watched file whenever its content differs from
// what was imported last.
type ChangeDetector struct {
	importer Importer
	readFile func(string) ([]byte, error)
	last     [sha256.Size]byte
	seen     bool
}

// NewChangeDetector creates a detector feeding importer.
func NewChangeDetector(importer Importer) *ChangeDetector {
	return &ChangeDetector{
		importer: importer,
		readFile: os.ReadFile,
	}
}

// Apply handles one change event. It reports whether an import was attempted.
func (c *ChangeDetector) Apply(ctx context.Context, event ChangeEvent) (bool, error) {
	if event.Type == ChangeTypeRemove {
		logging.Info("watched file removed, keeping current graph", "path", event.Path)
		return false, nil
	}

	content, err := c.readFile(event.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", event.Path, err)
	}

	sum := sha256.Sum256(content)
	if c.seen && sum == c.last {
		logging.Debug("watched file unchanged", "path", event.Path)
		return false, nil
	}
	c.last = sum
	c.seen = true

	if _, err := c.importer.ImportCSV(ctx, string(content)); err != nil {
		return true, fmt.Errorf("failed to import %s: %w", event.Path, err)
	}
	return true, nil
}

const (
	DefaultQuietPeriod = 200 * time.Millisecond
	DefaultMaxWait     = 2 * time.Second
)

// Options tune Run.
type Options struct {
	QuietPeriod time.Duration
	MaxWait     time.Duration
	// Initial imports the file once before waiting for changes.
	Initial bool
}

// Run watches path and imports it into importer after every change until ctx
// is cancelled.
func Run(ctx context.Context, path string, importer Importer, opts Options) error {
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = DefaultQuietPeriod
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}

	fw, err := NewFileWatcher(path)
	if err != nil {
		return err
	}

	detector := NewChangeDetector(importer)
	if opts.Initial {
		if _, err := detector.Apply(ctx, ChangeEvent{Type: ChangeTypeWrite, Path: fw.Path(), Timestamp: time.Now()}); err != nil {
			logging.Warn("initial import failed", "path", fw.Path(), "error", err)
		}
	}

	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := NewDebouncer(fw.Events(), opts.QuietPeriod, opts.MaxWait)
	debouncer.Start(ctx)

	for event := range debouncer.Output() {
		if _, err := detector.Apply(ctx, event); err != nil {
			logging.Warn("re-import failed", "path", event.Path, "error", err)
		}
	}
	return nil
}
