package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/trust-graph/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeWrite ChangeType = iota
	ChangeTypeRemove
)

func (t ChangeType) String() string {
	if t == ChangeTypeRemove {
		return "remove"
	}
	return "write"
}

// ChangeEvent represents a change to the watched file
type ChangeEvent struct {
	Type      ChangeType
	Path      string
	Timestamp time.Time
}

// FileWatcher watches a single file. The parent directory is watched so that
// editors replacing the file through a rename are noticed.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	events  chan ChangeEvent
}

// NewFileWatcher creates a new watcher for path
func NewFileWatcher(path string) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		path:    abs,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Path returns the absolute path of the watched file
func (fw *FileWatcher) Path() string {
	return fw.path
}

// Start begins watching. Events stop and the channel is closed when ctx is
// cancelled.
func (fw *FileWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(fw.path)
	if err := fw.watcher.Add(dir); err != nil {
		fw.watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logging.Info("started watching file", "path", fw.path)
	go fw.processEvents(ctx)
	return nil
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}

			change := ChangeEvent{Path: fw.path, Timestamp: time.Now()}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				change.Type = ChangeTypeWrite
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				change.Type = ChangeTypeRemove
			default:
				continue
			}

			logging.Trace("file event", "path", event.Name, "op", event.Op.String())
			select {
			case fw.events <- change:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}
