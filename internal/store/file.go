package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DriverFile names the JSON file backend.
const DriverFile = "file"

const defaultDebounce = 100 * time.Millisecond

// FileBackend stores each key as <dir>/<key>.json.
// Writes go through a temp file and rename, so readers never see a torn file.
type FileBackend struct {
	dir      string
	debounce time.Duration

	mu   sync.Mutex
	last map[string][]byte // last content written or reported per key
}

// OpenFile creates dir if needed.
func OpenFile(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, errors.New("file: dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", dir, err)
	}
	return &FileBackend{
		dir:      dir,
		debounce: defaultDebounce,
		last:     make(map[string][]byte),
	}, nil
}

func (b *FileBackend) Driver() string { return DriverFile }

// Path returns the file that holds key.
func (b *FileBackend) Path(key string) string {
	return filepath.Join(b.dir, key+".json")
}

func (b *FileBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, err := os.ReadFile(b.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", b.Path(key), err)
	}
	b.remember(key, value)
	return value, true, nil
}

func (b *FileBackend) Put(_ context.Context, key string, value []byte) error {
	tmp, err := os.CreateTemp(b.dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}

	b.remember(key, value)
	if err := os.Rename(tmp.Name(), b.Path(key)); err != nil {
		return fmt.Errorf("rename to %s: %w", b.Path(key), err)
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }

// Watch calls onChange after the file for key changes on disk with content
// this backend did not write itself. Bursts of events within the debounce
// window collapse into one call. Blocks until ctx is done.
func (b *FileBackend) Watch(ctx context.Context, key string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: rename-based writers replace the file's inode.
	if err := watcher.Add(b.dir); err != nil {
		return fmt.Errorf("watch %s: %w", b.dir, err)
	}

	target := filepath.Clean(b.Path(key))
	timer := time.NewTimer(b.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(b.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", b.dir, err)
		case <-timer.C:
			if b.changed(key) {
				onChange()
			}
		}
	}
}

func (b *FileBackend) remember(key string, value []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last[key] = append([]byte(nil), value...)
}

// changed reports whether the file differs from the last known content and
// records the new content.
func (b *FileBackend) changed(key string) bool {
	value, err := os.ReadFile(b.Path(key))
	if err != nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if prev, ok := b.last[key]; ok && bytes.Equal(prev, value) {
		return false
	}
	b.last[key] = value
	return true
}
