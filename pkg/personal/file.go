package personal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/swipeserve/internal/utils"
)

const snapshotVersion = 1

type snapshot struct {
	Version int     `msgpack:"v"`
	Entries []Entry `msgpack:"e"`
}

// FileBackend keeps the snapshot as a single msgpack file. Writes go to a
// temporary file that is renamed over the old one.
type FileBackend struct {
	mu     sync.RWMutex
	path   string
	closed bool
}

func NewFileBackend(path string) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &FileBackend{path: path}, nil
}

func (f *FileBackend) Path() string { return f.path }

func (f *FileBackend) PutAll(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := msgpack.Marshal(snapshot{Version: snapshotVersion, Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrBackendClosed
	}
	return utils.WriteFileAtomic(f.path, data)
}

func (f *FileBackend) read() ([]Entry, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap snapshot
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", f.path, err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return snap.Entries, nil
}

func (f *FileBackend) Enumerate(ctx context.Context, fn func(Entry) error) error {
	f.mu.RLock()
	if f.closed {
		f.mu.RUnlock()
		return ErrBackendClosed
	}
	entries, err := f.read()
	f.mu.RUnlock()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (f *FileBackend) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}
