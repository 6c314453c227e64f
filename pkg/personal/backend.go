package personal

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrBackendClosed = errors.New("personalization backend closed")

// Entry is one persisted counter. An empty Next marks a unigram; otherwise
// the entry counts Next following Word.
type Entry struct {
	Word  string `msgpack:"w"`
	Next  string `msgpack:"n,omitempty"`
	Count uint32 `msgpack:"c"`
}

func (e Entry) IsBigram() bool { return e.Next != "" }

// Backend persists a bounded key-value snapshot of the store.
type Backend interface {
	// PutAll replaces the stored snapshot with entries.
	PutAll(ctx context.Context, entries []Entry) error
	Enumerate(ctx context.Context, fn func(Entry) error) error
	Close() error
}

type entryKey struct{ word, next string }

// MemoryBackend keeps the snapshot in process. Useful for tests and for
// running without a data directory.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[entryKey]uint32
	closed  bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[entryKey]uint32)}
}

func (m *MemoryBackend) PutAll(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrBackendClosed
	}
	m.entries = make(map[entryKey]uint32, len(entries))
	for _, e := range entries {
		m.entries[entryKey{e.Word, e.Next}] = e.Count
	}
	return nil
}

func (m *MemoryBackend) Enumerate(ctx context.Context, fn func(Entry) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrBackendClosed
	}
	out := make([]Entry, 0, len(m.entries))
	for k, c := range m.entries {
		out = append(out, Entry{Word: k.word, Next: k.next, Count: c})
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Word != out[j].Word {
			return out[i].Word < out[j].Word
		}
		return out[i].Next < out[j].Next
	})
	for _, e := range out {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
