// Package queue implements the durable FIFO of pending usage batches: the
// hand-off point between the collector (producer) and the uploader
// (consumer).
package queue

import (
	"encoding/json"
	"log"
	"os"
	"sync"

	"github.com/nuscape/windows-agent/internal/batch"
)

// Store is a mutex-guarded FIFO persisted to disk as a JSON array. The
// whole list is rewritten on every mutation, matching the "small queues,
// simple correctness" tradeoff in spec §4.F.
type Store struct {
	mu    sync.Mutex
	path  string
	items []batch.UsageBatch
}

// New loads path, or starts empty if the file is absent or unparseable.
func New(path string) *Store {
	s := &Store{path: path}
	raw, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var items []batch.UsageBatch
	if err := json.Unmarshal(raw, &items); err != nil {
		return s
	}
	s.items = items
	return s
}

// Enqueue appends b to the tail and persists the whole queue. Batches
// whose serialized form exceeds the payload ceiling are logged and
// silently dropped rather than rejected with an error -- they never block
// the queue.
func (s *Store) Enqueue(b batch.UsageBatch) error {
	if !b.SizeFits() {
		log.Printf("queue: dropping oversized batch (exceeds %d bytes)", batch.MaxPayloadBytes)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, b)
	return s.persistLocked()
}

// Peek returns the head of the queue without mutation.
func (s *Store) Peek() (batch.UsageBatch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return batch.UsageBatch{}, false
	}
	return s.items[0], true
}

// Pop removes the head and persists.
func (s *Store) Pop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return nil
	}
	s.items = s.items[1:]
	return s.persistLocked()
}

// HasPending reports whether the queue is non-empty.
func (s *Store) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) > 0
}

// Size returns the current queue length.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Clear empties the queue and persists.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return s.persistLocked()
}

// Preview returns up to limit batches from the head without mutation.
func (s *Store) Preview(limit int) []batch.UsageBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit < 0 {
		limit = 0
	}
	if limit > len(s.items) {
		limit = len(s.items)
	}
	out := make([]batch.UsageBatch, limit)
	copy(out, s.items[:limit])
	return out
}

func (s *Store) persistLocked() error {
	items := s.items
	if items == nil {
		items = []batch.UsageBatch{}
	}
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
