package agentconfig

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nuscape/windows-agent/internal/storage"
)

type deviceRecord struct {
	DeviceID uuid.UUID `json:"device_id"`
	LastSeen time.Time `json:"last_seen"`
}

// DeviceStore persists the stable device UUID in device.json. Once
// generated, the id is stable for the life of the data directory.
type DeviceStore struct {
	mu   sync.Mutex
	path string
	rec  *deviceRecord
}

// NewDeviceStore loads device.json if present.
func NewDeviceStore(paths *storage.Paths) (*DeviceStore, error) {
	s := &DeviceStore{path: paths.DevicePath()}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return s, nil
	}
	var rec deviceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return s, nil
	}
	s.rec = &rec
	return s, nil
}

// GetOrCreate returns the persisted device id, minting a fresh UUID v4 on
// first call. Every call -- including subsequent ones -- bumps last_seen
// on disk.
func (s *DeviceStore) GetOrCreate() (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if s.rec != nil {
		s.rec.LastSeen = now
		if err := s.persistLocked(); err != nil {
			return uuid.UUID{}, err
		}
		return s.rec.DeviceID, nil
	}

	rec := &deviceRecord{DeviceID: uuid.New(), LastSeen: now}
	s.rec = rec
	if err := s.persistLocked(); err != nil {
		return uuid.UUID{}, err
	}
	return rec.DeviceID, nil
}

// Save overwrites the stored device id with an explicit value, used by
// registration when the server assigns its own device id.
func (s *DeviceStore) Save(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = &deviceRecord{DeviceID: id, LastSeen: time.Now().UTC()}
	return s.persistLocked()
}

func (s *DeviceStore) persistLocked() error {
	data, err := json.MarshalIndent(s.rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
