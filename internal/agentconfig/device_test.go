package agentconfig

import (
	"testing"

	"github.com/google/uuid"
	"github.com/nuscape/windows-agent/internal/storage"
)

func TestDeviceIDStableAcrossCalls(t *testing.T) {
	paths, err := storage.NewAt(t.TempDir())
	if err != nil {
		t.Fatalf("NewAt: %v", err)
	}
	s, err := NewDeviceStore(paths)
	if err != nil {
		t.Fatalf("NewDeviceStore: %v", err)
	}
	first, err := s.GetOrCreate()
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	second, err := s.GetOrCreate()
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if first != second {
		t.Fatalf("device id changed across calls: %s != %s", first, second)
	}
}

func TestDeviceIDStableAcrossReload(t *testing.T) {
	paths, err := storage.NewAt(t.TempDir())
	if err != nil {
		t.Fatalf("NewAt: %v", err)
	}
	s, err := NewDeviceStore(paths)
	if err != nil {
		t.Fatalf("NewDeviceStore: %v", err)
	}
	id, err := s.GetOrCreate()
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	reloaded, err := NewDeviceStore(paths)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	again, err := reloaded.GetOrCreate()
	if err != nil {
		t.Fatalf("GetOrCreate after reload: %v", err)
	}
	if id != again {
		t.Fatalf("device id not stable across reload: %s != %s", id, again)
	}
}

func TestDeviceIDSaveOverwrites(t *testing.T) {
	paths, err := storage.NewAt(t.TempDir())
	if err != nil {
		t.Fatalf("NewAt: %v", err)
	}
	s, err := NewDeviceStore(paths)
	if err != nil {
		t.Fatalf("NewDeviceStore: %v", err)
	}
	if _, err := s.GetOrCreate(); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	explicit := uuid.New()
	if err := s.Save(explicit); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.GetOrCreate()
	if err != nil {
		t.Fatalf("GetOrCreate after Save: %v", err)
	}
	if got != explicit {
		t.Fatalf("got %s, want %s", got, explicit)
	}
}
