package netusage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMissingFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "network_counters.json"))
	if len(store.Load()) != 0 {
		t.Fatal("expected empty store for missing file")
	}
}

func TestSaveThenReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "network_counters.json")
	store := New(path)

	totals := map[string]Counters{
		"wlan0": {WifiTotal: 100, CellTotal: 0, SampledAt: time.Now().UTC()},
	}
	if err := store.Save(totals); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := New(path)
	got := reloaded.Load()
	if len(got) != 1 || got["wlan0"].WifiTotal != 100 {
		t.Fatalf("got %+v, want wlan0 wifi=100", got)
	}
}

func TestSaveReplacesEntireMapping(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "network_counters.json"))

	store.Save(map[string]Counters{"a": {WifiTotal: 1}})
	store.Save(map[string]Counters{"b": {WifiTotal: 2}})

	got := store.Load()
	if _, ok := got["a"]; ok {
		t.Fatal("expected first interface to be gone after a full replace")
	}
	if got["b"].WifiTotal != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestCorruptFileTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "network_counters.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	store := New(path)
	if len(store.Load()) != 0 {
		t.Fatal("expected corrupt file to be treated as empty")
	}
}
