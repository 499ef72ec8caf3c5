package tokenstore

import (
	"testing"
	"time"

	"github.com/nuscape/windows-agent/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	paths, err := storage.NewAt(t.TempDir())
	if err != nil {
		t.Fatalf("NewAt: %v", err)
	}
	s, err := New(paths)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestMissingFileIsNoTokens(t *testing.T) {
	s := newTestStore(t)
	if s.HasTokens() {
		t.Fatal("expected no tokens on fresh store")
	}
	if _, ok := s.AccessToken(); ok {
		t.Fatal("expected AccessToken ok=false")
	}
}

func TestReplaceThenReload(t *testing.T) {
	paths, err := storage.NewAt(t.TempDir())
	if err != nil {
		t.Fatalf("NewAt: %v", err)
	}
	s, err := New(paths)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := s.Replace("access-1", "refresh-1", 3600, issued); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	reloaded, err := New(paths)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	access, ok := reloaded.AccessToken()
	if !ok || access != "access-1" {
		t.Fatalf("got access=%q ok=%v, want access-1/true", access, ok)
	}
	refresh, ok := reloaded.RefreshToken()
	if !ok || refresh != "refresh-1" {
		t.Fatalf("got refresh=%q ok=%v, want refresh-1/true", refresh, ok)
	}
}

func TestIsExpiredAppliesSkew(t *testing.T) {
	s := newTestStore(t)
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := s.Replace("a", "r", 3600, issued); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	// 3600 - 120 = 3480s after issued is the effective expiry.
	notYetExpired := issued.Add(3479 * time.Second)
	if s.IsExpired(notYetExpired) {
		t.Fatal("should not be expired yet")
	}
	expired := issued.Add(3480 * time.Second)
	if !s.IsExpired(expired) {
		t.Fatal("should be expired at the skew boundary")
	}
}

func TestClearRemovesTokensAndFile(t *testing.T) {
	paths, err := storage.NewAt(t.TempDir())
	if err != nil {
		t.Fatalf("NewAt: %v", err)
	}
	s, err := New(paths)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Replace("a", "r", 3600, time.Now()); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.HasTokens() {
		t.Fatal("expected no tokens after Clear")
	}

	reloaded, err := New(paths)
	if err != nil {
		t.Fatalf("reload after clear: %v", err)
	}
	if reloaded.HasTokens() {
		t.Fatal("expected no tokens after reload post-clear")
	}
}

func TestEnsureRefreshable(t *testing.T) {
	s := newTestStore(t)
	if err := s.EnsureRefreshable(); err != ErrNoRefreshToken {
		t.Fatalf("got %v, want ErrNoRefreshToken", err)
	}
	if err := s.Replace("a", "r", 3600, time.Now()); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := s.EnsureRefreshable(); err != nil {
		t.Fatalf("EnsureRefreshable: %v", err)
	}
}
