// Package tokenstore persists the device's access/refresh token pair and
// answers expiry questions for the upload engine's refresh protocol.
package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/nuscape/windows-agent/internal/storage"
)

// skew is subtracted from the token's computed expiry so a refresh is
// triggered slightly before the server would actually reject the token.
const skew = 120 * time.Second

// record is the on-disk shape of tokens.json. Either the file is absent
// (no tokens) or it holds a complete record -- there is no partially
// written state.
type record struct {
	AccessToken       string    `json:"access_token"`
	RefreshToken      string    `json:"refresh_token"`
	IssuedAt          time.Time `json:"issued_at"`
	ExpiresInSeconds  int64     `json:"expires_in_seconds"`
}

// Store is the in-memory cache over tokens.json. All reads are served from
// the cache; all writes go through replace/clear, which update the cache
// and the file together so a crash never leaves them disagreeing.
type Store struct {
	mu   sync.Mutex
	path string
	rec  *record // nil means "no tokens"
}

// New loads tokens.json if present. A missing or unparseable file is
// treated as "no tokens" rather than an error.
func New(paths *storage.Paths) (*Store, error) {
	s := &Store{path: paths.TokensPath()}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, nil //nolint:nilerr // unparseable/unreadable file == no tokens, per spec §7
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return s, nil
	}
	s.rec = &rec
	return s, nil
}

// AccessToken returns the current access token, if any.
func (s *Store) AccessToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return "", false
	}
	return s.rec.AccessToken, true
}

// RefreshToken returns the current refresh token, if any.
func (s *Store) RefreshToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return "", false
	}
	return s.rec.RefreshToken, true
}

// HasTokens reports whether any token record is present.
func (s *Store) HasTokens() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec != nil
}

// IsExpired reports whether the access token is expired as of now, with a
// skew margin subtracted from the computed expiry. A missing token is
// never "expired" -- callers must check AccessToken's ok value first.
func (s *Store) IsExpired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return false
	}
	expiry := s.rec.IssuedAt.Add(time.Duration(s.rec.ExpiresInSeconds) * time.Second).Add(-skew)
	return !now.Before(expiry)
}

// Replace atomically updates the cached record and persists it to disk.
func (s *Store) Replace(access, refresh string, expiresInSeconds int64, issuedAt time.Time) error {
	rec := &record{
		AccessToken:      access,
		RefreshToken:     refresh,
		IssuedAt:         issuedAt,
		ExpiresInSeconds: expiresInSeconds,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeAtomic(s.path, rec); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	s.rec = rec
	return nil
}

// Clear removes any token record from memory and disk.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove tokens file: %w", err)
	}
	return nil
}

// ErrNoRefreshToken is returned by EnsureRefreshable when no refresh token
// is on file.
var ErrNoRefreshToken = errors.New("tokenstore: refresh token missing")

// EnsureRefreshable fails when there is no refresh token to fall back on.
func (s *Store) EnsureRefreshable() error {
	if _, ok := s.RefreshToken(); !ok {
		return ErrNoRefreshToken
	}
	return nil
}

// writeAtomic serializes v as pretty JSON and writes it via a temp file
// plus rename, so a crash mid-write never leaves a partial tokens.json.
func writeAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
