// Package agentconfig persists the agent's API base URL and its stable
// device identifier -- the two small pieces of state that outlive any
// single upload cycle and that registration (internal/register) seeds.
package agentconfig

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/nuscape/windows-agent/internal/storage"
)

// ErrMissingConfig is returned by ResolveUploadConfig when no API base has
// been configured yet.
var ErrMissingConfig = fmt.Errorf("agentconfig: api base url not configured")

type configRecord struct {
	APIBase *string `json:"api_base,omitempty"`
}

// ConfigStore holds the single optional api_base string backing config.json.
type ConfigStore struct {
	mu   sync.Mutex
	path string
	rec  configRecord
}

// NewConfigStore loads config.json if present; a missing or unparseable
// file starts from an empty record.
func NewConfigStore(paths *storage.Paths) (*ConfigStore, error) {
	s := &ConfigStore{path: paths.ConfigPath()}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return s, nil
	}
	_ = json.Unmarshal(data, &s.rec)
	return s, nil
}

// SetAPIBase persists a new API base URL.
func (s *ConfigStore) SetAPIBase(base string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.APIBase = &base
	data, err := json.MarshalIndent(s.rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// APIBase returns the configured API base, if any.
func (s *ConfigStore) APIBase() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec.APIBase == nil {
		return "", false
	}
	return *s.rec.APIBase, true
}

// UploadConfig carries the derived endpoint URLs the upload engine needs.
type UploadConfig struct {
	BaseURL  string
	BatchURL string
}

// ResolveUploadConfig derives the batch-upload endpoint from the
// configured API base, normalizing a trailing slash onto the base first.
func (s *ConfigStore) ResolveUploadConfig() (UploadConfig, error) {
	base, ok := s.APIBase()
	if !ok {
		return UploadConfig{}, ErrMissingConfig
	}
	if _, err := url.Parse(base); err != nil {
		return UploadConfig{}, fmt.Errorf("agentconfig: invalid api base %q: %w", base, err)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return UploadConfig{
		BaseURL:  base,
		BatchURL: base + "api/v1/usage/batch",
	}, nil
}

// RefreshURL derives the token-refresh endpoint from a base URL already
// normalized with a trailing slash (as returned in UploadConfig.BaseURL).
func RefreshURL(baseURL string) string {
	return baseURL + "api/v1/devices/refresh"
}

// RegisterURL derives the device-registration endpoint from a raw,
// possibly-unconfigured API base (used by registration before any config
// has been persisted).
func RegisterURL(apiBase string) string {
	if !strings.HasSuffix(apiBase, "/") {
		apiBase += "/"
	}
	return apiBase + "api/v1/devices/register"
}
