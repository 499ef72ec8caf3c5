// Package storage resolves the per-user data directory the agent persists
// its state under and names the well-known files within it.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	appQualifier = "com"
	appOrg       = "NuScape"
	appName      = "NuScapeAgent"

	QueueFile    = "usage_queue.json"
	CountersFile = "network_counters.json"
	DeviceFile   = "device.json"
	TokensFile   = "tokens.json"
	ConfigFile   = "config.json"
)

// Paths resolves well-known file paths under a single per-user, per-app
// data directory. The directory is created (including parents) the first
// time Paths is constructed.
type Paths struct {
	root string
}

// New resolves the platform data directory for this app and ensures it
// exists. On Windows this is %LOCALAPPDATA%\NuScape\NuScapeAgent; on
// Linux/macOS it follows the XDG/Library conventions via dataDir().
func New() (*Paths, error) {
	root, err := dataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", root, err)
	}
	return &Paths{root: root}, nil
}

// NewAt builds a Paths rooted at an explicit directory, creating it if
// absent. Used by tests and by operators overriding the data directory.
func NewAt(root string) (*Paths, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", root, err)
	}
	return &Paths{root: root}, nil
}

func (p *Paths) Root() string { return p.root }

func (p *Paths) join(name string) string { return filepath.Join(p.root, name) }

func (p *Paths) QueuePath() string    { return p.join(QueueFile) }
func (p *Paths) CountersPath() string { return p.join(CountersFile) }
func (p *Paths) DevicePath() string   { return p.join(DeviceFile) }
func (p *Paths) TokensPath() string   { return p.join(TokensFile) }
func (p *Paths) ConfigPath() string   { return p.join(ConfigFile) }

// dataDir resolves the platform-conventional per-user application data
// directory. Go's stdlib has no ProjectDirs equivalent, so this follows
// the same qualifier/org/app triple the original implementation used with
// the Rust `directories` crate, expressed per-OS.
func dataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			base = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(base, appOrg, appName), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", appOrg, appName), nil
	default:
		if base := os.Getenv("XDG_DATA_HOME"); base != "" {
			return filepath.Join(base, appQualifier+"."+appOrg, appName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", appQualifier+"."+appOrg, appName), nil
	}
}
