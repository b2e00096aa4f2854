// Package auth reads and writes Playwright storage-state files: the saved
// cookie/origin-storage snapshot a session can be seeded with on launch, per
// the auth command group supplemented from the original CLI's auth/mod.rs.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dev-console/pwgo/internal/objects"
)

// OriginStorage is one origin's localStorage snapshot within a storage
// state file.
type OriginStorage struct {
	Origin       string     `json:"origin"`
	LocalStorage []KeyValue `json:"localStorage"`
}

// KeyValue is one localStorage entry.
type KeyValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// State is the on-disk storage-state document.
type State struct {
	Cookies []objects.StorageStateCookie `json:"cookies"`
	Origins []OriginStorage              `json:"origins,omitempty"`
}

// Load reads a storage-state file from path.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("auth: read %s: %w", path, err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("auth: parse %s: %w", path, err)
	}
	return &s, nil
}

// Save writes state to path, creating parent directories as needed.
func Save(path string, state *State) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("auth: mkdir %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("auth: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("auth: write %s: %w", path, err)
	}
	return nil
}

// Entry describes one saved auth file for `auth list`.
type Entry struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	CookieCount int      `json:"cookieCount"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// List enumerates *.json files under dir as candidate auth files, skipping
// any that don't parse as a storage state document.
func List(dir string) ([]Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("auth: list %s: %w", dir, err)
	}

	var out []Entry
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		full := filepath.Join(dir, e.Name())
		state, err := Load(full)
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Name:        e.Name(),
			Path:        full,
			CookieCount: len(state.Cookies),
			ModifiedAt:  info.ModTime(),
		})
	}
	return out, nil
}
