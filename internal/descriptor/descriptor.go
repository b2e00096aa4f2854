// Package descriptor persists the session descriptor described in spec §3
// and §6: a JSON record of an active browser endpoint that lets a later
// invocation reuse the same browser process instead of launching a new one.
package descriptor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dev-console/pwgo/internal/strategy"
)

// SchemaVersion is the only descriptor schema version this build understands.
const SchemaVersion = 1

// Descriptor is the persisted record of an active browser session.
type Descriptor struct {
	SchemaVersion int                  `json:"schemaVersion"`
	PID           int                  `json:"pid"`
	Browser       strategy.BrowserKind `json:"-"`
	BrowserName   string               `json:"browser"`
	Headless      bool                 `json:"headless"`
	CDPEndpoint   string               `json:"cdpEndpoint,omitempty"`
	WSEndpoint    string               `json:"wsEndpoint,omitempty"`
	WorkspaceID   string               `json:"workspaceId,omitempty"`
	Namespace     string               `json:"namespace,omitempty"`
	SessionKey    string               `json:"sessionKey,omitempty"`
	DriverHash    string               `json:"driverHash,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// Request describes what the caller is asking to reuse.
type Request struct {
	Namespace   string
	WorkspaceID string
	Browser     strategy.BrowserKind
	Headless    bool
	CDPEndpoint string // if non-empty, the descriptor must carry this exact endpoint
	DriverHash  string
}

// Load reads and parses the descriptor at path. A missing file is not an
// error — it simply means there is nothing to reuse.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("descriptor: read %s: %w", path, err)
	}
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("descriptor: parse %s: %w", path, err)
	}
	d.Browser = browserFromName(d.BrowserName)
	return &d, nil
}

// Valid reports whether d is still usable to satisfy req, per spec §3:
// schema matches, pid is alive, namespace/workspace match, and
// browser/headless/endpoint/driver-hash all match.
func Valid(d *Descriptor, req Request) bool {
	if d == nil {
		return false
	}
	if d.SchemaVersion != SchemaVersion {
		return false
	}
	if !pidAlive(d.PID) {
		return false
	}
	if d.Namespace != req.Namespace || d.WorkspaceID != req.WorkspaceID {
		return false
	}
	if d.Browser != req.Browser || d.Headless != req.Headless {
		return false
	}
	if req.CDPEndpoint != "" && d.CDPEndpoint != req.CDPEndpoint {
		return false
	}
	if req.DriverHash != "" && d.DriverHash != req.DriverHash {
		return false
	}
	return true
}

// Save writes d to path as a whole-file replacement (write-to-temp-then-
// rename) to avoid torn reads by a concurrent Load. Parent directories are
// created as needed, and a sibling .gitignore is written in the
// descriptor's directory (whatever that directory is) if none exists.
func Save(path string, d *Descriptor) error {
	d.SchemaVersion = SchemaVersion
	d.BrowserName = d.Browser.String()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("descriptor: mkdir %s: %w", dir, err)
	}
	if err := writeGitignore(dir); err != nil {
		return err
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("descriptor: marshal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("descriptor: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("descriptor: rename into place: %w", err)
	}
	return nil
}

func writeGitignore(dir string) error {
	path := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte("*\n"), 0o644)
}

func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds; signal 0 probes liveness
	// without affecting the process.
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}

func browserFromName(name string) strategy.BrowserKind {
	switch name {
	case "firefox":
		return strategy.Firefox
	case "webkit":
		return strategy.WebKit
	default:
		return strategy.Chromium
	}
}
