// Package config resolves the managed state root and the layered
// CLI-defaults cascade (built-in defaults < global config file < project
// config file < flag overrides), generalized from the teacher's state-path
// and config-loader conventions.
package config

import (
	"os"
	"path/filepath"
)

const envStateDir = "PWGO_STATE_DIR"

// RootDir returns the managed state root: $PWGO_STATE_DIR if set, else
// $XDG_STATE_HOME/pwgo, else os.UserConfigDir()/pwgo.
func RootDir() (string, error) {
	if dir := os.Getenv(envStateDir); dir != "" {
		return dir, nil
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "pwgo"), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "pwgo"), nil
}

// InRoot joins parts under the resolved state root.
func InRoot(parts ...string) (string, error) {
	root, err := RootDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{root}, parts...)...), nil
}

// LogsDir is <root>/logs.
func LogsDir() (string, error) { return InRoot("logs") }

// ProfilesDir is <root>/profiles, the parent of per-namespace session
// descriptors.
func ProfilesDir() (string, error) { return InRoot("profiles") }

// SessionDescriptorPath is
// <root>/profiles/<namespace>/sessions/<name>.json, per spec §6.
func SessionDescriptorPath(namespace, name string) (string, error) {
	return InRoot("profiles", namespace, "sessions", name+".json")
}

// GlobalContextsPath is <root>/contexts.json.
func GlobalContextsPath() (string, error) { return InRoot("contexts.json") }

// ProjectContextsPath is <projectRoot>/.pwgo/contexts.json.
func ProjectContextsPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".pwgo", "contexts.json")
}

// AuthDir is <root>/auth, where saved storage-state files live.
func AuthDir() (string, error) { return InRoot("auth") }
