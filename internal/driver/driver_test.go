package driver

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_DefaultsWhenUnset(t *testing.T) {
	t.Parallel()
	assert.Equal(t, DefaultVersion, version(Options{}))
}

func TestVersion_UsesExplicitOverride(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "1.40.0", version(Options{Version: "1.40.0"}))
}

func TestDetectPlatform_MatchesCurrentRuntime(t *testing.T) {
	t.Parallel()
	got := detectPlatform()
	switch runtime.GOOS {
	case "linux":
		if runtime.GOARCH == "arm64" {
			assert.Equal(t, "linux-arm64", got)
		} else {
			assert.Equal(t, "linux", got)
		}
	case "darwin":
		if runtime.GOARCH == "arm64" {
			assert.Equal(t, "mac-arm64", got)
		} else {
			assert.Equal(t, "mac", got)
		}
	case "windows":
		assert.Equal(t, "win32_x64", got)
	}
}

func TestResolveDriverPath_PrefersExplicitEnvOverride(t *testing.T) {
	t.Setenv("PWGO_DRIVER_PATH", "/opt/custom/cli.js")
	got, err := resolveDriverPath("1.57.0")
	require.NoError(t, err)
	assert.Equal(t, "/opt/custom/cli.js", got)
}

func TestResolveDriverPath_MissingCacheEntryErrors(t *testing.T) {
	t.Setenv("PWGO_DRIVER_PATH", "")
	cache := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cache)

	_, err := resolveDriverPath("9.9.9-does-not-exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no driver at")
}

func TestResolveDriverPath_FindsCliJSUnderVersionedCacheDir(t *testing.T) {
	t.Setenv("PWGO_DRIVER_PATH", "")
	cache := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cache)

	platform := detectPlatform()
	dir := filepath.Join(cache, "pwgo", "drivers", "playwright-1.57.0-"+platform, "package")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cli.js"), []byte("// stub"), 0o644))

	got, err := resolveDriverPath("1.57.0")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cli.js"), got)
}

func TestProcess_KillOnUnstartedProcessIsHarmless(t *testing.T) {
	t.Parallel()
	p := &Process{cmd: exec.Command("true")}
	assert.NoError(t, p.Kill())
}
