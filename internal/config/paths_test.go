package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootDir_PrefersExplicitStateDir(t *testing.T) {
	t.Setenv(envStateDir, "/tmp/pwgo-explicit")
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg")

	root, err := RootDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/pwgo-explicit", root)
}

func TestRootDir_FallsBackToXDGStateHome(t *testing.T) {
	t.Setenv(envStateDir, "")
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg")

	root, err := RootDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "pwgo"), root)
}

func TestInRoot_JoinsUnderResolvedRoot(t *testing.T) {
	t.Setenv(envStateDir, "/tmp/pwgo-root")

	got, err := InRoot("profiles", "default")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/pwgo-root", "profiles", "default"), got)
}

func TestSessionDescriptorPath(t *testing.T) {
	t.Setenv(envStateDir, "/tmp/pwgo-root")

	got, err := SessionDescriptorPath("work", "default")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/pwgo-root", "profiles", "work", "sessions", "default.json"), got)
}

func TestProjectContextsPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, filepath.Join("/repo", ".pwgo", "contexts.json"), ProjectContextsPath("/repo"))
}

func TestAuthDir(t *testing.T) {
	t.Setenv(envStateDir, "/tmp/pwgo-root")

	got, err := AuthDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/pwgo-root", "auth"), got)
}
