package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-console/pwgo/internal/objects"
)

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "work.json")

	want := &State{
		Cookies: []objects.StorageStateCookie{{Name: "session", Value: "abc123", Domain: "example.com"}},
		Origins: []OriginStorage{{Origin: "https://example.com", LocalStorage: []KeyValue{{Name: "theme", Value: "dark"}}}},
	}
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSave_FilePermissionsAreOwnerOnly(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "work.json")
	require.NoError(t, Save(path, &State{}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoad_MissingFileErrors(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestList_EnumeratesValidStorageStateFilesAndSkipsInvalid(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	require.NoError(t, Save(filepath.Join(dir, "work.json"), &State{
		Cookies: []objects.StorageStateCookie{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}},
	}))
	require.NoError(t, Save(filepath.Join(dir, "personal.json"), &State{
		Cookies: []objects.StorageStateCookie{{Name: "a", Value: "1"}},
	}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "not-json.txt"), []byte("ignore me"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corrupt.json"), []byte("{not valid json"), 0o644))

	entries, err := List(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byName := map[string]Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.Equal(t, 2, byName["work.json"].CookieCount)
	assert.Equal(t, 1, byName["personal.json"].CookieCount)
}

func TestList_MissingDirIsNotAnError(t *testing.T) {
	t.Parallel()
	entries, err := List(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Nil(t, entries)
}
