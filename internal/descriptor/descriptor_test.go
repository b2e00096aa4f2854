package descriptor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-console/pwgo/internal/strategy"
)

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	t.Parallel()
	d, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	want := &Descriptor{
		PID:         os.Getpid(),
		Browser:     strategy.Firefox,
		Headless:    true,
		CDPEndpoint: "ws://localhost:9222/devtools/browser/abc",
		Namespace:   "default",
	}
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, SchemaVersion, got.SchemaVersion)
	assert.Equal(t, "firefox", got.BrowserName)
	assert.Equal(t, strategy.Firefox, got.Browser)
	assert.Equal(t, want.PID, got.PID)
	assert.Equal(t, want.CDPEndpoint, got.CDPEndpoint)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSave_WritesSiblingGitignoreOnce(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	require.NoError(t, Save(path, &Descriptor{PID: os.Getpid(), Browser: strategy.Chromium}))
	gitignorePath := filepath.Join(dir, ".gitignore")
	data, err := os.ReadFile(gitignorePath)
	require.NoError(t, err)
	assert.Equal(t, "*\n", string(data))

	// A second save must not fail even though .gitignore already exists.
	require.NoError(t, Save(path, &Descriptor{PID: os.Getpid(), Browser: strategy.Chromium}))
}

func TestValid(t *testing.T) {
	t.Parallel()
	base := Descriptor{
		SchemaVersion: SchemaVersion,
		PID:           os.Getpid(),
		Browser:       strategy.Chromium,
		Headless:      true,
		Namespace:     "default",
		WorkspaceID:   "ws-1",
		CDPEndpoint:   "ws://x",
		DriverHash:    "abc123",
	}
	req := Request{
		Namespace:   "default",
		WorkspaceID: "ws-1",
		Browser:     strategy.Chromium,
		Headless:    true,
		CDPEndpoint: "ws://x",
		DriverHash:  "abc123",
	}

	cases := []struct {
		name   string
		modify func(d Descriptor) Descriptor
		want   bool
	}{
		{"matching descriptor is valid", func(d Descriptor) Descriptor { return d }, true},
		{"schema mismatch invalidates", func(d Descriptor) Descriptor { d.SchemaVersion = 0; return d }, false},
		{"dead pid invalidates", func(d Descriptor) Descriptor { d.PID = deadPID(); return d }, false},
		{"namespace mismatch invalidates", func(d Descriptor) Descriptor { d.Namespace = "other"; return d }, false},
		{"workspace mismatch invalidates", func(d Descriptor) Descriptor { d.WorkspaceID = "other"; return d }, false},
		{"browser mismatch invalidates", func(d Descriptor) Descriptor { d.Browser = strategy.Firefox; return d }, false},
		{"headless mismatch invalidates", func(d Descriptor) Descriptor { d.Headless = false; return d }, false},
		{"cdp endpoint mismatch invalidates", func(d Descriptor) Descriptor { d.CDPEndpoint = "ws://y"; return d }, false},
		{"driver hash mismatch invalidates", func(d Descriptor) Descriptor { d.DriverHash = "other"; return d }, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := tc.modify(base)
			assert.Equal(t, tc.want, Valid(&d, req))
		})
	}
}

func TestValid_NilDescriptorIsNeverValid(t *testing.T) {
	t.Parallel()
	assert.False(t, Valid(nil, Request{}))
}

func TestValid_CDPEndpointOnlyEnforcedWhenRequested(t *testing.T) {
	t.Parallel()
	d := &Descriptor{
		SchemaVersion: SchemaVersion,
		PID:           os.Getpid(),
		Browser:       strategy.Chromium,
		CDPEndpoint:   "ws://whatever",
	}
	req := Request{Browser: strategy.Chromium}
	assert.True(t, Valid(d, req))
}

// deadPID returns a pid almost certain not to correspond to a live process.
func deadPID() int {
	return 1 << 30
}

func TestPidAliveRejectsNonPositive(t *testing.T) {
	t.Parallel()
	assert.False(t, pidAlive(0))
	assert.False(t, pidAlive(-1))
}

func TestPidAliveAcceptsSelf(t *testing.T) {
	t.Parallel()
	assert.True(t, pidAlive(os.Getpid()))
}
