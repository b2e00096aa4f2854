package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   Input
		want Output
	}{
		{
			name: "fresh launch by default",
			in:   Input{},
			want: Output{TryDescriptorReuse: false, TryDaemonLease: true, Primary: FreshLaunch},
		},
		{
			name: "descriptor reuse attempted when path present and no refresh",
			in:   Input{HasDescriptorPath: true},
			want: Output{TryDescriptorReuse: true, TryDaemonLease: true, Primary: FreshLaunch},
		},
		{
			name: "refresh overrides descriptor reuse",
			in:   Input{HasDescriptorPath: true, Refresh: true},
			want: Output{TryDescriptorReuse: false, TryDaemonLease: true, Primary: FreshLaunch},
		},
		{
			name: "cdp endpoint selects attach and disables daemon lease",
			in:   Input{CDPEndpoint: "ws://localhost:9222/devtools/browser/abc"},
			want: Output{TryDescriptorReuse: false, TryDaemonLease: false, Primary: AttachCdp},
		},
		{
			name: "remote debugging port selects persistent debug and wins over cdp endpoint",
			in:   Input{RemoteDebuggingPort: 9222, CDPEndpoint: "ws://x"},
			want: Output{TryDescriptorReuse: false, TryDaemonLease: false, Primary: PersistentDebug},
		},
		{
			name: "launch server requested wins over cdp endpoint but not over remote debugging port",
			in:   Input{LaunchServerRequested: true, CDPEndpoint: "ws://x"},
			want: Output{TryDescriptorReuse: false, TryDaemonLease: false, Primary: LaunchServer},
		},
		{
			name: "no daemon flag disables daemon lease even for a plain fresh launch",
			in:   Input{NoDaemon: true},
			want: Output{TryDescriptorReuse: false, TryDaemonLease: false, Primary: FreshLaunch},
		},
		{
			name: "daemon lease only offered for chromium",
			in:   Input{Browser: Firefox},
			want: Output{TryDescriptorReuse: false, TryDaemonLease: false, Primary: FreshLaunch},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Decide(tc.in)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecideIsPure(t *testing.T) {
	t.Parallel()
	in := Input{HasDescriptorPath: true, CDPEndpoint: "ws://x"}
	first := Decide(in)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Decide(in))
	}
}

func TestBrowserKindString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "chromium", Chromium.String())
	assert.Equal(t, "firefox", Firefox.String())
	assert.Equal(t, "webkit", WebKit.String())
	assert.Equal(t, "unknown", BrowserKind(99).String())
}

func TestPrimaryPathString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "attach_cdp", AttachCdp.String())
	assert.Equal(t, "persistent_debug", PersistentDebug.String())
	assert.Equal(t, "launch_server", LaunchServer.String())
	assert.Equal(t, "fresh_launch", FreshLaunch.String())
	assert.Equal(t, "unknown", PrimaryPath(99).String())
}
