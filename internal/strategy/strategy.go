// Package strategy implements the pure session-acquisition strategy
// function described in spec §4.5. It is total, deterministic, and
// independent of I/O or wall-clock time — a direct analogue of the
// teacher's daemon-lifecycle policy tables, generalized to session
// acquisition instead of daemon respawn.
package strategy

// BrowserKind enumerates the supported browser engines.
type BrowserKind int

const (
	Chromium BrowserKind = iota
	Firefox
	WebKit
)

// PrimaryPath is the fallback acquisition path chosen when neither
// descriptor reuse nor daemon lease succeeds.
type PrimaryPath int

const (
	AttachCdp PrimaryPath = iota
	PersistentDebug
	LaunchServer
	FreshLaunch
)

// Input captures everything the strategy decision depends on.
type Input struct {
	HasDescriptorPath     bool
	Refresh               bool
	NoDaemon              bool
	Browser               BrowserKind
	CDPEndpoint           string // empty means unset
	RemoteDebuggingPort   int    // 0 means unset
	LaunchServerRequested bool
}

// Output is the acquisition plan the broker must execute.
type Output struct {
	TryDescriptorReuse bool
	TryDaemonLease     bool
	Primary            PrimaryPath
}

// Decide computes the acquisition plan for in. It never performs I/O and
// never reads wall-clock time, so equal inputs always produce equal
// outputs.
func Decide(in Input) Output {
	var primary PrimaryPath
	switch {
	case in.RemoteDebuggingPort != 0:
		primary = PersistentDebug
	case in.LaunchServerRequested:
		primary = LaunchServer
	case in.CDPEndpoint != "":
		primary = AttachCdp
	default:
		primary = FreshLaunch
	}

	tryDaemon := !in.NoDaemon &&
		in.CDPEndpoint == "" &&
		in.RemoteDebuggingPort == 0 &&
		!in.LaunchServerRequested &&
		in.Browser == Chromium

	return Output{
		TryDescriptorReuse: in.HasDescriptorPath && !in.Refresh,
		TryDaemonLease:     tryDaemon,
		Primary:            primary,
	}
}

// String renders a browser kind as its lowercase wire name.
func (b BrowserKind) String() string {
	switch b {
	case Chromium:
		return "chromium"
	case Firefox:
		return "firefox"
	case WebKit:
		return "webkit"
	default:
		return "unknown"
	}
}

// String renders a primary path for logging/diagnostics.
func (p PrimaryPath) String() string {
	switch p {
	case AttachCdp:
		return "attach_cdp"
	case PersistentDebug:
		return "persistent_debug"
	case LaunchServer:
		return "launch_server"
	case FreshLaunch:
		return "fresh_launch"
	default:
		return "unknown"
	}
}
