// Package broker implements session acquisition: turning a strategy.Output
// plan into a live driver connection, browser, and context, trying
// descriptor reuse and daemon lease before falling back to the primary
// path, and aggregating every path's failure if all of them fail.
package broker

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/dev-console/pwgo/internal/auth"
	"github.com/dev-console/pwgo/internal/connection"
	"github.com/dev-console/pwgo/internal/daemon"
	"github.com/dev-console/pwgo/internal/descriptor"
	"github.com/dev-console/pwgo/internal/driver"
	"github.com/dev-console/pwgo/internal/logging"
	"github.com/dev-console/pwgo/internal/objects"
	"github.com/dev-console/pwgo/internal/strategy"
	"github.com/dev-console/pwgo/internal/telemetry"
)

const (
	bootstrapWaitBudget = 10 * time.Second
	daemonBaseURL       = "http://127.0.0.1:7891"
)

// Options fully describes one acquisition request.
type Options struct {
	Namespace             string
	WorkspaceID           string
	Browser               strategy.BrowserKind
	Headless              bool
	CDPEndpoint           string
	RemoteDebuggingPort   int
	LaunchServerRequested bool
	NoDaemon              bool
	Refresh               bool
	DescriptorPath        string
	StorageStatePath      string
	ProjectAuthFiles      []string
	DriverOptions         driver.Options
	DriverHash            string
}

// Session is a live, driven browser session ready for commands.
type Session struct {
	Proc    *driver.Process
	Conn    *connection.Connection
	Browser *objects.Browser // nil when acquired via LaunchPersistentContext
	Context *objects.BrowserContext
	Path    strategy.PrimaryPath

	// KeepBrowserRunning is true when this session reused a browser from a
	// session descriptor or leased one from the daemon; Close then leaves
	// the browser process itself running. An attach to an explicit CDP
	// endpoint leaves it false.
	KeepBrowserRunning bool

	activePageGUID string
}

// Close tears the session down: context, then the browser (unless
// KeepBrowserRunning), then the driver subprocess.
func (s *Session) Close(ctx context.Context) error {
	var result *multierror.Error
	if s.Context != nil {
		if err := s.Context.Close(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("close context: %w", err))
		}
	}
	if s.Browser != nil && !s.KeepBrowserRunning {
		if err := s.Browser.Close(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.Proc != nil {
		if err := s.Proc.Kill(); err != nil {
			result = multierror.Append(result, fmt.Errorf("kill driver: %w", err))
		}
	}
	return result.ErrorOrNil()
}

// Acquire runs the full acquisition pipeline described in spec §4.5: compute
// the strategy, try descriptor reuse, try a daemon lease, and otherwise
// drive the chosen primary path. Every attempted path's failure is
// aggregated so a total failure reports everything that was tried.
func Acquire(ctx context.Context, opts Options) (*Session, error) {
	session, err := acquire(ctx, opts)
	telemetry.Global().RecordAcquisition(err == nil)
	return session, err
}

func acquire(ctx context.Context, opts Options) (*Session, error) {
	plan := strategy.Decide(strategy.Input{
		HasDescriptorPath:     opts.DescriptorPath != "",
		Refresh:               opts.Refresh,
		NoDaemon:              opts.NoDaemon,
		Browser:               opts.Browser,
		CDPEndpoint:           opts.CDPEndpoint,
		RemoteDebuggingPort:   opts.RemoteDebuggingPort,
		LaunchServerRequested: opts.LaunchServerRequested,
	})

	var errs *multierror.Error
	cdpEndpoint := opts.CDPEndpoint
	primary := plan.Primary
	keepRunning := false

	if plan.TryDescriptorReuse {
		if reused, err := tryDescriptorReuse(opts); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("descriptor reuse: %w", err))
		} else if reused != "" {
			cdpEndpoint = reused
			primary = strategy.AttachCdp
			keepRunning = true
			logging.L().Infow("broker: reusing browser via descriptor", "endpoint", reused)
		}
	}

	if primary != strategy.AttachCdp && plan.TryDaemonLease {
		client := daemon.New(daemonBaseURL)
		key := daemon.LeaseKey(opts.Namespace, opts.Browser.String(), opts.Headless)
		lease, err := client.Lease(ctx, key)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("daemon lease: %w", err))
		} else {
			cdpEndpoint = lease.CDPEndpoint
			primary = strategy.AttachCdp
			keepRunning = true
			logging.L().Infow("broker: leased browser from daemon", "endpoint", cdpEndpoint, "key", key)
		}
	}

	proc, err := driver.Launch(ctx, opts.DriverOptions)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("launch driver: %w", err))
		return nil, errs.ErrorOrNil()
	}
	go proc.Transport.Run() //nolint:errcheck // surfaced via connection.done on transport close

	conn := connection.New(proc.Transport)
	conn.SetFactory(objects.NewFactory(conn))
	go conn.Run()

	pwObj, err := conn.WaitForObjectType(ctx, "Playwright", bootstrapWaitBudget)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("wait for driver bootstrap: %w", err))
		_ = proc.Kill()
		return nil, errs.ErrorOrNil()
	}
	pw := pwObj.(*objects.Playwright)

	btGUID, ok := pw.BrowserType(opts.Browser.String())
	if !ok {
		_ = proc.Kill()
		return nil, multierror.Append(errs, fmt.Errorf("driver has no browser type %q", opts.Browser)).ErrorOrNil()
	}
	btObj, ok := conn.GetObject(btGUID)
	if !ok {
		_ = proc.Kill()
		return nil, multierror.Append(errs, fmt.Errorf("browser type guid %s not registered", btGUID)).ErrorOrNil()
	}
	bt := btObj.(*objects.BrowserType)

	session := &Session{Proc: proc, Conn: conn, Path: primary, KeepBrowserRunning: keepRunning}
	launchOpts := objects.LaunchOptions{Headless: opts.Headless}

	switch primary {
	case strategy.AttachCdp:
		browser, err := bt.ConnectOverCDP(ctx, cdpEndpoint)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("connect over cdp: %w", err))
			_ = proc.Kill()
			return nil, errs.ErrorOrNil()
		}
		session.Browser = browser
		session.Context, err = newOrFirstContext(ctx, conn, browser)
		if err != nil {
			errs = multierror.Append(errs, err)
			_ = proc.Kill()
			return nil, errs.ErrorOrNil()
		}

	case strategy.PersistentDebug:
		bc, err := bt.LaunchPersistentContext(ctx, persistentProfileDir(opts), launchOpts)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("launch persistent context: %w", err))
			_ = proc.Kill()
			return nil, errs.ErrorOrNil()
		}
		session.Context = bc

	case strategy.LaunchServer:
		wsEndpoint, err := bt.LaunchServer(ctx, launchOpts)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("launch server: %w", err))
			_ = proc.Kill()
			return nil, errs.ErrorOrNil()
		}
		browser, err := bt.Connect(ctx, wsEndpoint)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("connect to launched server: %w", err))
			_ = proc.Kill()
			return nil, errs.ErrorOrNil()
		}
		session.Browser = browser
		session.Context, err = newOrFirstContext(ctx, conn, browser)
		if err != nil {
			errs = multierror.Append(errs, err)
			_ = proc.Kill()
			return nil, errs.ErrorOrNil()
		}
		cdpEndpoint = wsEndpoint

	default: // FreshLaunch
		browser, err := bt.Launch(ctx, launchOpts)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("launch browser: %w", err))
			_ = proc.Kill()
			return nil, errs.ErrorOrNil()
		}
		session.Browser = browser
		session.Context, err = newOrFirstContext(ctx, conn, browser)
		if err != nil {
			errs = multierror.Append(errs, err)
			_ = proc.Kill()
			return nil, errs.ErrorOrNil()
		}
	}

	if opts.StorageStatePath != "" {
		if err := injectStorageState(ctx, session.Context, opts.StorageStatePath); err != nil {
			logging.L().Warnw("broker: storage state injection failed", "path", opts.StorageStatePath, "error", err)
		}
	} else if keepRunning {
		for _, path := range opts.ProjectAuthFiles {
			if err := injectStorageState(ctx, session.Context, path); err != nil {
				logging.L().Warnw("broker: project auth file injection failed", "path", path, "error", err)
			}
		}
	}

	if opts.DescriptorPath != "" {
		if err := saveDescriptor(opts, cdpEndpoint); err != nil {
			logging.L().Warnw("broker: failed to persist session descriptor", "error", err)
		}
	}

	return session, nil
}

// newOrFirstContext implements the CDP-attach "preferred page" policy
// decided in DESIGN.md: an attached browser frequently already has open
// contexts (e.g. a user's real browser session), and those take priority
// over creating a fresh, empty one.
func newOrFirstContext(ctx context.Context, conn *connection.Connection, browser *objects.Browser) (*objects.BrowserContext, error) {
	existing, err := browser.Contexts(ctx)
	if err == nil && len(existing) > 0 {
		if obj, ok := conn.GetObject(existing[0]); ok {
			if bc, ok := obj.(*objects.BrowserContext); ok {
				return bc, nil
			}
		}
	}
	return browser.NewContext(ctx, objects.NewContextOptions{})
}

func injectStorageState(ctx context.Context, bc *objects.BrowserContext, path string) error {
	state, err := auth.Load(path)
	if err != nil {
		return err
	}
	return bc.AddCookies(ctx, state.Cookies)
}

func persistentProfileDir(opts Options) string {
	if dir := os.Getenv("PWGO_PROFILE_DIR"); dir != "" {
		return dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return base + "/pwgo/profiles/" + opts.Namespace
}

// tryDescriptorReuse returns the CDP endpoint to reuse, or "" if the
// descriptor is absent/stale. An error here means the file existed but
// could not be parsed, which is worth reporting even though it's not fatal.
func tryDescriptorReuse(opts Options) (string, error) {
	d, err := descriptor.Load(opts.DescriptorPath)
	if err != nil {
		return "", err
	}
	req := descriptor.Request{
		Namespace:   opts.Namespace,
		WorkspaceID: opts.WorkspaceID,
		Browser:     opts.Browser,
		Headless:    opts.Headless,
		CDPEndpoint: opts.CDPEndpoint,
		DriverHash:  opts.DriverHash,
	}
	if !descriptor.Valid(d, req) {
		return "", nil
	}
	return d.CDPEndpoint, nil
}

func saveDescriptor(opts Options, cdpEndpoint string) error {
	d := &descriptor.Descriptor{
		PID:         os.Getpid(),
		Browser:     opts.Browser,
		Headless:    opts.Headless,
		CDPEndpoint: cdpEndpoint,
		WorkspaceID: opts.WorkspaceID,
		Namespace:   opts.Namespace,
		DriverHash:  opts.DriverHash,
	}
	return descriptor.Save(opts.DescriptorPath, d)
}
