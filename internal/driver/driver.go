// Package driver launches the Playwright Node driver subprocess and wires
// its stdio into a wire.Transport. Everything past that handoff (connection
// handshake, object tree) lives in internal/connection; this package's job
// ends at "a running process with a Transport attached to its pipes."
package driver

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/dev-console/pwgo/internal/logging"
	"github.com/dev-console/pwgo/internal/wire"
)

// DefaultVersion is the Playwright driver version this build expects,
// mirroring the pinned version the original Rust build script downloaded.
const DefaultVersion = "1.57.0"

// Options configures how the driver subprocess is located and launched.
type Options struct {
	// Path, if set, overrides discovery entirely: it must point at the
	// Node driver's cli.js, which is always run with node.
	Path string
	// Version selects which cached driver directory to look for when Path
	// is unset. Defaults to DefaultVersion.
	Version string
	// NodePath overrides the "node" executable used to run cli.js.
	NodePath string
}

// Process is a running driver subprocess with its stdio wired into a
// wire.Transport.
type Process struct {
	cmd       *exec.Cmd
	Transport *wire.Transport
}

// Launch starts the driver subprocess and returns it with its Transport
// already constructed (but not yet Run — callers start Transport.Run in
// their own goroutine once they're ready to dispatch).
func Launch(ctx context.Context, opts Options) (*Process, error) {
	path := opts.Path
	if path == "" {
		resolved, err := resolveDriverPath(version(opts))
		if err != nil {
			return nil, fmt.Errorf("driver: locate driver: %w", err)
		}
		path = resolved
	}

	node := opts.NodePath
	if node == "" {
		node = "node"
	}

	cmd := exec.CommandContext(ctx, node, path, "run-driver")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("driver: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("driver: stdout pipe: %w", err)
	}
	cmd.Stderr = &stderrLogger{}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("driver: start %s: %w", path, err)
	}

	transport := wire.NewTransport(stdin, stdout)
	return &Process{cmd: cmd, Transport: transport}, nil
}

// Wait blocks until the subprocess exits.
func (p *Process) Wait() error {
	return p.cmd.Wait()
}

// Kill terminates the subprocess immediately.
func (p *Process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

func version(opts Options) string {
	if opts.Version != "" {
		return opts.Version
	}
	return DefaultVersion
}

// resolveDriverPath mirrors the original build script's cache-directory
// strategy (get_drivers_dir in the Rust original), minus the
// workspace-Cargo.toml walk, which has no Go analogue: check
// PWGO_DRIVER_PATH, then a user cache directory keyed by version and
// platform.
func resolveDriverPath(ver string) (string, error) {
	if p := os.Getenv("PWGO_DRIVER_PATH"); p != "" {
		return p, nil
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("determine cache dir: %w", err)
	}

	platform := detectPlatform()
	driverDir := filepath.Join(cacheDir, "pwgo", "drivers", fmt.Sprintf("playwright-%s-%s", ver, platform))
	cliPath := filepath.Join(driverDir, "package", "cli.js")

	if _, err := os.Stat(cliPath); err != nil {
		logging.L().Warnw("driver: cached driver not found, set PWGO_DRIVER_PATH or install it",
			"expected", cliPath, "version", ver, "platform", platform)
		return "", fmt.Errorf("driver: no driver at %s (set PWGO_DRIVER_PATH)", cliPath)
	}
	return cliPath, nil
}

// detectPlatform renders a playwright.azureedge.net-style platform tag.
func detectPlatform() string {
	switch runtime.GOOS {
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return "mac-arm64"
		}
		return "mac"
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "linux-arm64"
		}
		return "linux"
	case "windows":
		return "win32_x64"
	default:
		return runtime.GOOS
	}
}

// stderrLogger routes the driver's stderr (its own debug logging) through
// our structured logger instead of letting it interleave with stdout.
type stderrLogger struct{}

func (s *stderrLogger) Write(p []byte) (int, error) {
	logging.L().Debugw("driver stderr", "line", string(p))
	return len(p), nil
}
