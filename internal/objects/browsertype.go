// browsertype.go — BrowserType channel object: the four acquisition paths
// from spec §4.5 (fresh launch, attach over CDP, persistent-profile debug
// launch, and launch-server) all bottom out in a method call here.
package objects

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dev-console/pwgo/internal/channel"
	"github.com/dev-console/pwgo/internal/connection"
)

const launchWaitBudget = 30 * time.Second

// BrowserType is one of "chromium", "firefox", "webkit".
type BrowserType struct {
	owner *channel.Owner
	conn  *connection.Connection
}

// ChannelOwner implements connection.Object.
func (b *BrowserType) ChannelOwner() *channel.Owner { return b.owner }

// LaunchOptions configures a fresh browser launch.
type LaunchOptions struct {
	Headless bool
	Args     []string
}

type browserRef struct {
	Browser struct {
		GUID string `json:"guid"`
	} `json:"browser"`
}

// Launch starts a fresh browser process (strategy.FreshLaunch).
func (b *BrowserType) Launch(ctx context.Context, opts LaunchOptions) (*Browser, error) {
	raw, err := b.conn.SendMessage(ctx, b.owner.GUID(), "launch", map[string]any{
		"headless": opts.Headless,
		"args":     opts.Args,
	})
	if err != nil {
		return nil, fmt.Errorf("browserType: launch: %w", err)
	}
	return b.resolveBrowser(ctx, raw)
}

// ConnectOverCDP attaches to an already-running browser exposing a CDP
// endpoint (strategy.AttachCdp).
func (b *BrowserType) ConnectOverCDP(ctx context.Context, endpointURL string) (*Browser, error) {
	raw, err := b.conn.SendMessage(ctx, b.owner.GUID(), "connectOverCDP", map[string]any{
		"endpointURL": endpointURL,
	})
	if err != nil {
		return nil, fmt.Errorf("browserType: connectOverCDP: %w", err)
	}
	return b.resolveBrowser(ctx, raw)
}

// Connect attaches over the Playwright server websocket protocol, as
// produced by a prior LaunchServer call (possibly in another process).
func (b *BrowserType) Connect(ctx context.Context, wsEndpoint string) (*Browser, error) {
	raw, err := b.conn.SendMessage(ctx, b.owner.GUID(), "connect", map[string]any{
		"wsEndpoint": wsEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("browserType: connect: %w", err)
	}
	return b.resolveBrowser(ctx, raw)
}

// LaunchPersistentContext launches a browser bound to userDataDir and
// returns its initial, already-open context directly (strategy.
// PersistentDebug; the driver skips the separate Browser handle for this
// path).
func (b *BrowserType) LaunchPersistentContext(ctx context.Context, userDataDir string, opts LaunchOptions) (*BrowserContext, error) {
	raw, err := b.conn.SendMessage(ctx, b.owner.GUID(), "launchPersistentContext", map[string]any{
		"userDataDir": userDataDir,
		"headless":    opts.Headless,
		"args":        opts.Args,
	})
	if err != nil {
		return nil, fmt.Errorf("browserType: launchPersistentContext: %w", err)
	}
	var result struct {
		Context struct {
			GUID string `json:"guid"`
		} `json:"context"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("browserType: decode launchPersistentContext result: %w", err)
	}
	obj, err := b.conn.WaitForObject(ctx, result.Context.GUID, launchWaitBudget)
	if err != nil {
		return nil, err
	}
	bc, ok := obj.(*BrowserContext)
	if !ok {
		return nil, fmt.Errorf("browserType: launchPersistentContext: unexpected object type for context guid")
	}
	return bc, nil
}

// LaunchServer starts a browser server process and returns its websocket
// endpoint (strategy.LaunchServer), for acquisition paths that want to hand
// the endpoint to a daemon or another process rather than drive the browser
// directly from this connection.
func (b *BrowserType) LaunchServer(ctx context.Context, opts LaunchOptions) (wsEndpoint string, err error) {
	raw, err := b.conn.SendMessage(ctx, b.owner.GUID(), "launchServer", map[string]any{
		"headless": opts.Headless,
		"args":     opts.Args,
	})
	if err != nil {
		return "", fmt.Errorf("browserType: launchServer: %w", err)
	}
	var result struct {
		WSEndpoint string `json:"wsEndpoint"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("browserType: decode launchServer result: %w", err)
	}
	return result.WSEndpoint, nil
}

func (b *BrowserType) resolveBrowser(ctx context.Context, raw json.RawMessage) (*Browser, error) {
	var ref browserRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, fmt.Errorf("browserType: decode browser result: %w", err)
	}
	obj, err := b.conn.WaitForObject(ctx, ref.Browser.GUID, launchWaitBudget)
	if err != nil {
		return nil, err
	}
	browser, ok := obj.(*Browser)
	if !ok {
		return nil, fmt.Errorf("browserType: unexpected object type for browser guid")
	}
	return browser, nil
}
