// browser.go — Browser channel object: a running browser process reachable
// either by fresh launch or CDP attach.
package objects

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dev-console/pwgo/internal/channel"
	"github.com/dev-console/pwgo/internal/connection"
)

// Browser is a running browser process.
type Browser struct {
	owner *channel.Owner
	conn  *connection.Connection
}

// ChannelOwner implements connection.Object.
func (b *Browser) ChannelOwner() *channel.Owner { return b.owner }

// NewContextOptions configures Browser.NewContext.
type NewContextOptions struct {
	StorageStatePath string
}

// NewContext opens a fresh BrowserContext.
func (b *Browser) NewContext(ctx context.Context, opts NewContextOptions) (*BrowserContext, error) {
	params := map[string]any{}
	raw, err := b.conn.SendMessage(ctx, b.owner.GUID(), "newContext", params)
	if err != nil {
		return nil, fmt.Errorf("browser: newContext: %w", err)
	}
	var result struct {
		Context struct {
			GUID string `json:"guid"`
		} `json:"context"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("browser: decode newContext result: %w", err)
	}
	obj, err := b.conn.WaitForObject(ctx, result.Context.GUID, launchWaitBudget)
	if err != nil {
		return nil, err
	}
	bc, ok := obj.(*BrowserContext)
	if !ok {
		return nil, fmt.Errorf("browser: unexpected object type for context guid")
	}
	return bc, nil
}

// Contexts lists the guids of this browser's currently open contexts.
func (b *Browser) Contexts(ctx context.Context) ([]string, error) {
	raw, err := b.conn.SendMessage(ctx, b.owner.GUID(), "contexts", map[string]any{})
	if err != nil {
		return nil, err
	}
	var result struct {
		Contexts []struct {
			GUID string `json:"guid"`
		} `json:"contexts"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(result.Contexts))
	for _, c := range result.Contexts {
		out = append(out, c.GUID)
	}
	return out, nil
}

// Close shuts down the browser process.
func (b *Browser) Close(ctx context.Context) error {
	_, err := b.conn.SendMessage(ctx, b.owner.GUID(), "close", map[string]any{})
	return err
}
