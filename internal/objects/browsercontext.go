// browsercontext.go — BrowserContext channel object: owns Pages, storage
// state (used by auth-file cookie injection), and context-level close.
package objects

import (
	"context"
	"encoding/json"

	"github.com/dev-console/pwgo/internal/channel"
	"github.com/dev-console/pwgo/internal/connection"
)

// BrowserContext groups pages sharing cookies/storage.
type BrowserContext struct {
	owner *channel.Owner
	conn  *connection.Connection
}

// ChannelOwner implements connection.Object.
func (b *BrowserContext) ChannelOwner() *channel.Owner { return b.owner }

// StorageStateCookie is one cookie entry within a storage-state blob.
type StorageStateCookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// AddCookies injects cookies into the context.
func (b *BrowserContext) AddCookies(ctx context.Context, cookies []StorageStateCookie) error {
	_, err := b.conn.SendMessage(ctx, b.owner.GUID(), "addCookies", map[string]any{"cookies": cookies})
	return err
}

// Pages lists the GUIDs of pages currently open in the context.
func (b *BrowserContext) Pages(ctx context.Context) ([]string, error) {
	raw, err := b.conn.SendMessage(ctx, b.owner.GUID(), "pages", map[string]any{})
	if err != nil {
		return nil, err
	}
	var result struct {
		Pages []struct {
			GUID string `json:"guid"`
		} `json:"pages"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(result.Pages))
	for _, p := range result.Pages {
		out = append(out, p.GUID)
	}
	return out, nil
}

// NewPage opens a new page in the context.
func (b *BrowserContext) NewPage(ctx context.Context, conn *connection.Connection, timeout int64) (string, error) {
	raw, err := b.conn.SendMessage(ctx, b.owner.GUID(), "newPage", map[string]any{})
	if err != nil {
		return "", err
	}
	var result struct {
		Page struct {
			GUID string `json:"guid"`
		} `json:"page"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", err
	}
	return result.Page.GUID, nil
}

// Close tears down the context (and all of its pages).
func (b *BrowserContext) Close(ctx context.Context) error {
	_, err := b.conn.SendMessage(ctx, b.owner.GUID(), "close", map[string]any{})
	return err
}

// OriginStorageEntry is one origin's localStorage snapshot within a
// storage-state blob.
type OriginStorageEntry struct {
	Origin       string `json:"origin"`
	LocalStorage []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"localStorage"`
}

// StorageState exports the context's cookies and per-origin localStorage,
// matching the Playwright-standard {cookies, origins} shape.
func (b *BrowserContext) StorageState(ctx context.Context) (cookies []StorageStateCookie, origins []OriginStorageEntry, err error) {
	raw, err := b.conn.SendMessage(ctx, b.owner.GUID(), "storageState", map[string]any{})
	if err != nil {
		return nil, nil, err
	}
	var result struct {
		Cookies []StorageStateCookie `json:"cookies"`
		Origins []OriginStorageEntry `json:"origins"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, nil, err
	}
	return result.Cookies, result.Origins, nil
}
