// download.go — Download channel object and its subscriber list.
package objects

import (
	"context"
	"encoding/json"

	"github.com/dev-console/pwgo/internal/channel"
	"github.com/dev-console/pwgo/internal/connection"
)

// Download represents a file download started by the page.
type Download struct {
	owner       *channel.Owner
	conn        *connection.Connection
	URLValue    string
	SuggestedFN string
}

// ChannelOwner implements connection.Object.
func (d *Download) ChannelOwner() *channel.Owner { return d.owner }

// URL returns the download's source URL.
func (d *Download) URL() string { return d.URLValue }

// SuggestedFilename returns the filename the server suggests for saving.
func (d *Download) SuggestedFilename() string { return d.SuggestedFN }

// SaveAs downloads the payload to path on disk.
func (d *Download) SaveAs(ctx context.Context, path string) error {
	_, err := d.conn.SendMessage(ctx, d.owner.GUID(), "saveAs", map[string]any{"path": path})
	return err
}

// DownloadHandler observes a new download.
type DownloadHandler func(ctx context.Context, d *Download)

func parseDownloadInitializer(raw json.RawMessage) (url, suggested string) {
	var payload struct {
		URL                 string `json:"url"`
		SuggestedFilename   string `json:"suggestedFilename"`
	}
	_ = json.Unmarshal(raw, &payload)
	return payload.URL, payload.SuggestedFilename
}
