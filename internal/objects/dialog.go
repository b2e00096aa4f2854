// dialog.go — Dialog channel object (alert/confirm/prompt/beforeunload) and
// its subscriber list.
package objects

import (
	"context"
	"encoding/json"

	"github.com/dev-console/pwgo/internal/channel"
	"github.com/dev-console/pwgo/internal/connection"
)

// Dialog represents a JS dialog the page has raised.
type Dialog struct {
	owner       *channel.Owner
	conn        *connection.Connection
	TypeValue   string
	MessageText string
	DefaultText string
}

// ChannelOwner implements connection.Object.
func (d *Dialog) ChannelOwner() *channel.Owner { return d.owner }

// Type returns the dialog kind: alert, confirm, prompt, or beforeunload.
func (d *Dialog) Type() string { return d.TypeValue }

// Message returns the dialog's message text.
func (d *Dialog) Message() string { return d.MessageText }

// Accept dismisses the dialog with the given prompt text (ignored for
// non-prompt dialogs).
func (d *Dialog) Accept(ctx context.Context, promptText string) error {
	_, err := d.conn.SendMessage(ctx, d.owner.GUID(), "accept", map[string]any{"promptText": promptText})
	return err
}

// Dismiss cancels the dialog.
func (d *Dialog) Dismiss(ctx context.Context) error {
	_, err := d.conn.SendMessage(ctx, d.owner.GUID(), "dismiss", map[string]any{})
	return err
}

// DialogHandler observes a new dialog. Callers that do not explicitly
// accept/dismiss risk leaving navigation blocked — that responsibility is
// the handler's, not the dispatcher's.
type DialogHandler func(ctx context.Context, d *Dialog)

func parseDialogInitializer(raw json.RawMessage) (typ, message, defaultValue string) {
	var payload struct {
		Type         string `json:"type"`
		Message      string `json:"message"`
		DefaultValue string `json:"defaultValue"`
	}
	_ = json.Unmarshal(raw, &payload)
	return payload.Type, payload.Message, payload.DefaultValue
}
