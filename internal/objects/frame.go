// frame.go — Frame channel object. Page.Goto delegates navigation to its
// main frame, matching the driver's own split between Page and Frame.
package objects

import (
	"context"
	"encoding/json"

	"github.com/dev-console/pwgo/internal/channel"
	"github.com/dev-console/pwgo/internal/connection"
)

// Frame represents a (possibly nested) document frame.
type Frame struct {
	owner *channel.Owner
	conn  *connection.Connection
}

// ChannelOwner implements connection.Object.
func (f *Frame) ChannelOwner() *channel.Owner { return f.owner }

// GotoOptions configures a navigation call.
type GotoOptions struct {
	TimeoutMS int64  `json:"timeout,omitempty"`
	WaitUntil string `json:"waitUntil,omitempty"`
}

// gotoResult is the driver's raw response to frame.goto.
type gotoResult struct {
	Response *struct {
		GUID string `json:"guid"`
	} `json:"response"`
}

// Goto navigates the frame to url and returns the response object's GUID, if
// any. Absent means the URL produced no response (data:/about: URIs); that
// is not an error.
func (f *Frame) Goto(ctx context.Context, url string, opts GotoOptions) (responseGUID string, err error) {
	params := map[string]any{"url": url}
	if opts.TimeoutMS > 0 {
		params["timeout"] = opts.TimeoutMS
	}
	if opts.WaitUntil != "" {
		params["waitUntil"] = opts.WaitUntil
	}
	raw, err := f.conn.SendMessage(ctx, f.owner.GUID(), "goto", params)
	if err != nil {
		return "", err
	}
	var result gotoResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", err
	}
	if result.Response == nil {
		return "", nil
	}
	return result.Response.GUID, nil
}

// QuerySelector resolves a single matching element, if any, returning its
// handle GUID.
func (f *Frame) QuerySelector(ctx context.Context, selector string) (string, bool, error) {
	raw, err := f.conn.SendMessage(ctx, f.owner.GUID(), "querySelector", map[string]any{"selector": selector})
	if err != nil {
		return "", false, err
	}
	var result struct {
		Element *struct {
			GUID string `json:"guid"`
		} `json:"element"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", false, err
	}
	if result.Element == nil {
		return "", false, nil
	}
	return result.Element.GUID, true, nil
}

// QuerySelectorAll resolves every matching element's handle GUID.
func (f *Frame) QuerySelectorAll(ctx context.Context, selector string) ([]string, error) {
	raw, err := f.conn.SendMessage(ctx, f.owner.GUID(), "querySelectorAll", map[string]any{"selector": selector})
	if err != nil {
		return nil, err
	}
	var result struct {
		Elements []struct {
			GUID string `json:"guid"`
		} `json:"elements"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(result.Elements))
	for _, e := range result.Elements {
		out = append(out, e.GUID)
	}
	return out, nil
}

// Click performs a click on the given selector.
func (f *Frame) Click(ctx context.Context, selector string, timeoutMS int64) error {
	params := map[string]any{"selector": selector}
	if timeoutMS > 0 {
		params["timeout"] = timeoutMS
	}
	_, err := f.conn.SendMessage(ctx, f.owner.GUID(), "click", params)
	return err
}

// Fill types text into the given selector's input.
func (f *Frame) Fill(ctx context.Context, selector, value string, timeoutMS int64) error {
	params := map[string]any{"selector": selector, "value": value}
	if timeoutMS > 0 {
		params["timeout"] = timeoutMS
	}
	_, err := f.conn.SendMessage(ctx, f.owner.GUID(), "fill", params)
	return err
}

// evaluateResult is the raw wrapped-value response to evaluateExpression.
type evaluateResult struct {
	Value json.RawMessage `json:"value"`
}

// EvaluateRaw runs expression and returns the raw wrapped-value JSON the
// driver returned, for the caller to decode via internal/evalue.
func (f *Frame) EvaluateRaw(ctx context.Context, expression string) (json.RawMessage, error) {
	raw, err := f.conn.SendMessage(ctx, f.owner.GUID(), "evaluateExpression", map[string]any{
		"expression": expression,
		"isFunction": false,
	})
	if err != nil {
		return nil, err
	}
	var result evaluateResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}
