// page.go — Page channel object, the representative protocol object
// described in spec §4.4: cached URL, main-frame delegation, route/download/
// dialog subscriptions, and bounded console broadcast.
package objects

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dev-console/pwgo/internal/channel"
	"github.com/dev-console/pwgo/internal/connection"
	"github.com/dev-console/pwgo/internal/evalue"
	"github.com/dev-console/pwgo/internal/logging"
)

const (
	defaultScreenshotTimeoutMS = 30_000
	waitForResponseBudget      = 1 * time.Second
)

// Page is the representative protocol object: most browser interaction
// flows through it or its main frame.
type Page struct {
	owner *channel.Owner
	conn  *connection.Connection

	urlMu sync.RWMutex
	url   string

	mainFrameGUID string

	routes    *routeTable
	downloads *handlerList[DownloadHandler]
	dialogs   *handlerList[DialogHandler]
	console   *consoleBroadcast
}

// NewPage constructs a Page under owner, wiring its event hook. Called from
// the connection's object Factory when a __create__ event names type
// "Page".
func NewPage(owner *channel.Owner, conn *connection.Connection, mainFrameGUID string) *Page {
	p := &Page{
		owner:         owner,
		conn:          conn,
		url:           "about:blank",
		mainFrameGUID: mainFrameGUID,
		routes:        newRouteTable(),
		downloads:     newHandlerList[DownloadHandler](),
		dialogs:       newHandlerList[DialogHandler](),
		console:       newConsoleBroadcast(),
	}
	owner.SetEventHandler(p.onEvent)
	return p
}

// ChannelOwner implements connection.Object.
func (p *Page) ChannelOwner() *channel.Owner { return p.owner }

// URL returns the page's last-known URL, updated on navigation.
func (p *Page) URL() string {
	p.urlMu.RLock()
	defer p.urlMu.RUnlock()
	return p.url
}

func (p *Page) setURL(url string) {
	p.urlMu.Lock()
	p.url = url
	p.urlMu.Unlock()
}

// Goto navigates the page's main frame to url. If the driver returns a
// Response reference, it is resolved through WaitForObject with a 1-second
// budget because the Response's own __create__ may arrive after the goto
// result. Absence of a response (data:/about: URIs) is not an error.
func (p *Page) Goto(ctx context.Context, url string, opts GotoOptions) (connection.Object, error) {
	params := map[string]any{"url": url}
	if opts.TimeoutMS > 0 {
		params["timeout"] = opts.TimeoutMS
	}
	if opts.WaitUntil != "" {
		params["waitUntil"] = opts.WaitUntil
	}
	raw, err := p.conn.SendMessage(ctx, p.mainFrameGUID, "goto", params)
	if err != nil {
		return nil, fmt.Errorf("page: goto %s: %w", url, err)
	}

	var result gotoResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("page: decode goto result: %w", err)
	}
	p.setURL(url)

	if result.Response == nil {
		return nil, nil
	}
	return p.conn.WaitForObject(ctx, result.Response.GUID, waitForResponseBudget)
}

// Reload has the same response-resolution semantics as Goto.
func (p *Page) Reload(ctx context.Context, opts GotoOptions) (connection.Object, error) {
	params := map[string]any{}
	if opts.TimeoutMS > 0 {
		params["timeout"] = opts.TimeoutMS
	}
	if opts.WaitUntil != "" {
		params["waitUntil"] = opts.WaitUntil
	}
	raw, err := p.conn.SendMessage(ctx, p.owner.GUID(), "reload", params)
	if err != nil {
		return nil, fmt.Errorf("page: reload: %w", err)
	}
	var result gotoResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("page: decode reload result: %w", err)
	}
	if result.Response == nil {
		return nil, nil
	}
	return p.conn.WaitForObject(ctx, result.Response.GUID, waitForResponseBudget)
}

// Close closes the page.
func (p *Page) Close(ctx context.Context) error {
	_, err := p.conn.SendMessage(ctx, p.owner.GUID(), "close", map[string]any{})
	return err
}

// BringToFront focuses the page's tab.
func (p *Page) BringToFront(ctx context.Context) error {
	_, err := p.conn.SendMessage(ctx, p.owner.GUID(), "bringToFront", map[string]any{})
	return err
}

// Title returns the page's document title.
func (p *Page) Title(ctx context.Context) (string, error) {
	raw, err := p.conn.SendMessage(ctx, p.owner.GUID(), "title", map[string]any{})
	if err != nil {
		return "", err
	}
	var result struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", err
	}
	return result.Value, nil
}

// QuerySelector delegates to the main frame.
func (p *Page) QuerySelector(ctx context.Context, selector string) (string, bool, error) {
	frame := &Frame{owner: ownerWithGUID(p.mainFrameGUID), conn: p.conn}
	return frame.QuerySelector(ctx, selector)
}

// QuerySelectorAll delegates to the main frame.
func (p *Page) QuerySelectorAll(ctx context.Context, selector string) ([]string, error) {
	frame := &Frame{owner: ownerWithGUID(p.mainFrameGUID), conn: p.conn}
	return frame.QuerySelectorAll(ctx, selector)
}

// Click delegates to the main frame.
func (p *Page) Click(ctx context.Context, selector string, timeoutMS int64) error {
	frame := &Frame{owner: ownerWithGUID(p.mainFrameGUID), conn: p.conn}
	return frame.Click(ctx, selector, timeoutMS)
}

// Fill delegates to the main frame.
func (p *Page) Fill(ctx context.Context, selector, value string, timeoutMS int64) error {
	frame := &Frame{owner: ownerWithGUID(p.mainFrameGUID), conn: p.conn}
	return frame.Fill(ctx, selector, value, timeoutMS)
}

// Locator returns a deferred selector handle; it does not query at call
// time. Auto-waiting semantics live in the driver, not here.
func (p *Page) Locator(selector string) Locator {
	return Locator{page: p, selector: selector}
}

// Locator is a deferred handle over a selector scoped to a page.
type Locator struct {
	page     *Page
	selector string
}

// Selector returns the locator's underlying selector text.
func (l Locator) Selector() string { return l.selector }

// ScreenshotOptions configures Page.Screenshot.
type ScreenshotOptions struct {
	Type      string // "png" (default) or "jpeg"
	TimeoutMS int64
	FullPage  bool
}

// Screenshot requests a PNG (by default) screenshot and decodes the driver's
// base64 payload.
func (p *Page) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	typ := opts.Type
	if typ == "" {
		typ = "png"
	}
	timeout := opts.TimeoutMS
	if timeout == 0 {
		timeout = defaultScreenshotTimeoutMS
	}
	raw, err := p.conn.SendMessage(ctx, p.owner.GUID(), "screenshot", map[string]any{
		"type":     typ,
		"timeout":  timeout,
		"fullPage": opts.FullPage,
	})
	if err != nil {
		return nil, fmt.Errorf("page: screenshot: %w", err)
	}
	var result struct {
		Binary []byte `json:"binary"` // encoding/json base64-decodes []byte automatically
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("page: decode screenshot result: %w", err)
	}
	return result.Binary, nil
}

// ScreenshotToFile wraps Screenshot and writes the bytes to disk.
func (p *Page) ScreenshotToFile(ctx context.Context, opts ScreenshotOptions, path string) error {
	data, err := p.Screenshot(ctx, opts)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// EvaluateRaw runs expression on the main frame and returns the raw
// wrapped-value JSON.
func (p *Page) EvaluateRaw(ctx context.Context, expression string) (json.RawMessage, error) {
	frame := &Frame{owner: ownerWithGUID(p.mainFrameGUID), conn: p.conn}
	return frame.EvaluateRaw(ctx, expression)
}

// EvaluateValue runs expression and decodes the wrapped result into a plain
// Go value via internal/evalue.
func (p *Page) EvaluateValue(ctx context.Context, expression string) (any, error) {
	raw, err := p.EvaluateRaw(ctx, expression)
	if err != nil {
		return nil, err
	}
	return evalue.Decode(raw)
}

// EvaluateJSON runs expression and returns the decoded value re-marshaled to
// JSON text.
func (p *Page) EvaluateJSON(ctx context.Context, expression string) (string, error) {
	v, err := p.EvaluateValue(ctx, expression)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Route registers a handler for requests whose URL matches pattern. Each
// registration triggers a fresh setNetworkInterceptionPatterns call with the
// full current pattern list.
func (p *Page) Route(ctx context.Context, pattern string, handler RouteHandler) (*Subscription, error) {
	id := nextHandlerID()
	p.routes.list.add(id, routeRegistration{pattern: pattern, handler: handler})

	if err := p.syncInterceptionPatterns(ctx); err != nil {
		p.routes.list.remove(id)
		return nil, err
	}

	sub := newSubscription(id, SourceRoute, func(rid uint64) bool {
		removed := p.routes.list.remove(rid)
		_ = p.syncInterceptionPatterns(context.Background())
		return removed
	})
	return sub, nil
}

func (p *Page) syncInterceptionPatterns(ctx context.Context) error {
	_, err := p.conn.SendMessage(ctx, p.owner.GUID(), "setNetworkInterceptionPatterns", map[string]any{
		"patterns": p.routes.patterns(),
	})
	return err
}

// OnDownload subscribes to new downloads.
func (p *Page) OnDownload(handler DownloadHandler) *Subscription {
	id := nextHandlerID()
	p.downloads.add(id, handler)
	return newSubscription(id, SourceDownload, p.downloads.remove)
}

// OnDialog subscribes to new dialogs.
func (p *Page) OnDialog(handler DialogHandler) *Subscription {
	id := nextHandlerID()
	p.dialogs.add(id, handler)
	return newSubscription(id, SourceDialog, p.dialogs.remove)
}

// OnConsole subscribes to console messages. The returned channel has the
// fixed 256-entry buffer described in spec §4.4/§5; lagged delivery drops
// the newest message and logs a warning rather than blocking the dispatcher.
func (p *Page) OnConsole() (<-chan ConsoleMessage, *Subscription) {
	recv := p.console.subscribe()
	id := nextHandlerID()
	sub := newSubscription(id, SourceConsole, func(uint64) bool {
		p.console.unsubscribe(recv)
		return true
	})
	return recv.ch, sub
}

// onEvent is the per-object event hook the connection dispatcher invokes.
func (p *Page) onEvent(method string, params json.RawMessage) {
	switch method {
	case "navigated":
		var payload struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(params, &payload); err == nil && payload.URL != "" {
			p.setURL(payload.URL)
		}
	case "route":
		p.handleRoute(params)
	case "download":
		p.handleDownload(params)
	case "dialog":
		p.handleDialog(params)
	case "console":
		p.console.publish(parseConsoleParams(params))
	default:
		logging.L().Debugw("page: unhandled event", "method", method)
	}
}

func (p *Page) handleRoute(params json.RawMessage) {
	guid, url := parseRouteEvent(params)
	obj, ok := p.conn.GetObject(guid)
	if !ok {
		logging.L().Debugw("page: route event for unknown route guid", "guid", guid)
		return
	}
	route, ok := obj.(*Route)
	if !ok {
		return
	}
	route.setURL(url)

	ctx := context.Background()
	if !p.routes.dispatch(ctx, route) {
		_ = route.Continue(ctx)
	}
}

func (p *Page) handleDownload(params json.RawMessage) {
	var payload struct {
		URL string `json:"url"`
	}
	_ = json.Unmarshal(params, &payload)

	for _, h := range p.downloads.snapshot() {
		h(context.Background(), &Download{conn: p.conn, URLValue: payload.URL})
	}
}

func (p *Page) handleDialog(params json.RawMessage) {
	var payload struct {
		GUID string `json:"guid"`
	}
	_ = json.Unmarshal(params, &payload)
	obj, ok := p.conn.GetObject(payload.GUID)
	if !ok {
		return
	}
	dialog, ok := obj.(*Dialog)
	if !ok {
		return
	}
	for _, h := range p.dialogs.snapshot() {
		h(context.Background(), dialog)
	}
}

// ownerWithGUID builds a lightweight channel.Owner wrapper solely to carry a
// GUID for outbound calls that target a frame by id without needing the full
// Frame object graph (used when Page forwards to its cached main-frame id).
func ownerWithGUID(guid string) *channel.Owner {
	return channel.NewOwner(nil, guid, "Frame", nil)
}
