// route.go — network interception: Route object, glob pattern registration,
// and reverse-order handler dispatch (most-recent registration wins).
package objects

import (
	"context"
	"encoding/json"

	"github.com/dev-console/pwgo/internal/channel"
	"github.com/dev-console/pwgo/internal/connection"
	"github.com/dev-console/pwgo/internal/glob"
	"github.com/dev-console/pwgo/internal/logging"
)

// Route represents one intercepted request, handed to the matching handler.
type Route struct {
	owner *channel.Owner
	conn  *connection.Connection
	url   string
}

// ChannelOwner implements connection.Object.
func (r *Route) ChannelOwner() *channel.Owner { return r.owner }

// URL returns the intercepted request's URL.
func (r *Route) URL() string { return r.url }

// setURL records the request URL carried by the "route" event payload; the
// Route's own __create__ initializer does not repeat it.
func (r *Route) setURL(url string) { r.url = url }

// Continue lets the request proceed unmodified.
func (r *Route) Continue(ctx context.Context) error {
	_, err := r.conn.SendMessage(ctx, r.owner.GUID(), "continue", map[string]any{})
	return err
}

// Fulfill completes the request with a synthetic response.
func (r *Route) Fulfill(ctx context.Context, status int, contentType string, body []byte) error {
	_, err := r.conn.SendMessage(ctx, r.owner.GUID(), "fulfill", map[string]any{
		"status":      status,
		"contentType": contentType,
		"body":        body,
	})
	return err
}

// Abort cancels the request.
func (r *Route) Abort(ctx context.Context, errorCode string) error {
	_, err := r.conn.SendMessage(ctx, r.owner.GUID(), "abort", map[string]any{"errorCode": errorCode})
	return err
}

// RouteHandler processes one intercepted request. A panic in a handler is
// recovered and logged by the dispatcher, which still reports the route as
// handled.
type RouteHandler func(ctx context.Context, route *Route)

type routeRegistration struct {
	pattern string
	handler RouteHandler
}

type routeTable struct {
	list *handlerList[routeRegistration]
}

func newRouteTable() *routeTable {
	return &routeTable{list: newHandlerList[routeRegistration]()}
}

// patterns returns every currently-registered glob pattern, in registration
// order, for use in setNetworkInterceptionPatterns.
func (t *routeTable) patterns() []string {
	regs := t.list.snapshot()
	out := make([]string, 0, len(regs))
	for _, r := range regs {
		out = append(out, r.pattern)
	}
	return out
}

// dispatch finds the most-recently-registered handler whose pattern matches
// route's URL and invokes it. If no handler matches, the route is left
// unhandled: the caller (Page's "route" event hook) continues it by default
// so the driver does not hang the request.
func (t *routeTable) dispatch(ctx context.Context, route *Route) bool {
	for _, reg := range t.list.snapshotReverse() {
		if glob.Match(reg.pattern, route.url) {
			func() {
				defer func() {
					if r := recover(); r != nil {
						logging.L().Errorw("route handler panicked", "pattern", reg.pattern, "panic", r)
					}
				}()
				reg.handler(ctx, route)
			}()
			return true
		}
	}
	return false
}

// routeEventPayload is the shape of a Page "route" event: a reference to the
// already-registered Route channel object plus the intercepted request.
type routeEventPayload struct {
	Route struct {
		GUID string `json:"guid"`
	} `json:"route"`
	Request struct {
		URL string `json:"url"`
	} `json:"request"`
}

func parseRouteEvent(raw json.RawMessage) (guid, url string) {
	var payload routeEventPayload
	_ = json.Unmarshal(raw, &payload)
	return payload.Route.GUID, payload.Request.URL
}
