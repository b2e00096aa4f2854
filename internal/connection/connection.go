// Package connection implements the Playwright driver connection: request/
// response correlation, event demultiplexing, the GUID → object registry,
// and object lifecycle driven by __create__/__dispose__/__adopt__ events.
package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dev-console/pwgo/internal/channel"
	"github.com/dev-console/pwgo/internal/logging"
	"github.com/dev-console/pwgo/internal/wire"
)

// Object is implemented by every protocol object so the connection can
// locate its embedded channel.Owner without a type switch.
type Object interface {
	ChannelOwner() *channel.Owner
}

// Factory turns a __create__ event into a typed Object. parent is nil only
// when typeName is the top-level Playwright object.
type Factory func(parent *channel.Owner, typeName, guid string, initializer json.RawMessage) (Object, error)

// pendingSlot is the single-shot completion record for one in-flight request.
type pendingSlot struct {
	resultCh chan json.RawMessage
	errCh    chan error
	once     sync.Once
}

func newPendingSlot() *pendingSlot {
	return &pendingSlot{
		resultCh: make(chan json.RawMessage, 1),
		errCh:    make(chan error, 1),
	}
}

func (p *pendingSlot) resolve(result json.RawMessage) {
	p.once.Do(func() { p.resultCh <- result })
}

func (p *pendingSlot) reject(err error) {
	p.once.Do(func() { p.errCh <- err })
}

// Connection is the virtual root of the channel-owner tree; it owns only
// the top-level Playwright object.
type Connection struct {
	transport *wire.Transport
	factory   Factory

	mu       sync.Mutex
	nextID   uint32
	pending  map[uint32]*pendingSlot
	registry map[string]Object
	root     *channel.Owner

	notifyMu sync.Mutex
	notifyCh chan struct{} // closed and replaced on every registry mutation

	done chan struct{}
}

// New constructs a Connection bound to transport. SetFactory must be called
// before Dispatch begins consuming __create__ events.
func New(transport *wire.Transport) *Connection {
	c := &Connection{
		transport: transport,
		pending:   make(map[uint32]*pendingSlot),
		registry:  make(map[string]Object),
		root:      channel.NewOwner(nil, "", "Connection", nil),
		notifyCh:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	return c
}

// SetFactory installs the hook used to materialize __create__ events. Must
// be set before Run begins dispatching; a __create__ event that arrives
// while no factory is set is logged as an error and dropped.
func (c *Connection) SetFactory(f Factory) {
	c.mu.Lock()
	c.factory = f
	c.mu.Unlock()
}

func (c *Connection) allocateID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	return c.nextID
}

// SendMessage allocates the next request ID, registers a pending completion
// slot, and enqueues a request frame. The returned context cancellation (via
// ctx.Done firing before completion) acts as the RAII cancellation guard:
// the slot is removed from the pending map and no late response can resolve
// it.
func (c *Connection) SendMessage(ctx context.Context, guid, method string, params any) (json.RawMessage, error) {
	id := c.allocateID()
	slot := newPendingSlot()

	c.mu.Lock()
	c.pending[id] = slot
	c.mu.Unlock()

	cleanup := func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("connection: marshal params: %w", err)
	}

	internal := false
	req := wire.Request{
		ID:     id,
		GUID:   guid,
		Method: method,
		Params: paramsJSON,
		Metadata: wire.Metadata{
			WallTimeMS: time.Now().UnixMilli(),
			Internal:   &internal,
		},
	}

	if err := c.transport.Send(req); err != nil {
		cleanup()
		return nil, fmt.Errorf("connection: send request: %w", err)
	}

	select {
	case result := <-slot.resultCh:
		return result, nil
	case err := <-slot.errCh:
		cleanup()
		return nil, err
	case <-ctx.Done():
		cleanup()
		return nil, ctx.Err()
	case <-c.done:
		cleanup()
		return nil, &ProtocolError{Msg: "connection closed"}
	}
}

// RegisterObject adds obj to the registry keyed by its GUID and notifies any
// waiters blocked in WaitForObject.
func (c *Connection) RegisterObject(obj Object) {
	guid := obj.ChannelOwner().GUID()
	c.mu.Lock()
	c.registry[guid] = obj
	c.mu.Unlock()
	c.notifyAll()
}

// UnregisterObject removes guid from the registry.
func (c *Connection) UnregisterObject(guid string) {
	c.mu.Lock()
	delete(c.registry, guid)
	c.mu.Unlock()
	c.notifyAll()
}

// GetObject looks up a live object by GUID.
func (c *Connection) GetObject(guid string) (Object, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	obj, ok := c.registry[guid]
	return obj, ok
}

func (c *Connection) notifyAll() {
	c.notifyMu.Lock()
	close(c.notifyCh)
	c.notifyCh = make(chan struct{})
	c.notifyMu.Unlock()
}

func (c *Connection) notifyChan() chan struct{} {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	return c.notifyCh
}

// WaitForObject blocks until an object with the given GUID is registered or
// timeout elapses. It waits on the registry's notification source rather
// than polling, re-checking the registry on every notification.
func (c *Connection) WaitForObject(ctx context.Context, guid string, timeout time.Duration) (Object, error) {
	if obj, ok := c.GetObject(guid); ok {
		return obj, nil
	}

	deadline := time.After(timeout)
	for {
		wake := c.notifyChan()
		select {
		case <-wake:
			if obj, ok := c.GetObject(guid); ok {
				return obj, nil
			}
		case <-deadline:
			return nil, &TimeoutError{Expected: typeFromGUID(guid)}
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.done:
			return nil, &ProtocolError{Msg: "connection closed"}
		}
	}
}

// Root returns the virtual root owner (the Connection itself as a channel
// owner, parenting only the top-level Playwright object).
func (c *Connection) Root() *channel.Owner { return c.root }

// WaitForObjectType blocks until an object of the given type name appears in
// the registry (the top-level Playwright object and its BrowserType
// children arrive unprompted as soon as the driver starts, with guids this
// caller cannot predict in advance, so it must search by type instead of by
// guid).
func (c *Connection) WaitForObjectType(ctx context.Context, typeName string, timeout time.Duration) (Object, error) {
	if obj, ok := c.findByType(typeName); ok {
		return obj, nil
	}

	deadline := time.After(timeout)
	for {
		wake := c.notifyChan()
		select {
		case <-wake:
			if obj, ok := c.findByType(typeName); ok {
				return obj, nil
			}
		case <-deadline:
			return nil, &TimeoutError{Expected: typeName}
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.done:
			return nil, &ProtocolError{Msg: "connection closed"}
		}
	}
}

func (c *Connection) findByType(typeName string) (Object, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, obj := range c.registry {
		if obj.ChannelOwner().Type() == typeName {
			return obj, true
		}
	}
	return nil, false
}

// Run consumes inbound frames from the transport until it closes, dispatching
// each to the appropriate handler. Dispatch is single-threaded: within a
// single GUID, events are delivered in arrival order; across GUIDs ordering
// is unspecified because the driver may interleave independent objects'
// events in its own emission order.
func (c *Connection) Run() {
	defer close(c.done)
	for payload := range c.transport.Inbound() {
		c.dispatch(payload)
	}
}

func (c *Connection) dispatch(payload []byte) {
	kind, resp, ev := wire.Classify(payload)
	switch kind {
	case wire.KindResponse:
		c.dispatchResponse(resp)
	case wire.KindEvent:
		c.dispatchEvent(ev)
	default:
		logging.L().Debugw("connection: unknown frame shape, ignoring", "raw", string(payload))
	}
}

func (c *Connection) dispatchResponse(resp wire.Response) {
	c.mu.Lock()
	slot, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.mu.Unlock()

	if !ok {
		// The issuing future may have been cancelled already; this is a
		// warning, not a fatal condition.
		logging.L().Debugw("connection: response for unknown request id, ignoring", "id", resp.ID)
		return
	}

	if resp.Error != nil {
		slot.reject(&RemoteError{
			Name:    resp.Error.Error.Name,
			Message: resp.Error.Error.Message,
			Stack:   resp.Error.Error.Stack,
		})
		return
	}
	slot.resolve(resp.Result)
}

func (c *Connection) dispatchEvent(ev wire.Event) {
	switch ev.Method {
	case wire.MethodCreate:
		c.handleCreate(ev)
	case wire.MethodDispose:
		c.handleDispose(ev)
	case wire.MethodAdopt:
		c.handleAdopt(ev)
	default:
		obj, ok := c.GetObject(ev.GUID)
		if !ok {
			// Out-of-order arrival is expected: objects may be disposed
			// before all their events drain.
			logging.L().Debugw("connection: event for unknown guid, ignoring", "guid", ev.GUID, "method", ev.Method)
			return
		}
		obj.ChannelOwner().HandleEvent(ev.Method, ev.Params)
	}
}

func (c *Connection) handleCreate(ev wire.Event) {
	var params wire.CreateParams
	if err := json.Unmarshal(ev.Params, &params); err != nil {
		logging.L().Warnw("connection: malformed __create__ params", "error", err)
		return
	}

	var parentOwner *channel.Owner
	if ev.GUID == "" {
		parentOwner = c.root
	} else {
		parentObj, ok := c.GetObject(ev.GUID)
		if !ok {
			logging.L().Errorw("connection: __create__ names unknown parent", "parent_guid", ev.GUID, "type", params.Type)
			return
		}
		parentOwner = parentObj.ChannelOwner()
	}

	c.mu.Lock()
	factory := c.factory
	c.mu.Unlock()
	if factory == nil {
		logging.L().Errorw("connection: __create__ received before factory was set", "type", params.Type)
		return
	}

	obj, err := factory(parentOwner, params.Type, params.GUID, params.Initializer)
	if err != nil {
		logging.L().Errorw("connection: factory failed", "type", params.Type, "error", err)
		return
	}
	c.RegisterObject(obj)
}

func (c *Connection) handleDispose(ev wire.Event) {
	obj, ok := c.GetObject(ev.GUID)
	if !ok {
		// Already gone; ignore.
		return
	}
	var params wire.DisposeParams
	_ = json.Unmarshal(ev.Params, &params)

	reason := channel.DisposeClosed
	if params.Reason == "gc" {
		reason = channel.DisposeGC
	}
	// Snapshot descendants before Dispose clears each owner's child set, so
	// the whole subtree can be unregistered, not just the top-level GUID.
	c.unregisterSubtree(obj.ChannelOwner())
	obj.ChannelOwner().Dispose(reason)
}

// unregisterSubtree removes root and every transitive descendant from the
// connection registry. Disposing a parent must make its children likewise
// unreachable via GetObject, not just mark them disposed.
func (c *Connection) unregisterSubtree(root *channel.Owner) {
	// Already removed: stops the walk if an adoption has made a cycle.
	if _, ok := c.GetObject(root.GUID()); !ok {
		return
	}
	c.UnregisterObject(root.GUID())
	for _, child := range root.Children() {
		c.unregisterSubtree(child)
	}
}

func (c *Connection) handleAdopt(ev wire.Event) {
	var params wire.AdoptParams
	if err := json.Unmarshal(ev.Params, &params); err != nil {
		logging.L().Warnw("connection: malformed __adopt__ params", "error", err)
		return
	}
	child, ok := c.GetObject(params.GUID)
	if !ok {
		logging.L().Debugw("connection: __adopt__ for unknown child, ignoring", "guid", params.GUID)
		return
	}
	newParent, ok := c.GetObject(ev.GUID)
	if !ok {
		logging.L().Debugw("connection: __adopt__ names unknown new parent, ignoring", "guid", ev.GUID)
		return
	}
	child.ChannelOwner().Adopt(newParent.ChannelOwner())
}
