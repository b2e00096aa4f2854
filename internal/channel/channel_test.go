package channel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOwner_RegistersWithParent(t *testing.T) {
	t.Parallel()
	parent := NewOwner(nil, "parent@1", "BrowserContext", nil)
	child := NewOwner(parent, "child@1", "Page", json.RawMessage(`{"url":"about:blank"}`))

	assert.Equal(t, parent, child.Parent())
	assert.Equal(t, "child@1", child.GUID())
	assert.Equal(t, "Page", child.Type())
	require.Len(t, parent.Children(), 1)
	assert.Equal(t, child, parent.Children()[0])
}

func TestHandleEvent_InvokesInstalledHandlerUnlessDisposed(t *testing.T) {
	t.Parallel()
	o := NewOwner(nil, "g1", "Page", nil)

	var gotMethod string
	var gotParams json.RawMessage
	o.SetEventHandler(func(method string, params json.RawMessage) {
		gotMethod = method
		gotParams = params
	})

	o.HandleEvent("console", json.RawMessage(`{"text":"hi"}`))
	assert.Equal(t, "console", gotMethod)
	assert.JSONEq(t, `{"text":"hi"}`, string(gotParams))

	o.Dispose(DisposeClosed)
	gotMethod = ""
	o.HandleEvent("console", json.RawMessage(`{}`))
	assert.Empty(t, gotMethod, "a disposed object must not invoke its event handler")
}

func TestAdopt_MovesBetweenParents(t *testing.T) {
	t.Parallel()
	oldParent := NewOwner(nil, "old@1", "BrowserContext", nil)
	newParent := NewOwner(nil, "new@1", "BrowserContext", nil)
	child := NewOwner(oldParent, "child@1", "Page", nil)

	require.Len(t, oldParent.Children(), 1)
	assert.Empty(t, newParent.Children())

	child.Adopt(newParent)

	assert.Empty(t, oldParent.Children())
	require.Len(t, newParent.Children(), 1)
	assert.Equal(t, newParent, child.Parent())
}

func TestDispose_CascadesToChildrenAndDetachesFromParent(t *testing.T) {
	t.Parallel()
	parent := NewOwner(nil, "parent@1", "BrowserContext", nil)
	child := NewOwner(parent, "child@1", "Page", nil)
	grandchild := NewOwner(child, "grandchild@1", "Frame", nil)

	var disposedReasons []DisposeReason
	child.SetDisposeHandler(func(reason DisposeReason) { disposedReasons = append(disposedReasons, reason) })
	grandchild.SetDisposeHandler(func(reason DisposeReason) { disposedReasons = append(disposedReasons, reason) })

	child.Dispose(DisposeGC)

	assert.True(t, child.IsDisposed())
	assert.True(t, grandchild.IsDisposed())
	assert.Empty(t, parent.Children(), "disposing a child must detach it from its parent")
	assert.ElementsMatch(t, []DisposeReason{DisposeGC, DisposeGC}, disposedReasons)
}

func TestDispose_IsIdempotent(t *testing.T) {
	t.Parallel()
	o := NewOwner(nil, "g1", "Page", nil)

	calls := 0
	o.SetDisposeHandler(func(reason DisposeReason) { calls++ })

	o.Dispose(DisposeClosed)
	o.Dispose(DisposeClosed)
	assert.Equal(t, 1, calls, "dispose handler must run exactly once")
}

func TestInitializer_ReturnsStoredBlob(t *testing.T) {
	t.Parallel()
	o := NewOwner(nil, "g1", "Page", json.RawMessage(`{"url":"about:blank"}`))
	assert.JSONEq(t, `{"url":"about:blank"}`, string(o.Initializer()))
}
