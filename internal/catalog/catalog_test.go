package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pwcontext "github.com/dev-console/pwgo/internal/context"
)

func okHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	return map[string]any{"ok": true}, nil, nil, nil
}

func panickingHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	panic("boom")
}

func TestNew_RejectsDuplicateID(t *testing.T) {
	t.Parallel()
	_, err := New([]Entry{
		{ID: "navigate", CanonicalName: "navigate", Handler: okHandler},
		{ID: "navigate", CanonicalName: "navigate2", Handler: okHandler},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
}

func TestNew_RejectsDuplicateName(t *testing.T) {
	t.Parallel()
	_, err := New([]Entry{
		{ID: "navigate", CanonicalName: "go", Handler: okHandler},
		{ID: "click", CanonicalName: "go", Handler: okHandler},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registered more than once")
}

func TestNew_RejectsDuplicateAlias(t *testing.T) {
	t.Parallel()
	_, err := New([]Entry{
		{ID: "navigate", CanonicalName: "navigate", Aliases: []string{"nav"}, Handler: okHandler},
		{ID: "click", CanonicalName: "click", Aliases: []string{"nav"}, Handler: okHandler},
	})
	require.Error(t, err)
}

func TestNew_EnforcesGroupPrefix(t *testing.T) {
	t.Parallel()
	_, err := New([]Entry{
		{ID: "page.text", CanonicalName: "wrong.text", Handler: okHandler},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `does not start with "page."`)
}

func TestNew_AcceptsValidEntries(t *testing.T) {
	t.Parallel()
	cat, err := New([]Entry{
		{ID: "navigate", CanonicalName: "navigate", Handler: okHandler},
		{ID: "page.text", CanonicalName: "page.text", Handler: okHandler},
	})
	require.NoError(t, err)
	assert.Len(t, cat.Entries(), 2)
}

func TestLookup_ResolvesCanonicalNameAndAliases(t *testing.T) {
	t.Parallel()
	cat, err := New([]Entry{
		{ID: "navigate", CanonicalName: "navigate", Aliases: []string{"go", "nav"}, Handler: okHandler},
	})
	require.NoError(t, err)

	for _, name := range []string{"navigate", "go", "nav"} {
		e, ok := cat.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, "navigate", e.ID)
	}

	_, ok := cat.Lookup("unknown")
	assert.False(t, ok)
}

func TestRun_UnknownCommand(t *testing.T) {
	t.Parallel()
	cat, err := New(nil)
	require.NoError(t, err)

	_, _, _, err = cat.Run(context.Background(), "nope", nil, ModeInteractive, &ExecContext{}, &pwcontext.Env{Ctx: &pwcontext.Stored{}})
	require.Error(t, err)
	de, ok := err.(*DispatchError)
	require.True(t, ok)
	assert.Equal(t, "UNKNOWN_COMMAND", de.Code)
}

func TestRun_BatchModeRejectsInteractiveOnlyCommand(t *testing.T) {
	t.Parallel()
	cat, err := New([]Entry{
		{ID: "pick", CanonicalName: "pick", InteractiveOnly: true, BatchEnabled: false, Handler: okHandler},
	})
	require.NoError(t, err)

	_, _, _, err = cat.Run(context.Background(), "pick", nil, ModeBatch, &ExecContext{}, &pwcontext.Env{Ctx: &pwcontext.Stored{}})
	require.Error(t, err)
	de, ok := err.(*DispatchError)
	require.True(t, ok)
	assert.Equal(t, "UNSUPPORTED_MODE", de.Code)
}

func TestRun_BatchModeAllowsBatchEnabledCommand(t *testing.T) {
	t.Parallel()
	cat, err := New([]Entry{
		{ID: "navigate", CanonicalName: "navigate", BatchEnabled: true, Handler: okHandler},
	})
	require.NoError(t, err)

	data, _, _, err := cat.Run(context.Background(), "navigate", nil, ModeBatch, &ExecContext{}, &pwcontext.Env{Ctx: &pwcontext.Stored{}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, data)
}

func TestRun_RecoversHandlerPanicAsInternalError(t *testing.T) {
	t.Parallel()
	cat, err := New([]Entry{
		{ID: "navigate", CanonicalName: "navigate", BatchEnabled: true, Handler: panickingHandler},
	})
	require.NoError(t, err)

	data, update, _, err := cat.Run(context.Background(), "navigate", nil, ModeInteractive, &ExecContext{}, &pwcontext.Env{Ctx: &pwcontext.Stored{}})
	require.Error(t, err)
	assert.Nil(t, data)
	assert.Nil(t, update)
	de, ok := err.(*DispatchError)
	require.True(t, ok)
	assert.Equal(t, "INTERNAL_ERROR", de.Code)
	assert.Contains(t, de.Message, "boom")
}

func TestDefaultEntries_ConstructValidCatalog(t *testing.T) {
	t.Parallel()
	cat, err := New(DefaultEntries())
	require.NoError(t, err)
	for _, name := range []string{"navigate", "click", "fill", "wait", "screenshot", "page.text", "page.html", "page.eval", "auth.save", "auth.list", "stats"} {
		_, ok := cat.Lookup(name)
		assert.True(t, ok, name)
	}
}
