package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-console/pwgo/internal/broker"
	pwcontext "github.com/dev-console/pwgo/internal/context"
	"github.com/dev-console/pwgo/internal/telemetry"
)

// emptyEnv is a resolve-environment with nothing to fall back on, so a
// handler under test below that needs a URL or selector fails during
// argument resolution, before it would ever need a live broker.Session.
func emptyEnv(command string) *pwcontext.Env {
	return &pwcontext.Env{Ctx: &pwcontext.Stored{}, CommandName: command}
}

func TestResolveTarget_NoURLAnywhereIsInvalidInput(t *testing.T) {
	t.Parallel()
	_, err := resolveTarget(emptyEnv("navigate"), "")
	require.Error(t, err)
	de, ok := err.(*DispatchError)
	require.True(t, ok)
	assert.Equal(t, "INVALID_INPUT", de.Code)
}

func TestResolveTarget_CDPSessionWithNoURLYieldsCurrentPageTarget(t *testing.T) {
	t.Parallel()
	env := &pwcontext.Env{Ctx: &pwcontext.Stored{}, HasCDP: true}
	target, err := resolveTarget(env, "")
	require.NoError(t, err)
	assert.True(t, target.CurrentPage)
}

func TestResolveTarget_ExplicitURLResolvesToPlainTarget(t *testing.T) {
	t.Parallel()
	target, err := resolveTarget(emptyEnv("navigate"), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target.URL)
	assert.False(t, target.CurrentPage)
}

func TestTargetURLInput_CurrentPageRendersSentinel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, pwcontext.CurrentPageSentinel, targetURLInput(broker.Target{CurrentPage: true}))
}

func TestTargetURLInput_PlainTargetRendersURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "https://example.com", targetURLInput(broker.Target{URL: "https://example.com"}))
}

func TestNavigateHandler_InvalidJSONArgs(t *testing.T) {
	t.Parallel()
	_, _, _, err := navigateHandler(context.Background(), &ExecContext{}, json.RawMessage(`not json`), emptyEnv("navigate"))
	require.Error(t, err)
	de, ok := err.(*DispatchError)
	require.True(t, ok)
	assert.Equal(t, "INVALID_INPUT", de.Code)
}

func TestNavigateHandler_NoURLIsInvalidInputBeforeTouchingSession(t *testing.T) {
	t.Parallel()
	// execCtx.Session is nil; if the handler reached the broker it would
	// panic on a nil pointer dereference instead of returning this error.
	_, _, _, err := navigateHandler(context.Background(), &ExecContext{}, json.RawMessage(`{}`), emptyEnv("navigate"))
	require.Error(t, err)
	de, ok := err.(*DispatchError)
	require.True(t, ok)
	assert.Equal(t, "INVALID_INPUT", de.Code)
}

func TestClickHandler_MissingSelectorIsInvalidInput(t *testing.T) {
	t.Parallel()
	raw := json.RawMessage(`{"url":"https://example.com"}`)
	_, _, _, err := clickHandler(context.Background(), &ExecContext{}, raw, emptyEnv("click"))
	require.Error(t, err)
	de, ok := err.(*DispatchError)
	require.True(t, ok)
	assert.Equal(t, "INVALID_INPUT", de.Code)
}

func TestFillHandler_InvalidJSONArgs(t *testing.T) {
	t.Parallel()
	_, _, _, err := fillHandler(context.Background(), &ExecContext{}, json.RawMessage(`{bad`), emptyEnv("fill"))
	require.Error(t, err)
	de, ok := err.(*DispatchError)
	require.True(t, ok)
	assert.Equal(t, "INVALID_INPUT", de.Code)
}

func TestWaitHandler_MissingSelectorIsInvalidInput(t *testing.T) {
	t.Parallel()
	raw := json.RawMessage(`{"url":"https://example.com"}`)
	_, _, _, err := waitHandler(context.Background(), &ExecContext{}, raw, emptyEnv("wait"))
	require.Error(t, err)
	de, ok := err.(*DispatchError)
	require.True(t, ok)
	assert.Equal(t, "INVALID_INPUT", de.Code)
}

func TestPageEvalHandler_MissingExpressionIsInvalidInput(t *testing.T) {
	t.Parallel()
	_, _, _, err := pageEvalHandler(context.Background(), &ExecContext{}, json.RawMessage(`{"url":"https://example.com"}`), emptyEnv("page.eval"))
	require.Error(t, err)
	de, ok := err.(*DispatchError)
	require.True(t, ok)
	assert.Equal(t, "INVALID_INPUT", de.Code)
}

func TestAuthSaveHandler_MissingNameIsInvalidInput(t *testing.T) {
	t.Parallel()
	_, _, _, err := authSaveHandler(context.Background(), &ExecContext{}, json.RawMessage(`{}`), emptyEnv("auth.save"))
	require.Error(t, err)
	de, ok := err.(*DispatchError)
	require.True(t, ok)
	assert.Equal(t, "INVALID_INPUT", de.Code)
}

func TestAuthListHandler_DefaultsToConfiguredAuthDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PWGO_STATE_DIR", dir)

	data, update, _, err := authListHandler(context.Background(), &ExecContext{}, json.RawMessage(`{}`), emptyEnv("auth.list"))
	require.NoError(t, err)
	assert.Nil(t, update)
	out, ok := data.(map[string]any)
	require.True(t, ok)
	assert.Empty(t, out["entries"])
}

func TestAuthListHandler_UsesExplicitDirWhenGiven(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	raw, err := json.Marshal(map[string]string{"dir": dir})
	require.NoError(t, err)

	data, _, _, err := authListHandler(context.Background(), &ExecContext{}, raw, emptyEnv("auth.list"))
	require.NoError(t, err)
	out := data.(map[string]any)
	assert.Empty(t, out["entries"])
}

func TestStatsHandler_ReturnsTelemetrySnapshot(t *testing.T) {
	t.Parallel()
	data, update, _, err := statsHandler(context.Background(), &ExecContext{}, json.RawMessage(`{}`), emptyEnv("stats"))
	require.NoError(t, err)
	assert.Nil(t, update)
	_, ok := data.(telemetry.Snapshot)
	assert.True(t, ok)
}
