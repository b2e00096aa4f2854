package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-console/pwgo/internal/catalog"
	"github.com/dev-console/pwgo/internal/envelope"
	"github.com/dev-console/pwgo/internal/strategy"
)

func TestCommandArgsJSON_NoArgsYieldsEmptyObject(t *testing.T) {
	t.Parallel()
	raw, err := commandArgsJSON(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestCommandArgsJSON_ParsesStringIntAndBoolValues(t *testing.T) {
	t.Parallel()
	raw, err := commandArgsJSON([]string{"--selector", "#go", "--timeout", "1500", "--fullPage", "true"})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "#go", decoded["selector"])
	assert.Equal(t, float64(1500), decoded["timeout"])
	assert.Equal(t, true, decoded["fullPage"])
}

func TestCommandArgsJSON_FlagWithNoValueAtEndBecomesBoolTrue(t *testing.T) {
	t.Parallel()
	raw, err := commandArgsJSON([]string{"--fullPage"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fullPage":true}`, string(raw))
}

func TestCommandArgsJSON_FlagFollowedByAnotherFlagBecomesBoolTrue(t *testing.T) {
	t.Parallel()
	raw, err := commandArgsJSON([]string{"--fullPage", "--selector", "#go"})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, true, decoded["fullPage"])
	assert.Equal(t, "#go", decoded["selector"])
}

func TestCommandArgsJSON_RejectsPositionalArgument(t *testing.T) {
	t.Parallel()
	_, err := commandArgsJSON([]string{"notaflag"})
	require.Error(t, err)
}

func TestBrowserKindFromFlag_RecognizesEachBrowser(t *testing.T) {
	t.Parallel()
	assert.Equal(t, strategy.Firefox, browserKindFromFlag("firefox"))
	assert.Equal(t, strategy.WebKit, browserKindFromFlag("webkit"))
	assert.Equal(t, strategy.Chromium, browserKindFromFlag("chromium"))
}

func TestBrowserKindFromFlag_UnrecognizedDefaultsToChromium(t *testing.T) {
	t.Parallel()
	assert.Equal(t, strategy.Chromium, browserKindFromFlag("nonsense"))
}

func TestClassifyError_DispatchErrorPreservesCodeAndMessage(t *testing.T) {
	t.Parallel()
	code, msg := classifyError(&catalog.DispatchError{Code: "SELECTOR_NOT_FOUND", Message: "no match"})
	assert.Equal(t, envelope.Code("SELECTOR_NOT_FOUND"), code)
	assert.Equal(t, "no match", msg)
}

func TestClassifyError_PlainErrorBecomesInternalError(t *testing.T) {
	t.Parallel()
	code, msg := classifyError(assert.AnError)
	assert.Equal(t, envelope.InternalError, code)
	assert.Equal(t, assert.AnError.Error(), msg)
}
