package evalue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want any
	}{
		{"string", `{"s":"hello"}`, "hello"},
		{"number", `{"n":42}`, float64(42)},
		{"bool true", `{"b":true}`, true},
		{"bool false", `{"b":false}`, false},
		{"null sentinel", `{"v":"null"}`, nil},
		{"undefined sentinel", `{"v":"undefined"}`, nil},
		{"NaN sentinel", `{"v":"NaN"}`, nil},
		{"negative zero sentinel", `{"v":"-0"}`, float64(0)},
		{"empty array", `{"a":[]}`, []any{}},
		{"array of numbers", `{"a":[{"n":1},{"n":2}]}`, []any{float64(1), float64(2)}},
		{"nested object", `{"o":[{"k":"x","v":{"n":1}},{"k":"y","v":{"s":"z"}}]}`, map[string]any{"x": float64(1), "y": "z"}},
		{"date passthrough as string", `{"d":"2024-01-01T00:00:00.000Z"}`, "2024-01-01T00:00:00.000Z"},
		{"bigint passthrough as string", `{"bi":"12345678901234567890"}`, "12345678901234567890"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Decode(json.RawMessage(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecode_HandleIsNotSerializable(t *testing.T) {
	t.Parallel()
	_, err := Decode(json.RawMessage(`{"h":"handle@1"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, HandleError{})
}

func TestDecode_UnrecognizedSentinelErrors(t *testing.T) {
	t.Parallel()
	_, err := Decode(json.RawMessage(`{"v":"Symbol"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized sentinel")
}

func TestDecode_UntaggedValuePassesThrough(t *testing.T) {
	t.Parallel()
	got, err := Decode(json.RawMessage(`{"unrelated":true}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"unrelated": true}, got)
}

func TestDecode_DoesNotConfuseUserObjectKeyWithValueTag(t *testing.T) {
	t.Parallel()
	// A wrapped object whose single field happens to be named "v" must still
	// decode via the "o" shape, not be misread as a sentinel wrapper.
	got, err := Decode(json.RawMessage(`{"o":[{"k":"v","v":{"s":"not a sentinel"}}]}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"v": "not a sentinel"}, got)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	values := []any{
		"hello",
		float64(3.5),
		true,
		false,
		nil,
		[]any{float64(1), "two", false},
		map[string]any{"a": float64(1), "b": "two"},
	}

	for _, v := range values {
		enc, err := Encode(v)
		require.NoError(t, err)
		got, err := Decode(enc)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestEncode_RejectsUnsupportedType(t *testing.T) {
	t.Parallel()
	_, err := Encode(struct{ X int }{X: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot encode value of type")
}
