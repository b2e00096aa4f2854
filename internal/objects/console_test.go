package objects

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleKind_StringRendersWireTag(t *testing.T) {
	t.Parallel()
	cases := map[ConsoleKind]string{
		ConsoleLog:     "log",
		ConsoleWarning: "warning",
		ConsoleError:   "error",
		ConsoleTimeEnd: "timeEnd",
		ConsoleOther:   "other",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}

func TestConsoleKind_StringOutOfRangeFallsBackToOther(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "other", ConsoleKind(999).String())
	assert.Equal(t, "other", ConsoleKind(-1).String())
}

func TestParseConsoleKind_RecognizesEveryWireTag(t *testing.T) {
	t.Parallel()
	for tag, want := range consoleKindByWireTag {
		assert.Equal(t, want, parseConsoleKind(tag))
	}
}

func TestParseConsoleKind_UnrecognizedTagYieldsOther(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ConsoleOther, parseConsoleKind("nonsense"))
}

func TestParseConsoleParams_ExtractsKindTextAndLocation(t *testing.T) {
	t.Parallel()
	raw := json.RawMessage(`{"type":"warning","text":"deprecated api","location":{"url":"https://example.com/a.js","lineNumber":12,"columnNumber":4}}`)
	msg := parseConsoleParams(raw)
	assert.Equal(t, ConsoleWarning, msg.Kind)
	assert.Equal(t, "deprecated api", msg.Text)
	if assert.NotNil(t, msg.Location) {
		assert.Equal(t, "https://example.com/a.js", msg.Location.URL)
		assert.Equal(t, 12, msg.Location.Line)
	}
}

func TestParseConsoleParams_MissingLocationIsNil(t *testing.T) {
	t.Parallel()
	msg := parseConsoleParams(json.RawMessage(`{"type":"log","text":"hi"}`))
	assert.Nil(t, msg.Location)
}

func TestConsoleBroadcast_DeliversToAllSubscribers(t *testing.T) {
	t.Parallel()
	b := newConsoleBroadcast()
	r1 := b.subscribe()
	r2 := b.subscribe()
	defer b.unsubscribe(r1)
	defer b.unsubscribe(r2)

	b.publish(ConsoleMessage{Kind: ConsoleLog, Text: "hello"})

	msg1 := <-r1.ch
	msg2 := <-r2.ch
	assert.Equal(t, "hello", msg1.Text)
	assert.Equal(t, "hello", msg2.Text)
}

func TestConsoleBroadcast_UnsubscribeStopsFurtherDelivery(t *testing.T) {
	t.Parallel()
	b := newConsoleBroadcast()
	r := b.subscribe()
	b.unsubscribe(r)

	b.publish(ConsoleMessage{Kind: ConsoleLog, Text: "after unsubscribe"})

	select {
	case <-r.ch:
		t.Fatal("unsubscribed receiver must not get further messages")
	default:
	}
}

func TestConsoleBroadcast_LaggingReceiverDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()
	b := newConsoleBroadcast()
	r := b.subscribe()
	defer b.unsubscribe(r)

	for i := 0; i < consoleBufferCapacity+5; i++ {
		b.publish(ConsoleMessage{Kind: ConsoleLog, Text: "x"})
	}

	assert.Equal(t, 5, r.dropped)
	assert.Len(t, r.ch, consoleBufferCapacity)
}
