// console.go — console message type and bounded broadcast delivery.
package objects

import (
	"encoding/json"
	"sync"

	"github.com/dev-console/pwgo/internal/logging"
)

// ConsoleKind enumerates the recognized browser console message types.
type ConsoleKind int

const (
	ConsoleLog ConsoleKind = iota
	ConsoleDebug
	ConsoleInfo
	ConsoleWarning
	ConsoleError
	ConsoleDir
	ConsoleDirXML
	ConsoleTable
	ConsoleTrace
	ConsoleClear
	ConsoleCount
	ConsoleAssert
	ConsoleProfile
	ConsoleProfileEnd
	ConsoleTimeEnd
	ConsoleOther
)

var consoleKindByWireTag = map[string]ConsoleKind{
	"log":        ConsoleLog,
	"debug":      ConsoleDebug,
	"info":       ConsoleInfo,
	"warning":    ConsoleWarning,
	"error":      ConsoleError,
	"dir":        ConsoleDir,
	"dirxml":     ConsoleDirXML,
	"table":      ConsoleTable,
	"trace":      ConsoleTrace,
	"clear":      ConsoleClear,
	"count":      ConsoleCount,
	"assert":     ConsoleAssert,
	"profile":    ConsoleProfile,
	"profileEnd": ConsoleProfileEnd,
	"timeEnd":    ConsoleTimeEnd,
}

var consoleKindNames = [...]string{
	"log", "debug", "info", "warning", "error", "dir", "dirxml", "table",
	"trace", "clear", "count", "assert", "profile", "profileEnd", "timeEnd", "other",
}

// String renders the wire tag for k, or "other" for an unrecognized kind.
func (k ConsoleKind) String() string {
	if int(k) >= 0 && int(k) < len(consoleKindNames) {
		return consoleKindNames[k]
	}
	return "other"
}

func parseConsoleKind(tag string) ConsoleKind {
	if k, ok := consoleKindByWireTag[tag]; ok {
		return k
	}
	return ConsoleOther
}

// SourceLocation is the optional origin of a console message.
type SourceLocation struct {
	URL    string `json:"url"`
	Line   int    `json:"lineNumber"`
	Column int    `json:"columnNumber"`
}

// ConsoleMessage is one console event delivered to subscribers.
type ConsoleMessage struct {
	Kind     ConsoleKind
	Text     string
	Location *SourceLocation
}

const consoleBufferCapacity = 256

// consoleBroadcast fans console messages out to any number of receivers with
// a fixed-capacity buffer per receiver. Producers never block; when a
// lagging receiver's buffer is full, the new message is dropped for that
// receiver and its drop counter increments.
type consoleBroadcast struct {
	mu        sync.Mutex
	receivers map[*consoleReceiver]struct{}
}

type consoleReceiver struct {
	ch      chan ConsoleMessage
	dropped int
}

func newConsoleBroadcast() *consoleBroadcast {
	return &consoleBroadcast{receivers: make(map[*consoleReceiver]struct{})}
}

func (b *consoleBroadcast) subscribe() *consoleReceiver {
	r := &consoleReceiver{ch: make(chan ConsoleMessage, consoleBufferCapacity)}
	b.mu.Lock()
	b.receivers[r] = struct{}{}
	b.mu.Unlock()
	return r
}

func (b *consoleBroadcast) unsubscribe(r *consoleReceiver) {
	b.mu.Lock()
	delete(b.receivers, r)
	b.mu.Unlock()
}

func (b *consoleBroadcast) publish(msg ConsoleMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for r := range b.receivers {
		select {
		case r.ch <- msg:
		default:
			// Lagged receiver: drop the new message, not the backlog, to
			// preserve delivery order; count the loss and keep going.
			r.dropped++
			logging.L().Warnw("console broadcast: receiver lagging, dropping message", "dropped_total", r.dropped)
		}
	}
}

func parseConsoleParams(raw json.RawMessage) ConsoleMessage {
	var payload struct {
		Type     string          `json:"type"`
		Text     string          `json:"text"`
		Location *SourceLocation `json:"location"`
	}
	_ = json.Unmarshal(raw, &payload)
	return ConsoleMessage{
		Kind:     parseConsoleKind(payload.Type),
		Text:     payload.Text,
		Location: payload.Location,
	}
}
