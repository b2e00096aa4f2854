// Package telemetry tracks lightweight in-process counters for commands run
// and session acquisitions, surfaced by the "stats" command. No pack repo
// imports a metrics client directly (prometheus/client_golang shows up only
// as an indirect dependency of goadesign-goa-ai's tracing stack, never
// imported by application code itself), so this stays on sync/atomic rather
// than adding a direct dependency nothing in the corpus actually exercises.
package telemetry

import "sync/atomic"

// Counters is a process-wide set of monotonic counters. The zero value is
// ready to use.
type Counters struct {
	commandsRun      int64
	commandsFailed   int64
	sessionsAcquired int64
	sessionsFailed   int64
	byErrorCode      sync64Map
}

var global Counters

// Global returns the process-wide counters singleton.
func Global() *Counters { return &global }

// RecordCommand increments the command counter, and the error-code counter
// when code is non-empty.
func (c *Counters) RecordCommand(code string) {
	atomic.AddInt64(&c.commandsRun, 1)
	if code != "" {
		atomic.AddInt64(&c.commandsFailed, 1)
		c.byErrorCode.add(code)
	}
}

// RecordAcquisition increments the session-acquisition counter, and the
// failure counter when ok is false.
func (c *Counters) RecordAcquisition(ok bool) {
	atomic.AddInt64(&c.sessionsAcquired, 1)
	if !ok {
		atomic.AddInt64(&c.sessionsFailed, 1)
	}
}

// Snapshot is a point-in-time, JSON-friendly view of the counters.
type Snapshot struct {
	CommandsRun      int64            `json:"commandsRun"`
	CommandsFailed   int64            `json:"commandsFailed"`
	SessionsAcquired int64            `json:"sessionsAcquired"`
	SessionsFailed   int64            `json:"sessionsFailed"`
	ErrorsByCode     map[string]int64 `json:"errorsByCode,omitempty"`
}

// Snapshot reads the current counter values without resetting them.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		CommandsRun:      atomic.LoadInt64(&c.commandsRun),
		CommandsFailed:   atomic.LoadInt64(&c.commandsFailed),
		SessionsAcquired: atomic.LoadInt64(&c.sessionsAcquired),
		SessionsFailed:   atomic.LoadInt64(&c.sessionsFailed),
		ErrorsByCode:     c.byErrorCode.snapshot(),
	}
}
