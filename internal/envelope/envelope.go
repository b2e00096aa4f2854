// Package envelope builds the per-invocation output envelope described in
// spec §4.9/§6: one JSON object per command, success or failure, with a
// fixed error-code taxonomy and optional failure artifacts.
package envelope

import (
	"encoding/json"
	"time"
)

// SchemaVersion is the envelope schema this build emits.
const SchemaVersion = 1

// Code is one of the fixed taxonomy of error codes.
type Code string

const (
	BrowserLaunchFailed Code = "BROWSER_LAUNCH_FAILED"
	NavigationFailed    Code = "NAVIGATION_FAILED"
	SelectorNotFound    Code = "SELECTOR_NOT_FOUND"
	SelectorAmbiguous   Code = "SELECTOR_AMBIGUOUS"
	Timeout             Code = "TIMEOUT"
	JSEvalFailed        Code = "JS_EVAL_FAILED"
	ScreenshotFailed    Code = "SCREENSHOT_FAILED"
	IOError             Code = "IO_ERROR"
	SessionError        Code = "SESSION_ERROR"
	InvalidInput        Code = "INVALID_INPUT"
	AuthError           Code = "AUTH_ERROR"
	UnsupportedMode     Code = "UNSUPPORTED_MODE"
	UnknownCommand      Code = "UNKNOWN_COMMAND"
	ParseError          Code = "PARSE_ERROR"
	InternalError       Code = "INTERNAL_ERROR"
)

// Error is the envelope's structured failure payload.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Timings records duration and optional sub-phase breakdowns.
type Timings struct {
	DurationMS   int64  `json:"duration_ms"`
	NavigationMS *int64 `json:"navigation_ms,omitempty"`
	WaitMS       *int64 `json:"wait_ms,omitempty"`
}

// Artifact describes one file written as part of failure diagnostics.
type Artifact struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Size int64  `json:"size,omitempty"`
}

// Envelope is the full per-invocation result.
type Envelope struct {
	SchemaVersion int            `json:"schemaVersion"`
	ID            string         `json:"id,omitempty"`
	OK            bool           `json:"ok"`
	Command       string         `json:"command"`
	Inputs        any            `json:"inputs,omitempty"`
	Data          any            `json:"data,omitempty"`
	Error         *Error         `json:"error,omitempty"`
	Timings       *Timings       `json:"timings,omitempty"`
	Artifacts     []Artifact     `json:"artifacts"`
	Diagnostics   []string       `json:"diagnostics"`
	Effective     map[string]any `json:"effectiveConfig,omitempty"`
}

// Builder accumulates an envelope across one command's execution, recording
// a start instant for duration_ms.
type Builder struct {
	command   string
	id        string
	startedAt time.Time

	inputs      any
	data        any
	errVal      *Error
	durationMS  *int64
	navMS       *int64
	waitMS      *int64
	artifacts   []Artifact
	diagnostics []string
	effective   map[string]any
}

// New starts a builder for command, stamping the start time used for the
// auto-filled duration unless OverrideDuration is called.
func New(command, id string, startedAt time.Time) *Builder {
	return &Builder{
		command:     command,
		id:          id,
		startedAt:   startedAt,
		artifacts:   []Artifact{},
		diagnostics: []string{},
	}
}

// WithInputs records the resolved inputs echoed back to the caller.
func (b *Builder) WithInputs(inputs any) *Builder { b.inputs = inputs; return b }

// WithData records the success payload.
func (b *Builder) WithData(data any) *Builder { b.data = data; return b }

// WithError records a failure.
func (b *Builder) WithError(code Code, message string, details any) *Builder {
	b.errVal = &Error{Code: code, Message: message, Details: details}
	return b
}

// WithNavigationMS records the navigation sub-phase duration.
func (b *Builder) WithNavigationMS(ms int64) *Builder { b.navMS = &ms; return b }

// WithWaitMS records the wait sub-phase duration.
func (b *Builder) WithWaitMS(ms int64) *Builder { b.waitMS = &ms; return b }

// OverrideDuration replaces the auto-computed duration.
func (b *Builder) OverrideDuration(ms int64) *Builder { b.durationMS = &ms; return b }

// AddArtifact appends one artifact descriptor.
func (b *Builder) AddArtifact(a Artifact) *Builder { b.artifacts = append(b.artifacts, a); return b }

// AddDiagnostic appends one free-text diagnostic line.
func (b *Builder) AddDiagnostic(msg string) *Builder { b.diagnostics = append(b.diagnostics, msg); return b }

// WithEffectiveConfig records the effective config snapshot for diagnostics.
func (b *Builder) WithEffectiveConfig(cfg map[string]any) *Builder { b.effective = cfg; return b }

// Build finalizes the envelope. ok is derived: true iff error is absent and
// data is present.
func (b *Builder) Build() Envelope {
	duration := b.durationMS
	if duration == nil {
		ms := time.Since(b.startedAt).Milliseconds()
		duration = &ms
	}

	ok := b.errVal == nil && b.data != nil

	return Envelope{
		SchemaVersion: SchemaVersion,
		ID:            b.id,
		OK:            ok,
		Command:       b.command,
		Inputs:        b.inputs,
		Data:          b.data,
		Error:         b.errVal,
		Timings: &Timings{
			DurationMS:   *duration,
			NavigationMS: b.navMS,
			WaitMS:       b.waitMS,
		},
		Artifacts:   b.artifacts,
		Diagnostics: b.diagnostics,
		Effective:   b.effective,
	}
}

// Marshal renders env as a single compact JSON line, as required by the
// NDJSON batch protocol.
func Marshal(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// ParseErrorEnvelope builds the fixed-shape envelope for a line that failed
// to parse at all: no id, command "unknown".
func ParseErrorEnvelope(detail string) Envelope {
	return Envelope{
		SchemaVersion: SchemaVersion,
		OK:            false,
		Command:       "unknown",
		Error:         &Error{Code: ParseError, Message: detail},
		Artifacts:     []Artifact{},
		Diagnostics:   []string{},
	}
}
