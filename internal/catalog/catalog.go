// Package catalog implements the command catalog and dispatch core
// described in spec §4.8: a declarative table of commands, each with a raw
// input type, a resolver binding ambiguous args against context state, and
// an executor driving the session broker.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dev-console/pwgo/internal/broker"
	pwcontext "github.com/dev-console/pwgo/internal/context"
	"github.com/dev-console/pwgo/internal/telemetry"
)

// ExecMode distinguishes the single-shot CLI front end from the NDJSON
// batch runner, since some commands are interactive-only or batch-only.
type ExecMode int

const (
	ModeInteractive ExecMode = iota
	ModeBatch
)

// Entry is one catalog row.
type Entry struct {
	ID              string
	CanonicalName   string
	Aliases         []string
	InteractiveOnly bool
	BatchEnabled    bool
	Handler         Handler
}

// Handler resolves raw JSON args against env and executes against sess,
// returning the data payload (success), the resolved inputs to echo back to
// the caller (may be nil), and any context update, or an error. DispatchError
// -typed errors carry a pre-classified envelope error code; any other error
// is treated as INTERNAL_ERROR by the caller.
type Handler func(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (data any, update *pwcontext.Stored, inputs any, err error)

// ExecContext carries everything a command executor needs beyond its
// resolved arguments.
type ExecContext struct {
	Session      *broker.Session
	ArtifactsDir string
}

// Catalog is the validated, constructed command table.
type Catalog struct {
	entries  map[string]*Entry
	byLookup map[string]*Entry // canonical names and aliases, jointly unique
}

// New validates entries per spec §4.8's generation invariants and returns a
// Catalog, or an error naming the first violation.
func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{entries: map[string]*Entry{}, byLookup: map[string]*Entry{}}
	for i := range entries {
		e := &entries[i]
		if _, exists := c.entries[e.ID]; exists {
			return nil, fmt.Errorf("catalog: duplicate id %q", e.ID)
		}
		c.entries[e.ID] = e

		names := append([]string{e.CanonicalName}, e.Aliases...)
		for _, n := range names {
			if _, exists := c.byLookup[n]; exists {
				return nil, fmt.Errorf("catalog: name %q registered more than once", n)
			}
			c.byLookup[n] = e
		}

		if groupPrefix := groupOf(e.ID); groupPrefix != "" && !strings.HasPrefix(e.CanonicalName, groupPrefix+".") {
			return nil, fmt.Errorf("catalog: entry %q has group id but canonical name %q does not start with %q", e.ID, e.CanonicalName, groupPrefix+".")
		}
	}
	return c, nil
}

// groupOf returns the group prefix of a dotted command id ("page.text" →
// "page"), or "" for a flat command.
func groupOf(id string) string {
	if idx := strings.Index(id, "."); idx >= 0 {
		return id[:idx]
	}
	return ""
}

// Lookup resolves a canonical name or alias to its entry.
func (c *Catalog) Lookup(name string) (*Entry, bool) {
	e, ok := c.byLookup[name]
	return e, ok
}

// Entries returns every registered entry, for building a CLI tree.
func (c *Catalog) Entries() []*Entry {
	out := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	return out
}

// Run implements the dispatch contract from spec §4.8. A handler panic is
// recovered and surfaced as INTERNAL_ERROR rather than killing the process,
// since a single bad command must never take down a batch session.
func (c *Catalog) Run(ctx context.Context, name string, argsJSON json.RawMessage, mode ExecMode, execCtx *ExecContext, env *pwcontext.Env) (data any, update *pwcontext.Stored, inputs any, err error) {
	entry, ok := c.Lookup(name)
	if !ok {
		return nil, nil, nil, &DispatchError{Code: "UNKNOWN_COMMAND", Message: fmt.Sprintf("unknown command %q", name)}
	}
	if mode == ModeBatch && (!entry.BatchEnabled || entry.InteractiveOnly) {
		return nil, nil, nil, &DispatchError{Code: "UNSUPPORTED_MODE", Message: fmt.Sprintf("%q is not available in batch mode", name)}
	}

	defer func() {
		if r := recover(); r != nil {
			data, update, inputs, err = nil, nil, nil, &DispatchError{Code: "INTERNAL_ERROR", Message: fmt.Sprintf("panic in %q: %v", name, r)}
		}
		code := ""
		if de, ok := err.(*DispatchError); ok {
			code = de.Code
		} else if err != nil {
			code = "INTERNAL_ERROR"
		}
		telemetry.Global().RecordCommand(code)
	}()
	return entry.Handler(ctx, execCtx, argsJSON, env)
}

// DispatchError is a structured dispatch-level failure, pre-classified by
// error code so callers can build an envelope without re-inspecting the
// message.
type DispatchError struct {
	Code    string
	Message string
}

func (e *DispatchError) Error() string { return e.Message }
