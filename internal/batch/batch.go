// Package batch implements the NDJSON batch runner described in spec §4.8/
// §6: read one JSON command object per line from stdin, dispatch it through
// the catalog, and write one envelope per line to stdout. The loop cycles
// through four states — Idle (waiting on the next line), Dispatching
// (running the resolved command), Writing (emitting its envelope), and back
// to Idle — until a line names "quit"/"exit" or the reader is exhausted,
// at which point it moves to Terminating and returns.
package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dev-console/pwgo/internal/catalog"
	pwcontext "github.com/dev-console/pwgo/internal/context"
	"github.com/dev-console/pwgo/internal/envelope"
	"github.com/dev-console/pwgo/internal/logging"
	"github.com/google/uuid"
)

// inbound is one line of the batch protocol's request shape.
type inbound struct {
	ID      *string         `json:"id,omitempty"`
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
	Context string          `json:"context,omitempty"`
}

// Runner drives one batch session: a fixed catalog and context store shared
// across every line, plus the project-scope details Env resolution needs.
type Runner struct {
	Catalog       *catalog.Catalog
	ExecCtx       *catalog.ExecContext
	Store         *pwcontext.Store
	ProjectRoot   string
	ProjectScoped bool
}

const maxLineBytes = 10 << 20 // 10 MiB, generous for a single command line

// Run reads NDJSON commands from in and writes one envelope per line to out,
// until a quit/exit command is read or in is exhausted. It never returns an
// error for a malformed or failing command line — those become PARSE_ERROR
// or error envelopes — only for an I/O failure on the writer or a read
// error from in (including a line longer than maxLineBytes).
func (r *Runner) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	writer := bufio.NewWriter(out)
	defer writer.Flush()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		env, terminate := r.dispatchLine(ctx, line)
		if err := writeEnvelope(writer, env); err != nil {
			return err
		}
		if terminate {
			break
		}
	}
	return scanner.Err()
}

// dispatchLine handles one line end to end: parse, control-command check,
// catalog dispatch, context persistence. terminate is true only for
// quit/exit.
func (r *Runner) dispatchLine(ctx context.Context, line string) (envelope.Envelope, bool) {
	var req inbound
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return envelope.ParseErrorEnvelope(fmt.Sprintf("invalid JSON: %v", err)), false
	}
	if req.Command == "" {
		return envelope.ParseErrorEnvelope("missing \"command\" field"), false
	}

	id := ""
	if req.ID != nil {
		id = *req.ID
	} else {
		id = uuid.NewString()
	}
	started := startTime()
	builder := envelope.New(req.Command, id, started)

	switch req.Command {
	case "ping":
		return builder.WithData(map[string]any{"pong": true}).Build(), false
	case "quit", "exit":
		return builder.WithData(map[string]any{"terminating": true}).Build(), true
	}

	now := time.Now()
	name, stored, refresh := r.Store.Select(req.Context, r.ProjectRoot, now)
	env := &pwcontext.Env{Ctx: stored, HasCDP: stored.CDPEndpoint != "", Refreshed: refresh, CommandName: req.Command}

	data, update, inputs, err := r.Catalog.Run(ctx, req.Command, req.Args, catalog.ModeBatch, r.ExecCtx, env)
	builder = builder.WithInputs(inputs)
	if err != nil {
		code, msg := classifyDispatchError(err)
		var artifacts []envelope.Artifact
		if r.ExecCtx.Session != nil {
			artifacts = r.ExecCtx.Session.CollectFailureArtifacts(ctx, r.ExecCtx.ArtifactsDir, req.Command)
		}
		for _, a := range artifacts {
			builder.AddArtifact(a)
		}
		return builder.WithError(code, msg, nil).Build(), false
	}

	if update != nil {
		if perr := r.Store.Persist(name, r.ProjectRoot, update, r.ProjectScoped, now); perr != nil {
			logging.L().Warnw("batch: failed to persist context update", "context", name, "error", perr)
		}
	}

	return builder.WithData(data).Build(), false
}

// classifyDispatchError maps a catalog-level error to an envelope code,
// preferring the pre-classified catalog.DispatchError shape and falling back
// to INTERNAL_ERROR for anything unexpected.
func classifyDispatchError(err error) (envelope.Code, string) {
	if de, ok := err.(*catalog.DispatchError); ok {
		return envelope.Code(de.Code), de.Message
	}
	return envelope.InternalError, err.Error()
}

func writeEnvelope(w *bufio.Writer, env envelope.Envelope) error {
	data, err := envelope.Marshal(env)
	if err != nil {
		return fmt.Errorf("batch: marshal envelope: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}

// startTime is split out so a future clock-injection need (tests driving
// duration_ms deterministically) has one place to hook.
func startTime() time.Time { return time.Now() }
