// main.go — Entry point for the pwgo CLI binary.
//
// Usage: pwgo <command> [args as --flag value] [--flags]
//        pwgo --batch   (reads NDJSON commands from stdin)
//
// Exit codes:
//   0 = success
//   1 = error (command failed)
//   2 = usage error (missing args, invalid flags, unknown command)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/dev-console/pwgo/internal/batch"
	"github.com/dev-console/pwgo/internal/broker"
	"github.com/dev-console/pwgo/internal/catalog"
	"github.com/dev-console/pwgo/internal/config"
	pwcontext "github.com/dev-console/pwgo/internal/context"
	"github.com/dev-console/pwgo/internal/driver"
	"github.com/dev-console/pwgo/internal/envelope"
	"github.com/dev-console/pwgo/internal/logging"
	"github.com/dev-console/pwgo/internal/strategy"
)

var version = "0.1.0"

const usageText = `pwgo — scriptable browser control

Usage:
  pwgo <command> [--flag value ...]
  pwgo --batch              Read NDJSON commands from stdin, one envelope per line
  pwgo --help               Show this help
  pwgo --version            Show version

Commands:
  navigate, click, fill, wait, screenshot
  page.text, page.html, page.eval, page.elements, page.snapshot,
  page.console, page.read, page.coords, page.coords_all
  auth.save, auth.list
  stats                     Report process-wide command/session counters

Global Flags:
  --namespace <name>        Session namespace (default: "default")
  --browser <chromium|firefox|webkit>
  --headless / --headed
  --cdp <endpoint>          Attach to an existing browser over CDP
  --context <name>          Named context to select (default: resolved automatically)
  --no-daemon               Skip the shared-daemon lease attempt
  --refresh                 Force a fresh session instead of reusing a descriptor
  --readable                Print a short human summary instead of the JSON envelope
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usageText)
		return 2
	}

	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Printf("pwgo %s\n", version)
			return 0
		}
		if a == "--help" || a == "-h" {
			fmt.Print(usageText)
			return 0
		}
		if a == "--batch" {
			return runBatch()
		}
	}

	commandName := args[0]
	remaining := args[1:]

	flags, remaining := extractGlobalFlags(remaining)
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine working directory: %v\n", err)
		return 1
	}

	cfg, err := config.Load(cwd, flags.fileOverrides())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuration: %v\n", err)
		return 2
	}

	argsJSON, err := commandArgsJSON(remaining)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	cat, err := catalog.New(catalog.DefaultEntries())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: building command catalog: %v\n", err)
		return 1
	}
	if _, ok := cat.Lookup(commandName); !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", commandName)
		fmt.Fprint(os.Stderr, usageText)
		return 2
	}

	ctx := context.Background()
	session, store, name, env, err := acquire(ctx, cfg, flags, cwd, commandName)
	if err != nil {
		printErrorEnvelope(commandName, envelope.SessionError, err.Error(), flags.Readable)
		return 1
	}
	defer session.Close(ctx)

	execCtx := &catalog.ExecContext{Session: session, ArtifactsDir: cfg.ArtifactsDir}
	started := startTime()
	data, update, inputs, err := cat.Run(ctx, commandName, argsJSON, catalog.ModeInteractive, execCtx, env)

	builder := envelope.New(commandName, "", started).WithInputs(inputs)
	if err != nil {
		code, msg := classifyError(err)
		artifacts := session.CollectFailureArtifacts(ctx, cfg.ArtifactsDir, commandName)
		for _, art := range artifacts {
			builder.AddArtifact(art)
		}
		printEnvelope(builder.WithError(code, msg, nil).Build(), flags.Readable)
		return 1
	}

	if update != nil {
		projectRoot := ""
		if flags.ProjectScoped {
			projectRoot = cwd
		}
		if perr := store.Persist(name, projectRoot, update, flags.ProjectScoped, nowForPersist()); perr != nil {
			logging.L().Warnw("main: failed to persist context update", "context", name, "error", perr)
		}
	}

	printEnvelope(builder.WithData(data).Build(), flags.Readable)
	return 0
}

func runBatch() int {
	ctx := context.Background()
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine working directory: %v\n", err)
		return 1
	}
	cfg, err := config.Load(cwd, config.FlagOverrides{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuration: %v\n", err)
		return 2
	}

	cat, err := catalog.New(catalog.DefaultEntries())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: building command catalog: %v\n", err)
		return 1
	}

	opts := broker.Options{
		Namespace:     cfg.Namespace,
		WorkspaceID:   cfg.WorkspaceID,
		Browser:       cfg.Browser,
		Headless:      cfg.Headless,
		NoDaemon:      cfg.NoDaemon,
		DriverOptions: driver.Options{},
	}
	if p, perr := config.SessionDescriptorPath(cfg.Namespace, "default"); perr == nil {
		opts.DescriptorPath = p
	}

	session, err := broker.Acquire(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: acquiring session: %v\n", err)
		return 1
	}
	defer session.Close(ctx)

	store, err := loadStore(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading context store: %v\n", err)
		return 1
	}

	runner := &batch.Runner{
		Catalog:     cat,
		ExecCtx:     &catalog.ExecContext{Session: session, ArtifactsDir: cfg.ArtifactsDir},
		Store:       store,
		ProjectRoot: cwd,
	}
	if err := runner.Run(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: batch loop: %v\n", err)
		return 1
	}
	return 0
}

// acquire resolves the effective context, builds acquisition options from
// cfg and flags, and drives the session broker.
func acquire(ctx context.Context, cfg config.Config, flags *globalFlags, cwd, commandName string) (*broker.Session, *pwcontext.Store, string, *pwcontext.Env, error) {
	store, err := loadStore(cwd)
	if err != nil {
		return nil, nil, "", nil, err
	}

	projectRoot := ""
	if flags.ProjectScoped {
		projectRoot = cwd
	}
	name, stored, refresh := store.Select(flags.ContextName, projectRoot, nowForPersist())

	headless := cfg.Headless
	if flags.Headless != nil {
		headless = *flags.Headless
	}
	browserKind := cfg.Browser
	if flags.Browser != nil {
		browserKind = browserKindFromFlag(*flags.Browser)
	}

	opts := broker.Options{
		Namespace:   cfg.Namespace,
		WorkspaceID: cfg.WorkspaceID,
		Browser:     browserKind,
		Headless:    headless,
		NoDaemon:    cfg.NoDaemon || flags.NoDaemon,
		Refresh:     flags.Refresh,
	}
	if flags.CDPEndpoint != nil {
		opts.CDPEndpoint = *flags.CDPEndpoint
	} else if stored.CDPEndpoint != "" {
		opts.CDPEndpoint = stored.CDPEndpoint
	}
	if p, perr := config.SessionDescriptorPath(cfg.Namespace, name); perr == nil {
		opts.DescriptorPath = p
	}
	if cfg.DefaultAuthFile != "" {
		opts.StorageStatePath = cfg.DefaultAuthFile
	} else if stored.AuthFile != "" {
		opts.StorageStatePath = stored.AuthFile
	}

	session, err := broker.Acquire(ctx, opts)
	if err != nil {
		return nil, nil, "", nil, err
	}

	env := &pwcontext.Env{Ctx: stored, HasCDP: opts.CDPEndpoint != "", Refreshed: refresh, CommandName: commandName}
	return session, store, name, env, nil
}

func loadStore(cwd string) (*pwcontext.Store, error) {
	globalPath, err := config.GlobalContextsPath()
	if err != nil {
		return nil, err
	}
	return pwcontext.Load(globalPath, config.ProjectContextsPath(cwd))
}

func browserKindFromFlag(name string) strategy.BrowserKind {
	switch name {
	case "firefox":
		return strategy.Firefox
	case "webkit":
		return strategy.WebKit
	default:
		return strategy.Chromium
	}
}

func commandArgsJSON(remaining []string) (json.RawMessage, error) {
	if len(remaining) == 0 {
		return json.RawMessage("{}"), nil
	}
	fields := map[string]any{}
	for i := 0; i < len(remaining); i++ {
		a := remaining[i]
		if len(a) < 3 || a[0:2] != "--" {
			return nil, fmt.Errorf("unexpected positional argument %q", a)
		}
		key := a[2:]
		if i+1 >= len(remaining) {
			fields[key] = true
			continue
		}
		val := remaining[i+1]
		if len(val) >= 2 && val[0:2] == "--" {
			fields[key] = true
			continue
		}
		i++
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			fields[key] = n
		} else if b, err := strconv.ParseBool(val); err == nil {
			fields[key] = b
		} else {
			fields[key] = val
		}
	}
	return json.Marshal(fields)
}

func printEnvelope(env envelope.Envelope, readable bool) {
	if readable {
		if err := envelope.FormatHuman(os.Stdout, env); err != nil {
			fmt.Fprintf(os.Stderr, "Error: formatting output: %v\n", err)
		}
		return
	}
	data, err := envelope.Marshal(env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: marshal envelope: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printErrorEnvelope(command string, code envelope.Code, message string, readable bool) {
	env := envelope.New(command, "", startTime()).WithError(code, message, nil).Build()
	printEnvelope(env, readable)
}

func classifyError(err error) (envelope.Code, string) {
	if de, ok := err.(*catalog.DispatchError); ok {
		return envelope.Code(de.Code), de.Message
	}
	return envelope.InternalError, err.Error()
}
