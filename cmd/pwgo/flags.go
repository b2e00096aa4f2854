package main

import (
	"time"

	"github.com/dev-console/pwgo/internal/config"
)

// globalFlags holds the CLI flags common to every command, parsed by hand
// per the project's stdlib-only CLI parsing convention.
type globalFlags struct {
	Namespace     *string
	Browser       *string
	Headless      *bool
	CDPEndpoint   *string
	ContextName   string
	NoDaemon      bool
	Refresh       bool
	ProjectScoped bool
	Readable      bool
}

func (f *globalFlags) fileOverrides() config.FlagOverrides {
	o := config.FlagOverrides{}
	if f.Namespace != nil {
		o.Namespace = f.Namespace
	}
	if f.Browser != nil {
		o.Browser = f.Browser
	}
	if f.Headless != nil {
		o.Headless = f.Headless
	}
	if f.NoDaemon {
		noDaemon := true
		o.NoDaemon = &noDaemon
	}
	return o
}

// extractGlobalFlags pulls the global flags out of args, returning the
// flags and whatever remains for the per-command argument parser.
func extractGlobalFlags(args []string) (*globalFlags, []string) {
	flags := &globalFlags{ProjectScoped: true}
	remaining := args

	var namespace string
	namespace, remaining = extractFlag(remaining, "--namespace")
	if namespace != "" {
		flags.Namespace = &namespace
	}

	var browser string
	browser, remaining = extractFlag(remaining, "--browser")
	if browser != "" {
		flags.Browser = &browser
	}

	var cdp string
	cdp, remaining = extractFlag(remaining, "--cdp")
	if cdp != "" {
		flags.CDPEndpoint = &cdp
	}

	flags.ContextName, remaining = extractFlag(remaining, "--context")

	remaining = extractBoolFlag(remaining, "--headless", func() { t := true; flags.Headless = &t })
	remaining = extractBoolFlag(remaining, "--headed", func() { f := false; flags.Headless = &f })
	remaining = extractBoolFlag(remaining, "--no-daemon", func() { flags.NoDaemon = true })
	remaining = extractBoolFlag(remaining, "--refresh", func() { flags.Refresh = true })
	remaining = extractBoolFlag(remaining, "--global-context", func() { flags.ProjectScoped = false })
	remaining = extractBoolFlag(remaining, "--readable", func() { flags.Readable = true })

	return flags, remaining
}

// extractFlag removes a "--flag value" pair from args, returning the value
// and the remaining args.
func extractFlag(args []string, flag string) (string, []string) {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			val := args[i+1]
			remaining := make([]string, 0, len(args)-2)
			remaining = append(remaining, args[:i]...)
			remaining = append(remaining, args[i+2:]...)
			return val, remaining
		}
	}
	return "", args
}

// extractBoolFlag removes a bare boolean flag from args, invoking set if
// found.
func extractBoolFlag(args []string, flag string, set func()) []string {
	for i, a := range args {
		if a == flag {
			set()
			remaining := make([]string, 0, len(args)-1)
			remaining = append(remaining, args[:i]...)
			remaining = append(remaining, args[i+1:]...)
			return remaining
		}
	}
	return args
}

func startTime() time.Time     { return time.Now() }
func nowForPersist() time.Time { return time.Now() }
