package context

import (
	"fmt"
	"path"
	"strings"
)

// absoluteSchemes are the prefixes that mark a URL as already absolute, so
// base_url prefixing is skipped.
var absoluteSchemes = []string{"http://", "https://", "ws://", "wss://"}

func isAbsolute(url string) bool {
	for _, scheme := range absoluteSchemes {
		if strings.HasPrefix(url, scheme) {
			return true
		}
	}
	return false
}

func applyBaseURL(baseURL, url string) string {
	if url == "" || isAbsolute(url) || baseURL == "" {
		return url
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(url, "/")
}

// Env is the resolve-environment threaded into every raw-args resolver:
// the selected context snapshot, whether a CDP endpoint is in play, and the
// canonical command name (for diagnostic messages).
type Env struct {
	Ctx         *Stored
	HasCDP      bool
	Refreshed   bool
	CommandName string
}

// ResolveURL implements spec §4.7's URL resolution ladder.
func (e *Env) ResolveURL(explicit string) (string, error) {
	if explicit != "" {
		return applyBaseURL(e.Ctx.BaseURL, explicit), nil
	}
	if e.HasCDP {
		return CurrentPageSentinel, nil
	}
	if !e.Refreshed {
		if e.Ctx.LastURL != "" {
			return applyBaseURL(e.Ctx.BaseURL, e.Ctx.LastURL), nil
		}
		if e.Ctx.BaseURL != "" {
			return e.Ctx.BaseURL, nil
		}
	}
	return "", fmt.Errorf("%s: no URL supplied and no base_url/last_url to fall back to", e.CommandName)
}

// ResolveSelector implements spec §4.7's selector resolution ladder.
func (e *Env) ResolveSelector(explicit, fallback string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if !e.Refreshed && e.Ctx.LastSelector != "" {
		return e.Ctx.LastSelector, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("%s: no selector supplied and no last_selector to fall back to", e.CommandName)
}

// ResolveOutputPath implements spec §4.7's output-path resolution ladder,
// joining a relative result under artifactsDir when set.
func (e *Env) ResolveOutputPath(explicit, defaultName, artifactsDir string) string {
	out := explicit
	if out == "" && !e.Refreshed && e.Ctx.LastOutput != "" {
		out = e.Ctx.LastOutput
	}
	if out == "" {
		out = defaultName
	}
	if artifactsDir != "" && !path.IsAbs(out) {
		return path.Join(artifactsDir, out)
	}
	return out
}
