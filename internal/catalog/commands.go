package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dev-console/pwgo/internal/auth"
	"github.com/dev-console/pwgo/internal/broker"
	"github.com/dev-console/pwgo/internal/config"
	pwcontext "github.com/dev-console/pwgo/internal/context"
	"github.com/dev-console/pwgo/internal/objects"
	"github.com/dev-console/pwgo/internal/telemetry"
)

// resolveTarget builds a broker.Target from a raw URL field through the
// resolve-environment's URL ladder, translating the current-page sentinel.
func resolveTarget(env *pwcontext.Env, explicitURL string) (broker.Target, error) {
	resolved, err := env.ResolveURL(explicitURL)
	if err != nil {
		return broker.Target{}, &DispatchError{Code: "INVALID_INPUT", Message: err.Error()}
	}
	if pwcontext.IsCurrentPageSentinel(resolved) {
		return broker.Target{CurrentPage: true}, nil
	}
	return broker.Target{URL: resolved}, nil
}

// targetURLInput renders the resolved target back into the form the caller
// gave it: the sentinel string for a current-page target, the plain URL
// otherwise. Used to populate the envelope's echoed "inputs".
func targetURLInput(target broker.Target) string {
	if target.CurrentPage {
		return pwcontext.CurrentPageSentinel
	}
	return target.URL
}

// --- navigate ---

type navigateRaw struct {
	URL       string `json:"url,omitempty"`
	TimeoutMS int64  `json:"timeoutMs,omitempty"`
}

func navigateHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	var in navigateRaw
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: err.Error()}
		}
	}
	target, err := resolveTarget(env, in.URL)
	if err != nil {
		return nil, nil, nil, err
	}
	inputs := map[string]any{"url": targetURLInput(target)}

	page, err := execCtx.Session.GotoTarget(ctx, target)
	if err != nil {
		return nil, nil, inputs, &DispatchError{Code: "NAVIGATION_FAILED", Message: err.Error()}
	}

	afterURL := page.URL()

	// The CDP-sentinel case performs no navigation (spec scenario 4): the
	// context's last_url must stay exactly as it was, not be overwritten
	// with whatever the live tab happened to already be showing.
	var update *pwcontext.Stored
	if !target.CurrentPage {
		update = &pwcontext.Stored{LastURL: afterURL}
	}
	return map[string]any{"url": afterURL}, update, inputs, nil
}

// --- click ---

type clickRaw struct {
	URL       string `json:"url,omitempty"`
	Selector  string `json:"selector,omitempty"`
	TimeoutMS int64  `json:"timeoutMs,omitempty"`
}

func clickHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	var in clickRaw
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: err.Error()}
		}
	}
	target, err := resolveTarget(env, in.URL)
	if err != nil {
		return nil, nil, nil, err
	}
	selector, err := env.ResolveSelector(in.Selector, "")
	if err != nil {
		return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: err.Error()}
	}
	inputs := map[string]any{"url": targetURLInput(target), "selector": selector}

	page, err := execCtx.Session.GotoTarget(ctx, target)
	if err != nil {
		return nil, nil, inputs, &DispatchError{Code: "NAVIGATION_FAILED", Message: err.Error()}
	}
	beforeURL := page.URL()

	timeout := in.TimeoutMS
	if timeout == 0 {
		timeout = 30_000
	}
	if err := page.Click(ctx, selector, timeout); err != nil {
		return nil, nil, inputs, &DispatchError{Code: "SELECTOR_NOT_FOUND", Message: fmt.Sprintf("click %s: %v", selector, err)}
	}

	afterURL := page.URL()
	update := &pwcontext.Stored{LastURL: afterURL, LastSelector: selector}
	return map[string]any{"beforeUrl": beforeURL, "afterUrl": afterURL, "selector": selector}, update, inputs, nil
}

// --- fill ---

type fillRaw struct {
	URL       string `json:"url,omitempty"`
	Selector  string `json:"selector,omitempty"`
	Value     string `json:"value"`
	TimeoutMS int64  `json:"timeoutMs,omitempty"`
}

func fillHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	var in fillRaw
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: err.Error()}
	}
	target, err := resolveTarget(env, in.URL)
	if err != nil {
		return nil, nil, nil, err
	}
	selector, err := env.ResolveSelector(in.Selector, "")
	if err != nil {
		return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: err.Error()}
	}
	inputs := map[string]any{"url": targetURLInput(target), "selector": selector}

	page, err := execCtx.Session.GotoTarget(ctx, target)
	if err != nil {
		return nil, nil, inputs, &DispatchError{Code: "NAVIGATION_FAILED", Message: err.Error()}
	}

	timeout := in.TimeoutMS
	if timeout == 0 {
		timeout = 30_000
	}
	if err := page.Fill(ctx, selector, in.Value, timeout); err != nil {
		return nil, nil, inputs, &DispatchError{Code: "SELECTOR_NOT_FOUND", Message: fmt.Sprintf("fill %s: %v", selector, err)}
	}

	update := &pwcontext.Stored{LastSelector: selector}
	return map[string]any{"selector": selector}, update, inputs, nil
}

// --- wait ---

type waitRaw struct {
	URL       string `json:"url,omitempty"`
	Selector  string `json:"selector,omitempty"`
	TimeoutMS int64  `json:"timeoutMs,omitempty"`
}

func waitHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	var in waitRaw
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: err.Error()}
		}
	}
	target, err := resolveTarget(env, in.URL)
	if err != nil {
		return nil, nil, nil, err
	}
	selector, err := env.ResolveSelector(in.Selector, "")
	if err != nil {
		return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: err.Error()}
	}
	inputs := map[string]any{"url": targetURLInput(target), "selector": selector}

	page, err := execCtx.Session.GotoTarget(ctx, target)
	if err != nil {
		return nil, nil, inputs, &DispatchError{Code: "NAVIGATION_FAILED", Message: err.Error()}
	}

	timeout := in.TimeoutMS
	if timeout == 0 {
		timeout = 30_000
	}
	deadline := time.Now().Add(time.Duration(timeout) * time.Millisecond)
	for {
		if _, found, err := page.QuerySelector(ctx, selector); err == nil && found {
			break
		}
		if time.Now().After(deadline) {
			return nil, nil, inputs, &DispatchError{Code: "TIMEOUT", Message: fmt.Sprintf("wait for %s timed out after %dms", selector, timeout)}
		}
		select {
		case <-ctx.Done():
			return nil, nil, inputs, &DispatchError{Code: "TIMEOUT", Message: ctx.Err().Error()}
		case <-time.After(100 * time.Millisecond):
		}
	}

	update := &pwcontext.Stored{LastSelector: selector}
	return map[string]any{"selector": selector}, update, inputs, nil
}

// --- screenshot ---

type screenshotRaw struct {
	URL      string `json:"url,omitempty"`
	Output   string `json:"output,omitempty"`
	FullPage bool   `json:"fullPage,omitempty"`
}

func screenshotHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	var in screenshotRaw
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: err.Error()}
		}
	}
	target, err := resolveTarget(env, in.URL)
	if err != nil {
		return nil, nil, nil, err
	}
	inputs := map[string]any{"url": targetURLInput(target)}

	page, err := execCtx.Session.GotoTarget(ctx, target)
	if err != nil {
		return nil, nil, inputs, &DispatchError{Code: "NAVIGATION_FAILED", Message: err.Error()}
	}

	outputPath := env.ResolveOutputPath(in.Output, "screenshot.png", execCtx.ArtifactsDir)
	if err := page.ScreenshotToFile(ctx, objects.ScreenshotOptions{FullPage: in.FullPage}, outputPath); err != nil {
		return nil, nil, inputs, &DispatchError{Code: "SCREENSHOT_FAILED", Message: err.Error()}
	}

	update := &pwcontext.Stored{LastOutput: outputPath}
	return map[string]any{"output": outputPath}, update, inputs, nil
}

// --- page group ---

type pageRaw struct {
	URL        string `json:"url,omitempty"`
	Selector   string `json:"selector,omitempty"`
	Expression string `json:"expression,omitempty"`
}

func pageTextHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	return pageEvalShortcut(ctx, execCtx, raw, env, "document.body ? document.body.innerText : ''")
}

func pageHTMLHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	return pageEvalShortcut(ctx, execCtx, raw, env, "document.documentElement.outerHTML")
}

func pageEvalHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	var in pageRaw
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: err.Error()}
	}
	if in.Expression == "" {
		return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: "expression is required"}
	}
	return pageEvalShortcut(ctx, execCtx, raw, env, in.Expression)
}

func pageEvalShortcut(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env, expression string) (any, *pwcontext.Stored, any, error) {
	var in pageRaw
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &in)
	}
	target, err := resolveTarget(env, in.URL)
	if err != nil {
		return nil, nil, nil, err
	}
	inputs := map[string]any{"url": targetURLInput(target)}

	page, err := execCtx.Session.GotoTarget(ctx, target)
	if err != nil {
		return nil, nil, inputs, &DispatchError{Code: "NAVIGATION_FAILED", Message: err.Error()}
	}
	value, err := page.EvaluateJSON(ctx, expression)
	if err != nil {
		return nil, nil, inputs, &DispatchError{Code: "JS_EVAL_FAILED", Message: err.Error()}
	}
	return map[string]any{"value": json.RawMessage(value)}, &pwcontext.Stored{LastURL: page.URL()}, inputs, nil
}

func pageElementsHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	var in pageRaw
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: err.Error()}
	}
	selector, err := env.ResolveSelector(in.Selector, "")
	if err != nil {
		return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: err.Error()}
	}
	target, err := resolveTarget(env, in.URL)
	if err != nil {
		return nil, nil, nil, err
	}
	inputs := map[string]any{"url": targetURLInput(target), "selector": selector}

	page, err := execCtx.Session.GotoTarget(ctx, target)
	if err != nil {
		return nil, nil, inputs, &DispatchError{Code: "NAVIGATION_FAILED", Message: err.Error()}
	}
	guids, err := page.QuerySelectorAll(ctx, selector)
	if err != nil {
		return nil, nil, inputs, &DispatchError{Code: "SELECTOR_NOT_FOUND", Message: err.Error()}
	}
	return map[string]any{"count": len(guids), "selector": selector}, &pwcontext.Stored{LastSelector: selector}, inputs, nil
}

func pageSnapshotHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	return pageEvalShortcut(ctx, execCtx, raw, env, accessibilitySnapshotExpression)
}

// accessibilitySnapshotExpression is a minimal structural snapshot: tag,
// role, and text for interactive elements, supplementing the distilled
// spec's page-scoped commands with the structured snapshot from the
// original CLI's page/snapshot/mod.rs.
const accessibilitySnapshotExpression = `(() => {
  const pick = el => ({
    tag: el.tagName.toLowerCase(),
    role: el.getAttribute('role') || undefined,
    text: (el.innerText || '').trim().slice(0, 120) || undefined,
  });
  return Array.from(document.querySelectorAll('a,button,input,select,textarea,[role]')).map(pick);
})()`

func pageConsoleHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	var in pageRaw
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &in)
	}
	target, err := resolveTarget(env, in.URL)
	if err != nil {
		return nil, nil, nil, err
	}
	inputs := map[string]any{"url": targetURLInput(target)}

	page, err := execCtx.Session.GotoTarget(ctx, target)
	if err != nil {
		return nil, nil, inputs, &DispatchError{Code: "NAVIGATION_FAILED", Message: err.Error()}
	}
	recv, sub := page.OnConsole()
	defer sub.Drop()

	var messages []map[string]any
	deadline := time.After(500 * time.Millisecond)
drain:
	for {
		select {
		case msg := <-recv:
			messages = append(messages, map[string]any{"kind": msg.Kind.String(), "text": msg.Text})
		case <-deadline:
			break drain
		}
	}
	return map[string]any{"messages": messages}, nil, inputs, nil
}

func pageReadHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	return pageEvalShortcut(ctx, execCtx, raw, env, "document.title + '\\n' + (document.body ? document.body.innerText : '')")
}

type coordsRaw struct {
	URL      string `json:"url,omitempty"`
	Selector string `json:"selector,omitempty"`
}

func pageCoordsHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	var in coordsRaw
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: err.Error()}
	}
	selector, err := env.ResolveSelector(in.Selector, "")
	if err != nil {
		return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: err.Error()}
	}
	target, err := resolveTarget(env, in.URL)
	if err != nil {
		return nil, nil, nil, err
	}
	inputs := map[string]any{"url": targetURLInput(target), "selector": selector}

	page, err := execCtx.Session.GotoTarget(ctx, target)
	if err != nil {
		return nil, nil, inputs, &DispatchError{Code: "NAVIGATION_FAILED", Message: err.Error()}
	}
	expr := fmt.Sprintf("(() => { const el = document.querySelector(%q); if (!el) return null; const r = el.getBoundingClientRect(); return {x: r.x + r.width/2, y: r.y + r.height/2}; })()", selector)
	value, err := page.EvaluateJSON(ctx, expr)
	if err != nil {
		return nil, nil, inputs, &DispatchError{Code: "JS_EVAL_FAILED", Message: err.Error()}
	}
	if value == "null" {
		return nil, nil, inputs, &DispatchError{Code: "SELECTOR_NOT_FOUND", Message: fmt.Sprintf("no element matches %s", selector)}
	}
	return map[string]any{"coords": json.RawMessage(value)}, &pwcontext.Stored{LastSelector: selector}, inputs, nil
}

func pageCoordsAllHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	var in coordsRaw
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: err.Error()}
	}
	selector, err := env.ResolveSelector(in.Selector, "")
	if err != nil {
		return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: err.Error()}
	}
	target, err := resolveTarget(env, in.URL)
	if err != nil {
		return nil, nil, nil, err
	}
	inputs := map[string]any{"url": targetURLInput(target), "selector": selector}

	page, err := execCtx.Session.GotoTarget(ctx, target)
	if err != nil {
		return nil, nil, inputs, &DispatchError{Code: "NAVIGATION_FAILED", Message: err.Error()}
	}
	expr := fmt.Sprintf("Array.from(document.querySelectorAll(%q)).map(el => { const r = el.getBoundingClientRect(); return {x: r.x + r.width/2, y: r.y + r.height/2}; })", selector)
	value, err := page.EvaluateJSON(ctx, expr)
	if err != nil {
		return nil, nil, inputs, &DispatchError{Code: "JS_EVAL_FAILED", Message: err.Error()}
	}
	return map[string]any{"coords": json.RawMessage(value)}, &pwcontext.Stored{LastSelector: selector}, inputs, nil
}

// --- auth group ---

type authSaveRaw struct {
	Name string `json:"name"`
}

func authSaveHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	var in authSaveRaw
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: err.Error()}
	}
	if in.Name == "" {
		return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: "name is required"}
	}

	cookies, origins, err := execCtx.Session.Context.StorageState(ctx)
	if err != nil {
		return nil, nil, nil, &DispatchError{Code: "AUTH_ERROR", Message: err.Error()}
	}

	state := &auth.State{Cookies: cookies}
	for _, o := range origins {
		entry := auth.OriginStorage{Origin: o.Origin}
		for _, kv := range o.LocalStorage {
			entry.LocalStorage = append(entry.LocalStorage, auth.KeyValue{Name: kv.Name, Value: kv.Value})
		}
		state.Origins = append(state.Origins, entry)
	}

	dir, err := config.AuthDir()
	if err != nil {
		return nil, nil, nil, &DispatchError{Code: "IO_ERROR", Message: err.Error()}
	}
	path := dir + "/" + in.Name + ".json"
	if err := auth.Save(path, state); err != nil {
		return nil, nil, nil, &DispatchError{Code: "IO_ERROR", Message: err.Error()}
	}

	update := &pwcontext.Stored{AuthFile: path}
	return map[string]any{"path": path, "cookieCount": len(state.Cookies)}, update, map[string]any{"name": in.Name}, nil
}

type authListRaw struct {
	Dir string `json:"dir,omitempty"`
}

func authListHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	var in authListRaw
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, nil, nil, &DispatchError{Code: "INVALID_INPUT", Message: err.Error()}
		}
	}
	dir := in.Dir
	if dir == "" {
		d, err := config.AuthDir()
		if err != nil {
			return nil, nil, nil, &DispatchError{Code: "IO_ERROR", Message: err.Error()}
		}
		dir = d
	}
	entries, err := auth.List(dir)
	if err != nil {
		return nil, nil, nil, &DispatchError{Code: "AUTH_ERROR", Message: err.Error()}
	}
	return map[string]any{"entries": entries}, nil, nil, nil
}

// --- stats ---

// statsHandler reports the process-wide command/session counters, for
// operators checking how a long-running batch session has been behaving.
func statsHandler(ctx context.Context, execCtx *ExecContext, raw json.RawMessage, env *pwcontext.Env) (any, *pwcontext.Stored, any, error) {
	return telemetry.Global().Snapshot(), nil, nil, nil
}
