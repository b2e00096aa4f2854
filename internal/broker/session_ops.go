package broker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dev-console/pwgo/internal/envelope"
	"github.com/dev-console/pwgo/internal/objects"
)

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Target is the typed navigation target a resolved command drives the
// session with: either a concrete URL or "operate on whatever is currently
// active" (the context.CurrentPageSentinel case).
type Target struct {
	URL         string
	CurrentPage bool
}

// ActivePage returns the session's current page, opening one in the
// context if none exists yet.
func (s *Session) ActivePage(ctx context.Context) (*objects.Page, error) {
	if s.activePageGUID != "" {
		if obj, ok := s.Conn.GetObject(s.activePageGUID); ok {
			if page, ok := obj.(*objects.Page); ok {
				return page, nil
			}
		}
	}

	guids, err := s.Context.Pages(ctx)
	if err != nil {
		return nil, fmt.Errorf("broker: list pages: %w", err)
	}
	if len(guids) > 0 {
		if obj, ok := s.Conn.GetObject(guids[0]); ok {
			if page, ok := obj.(*objects.Page); ok {
				s.activePageGUID = guids[0]
				return page, nil
			}
		}
	}

	guid, err := s.Context.NewPage(ctx, s.Conn, 0)
	if err != nil {
		return nil, fmt.Errorf("broker: open new page: %w", err)
	}
	s.activePageGUID = guid
	obj, err := s.Conn.WaitForObject(ctx, guid, launchWaitBudgetForPage)
	if err != nil {
		return nil, err
	}
	return obj.(*objects.Page), nil
}

const launchWaitBudgetForPage = bootstrapWaitBudget

// Goto navigates the active page to url unconditionally.
func (s *Session) Goto(ctx context.Context, url string) (*objects.Page, error) {
	page, err := s.ActivePage(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := page.Goto(ctx, url, objects.GotoOptions{}); err != nil {
		return nil, fmt.Errorf("broker: goto %s: %w", url, err)
	}
	return page, nil
}

// normalizeURL trims trailing slashes for exact-match comparison.
func normalizeURL(url string) string {
	return strings.TrimRight(url, "/")
}

// GotoIfNeeded navigates only if the page's current URL (normalized) does
// not already match url.
func (s *Session) GotoIfNeeded(ctx context.Context, url string) (*objects.Page, error) {
	page, err := s.ActivePage(ctx)
	if err != nil {
		return nil, err
	}
	current := page.URL()
	if normalizeURL(current) == normalizeURL(url) {
		return page, nil
	}
	if _, err := page.Goto(ctx, url, objects.GotoOptions{}); err != nil {
		return nil, fmt.Errorf("broker: goto %s: %w", url, err)
	}
	return page, nil
}

// GotoTarget is the entry point resolved commands use: when target is the
// current-page sentinel, it performs no navigation regardless of URL.
func (s *Session) GotoTarget(ctx context.Context, target Target) (*objects.Page, error) {
	if target.CurrentPage {
		return s.ActivePage(ctx)
	}
	return s.GotoIfNeeded(ctx, target.URL)
}

// CollectFailureArtifacts writes a screenshot and an HTML snapshot of the
// active page under artifactsDir, named after commandName, for inclusion in
// a failure envelope. Any per-artifact failure is skipped silently rather
// than aborting collection of the rest.
func (s *Session) CollectFailureArtifacts(ctx context.Context, artifactsDir, commandName string) []envelope.Artifact {
	if artifactsDir == "" {
		return nil
	}
	page, err := s.ActivePage(ctx)
	if err != nil {
		return nil
	}

	var artifacts []envelope.Artifact

	screenshotPath := artifactsDir + "/" + commandName + "-failure.png"
	if data, err := page.Screenshot(ctx, objects.ScreenshotOptions{}); err == nil {
		if werr := writeFile(screenshotPath, data); werr == nil {
			artifacts = append(artifacts, envelope.Artifact{Type: "screenshot", Path: screenshotPath, Size: int64(len(data))})
		}
	}

	htmlPath := artifactsDir + "/" + commandName + "-failure.html"
	if html, err := page.EvaluateJSON(ctx, "document.documentElement.outerHTML"); err == nil {
		if werr := writeFile(htmlPath, []byte(html)); werr == nil {
			artifacts = append(artifacts, envelope.Artifact{Type: "html", Path: htmlPath, Size: int64(len(html))})
		}
	}

	return artifacts
}
