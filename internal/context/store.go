// Package context persists and resolves per-namespace command-visible state
// (URL/selector/output, browser defaults, protected-url patterns) described
// in spec §3/§4.7/§6: layered global+project stores, selected by name, with
// a session timeout that auto-invalidates stale context.
package context

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dev-console/pwgo/internal/strategy"
)

// SchemaVersion is the only contexts.json schema this build understands.
const SchemaVersion = 1

// SessionTimeout is the fixed 1-hour auto-refresh window from spec §3;
// DESIGN.md records the Open Question decision to keep it hard-coded rather
// than configurable per context.
const SessionTimeout = 1 * time.Hour

// CurrentPageSentinel is produced by URL resolution only when a CDP
// endpoint is in use and no URL was supplied; it is never persisted.
const CurrentPageSentinel = "__CURRENT_PAGE__"

// IsCurrentPageSentinel reports whether url is the current-page sentinel.
func IsCurrentPageSentinel(url string) bool { return url == CurrentPageSentinel }

// Scope tags whether a stored context came from the global store or a
// project-scoped one.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeProject Scope = "project"
)

// Stored is the persisted per-namespace context record.
type Stored struct {
	Scope        Scope                `json:"scope,omitempty"`
	ProjectRoot  string               `json:"projectRoot,omitempty"`
	BaseURL      string               `json:"baseUrl,omitempty"`
	LastURL      string               `json:"lastUrl,omitempty"`
	LastSelector string               `json:"lastSelector,omitempty"`
	LastOutput   string               `json:"lastOutput,omitempty"`
	Browser      strategy.BrowserKind `json:"-"`
	BrowserName  string               `json:"browser,omitempty"`
	Headless     *bool                `json:"headless,omitempty"`
	AuthFile     string               `json:"authFile,omitempty"`
	CDPEndpoint  string               `json:"cdpEndpoint,omitempty"`
	LastUsedAt   int64                `json:"lastUsedAt,omitempty"`
	ProtectedURLs []string            `json:"protectedUrls,omitempty"`
}

// IsProtected reports whether any protected-url substring pattern occurs in
// the lowercased url.
func (s *Stored) IsProtected(url string) bool {
	lower := strings.ToLower(url)
	for _, pattern := range s.ProtectedURLs {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// stale reports whether s has not been used within SessionTimeout.
func (s *Stored) stale(now time.Time) bool {
	if s.LastUsedAt == 0 {
		return false
	}
	last := time.Unix(s.LastUsedAt, 0)
	return now.Sub(last) > SessionTimeout
}

// activeSelection is the `active` block of a contexts.json file.
type activeSelection struct {
	Global   string            `json:"global,omitempty"`
	Projects map[string]string `json:"projects"`
}

// file is the on-disk shape of one store (global or project-scoped).
type file struct {
	Schema   int                `json:"schema"`
	Active   activeSelection    `json:"active"`
	Contexts map[string]*Stored `json:"contexts"`
}

func newFile() *file {
	return &file{
		Schema:   SchemaVersion,
		Active:   activeSelection{Projects: map[string]string{}},
		Contexts: map[string]*Stored{},
	}
}

// Store is the in-memory view over the layered global+project contexts.json
// pair, writing whole-file replacements back to disk.
type Store struct {
	globalPath  string
	projectPath string // empty when there is no project scope
	global      *file
	project     *file
}

// Load reads globalPath and, if non-empty, projectPath, tolerating missing
// files as an empty store.
func Load(globalPath, projectPath string) (*Store, error) {
	g, err := loadFile(globalPath)
	if err != nil {
		return nil, err
	}
	s := &Store{globalPath: globalPath, global: g}

	if projectPath != "" {
		p, err := loadFile(projectPath)
		if err != nil {
			return nil, err
		}
		s.projectPath = projectPath
		s.project = p
	}
	return s, nil
}

func loadFile(path string) (*file, error) {
	if path == "" {
		return newFile(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newFile(), nil
		}
		return nil, fmt.Errorf("context: read %s: %w", path, err)
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("context: parse %s: %w", path, err)
	}
	if f.Contexts == nil {
		f.Contexts = map[string]*Stored{}
	}
	if f.Active.Projects == nil {
		f.Active.Projects = map[string]string{}
	}
	f.Schema = SchemaVersion
	return &f, nil
}

// Select resolves the active context name using the priority order from
// spec §3: explicit request name > project active map (the global file's
// projects map, then the project file's) > global active name > implicit
// "default". It then unions project values over global (project
// shadows global on conflict) and returns the merged record plus the name
// actually selected.
func (s *Store) Select(requested, projectRoot string, now time.Time) (name string, ctx *Stored, refresh bool) {
	name = requested
	if name == "" && projectRoot != "" {
		name = s.global.Active.Projects[projectRoot]
		if name == "" && s.project != nil {
			name = s.project.Active.Projects[projectRoot]
		}
	}
	if name == "" {
		name = s.global.Active.Global
	}
	if name == "" {
		name = "default"
	}

	merged := &Stored{}
	if g, ok := s.global.Contexts[name]; ok {
		*merged = *g
	}
	if s.project != nil {
		if p, ok := s.project.Contexts[name]; ok {
			mergeInto(merged, p)
		}
	}
	merged.Browser = browserFromName(merged.BrowserName)

	return name, merged, merged.stale(now)
}

// mergeInto overlays non-zero fields of override onto base (project
// shadows global on a per-field basis).
func mergeInto(base, override *Stored) {
	if override.Scope != "" {
		base.Scope = override.Scope
	}
	if override.ProjectRoot != "" {
		base.ProjectRoot = override.ProjectRoot
	}
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.LastURL != "" {
		base.LastURL = override.LastURL
	}
	if override.LastSelector != "" {
		base.LastSelector = override.LastSelector
	}
	if override.LastOutput != "" {
		base.LastOutput = override.LastOutput
	}
	if override.BrowserName != "" {
		base.BrowserName = override.BrowserName
	}
	if override.Headless != nil {
		base.Headless = override.Headless
	}
	if override.AuthFile != "" {
		base.AuthFile = override.AuthFile
	}
	if override.CDPEndpoint != "" {
		base.CDPEndpoint = override.CDPEndpoint
	}
	if override.LastUsedAt != 0 {
		base.LastUsedAt = override.LastUsedAt
	}
	if len(override.ProtectedURLs) > 0 {
		base.ProtectedURLs = override.ProtectedURLs
	}
}

// Persist merges updates into the named context, stamps LastUsedAt, and
// writes both stores (project store only if this is a project-scoped
// selection). A project-scoped selection also records name under
// projectRoot in the global active projects map, so Select picks it again
// for that project; any other selection becomes the global active name.
func (s *Store) Persist(name, projectRoot string, updates *Stored, projectScoped bool, now time.Time) error {
	updates.LastUsedAt = now.Unix()
	updates.BrowserName = updates.Browser.String()

	target := s.global
	if projectScoped && s.project != nil {
		target = s.project
	}
	existing, ok := target.Contexts[name]
	if !ok {
		existing = &Stored{}
		target.Contexts[name] = existing
	}
	mergeInto(existing, updates)

	if projectScoped {
		s.global.Active.Projects[projectRoot] = name
	} else {
		s.global.Active.Global = name
	}

	if err := writeFile(s.globalPath, s.global); err != nil {
		return err
	}
	if projectScoped && s.project != nil {
		if err := writeFile(s.projectPath, s.project); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, f *file) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("context: mkdir %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("context: marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("context: write temp file: %w", err)
	}
	return os.Rename(tmp, path)
}

func browserFromName(name string) strategy.BrowserKind {
	switch name {
	case "firefox":
		return strategy.Firefox
	case "webkit":
		return strategy.WebKit
	default:
		return strategy.Chromium
	}
}
