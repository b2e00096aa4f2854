package config

import (
	"encoding/json"
	"os"

	"github.com/dev-console/pwgo/internal/strategy"
)

// Config is the effective, fully-cascaded configuration for one invocation.
type Config struct {
	Browser         strategy.BrowserKind `json:"browser"`
	Headless        bool                 `json:"headless"`
	NoDaemon        bool                 `json:"noDaemon"`
	ArtifactsDir    string               `json:"artifactsDir,omitempty"`
	Namespace       string               `json:"namespace"`
	WorkspaceID     string               `json:"workspaceId,omitempty"`
	DefaultAuthFile string               `json:"defaultAuthFile,omitempty"`
}

// Defaults returns the built-in baseline before any file or flag layer is
// applied.
func Defaults() Config {
	return Config{
		Browser:   strategy.Chromium,
		Headless:  true,
		Namespace: "default",
	}
}

// FileOverrides is the subset of Config a JSON config file may set; pointer
// fields distinguish "unset" from "set to zero value".
type FileOverrides struct {
	Browser         *string `json:"browser,omitempty"`
	Headless        *bool   `json:"headless,omitempty"`
	NoDaemon        *bool   `json:"noDaemon,omitempty"`
	ArtifactsDir    *string `json:"artifactsDir,omitempty"`
	Namespace       *string `json:"namespace,omitempty"`
	WorkspaceID     *string `json:"workspaceId,omitempty"`
	DefaultAuthFile *string `json:"defaultAuthFile,omitempty"`
}

// FlagOverrides mirrors FileOverrides but is populated from CLI flags; its
// shape is identical because the priority cascade treats both layers the
// same way, just applied in a different order.
type FlagOverrides = FileOverrides

func (c *Config) apply(o FileOverrides) {
	if o.Browser != nil {
		c.Browser = browserFromString(*o.Browser)
	}
	if o.Headless != nil {
		c.Headless = *o.Headless
	}
	if o.NoDaemon != nil {
		c.NoDaemon = *o.NoDaemon
	}
	if o.ArtifactsDir != nil {
		c.ArtifactsDir = *o.ArtifactsDir
	}
	if o.Namespace != nil {
		c.Namespace = *o.Namespace
	}
	if o.WorkspaceID != nil {
		c.WorkspaceID = *o.WorkspaceID
	}
	if o.DefaultAuthFile != nil {
		c.DefaultAuthFile = *o.DefaultAuthFile
	}
}

// Load builds the effective config: Defaults(), then the global config
// file, then a project-scoped config file (if projectDir is non-empty and
// it has one), then flags — each layer strictly overrides the previous one
// field-by-field.
func Load(projectDir string, flags FlagOverrides) (Config, error) {
	cfg := Defaults()

	globalPath, err := InRoot("config.json")
	if err != nil {
		return cfg, err
	}
	if o, ok, err := loadFileOverrides(globalPath); err != nil {
		return cfg, err
	} else if ok {
		cfg.apply(o)
	}

	if projectDir != "" {
		projectPath := projectDir + "/.pwgo/config.json"
		if o, ok, err := loadFileOverrides(projectPath); err != nil {
			return cfg, err
		} else if ok {
			cfg.apply(o)
		}
	}

	cfg.apply(flags)
	return cfg, nil
}

func loadFileOverrides(path string) (FileOverrides, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileOverrides{}, false, nil
		}
		return FileOverrides{}, false, err
	}
	var o FileOverrides
	if err := json.Unmarshal(data, &o); err != nil {
		return FileOverrides{}, false, err
	}
	return o, true, nil
}

func browserFromString(name string) strategy.BrowserKind {
	switch name {
	case "firefox":
		return strategy.Firefox
	case "webkit":
		return strategy.WebKit
	default:
		return strategy.Chromium
	}
}
