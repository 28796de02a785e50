package project

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest is the decoded seen.toml.
type Manifest struct {
	Package  PackageSection  `toml:"package"`
	Analysis AnalysisSection `toml:"analysis"`
}

// PackageSection names the project.
type PackageSection struct {
	Name string `toml:"name"`
}

// AnalysisSection tunes the driver. Zero values mean "use the default".
type AnalysisSection struct {
	// Jobs caps the number of functions analyzed in parallel.
	Jobs int `toml:"jobs"`
	// MaxDiagnostics caps diagnostics kept per run.
	MaxDiagnostics int `toml:"max_diagnostics"`
	// Cache toggles the on-disk plan cache. Defaults to on.
	Cache *bool `toml:"cache"`
}

// CacheEnabled resolves the cache toggle with its default.
func (a AnalysisSection) CacheEnabled() bool {
	return a.Cache == nil || *a.Cache
}

// LoadManifest parses a seen.toml.
func LoadManifest(path string) (Manifest, error) {
	var m Manifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if meta.IsDefined("package", "name") && strings.TrimSpace(m.Package.Name) == "" {
		return Manifest{}, fmt.Errorf("%s: [package].name is empty", path)
	}
	if m.Analysis.Jobs < 0 {
		return Manifest{}, fmt.Errorf("%s: [analysis].jobs must not be negative", path)
	}
	if m.Analysis.MaxDiagnostics < 0 {
		return Manifest{}, fmt.Errorf("%s: [analysis].max_diagnostics must not be negative", path)
	}
	return m, nil
}

// LoadNearest finds and parses the manifest governing startDir. Returns a
// zero manifest when no seen.toml exists anywhere above it.
func LoadNearest(startDir string) (Manifest, string, error) {
	path, ok, err := FindSeenToml(startDir)
	if err != nil || !ok {
		return Manifest{}, "", err
	}
	m, err := LoadManifest(path)
	if err != nil {
		return Manifest{}, "", err
	}
	return m, path, nil
}
