package project

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[package]
name = "demo"

[analysis]
jobs = 4
max_diagnostics = 50
cache = false
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Package.Name != "demo" {
		t.Errorf("name: got %q", m.Package.Name)
	}
	if m.Analysis.Jobs != 4 || m.Analysis.MaxDiagnostics != 50 {
		t.Errorf("analysis: got %+v", m.Analysis)
	}
	if m.Analysis.CacheEnabled() {
		t.Error("cache: want disabled")
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `[package]
name = "demo"
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Analysis.Jobs != 0 || m.Analysis.MaxDiagnostics != 0 {
		t.Errorf("analysis defaults: got %+v", m.Analysis)
	}
	if !m.Analysis.CacheEnabled() {
		t.Error("cache: want enabled by default")
	}
}

func TestLoadManifestRejectsNegativeJobs(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `[analysis]
jobs = -1
`)
	if _, err := LoadManifest(path); err == nil {
		t.Fatal("want error for negative jobs")
	}
}

func TestFindSeenTomlWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `[package]
name = "demo"
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	path, ok, err := FindSeenToml(nested)
	if err != nil || !ok {
		t.Fatalf("FindSeenToml: ok=%v err=%v", ok, err)
	}
	if filepath.Dir(path) != root {
		t.Errorf("found %q, want under %q", path, root)
	}

	gotRoot, ok, err := FindProjectRoot(nested)
	if err != nil || !ok || gotRoot != root {
		t.Errorf("FindProjectRoot: got %q ok=%v err=%v", gotRoot, ok, err)
	}
}

func TestFindSeenTomlMissing(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := FindSeenToml(dir)
	if err != nil {
		t.Fatalf("FindSeenToml: %v", err)
	}
	if ok {
		t.Fatal("found a manifest where none exists")
	}
}

func TestDigestCombineIsOrderSensitive(t *testing.T) {
	a := OfBytes([]byte("a"))
	b := OfBytes([]byte("b"))
	c := OfBytes([]byte("content"))
	if Combine(c, a, b) == Combine(c, b, a) {
		t.Fatal("dependency order must change the combined digest")
	}
	if Combine(c) == c {
		t.Fatal("combining must rehash even without dependencies")
	}
}
