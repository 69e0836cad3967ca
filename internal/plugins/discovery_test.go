package plugins

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestScanTwoTierLayout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "acme", "manifest.json"), `{"author":"acme-corp"}`)
	writeFile(t, filepath.Join(root, "acme", "nodes", "uppercase"), "#!/bin/sh\n")
	writeFile(t, filepath.Join(root, "acme", "nodes", "fancy", "plugin"), "#!/bin/sh\n")
	writeFile(t, filepath.Join(root, "acme", "nodes", "fancy", "manifest.json"), `{"category":"transform"}`)

	found, err := scan(root)
	if err != nil {
		t.Fatal(err)
	}

	ids := make([]string, 0, len(found))
	byID := make(map[string]discovered, len(found))
	for _, d := range found {
		ids = append(ids, d.ID)
		byID[d.ID] = d
	}
	sort.Strings(ids)

	if want := []string{"acme/fancy", "acme/uppercase"}; !equalStrings(ids, want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}

	fancy := byID["acme/fancy"]
	if fancy.Manifest["author"] != "acme-corp" {
		t.Fatalf("expected project field to flow through to directory plugin, got %v", fancy.Manifest)
	}
	if fancy.Manifest["category"] != "transform" {
		t.Fatalf("expected plugin manifest to merge in, got %v", fancy.Manifest)
	}
	if fancy.HookDir == "" {
		t.Fatal("expected directory plugin to have a hook dir")
	}

	simple := byID["acme/uppercase"]
	if simple.Manifest["author"] != "acme-corp" {
		t.Fatalf("expected simple plugin to inherit project manifest, got %v", simple.Manifest)
	}
	if simple.HookDir != "" {
		t.Fatal("a single-file plugin has no hook directory")
	}
}

func TestScanLegacyFlatLayout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "nodes", "legacy_tool"), "#!/bin/sh\n")

	found, err := scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].ID != "_legacy/legacy_tool" {
		t.Fatalf("expected one legacy plugin, got %+v", found)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
