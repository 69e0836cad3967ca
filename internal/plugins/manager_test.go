package plugins

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/citadel-agent/flowgraph/internal/registry"
)

func TestDeleteRefusesActivePlugin(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "acme", "manifest.json"), `{}`)
	writeFile(t, filepath.Join(root, "acme", "nodes", "uppercase"), "#!/bin/sh\n")

	reg := registry.New(zerolog.Nop())
	mgr, err := NewManager(root, reg, zerolog.Nop(), nil)
	if err != nil {
		t.Fatal(err)
	}

	err = mgr.Delete("acme/uppercase")
	if err == nil {
		t.Fatal("expected Delete to refuse an active plugin")
	}
	var active *ActivePluginError
	if !errors.As(err, &active) {
		t.Fatalf("expected *ActivePluginError, got %T: %v", err, err)
	}
}

func TestDeleteRemovesInactivePlugin(t *testing.T) {
	root := t.TempDir()
	pluginPath := filepath.Join(root, "acme", "nodes", "uppercase")
	writeFile(t, filepath.Join(root, "acme", "manifest.json"), `{}`)
	writeFile(t, pluginPath, "#!/bin/sh\n")

	reg := registry.New(zerolog.Nop())
	mgr, err := NewManager(root, reg, zerolog.Nop(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := mgr.state.setInactive("acme/uppercase"); err != nil {
		t.Fatal(err)
	}

	if err := mgr.Delete("acme/uppercase"); err != nil {
		t.Fatalf("expected delete of an inactive plugin to succeed, got %v", err)
	}
	if _, err := loadActivationState(root); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteUnknownPlugin(t *testing.T) {
	root := t.TempDir()
	reg := registry.New(zerolog.Nop())
	mgr, err := NewManager(root, reg, zerolog.Nop(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := mgr.state.setInactive("nope/nope"); err != nil {
		t.Fatal(err)
	}

	err = mgr.Delete("nope/nope")
	var unknown *UnknownPluginError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected *UnknownPluginError, got %T: %v", err, err)
	}
}
