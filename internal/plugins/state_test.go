package plugins

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestActivationStateDefaultsAllActive(t *testing.T) {
	dir := t.TempDir()
	st, err := loadActivationState(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !st.isActive("acme/transform") {
		t.Fatal("plugin absent from a fresh state file must be considered active")
	}
}

func TestActivationStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	st, err := loadActivationState(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := st.setInactive("acme/transform"); err != nil {
		t.Fatal(err)
	}
	if st.isActive("acme/transform") {
		t.Fatal("expected plugin to be inactive after setInactive")
	}

	reloaded, err := loadActivationState(dir)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.isActive("acme/transform") {
		t.Fatal("expected inactive state to survive a reload")
	}
}

func TestActivationStateOmitsDefaultEntries(t *testing.T) {
	dir := t.TempDir()
	st, err := loadActivationState(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := st.setInactive("acme/transform"); err != nil {
		t.Fatal(err)
	}
	if err := st.setActive("acme/transform"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "plugins_state.json"))
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if _, present := raw["acme/transform"]; present {
		t.Fatal("a plugin returned to its default (active) state must not appear in the state file")
	}
}
