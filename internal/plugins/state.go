package plugins

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// activationState is the on-disk "<project>/<plugin>" -> "inactive" map
// of spec.md §6. Entries at the default value ("active") are never
// written: the file only ever records deviations from the default.
type activationState struct {
	path     string
	inactive map[string]bool
}

func loadActivationState(root string) (*activationState, error) {
	path := filepath.Join(root, "plugins_state.json")
	st := &activationState{path: path, inactive: make(map[string]bool)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return st, nil
	}
	if err != nil {
		return nil, err
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for id, v := range raw {
		if v == "inactive" {
			st.inactive[id] = true
		}
	}
	return st, nil
}

func (st *activationState) isActive(id string) bool {
	return !st.inactive[id]
}

func (st *activationState) setInactive(id string) error {
	st.inactive[id] = true
	return st.save()
}

func (st *activationState) setActive(id string) error {
	delete(st.inactive, id)
	return st.save()
}

func (st *activationState) remove(id string) error {
	delete(st.inactive, id)
	return st.save()
}

// save writes only the non-default entries, atomically: write to a
// temp file in the same directory and rename over the target so a
// concurrent reader never observes a half-written state file.
func (st *activationState) save() error {
	raw := make(map[string]string, len(st.inactive))
	for id := range st.inactive {
		raw[id] = "inactive"
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(st.path)
	tmp, err := os.CreateTemp(dir, ".plugins_state-*.json")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, st.path)
}
