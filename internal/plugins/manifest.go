package plugins

import (
	"encoding/json"
	"os"

	"github.com/tidwall/gjson"
)

// readManifest loads a manifest.json file into a plain map. A missing
// optional manifest is not an error: callers pass nil and mergeManifest
// treats it as an empty overlay.
func readManifest(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// mergeManifest shallow-merges a plugin manifest over a project
// manifest: plugin fields win at the top level, nothing deeper (spec.md
// §4.C "shallow merge"). Uses gjson to walk the plugin manifest's raw
// bytes rather than round-tripping it back through json.Marshal, which
// is the idiom the teacher's plugin_system.go reaches for when it needs
// to read JSON without committing to a concrete struct.
func mergeManifest(project map[string]any, pluginRaw []byte) map[string]any {
	merged := make(map[string]any, len(project))
	for k, v := range project {
		merged[k] = v
	}
	if len(pluginRaw) == 0 || !gjson.ValidBytes(pluginRaw) {
		return merged
	}
	gjson.ParseBytes(pluginRaw).ForEach(func(key, value gjson.Result) bool {
		merged[key.String()] = value.Value()
		return true
	})
	return merged
}
