package plugins

import (
	"os"
	"path/filepath"
)

// discovered describes one plugin found on disk before it is loaded:
// the two-tier layout of spec.md §4.C/§6 resolved down to a single
// executable binary plus its merged manifest.
type discovered struct {
	ID       string // "<project>/<plugin>"
	Project  string
	Plugin   string
	BinPath  string // the compiled go-plugin binary to exec
	Manifest map[string]any
	HookDir  string // directory to look for on_activate/on_deactivate/on_uninstall binaries, "" if none
}

const (
	stateFileName    = "plugins_state.json"
	projectManifest  = "manifest.json"
	nodesDirName     = "nodes"
	pluginManifest   = "manifest.json"
	legacyProjectTag = "_legacy"
)

// scan walks the plugins root and returns every plugin it can resolve
// a binary for, active or not. It never returns a partial-load error
// for an individual plugin — manifest or binary problems are recorded
// against that entry by the caller (spec.md §7 "Plugin import error"
// must not abort loading the rest).
func scan(root string) ([]discovered, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var out []discovered
	sawProjectTier := false

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		projectDir := filepath.Join(root, e.Name())
		nodesDir := filepath.Join(projectDir, nodesDirName)
		if _, err := os.Stat(nodesDir); err != nil {
			continue
		}
		sawProjectTier = true

		projectManifestMap, _ := readManifest(filepath.Join(projectDir, projectManifest))
		out = append(out, scanNodesDir(e.Name(), nodesDir, projectManifestMap)...)
	}

	// Legacy fallback (spec.md §4.C): a flat nodes/ directory directly
	// under the plugins root, with no project tier at all.
	if !sawProjectTier {
		legacyNodes := filepath.Join(root, nodesDirName)
		if _, err := os.Stat(legacyNodes); err == nil {
			out = append(out, scanNodesDir(legacyProjectTag, legacyNodes, nil)...)
		}
	}

	return out, nil
}

func scanNodesDir(project, nodesDir string, projectManifestMap map[string]any) []discovered {
	entries, err := os.ReadDir(nodesDir)
	if err != nil {
		return nil
	}

	var out []discovered
	for _, e := range entries {
		name := e.Name()
		if name == pluginManifest {
			continue
		}

		if e.IsDir() {
			pluginDir := filepath.Join(nodesDir, name)
			raw, _ := os.ReadFile(filepath.Join(pluginDir, pluginManifest))
			out = append(out, discovered{
				ID:       project + "/" + name,
				Project:  project,
				Plugin:   name,
				BinPath:  filepath.Join(pluginDir, "plugin"),
				Manifest: mergeManifest(projectManifestMap, raw),
				HookDir:  pluginDir,
			})
			continue
		}

		// Simple plugin: a single compiled binary sitting directly in
		// nodes/, named after the plugin with no manifest override.
		out = append(out, discovered{
			ID:       project + "/" + name,
			Project:  project,
			Plugin:   name,
			BinPath:  filepath.Join(nodesDir, name),
			Manifest: mergeManifest(projectManifestMap, nil),
		})
	}
	return out
}
