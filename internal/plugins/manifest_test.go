package plugins

import "testing"

func TestMergeManifestPluginOverridesProject(t *testing.T) {
	project := map[string]any{"name": "acme", "version": "1.0", "author": "acme-corp"}
	pluginRaw := []byte(`{"version":"2.0","category":"transform"}`)

	merged := mergeManifest(project, pluginRaw)

	if merged["name"] != "acme" {
		t.Fatalf("expected project-only field to survive, got %v", merged["name"])
	}
	if merged["version"] != "2.0" {
		t.Fatalf("expected plugin field to override project field, got %v", merged["version"])
	}
	if merged["category"] != "transform" {
		t.Fatalf("expected plugin-only field to be present, got %v", merged["category"])
	}
	if merged["author"] != "acme-corp" {
		t.Fatalf("expected untouched project field to survive, got %v", merged["author"])
	}
}

func TestMergeManifestNilPluginReturnsProjectCopy(t *testing.T) {
	project := map[string]any{"name": "acme"}
	merged := mergeManifest(project, nil)
	if merged["name"] != "acme" {
		t.Fatalf("expected project field to survive nil overlay, got %v", merged["name"])
	}

	merged["name"] = "mutated"
	if project["name"] != "acme" {
		t.Fatal("mergeManifest must not mutate its project argument")
	}
}

func TestMergeManifestInvalidPluginJSONIgnored(t *testing.T) {
	project := map[string]any{"name": "acme"}
	merged := mergeManifest(project, []byte("not json"))
	if merged["name"] != "acme" {
		t.Fatalf("expected project copy when plugin manifest is invalid, got %v", merged)
	}
}
