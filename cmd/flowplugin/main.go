// Command flowplugin is a reference node plugin binary: it contributes
// a single "uppercase" node type and serves it over the plugin RPC ABI
// (internal/plugins). A real plugin author builds their own binary the
// same way, against internal/plugins.NodePlugin and internal/plugins.Serve,
// grounded on the teacher's backend/internal/plugins/node_plugin.go
// NodePlugin contract this ABI was adapted from.
package main

import (
	"fmt"
	"strings"

	"github.com/citadel-agent/flowgraph/internal/plugins"
	"github.com/citadel-agent/flowgraph/internal/types"
)

type uppercasePlugin struct{}

func (uppercasePlugin) Specs() []types.NodeSpec {
	return []types.NodeSpec{
		{
			Type:        "acme/uppercase",
			Label:       "Uppercase",
			Category:    "text",
			Description: "Upper-cases its \"text\" input.",
			Inputs:      []types.PortSpec{types.NewPortSpec("text", "string")},
			Outputs:     []types.PortSpec{types.NewPortSpec("text", "string")},
		},
	}
}

func (uppercasePlugin) Execute(nodeType string, params, inputs map[string]any) (map[string]any, error) {
	if nodeType != "acme/uppercase" {
		return nil, fmt.Errorf("flowplugin: unknown node type %q", nodeType)
	}
	text, _ := inputs["text"].(string)
	return map[string]any{"text": strings.ToUpper(text)}, nil
}

func main() {
	plugins.Serve(uppercasePlugin{})
}
