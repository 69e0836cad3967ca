package plugins

import (
	"net/rpc"

	hcplugin "github.com/hashicorp/go-plugin"

	"github.com/citadel-agent/flowgraph/internal/plugins/proto"
	"github.com/citadel-agent/flowgraph/internal/types"
)

// NodePlugin is the interface a plugin binary implements and the host
// consumes over RPC: report the node types it contributes, then
// dispatch Execute calls for any of them. Grounded on the teacher's
// backend/internal/plugins/node_plugin.go NodePlugin interface, adapted
// from a single-node (GetMetadata/Execute) shape to a multi-node
// (Specs/Execute-by-type) shape since one plugin directory may register
// several node types (spec.md §4.C declarative/imperative conventions).
type NodePlugin interface {
	Specs() []types.NodeSpec
	Execute(nodeType string, params, inputs map[string]any) (map[string]any, error)
}

// rpcServer runs inside the plugin binary's process.
type rpcServer struct {
	Impl NodePlugin
}

func (s *rpcServer) Specs(args any, reply *proto.SpecsReply) error {
	for _, spec := range s.Impl.Specs() {
		reply.Specs = append(reply.Specs, toWire(spec))
	}
	return nil
}

func (s *rpcServer) Execute(args *proto.ExecuteArgs, reply *proto.ExecuteReply) error {
	outputs, err := s.Impl.Execute(args.NodeType, args.Params, args.Inputs)
	if err != nil {
		reply.Error = err.Error()
		return nil
	}
	reply.Outputs = outputs
	return nil
}

// rpcClient runs inside the host process and satisfies NodePlugin by
// forwarding calls over net/rpc to the plugin binary.
type rpcClient struct {
	client *rpc.Client
}

func (c *rpcClient) Specs() []types.NodeSpec {
	reply := &proto.SpecsReply{}
	if err := c.client.Call("Plugin.Specs", struct{}{}, reply); err != nil {
		return nil
	}
	specs := make([]types.NodeSpec, 0, len(reply.Specs))
	for _, w := range reply.Specs {
		specs = append(specs, fromWire(w))
	}
	return specs
}

func (c *rpcClient) Execute(nodeType string, params, inputs map[string]any) (map[string]any, error) {
	args := &proto.ExecuteArgs{NodeType: nodeType, Params: params, Inputs: inputs}
	reply := &proto.ExecuteReply{}
	if err := c.client.Call("Plugin.Execute", args, reply); err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, &ExecuteError{NodeType: nodeType, Message: reply.Error}
	}
	return reply.Outputs, nil
}

// impl adapts NodePlugin to hashicorp/go-plugin's Plugin interface so
// it can be served (plugin binary side) or consumed (host side).
// Grounded on the teacher's NodePluginImpl/Handshake pattern in
// backend/internal/plugins/node_plugin.go.
type impl struct {
	Impl NodePlugin
}

func (p *impl) Server(*hcplugin.MuxBroker) (any, error) {
	return &rpcServer{Impl: p.Impl}, nil
}

func (impl) Client(b *hcplugin.MuxBroker, c *rpc.Client) (any, error) {
	return &rpcClient{client: c}, nil
}

// Serve is called from a plugin binary's main() to start answering the
// host's RPC calls.
func Serve(p NodePlugin) {
	hcplugin.Serve(&hcplugin.ServeConfig{
		HandshakeConfig: proto.Handshake,
		Plugins: map[string]hcplugin.Plugin{
			"node": &impl{Impl: p},
		},
	})
}

func toWire(s types.NodeSpec) proto.NodeSpecWire {
	w := proto.NodeSpecWire{
		Type: s.Type, Label: s.Label, Category: s.Category,
		Description: s.Description, Doc: s.Doc, Mode: s.Mode,
	}
	for _, p := range s.Inputs {
		w.Inputs = append(w.Inputs, proto.PortSpecWire{Name: p.Name, Type: p.Type, Required: p.Required, Default: p.Default})
	}
	for _, p := range s.Outputs {
		w.Outputs = append(w.Outputs, proto.PortSpecWire{Name: p.Name, Type: p.Type, Required: p.Required, Default: p.Default})
	}
	return w
}

func fromWire(w proto.NodeSpecWire) types.NodeSpec {
	s := types.NodeSpec{
		Type: w.Type, Label: w.Label, Category: w.Category,
		Description: w.Description, Doc: w.Doc, Mode: w.Mode,
	}
	for _, p := range w.Inputs {
		s.Inputs = append(s.Inputs, types.PortSpec{Name: p.Name, Type: p.Type, Required: p.Required, Default: p.Default})
	}
	for _, p := range w.Outputs {
		s.Outputs = append(s.Outputs, types.PortSpec{Name: p.Name, Type: p.Type, Required: p.Required, Default: p.Default})
	}
	return s
}
