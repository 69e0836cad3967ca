// Package proto defines the wire ABI a plugin binary must speak: the
// handshake cookie and the RPC argument/reply shapes exchanged with
// hashicorp/go-plugin's net/rpc transport. Grounded on the teacher's
// backend/internal/plugins/node_plugin.go (Handshake, ExecuteArgs/
// ExecuteReply).
package proto

import "github.com/hashicorp/go-plugin"

// Handshake is the magic-cookie handshake every plugin binary and the
// host must agree on before go-plugin will dispense anything.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "FLOWGRAPH_PLUGIN",
	MagicCookieValue: "flowgraph",
}

// SpecsReply carries the node specs a plugin contributes as
// NodeSpecWire values rather than types.NodeSpec, so this package does
// not depend on internal/types.
type SpecsReply struct {
	Specs []NodeSpecWire `json:"specs"`
}

// NodeSpecWire mirrors types.NodeSpec field-for-field; kept separate so
// the proto package has no dependency on internal/types.
type NodeSpecWire struct {
	Type        string          `json:"type"`
	Label       string          `json:"label"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Doc         string          `json:"doc"`
	Mode        string          `json:"mode"`
	Inputs      []PortSpecWire  `json:"inputs"`
	Outputs     []PortSpecWire  `json:"outputs"`
}

type PortSpecWire struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
}

// ExecuteArgs holds the arguments for the Execute RPC call.
type ExecuteArgs struct {
	NodeType string         `json:"node_type"`
	Params   map[string]any `json:"params"`
	Inputs   map[string]any `json:"inputs"`
}

// ExecuteReply holds the reply for the Execute RPC call. Error is a
// plain string because gob cannot transport arbitrary error values.
type ExecuteReply struct {
	Outputs map[string]any `json:"outputs"`
	Error   string         `json:"error"`
}
