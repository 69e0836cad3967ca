// Package plugins implements the two-tier filesystem plugin discovery,
// activation lifecycle, and hashicorp/go-plugin-backed RPC dispatch of
// spec.md §4.C/§4.D. Grounded on the teacher's
// backend/internal/plugins/node_manager.go (go-plugin client lifecycle)
// and backend/internal/workflow/core/plugin_system.go (two-tier
// directory scan convention, activation bookkeeping).
package plugins

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	hcplugin "github.com/hashicorp/go-plugin"
	"github.com/rs/zerolog"

	"github.com/citadel-agent/flowgraph/internal/observability"
	"github.com/citadel-agent/flowgraph/internal/plugins/proto"
	"github.com/citadel-agent/flowgraph/internal/registry"
	"github.com/citadel-agent/flowgraph/internal/types"
)

var errNotANodePlugin = errors.New("plugin binary does not implement NodePlugin")

// Result reports the outcome of loading one discovered plugin, mirroring
// the "state" + "node-type list" a discovery pass exposes to a caller
// (e.g. a CLI listing command).
type Result struct {
	ID    string
	State string // "active" or "inactive"
	Types []string
	Err   error
}

// Manager owns plugin discovery, RPC client lifecycle, and the
// activation state file for one plugins root directory.
type Manager struct {
	mu      sync.RWMutex
	root    string
	reg     *registry.Registry
	log     zerolog.Logger
	state   *activationState
	metrics *observability.Metrics

	clients map[string]*hcplugin.Client
	typesOf map[string][]string // best-effort bookkeeping only; Deactivate still clears and reloads (§4.D)
}

// NewManager loads (or initializes) the activation state file under
// root and returns a Manager ready for DiscoverAndLoad. metrics may be
// nil, in which case plugin loads are not recorded to Prometheus.
func NewManager(root string, reg *registry.Registry, log zerolog.Logger, metrics *observability.Metrics) (*Manager, error) {
	st, err := loadActivationState(root)
	if err != nil {
		return nil, err
	}
	return &Manager{
		root:    root,
		reg:     reg,
		log:     log,
		state:   st,
		metrics: metrics,
		clients: make(map[string]*hcplugin.Client),
		typesOf: make(map[string][]string),
	}, nil
}

// DiscoverAndLoad walks the plugins root and loads every plugin not
// marked inactive. A plugin that fails to load is recorded in its
// Result.Err and does not stop the rest from loading (spec.md §7
// "Plugin import error").
func (m *Manager) DiscoverAndLoad() ([]Result, error) {
	found, err := scan(m.root)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	results := make([]Result, 0, len(found))
	for _, d := range found {
		if !m.state.isActive(d.ID) {
			results = append(results, Result{ID: d.ID, State: "inactive"})
			continue
		}
		loadedTypes, err := m.load(d)
		if err != nil {
			m.log.Warn().Str("plugin", d.ID).Err(err).Msg("plugin import failed")
			results = append(results, Result{ID: d.ID, State: "active", Err: &ImportError{ID: d.ID, Err: err}})
			continue
		}
		results = append(results, Result{ID: d.ID, State: "active", Types: loadedTypes})
	}
	return results, nil
}

// load connects to a plugin binary, registers its reported specs, and
// keeps the client around so Deactivate can kill it on clear-and-reload.
func (m *Manager) load(d discovered) ([]string, error) {
	client := hcplugin.NewClient(&hcplugin.ClientConfig{
		HandshakeConfig:  proto.Handshake,
		Plugins:          map[string]hcplugin.Plugin{"node": &impl{}},
		Cmd:              exec.Command(d.BinPath),
		AllowedProtocols: []hcplugin.Protocol{hcplugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		m.recordLoad(d.ID, "failure")
		return nil, err
	}
	raw, err := rpcClient.Dispense("node")
	if err != nil {
		client.Kill()
		m.recordLoad(d.ID, "failure")
		return nil, err
	}

	plug, ok := raw.(NodePlugin)
	if !ok {
		client.Kill()
		m.recordLoad(d.ID, "failure")
		return nil, errNotANodePlugin
	}

	var loadedTypes []string
	for _, spec := range plug.Specs() {
		loadedTypes = append(loadedTypes, spec.Type)
		m.reg.Register(spec, executorFor(plug, spec.Type))
	}

	m.clients[d.ID] = client
	m.typesOf[d.ID] = loadedTypes
	m.recordLoad(d.ID, "success")
	return loadedTypes, nil
}

// recordLoad records one plugin load attempt if metrics are enabled.
func (m *Manager) recordLoad(pluginID, status string) {
	if m.metrics != nil {
		m.metrics.RecordPluginLoad(pluginID, status)
	}
}

// executorFor adapts a plugin's dynamic-dispatch Execute method to
// types.Executor for one specific node type. The RPC boundary carries
// no context; the host-side node-scoped logger (internal/logging,
// spec.md §5) still wraps the call on the caller's side even though the
// plugin process itself cannot observe it.
func executorFor(plug NodePlugin, nodeType string) types.Executor {
	return func(ctx context.Context, params, inputs map[string]any) (map[string]any, error) {
		return plug.Execute(nodeType, params, inputs)
	}
}

// Activate loads a plugin and clears its inactive flag. Idempotent: an
// already-active plugin is reloaded in place.
func (m *Manager) Activate(id string) error {
	found, err := scan(m.root)
	if err != nil {
		return err
	}
	var target *discovered
	for i := range found {
		if found[i].ID == id {
			target = &found[i]
			break
		}
	}
	if target == nil {
		return &UnknownPluginError{ID: id}
	}

	m.mu.Lock()
	if err := m.state.setActive(id); err != nil {
		m.mu.Unlock()
		return err
	}
	_, err = m.load(*target)
	m.mu.Unlock()
	if err != nil {
		return &ImportError{ID: id, Err: err}
	}

	m.runHook(*target, "on_activate")
	return nil
}

// Deactivate marks a plugin inactive and clears and reloads the entire
// registry: discovery cannot reconstruct a precise plugin→types index
// after the fact, so the only way to guarantee the deactivated plugin's
// types are gone is to rebuild from scratch (spec.md §4.D, preserved as
// an open question rather than optimized away — see DESIGN.md).
func (m *Manager) Deactivate(id string) error {
	m.mu.Lock()
	if !m.state.isActive(id) {
		m.mu.Unlock()
		return nil
	}
	if err := m.state.setInactive(id); err != nil {
		m.mu.Unlock()
		return err
	}
	m.clearAndReloadLocked()
	m.mu.Unlock()

	if found, err := scan(m.root); err == nil {
		for _, d := range found {
			if d.ID == id {
				m.runHook(d, "on_deactivate")
				break
			}
		}
	}
	return nil
}

// clearAndReloadLocked kills every plugin client, wipes the registry,
// and reloads every still-active plugin. Caller must hold m.mu.
func (m *Manager) clearAndReloadLocked() {
	for id, client := range m.clients {
		client.Kill()
		delete(m.clients, id)
	}
	m.typesOf = make(map[string][]string)
	m.reg.Clear()

	found, err := scan(m.root)
	if err != nil {
		m.log.Warn().Err(err).Msg("plugin rescan failed during clear-and-reload")
		return
	}
	for _, d := range found {
		if !m.state.isActive(d.ID) {
			continue
		}
		if _, err := m.load(d); err != nil {
			m.log.Warn().Str("plugin", d.ID).Err(err).Msg("plugin reload failed during clear-and-reload")
		}
	}
}

// Delete refuses unless the plugin is currently inactive, then removes
// its file or directory recursively and its state-file entry.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.isActive(id) {
		return &ActivePluginError{ID: id}
	}

	found, err := scan(m.root)
	if err != nil {
		return err
	}
	var target *discovered
	for i := range found {
		if found[i].ID == id {
			target = &found[i]
			break
		}
	}
	if target == nil {
		return &UnknownPluginError{ID: id}
	}

	m.runHook(*target, "on_uninstall")

	removeTarget := target.BinPath
	if target.HookDir != "" {
		removeTarget = target.HookDir
	}
	if err := os.RemoveAll(removeTarget); err != nil {
		return err
	}
	return m.state.remove(id)
}

// runHook invokes one of the three lifecycle hook binaries if the
// plugin ships one; any error is logged and swallowed (spec.md §4.D
// "Hook exceptions MUST NOT propagate").
func (m *Manager) runHook(d discovered, name string) {
	if d.HookDir == "" {
		return
	}
	hookPath := filepath.Join(d.HookDir, name)
	if _, err := os.Stat(hookPath); err != nil {
		return
	}
	if err := exec.Command(hookPath).Run(); err != nil {
		m.log.Warn().Str("plugin", d.ID).Str("hook", name).Err(err).Msg("plugin hook failed")
	}
}

// CloseAll kills every loaded plugin client; callers invoke it at
// process shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, client := range m.clients {
		client.Kill()
		delete(m.clients, id)
	}
}
