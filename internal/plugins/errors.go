package plugins

import "fmt"

// ExecuteError wraps a plugin-reported execution failure, the plugin
// analogue of engine.ExecutorError (spec.md §7 "Executor exception").
type ExecuteError struct {
	NodeType string
	Message  string
}

func (e *ExecuteError) Error() string {
	return fmt.Sprintf("plugin node %q: %s", e.NodeType, e.Message)
}

// ActivePluginError is the "Lifecycle error" of spec.md §7: delete(id)
// refused because the plugin is still active.
type ActivePluginError struct {
	ID string
}

func (e *ActivePluginError) Error() string {
	return fmt.Sprintf("plugin %q must be deactivated before it can be deleted", e.ID)
}

// UnknownPluginError is returned by any lifecycle operation on an id
// discovery never found.
type UnknownPluginError struct {
	ID string
}

func (e *UnknownPluginError) Error() string {
	return fmt.Sprintf("plugin %q not found", e.ID)
}

// ImportError records a plugin that failed to load; it is captured as
// data against the manifest entry (spec.md §7 "Plugin import error")
// rather than aborting discovery of the other plugins.
type ImportError struct {
	ID  string
	Err error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("plugin %q import failed: %v", e.ID, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }
