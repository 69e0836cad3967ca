// Package scriptnode implements the "script" node type: a workflow
// author supplies a JavaScript snippet as a param, evaluated against
// the node's fanned-in inputs. Grounded on the teacher's
// backend/internal/plugins/loader.go JavascriptExecutor (otto VM,
// timeout via goroutine + Interrupt channel, vm.Set/vm.Run/
// value.Export), adapted from a standalone plugin-sandbox abstraction
// into one ordinary types.Executor registered directly in the node
// registry rather than dispatched through a separate PluginManager.
package scriptnode

import (
	"context"
	"fmt"
	"time"

	"github.com/robertkrimen/otto"

	"github.com/citadel-agent/flowgraph/internal/types"
)

// Type is the node type string workflows reference.
const Type = "script"

const (
	codeParam      = "code"
	timeoutMsParam = "timeout_ms"
	defaultTimeout = 5 * time.Second
)

// Spec describes the script node for registry insertion.
func Spec() types.NodeSpec {
	return types.NodeSpec{
		Type:        Type,
		Label:       "Script",
		Category:    "code",
		Description: "Evaluates a JavaScript snippet against its fanned-in inputs.",
		Inputs:      []types.PortSpec{},
		Outputs:     []types.PortSpec{},
	}
}

// Executor returns the types.Executor to register alongside Spec().
// Inputs are exposed to the script as same-named global variables; the
// script assigns to a global `output` object to produce node outputs.
// If `output` is never assigned, the value of the script's last
// expression becomes the sole output under the name "result".
func Executor() types.Executor {
	return func(ctx context.Context, params, inputs map[string]any) (map[string]any, error) {
		code, _ := params[codeParam].(string)
		if code == "" {
			return nil, fmt.Errorf("script node: %q param is required", codeParam)
		}
		timeout := defaultTimeout
		if ms, ok := params[timeoutMsParam]; ok {
			if v, ok := asInt(ms); ok && v > 0 {
				timeout = time.Duration(v) * time.Millisecond
			}
		}

		return run(code, inputs, timeout)
	}
}

func run(code string, inputs map[string]any, timeout time.Duration) (result map[string]any, err error) {
	vm := otto.New()
	vm.Interrupt = make(chan func(), 1)

	for k, v := range inputs {
		if setErr := vm.Set(k, v); setErr != nil {
			return nil, fmt.Errorf("script node: binding input %q: %w", k, setErr)
		}
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-time.After(timeout):
			vm.Interrupt <- func() { panic(timeoutPanic{}) }
		case <-done:
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(timeoutPanic); ok {
				err = fmt.Errorf("script node: execution exceeded %s", timeout)
				return
			}
			panic(r)
		}
	}()

	value, runErr := vm.Run(code)
	if runErr != nil {
		return nil, fmt.Errorf("script node: %w", runErr)
	}

	if outputVal, getErr := vm.Get("output"); getErr == nil && outputVal.IsObject() {
		exported, expErr := outputVal.Export()
		if expErr == nil {
			if m, ok := exported.(map[string]any); ok {
				return m, nil
			}
		}
	}

	exported, expErr := value.Export()
	if expErr != nil {
		return nil, fmt.Errorf("script node: exporting result: %w", expErr)
	}
	return map[string]any{"result": exported}, nil
}

// timeoutPanic is the sentinel value raised on the VM goroutine by
// vm.Interrupt, recovered and turned into an ordinary error.
type timeoutPanic struct{}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
