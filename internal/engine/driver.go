// Package engine implements the main execution driver (spec.md §4.I)
// and the event sink contract (§4.J): it walks the top-level
// topological order, dispatches each node to its registered executor
// or to a loop executor, and streams lifecycle events. Grounded on the
// teacher's backend/internal/engine/runner.go and
// backend/internal/workflow/core/engine/executor.go, adapted to run
// strictly sequentially — the teacher's goroutine-per-node parallelism
// is not carried over (spec.md Non-goals exclude intra-workflow
// parallelism).
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/citadel-agent/flowgraph/internal/fanin"
	"github.com/citadel-agent/flowgraph/internal/logging"
	"github.com/citadel-agent/flowgraph/internal/loop"
	"github.com/citadel-agent/flowgraph/internal/observability"
	"github.com/citadel-agent/flowgraph/internal/registry"
	"github.com/citadel-agent/flowgraph/internal/scheduler"
	"github.com/citadel-agent/flowgraph/internal/types"
	"github.com/citadel-agent/flowgraph/pkg/summarize"
)

// Engine runs one workflow at a time against a shared, process-wide
// registry. Multiple Engines may run concurrently against the same
// Registry; each captures its own snapshot at Run time (spec.md §5).
type Engine struct {
	registry    *registry.Registry
	log         zerolog.Logger
	sink        EventSink
	breakpoints map[string]bool
	tracing     *observability.Tracing
	metrics     *observability.Metrics
}

// New builds an Engine. sink may be nil, in which case events are
// discarded. tracing and metrics may each be nil, in which case the
// engine runs without spans or Prometheus recording respectively.
func New(reg *registry.Registry, log zerolog.Logger, sink EventSink, tracing *observability.Tracing, metrics *observability.Metrics) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	return &Engine{registry: reg, log: log, sink: sink, tracing: tracing, metrics: metrics}
}

// SetBreakpoints replaces the set of node ids that emit a breakpoint
// event with their (summarized) inputs before executing.
func (e *Engine) SetBreakpoints(nodeIDs ...string) {
	e.breakpoints = make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		e.breakpoints[id] = true
	}
}

// dispatcher adapts Engine + a registry snapshot to loop.Dispatcher so
// loop executors can invoke ordinary registered nodes the same way the
// top-level walk does.
type dispatcher struct {
	eng  *Engine
	snap registry.Snapshot
	wf   *types.Workflow
	ctx  context.Context
}

func (d dispatcher) Execute(n types.Node, inputs map[string]any) (map[string]any, error) {
	return d.eng.invoke(d.ctx, d.snap, d.wf, n, inputs)
}

// Run executes wf to completion: top-level nodes only (parent_id
// members are consumed by their loop executor), in topological order,
// sequentially on the calling goroutine. It returns the first error
// encountered; nodes executed before that point keep their recorded
// outputs.
func (e *Engine) Run(wf *types.Workflow) error {
	snap := e.registry.Snapshot()
	top := wf.TopLevelNodes()
	order := scheduler.Order(top, wf.Edges)

	ctx := context.Background()
	var workflowSpan trace.Span
	if e.tracing != nil {
		ctx, workflowSpan = e.tracing.StartSpan(ctx, "workflow:"+wf.Name)
		defer workflowSpan.End()
	}

	started := time.Now()
	e.sink.Emit(Event{Kind: KindStart, TotalNodes: len(top)})

	alreadyExecuted := make(map[string]bool)
	outputs := make(map[string]fanin.Outputs)
	byID := make(map[string]types.Node, len(wf.Nodes))
	for _, n := range wf.Nodes {
		byID[n.ID] = n
	}

	timings := make(map[string]NodeTiming)
	var slowestNode string
	var slowestDur int64

	d := dispatcher{eng: e, snap: snap, wf: wf, ctx: ctx}
	forward := wf.ForwardEdges()

	for _, id := range order {
		if alreadyExecuted[id] {
			continue
		}
		if _, done := outputs[id]; done {
			continue
		}

		node := byID[id]
		inputs := fanin.Resolve(id, forward, outputs)

		if e.breakpoints[id] {
			e.sink.Emit(Event{
				Kind:     KindBreakpoint,
				NodeID:   id,
				NodeType: node.Type,
				Inputs:   summarize.Ports(inputs),
			})
		}

		if node.Muted {
			outputs[id] = inputs
			e.sink.Emit(Event{Kind: KindNodeComplete, NodeID: id, Outputs: summarize.Ports(inputs), DurationMs: 0})
			continue
		}

		label := node.Type
		if spec, ok := snap.Spec(node.Type); ok && spec.Label != "" {
			label = spec.Label
		}
		e.sink.Emit(Event{Kind: KindNodeStart, NodeID: id, NodeLabel: label})

		nodeCtx := ctx
		var nodeSpan trace.Span
		if e.tracing != nil {
			nodeCtx, nodeSpan = e.tracing.StartSpan(ctx, "node:"+node.Type)
		}
		d.ctx = nodeCtx

		nodeStart := time.Now()
		var result map[string]any
		var consumedIDs []string
		var err error
		if types.IsStructural(node.Type) {
			result, consumedIDs, err = e.dispatchStructural(d, wf, node, inputs, outputs)
		} else {
			result, err = e.invoke(nodeCtx, snap, wf, node, inputs)
		}
		duration := time.Since(nodeStart).Milliseconds()
		if nodeSpan != nil {
			nodeSpan.End()
		}

		if e.metrics != nil {
			status := "success"
			if err != nil {
				status = "error"
			}
			e.metrics.RecordNodeExecution(node.Type, status, time.Duration(duration)*time.Millisecond)
			if err != nil {
				e.metrics.RecordNodeError(node.Type)
			}
		}

		if err != nil {
			stack := ""
			var st stackTracer
			if errors.As(err, &st) {
				stack = st.StackTrace()
			}
			e.sink.Emit(Event{
				Kind:       KindNodeError,
				NodeID:     id,
				NodeType:   node.Type,
				Error:      err.Error(),
				StackTrace: stack,
				DurationMs: duration,
			})
			return err
		}

		outputs[id] = result
		for _, cid := range consumedIDs {
			alreadyExecuted[cid] = true
		}

		timings[id] = NodeTiming{Type: node.Type, DurationMs: duration}
		if duration >= slowestDur {
			slowestDur = duration
			slowestNode = id
		}

		e.sink.Emit(Event{Kind: KindNodeComplete, NodeID: id, Outputs: summarize.Ports(result), DurationMs: duration})
	}

	totalMs := time.Since(started).Milliseconds()
	e.sink.Emit(Event{Kind: KindProfilerSummary, TotalMs: totalMs, NodeTimings: timings, SlowestNode: slowestNode})
	e.sink.Emit(Event{Kind: KindComplete, TotalMs: totalMs})
	return nil
}

// dispatchStructural runs the loop dialect of a structural node (§4.H):
// container loop, start/end-pair loop (entered at its loop_start), or
// back-edge loop. Any other structural type, such as a loop_end that its
// loop_start did not consume, yields a NodeUnavailableError. Callers
// must check types.IsStructural(node.Type) first.
func (e *Engine) dispatchStructural(d dispatcher, wf *types.Workflow, node types.Node, inputs map[string]any, outputs map[string]fanin.Outputs) (map[string]any, []string, error) {
	switch node.Type {
	case types.TypeContainerLoop:
		slots := make(map[string]any, len(inputs))
		for k, v := range inputs {
			slots[k] = v
		}
		result, err := loop.RunContainer(wf, node, slots, d)
		return result, nil, err

	case types.TypeLoopStart:
		processed, err := loop.RunStartEnd(wf, node, wf.ForwardEdges(), outputs, d)
		if err != nil {
			return nil, nil, err
		}
		return outputs[node.ID], processed, nil

	case types.TypeBackEdgeLoop:
		final, chainIDs, err := loop.RunBackEdge(wf, node, inputs, d)
		return final, chainIDs, err

	default:
		return nil, nil, &NodeUnavailableError{NodeID: node.ID, NodeType: node.Type, Reason: "unrecognized structural type", Stack: captureStack(2)}
	}
}

// invoke dispatches an ordinary, registry-backed node: Node Unavailable
// if its type has no executor, otherwise the executor's result wrapped
// as an ExecutorError on failure. A panicking executor is recovered and
// reported the same way, carrying the recovered panic's own stack.
func (e *Engine) invoke(ctx context.Context, snap registry.Snapshot, wf *types.Workflow, node types.Node, inputs map[string]any) (result map[string]any, err error) {
	exec, ok := snap.Executor(node.Type)
	if !ok {
		return nil, &NodeUnavailableError{NodeID: node.ID, NodeType: node.Type, Reason: "no executor registered for this type", Stack: captureStack(2)}
	}

	// The scoped logger runs at trace level so every executor log call
	// reaches the sink; calls below the base logger's own level are then
	// discarded rather than written to the process log.
	baseLevel := e.log.GetLevel()
	scoped := logging.ForNode(e.log, wf.Name, node.ID, node.Type).Level(zerolog.TraceLevel)
	scoped = scoped.Hook(zerolog.HookFunc(func(zevt *zerolog.Event, level zerolog.Level, msg string) {
		e.sink.Emit(Event{
			Kind:     KindLog,
			NodeID:   node.ID,
			NodeType: node.Type,
			Level:    toLogLevel(level),
			Message:  msg,
		})
		if level < baseLevel {
			zevt.Discard()
		}
	}))
	nodeCtx := scoped.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			err = &ExecutorError{NodeID: node.ID, Err: fmt.Errorf("panic: %v", r), Stack: string(debug.Stack())}
		}
	}()

	out, execErr := exec(nodeCtx, node.Params, inputs)
	if execErr != nil {
		return nil, &ExecutorError{NodeID: node.ID, Err: execErr, Stack: captureStack(2)}
	}
	return out, nil
}

// toLogLevel maps a zerolog.Level to the four levels spec.md §4.J
// requires on log events, collapsing trace/panic/fatal into the
// nearest of the four.
func toLogLevel(level zerolog.Level) LogLevel {
	switch level {
	case zerolog.DebugLevel, zerolog.TraceLevel:
		return LogDebug
	case zerolog.WarnLevel:
		return LogWarn
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return LogError
	default:
		return LogInfo
	}
}
