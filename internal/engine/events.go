package engine

// Kind identifies the shape of an Event's payload; the event sink
// contract of spec.md §4.J is a closed set of eight event kinds.
type Kind string

const (
	KindStart           Kind = "start"
	KindNodeStart       Kind = "node_start"
	KindNodeComplete    Kind = "node_complete"
	KindNodeError       Kind = "node_error"
	KindLog             Kind = "log"
	KindBreakpoint      Kind = "breakpoint"
	KindProfilerSummary Kind = "profiler_summary"
	KindComplete        Kind = "complete"
)

// LogLevel matches the four levels spec.md §4.J requires on log events.
type LogLevel string

const (
	LogDebug LogLevel = "DEBUG"
	LogInfo  LogLevel = "INFO"
	LogWarn  LogLevel = "WARN"
	LogError LogLevel = "ERROR"
)

// NodeTiming is one entry of a profiler_summary's node_timings map.
type NodeTiming struct {
	Type       string `json:"type"`
	DurationMs int64  `json:"duration_ms"`
}

// Event is the engine's one wire shape for everything emitted to an
// EventSink. Only the fields relevant to Kind are populated; the rest
// are left zero-valued, matching the teacher's plain-struct observer
// payloads rather than a tagged union the language has no syntax for.
type Event struct {
	Kind Kind `json:"kind"`

	// start
	TotalNodes int `json:"total_nodes,omitempty"`

	// node_start, node_complete, node_error, breakpoint, log
	NodeID    string `json:"node_id,omitempty"`
	NodeLabel string `json:"node_label,omitempty"`
	NodeType  string `json:"node_type,omitempty"`

	// node_complete
	Outputs    map[string]any `json:"outputs,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`

	// node_error
	Error      string `json:"error,omitempty"`
	StackTrace string `json:"stack_trace,omitempty"`

	// log
	Level   LogLevel `json:"level,omitempty"`
	Message string   `json:"message,omitempty"`

	// breakpoint
	Inputs map[string]any `json:"inputs,omitempty"`

	// profiler_summary
	TotalMs     int64                 `json:"total_ms,omitempty"`
	NodeTimings map[string]NodeTiming `json:"node_timings,omitempty"`
	SlowestNode string                `json:"slowest_node,omitempty"`

	// complete reuses TotalMs.
}

// EventSink is the opaque callback the driver and loop executors
// report lifecycle and log events through (spec.md §4.J). A sink MAY
// buffer and re-broadcast; a slow subscriber must not block execution,
// which is the caller's responsibility to arrange (e.g. a buffered
// channel fan-out in a concrete sink implementation).
type EventSink interface {
	Emit(Event)
}

// NopSink discards every event; the zero value is ready to use.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// FuncSink adapts a plain function to EventSink.
type FuncSink func(Event)

func (f FuncSink) Emit(e Event) { f(e) }

// ChanSink fans events out onto a channel, for a caller (e.g. the HTTP
// reference sink) that wants to relay them over SSE without the driver
// blocking on a slow consumer: Emit drops the event rather than block
// when the channel is full.
type ChanSink chan Event

func (c ChanSink) Emit(e Event) {
	select {
	case c <- e:
	default:
	}
}
