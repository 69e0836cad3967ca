// Package summarize implements the event-payload summarization
// contract from spec.md §6: large payloads are replaced with a compact
// shape/sample/stat summary before they reach an event sink; scalars
// and short sequences pass through unchanged (aside from non-finite
// float conversion).
package summarize

import (
	"math"
	"reflect"
)

// MaxPassThroughLength is the largest sequence length passed through
// verbatim; spec.md leaves the exact threshold to the implementation
// (see DESIGN.md Open Question decisions).
const MaxPassThroughLength = 32

// SampleSize is k in sample_first_k / sample_last_k.
const SampleSize = 3

// Summary is the compact replacement for a large payload.
type Summary struct {
	TypeTag       string `json:"type_tag"`
	ShapeOrLength int    `json:"shape_or_length"`
	Dtype         string `json:"dtype"`
	SampleFirstK  []any  `json:"sample_first_k"`
	SampleLastK   []any  `json:"sample_last_k"`
	Min           any    `json:"min,omitempty"`
	Max           any    `json:"max,omitempty"`
	Mean          any    `json:"mean,omitempty"`
}

// Ports applies Value to every entry of a port-name→value mapping, the
// shape event payloads carry their inputs/outputs in.
func Ports(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Value(v)
	}
	return out
}

// Value summarizes a single value per the §6 contract: a non-finite
// float becomes its string form; a sequence at or under
// MaxPassThroughLength passes through (recursively scalar-normalized);
// a longer sequence is replaced with a Summary.
func Value(v any) any {
	if f, ok := asFloat(v); ok {
		return normalizeFloat(f)
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return v
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return summarizeSequence(rv)
	default:
		return v
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func normalizeFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	default:
		return f
	}
}

func summarizeSequence(rv reflect.Value) any {
	n := rv.Len()
	if n <= MaxPassThroughLength {
		out := make([]any, n)
		for i := 0; i < n; i++ {
			out[i] = Value(rv.Index(i).Interface())
		}
		return out
	}

	dtype := "mixed"
	if n > 0 {
		dtype = rv.Index(0).Kind().String()
	}

	firstK := sampleRange(rv, 0, min(SampleSize, n))
	lastK := sampleRange(rv, max(0, n-SampleSize), n)

	minV, maxV, meanV := numericStats(rv)

	return Summary{
		TypeTag:       "array",
		ShapeOrLength: n,
		Dtype:         dtype,
		SampleFirstK:  firstK,
		SampleLastK:   lastK,
		Min:           minV,
		Max:           maxV,
		Mean:          meanV,
	}
}

func sampleRange(rv reflect.Value, from, to int) []any {
	out := make([]any, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, Value(rv.Index(i).Interface()))
	}
	return out
}

func numericStats(rv reflect.Value) (minV, maxV, meanV any) {
	n := rv.Len()
	if n == 0 {
		return nil, nil, nil
	}

	var sum float64
	var count int
	var lo, hi float64
	for i := 0; i < n; i++ {
		f, ok := asFloat(rv.Index(i).Interface())
		if !ok {
			if iv, ok := asInt(rv.Index(i).Interface()); ok {
				f = float64(iv)
				ok = true
			} else {
				return nil, nil, nil
			}
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		if count == 0 {
			lo, hi = f, f
		} else {
			if f < lo {
				lo = f
			}
			if f > hi {
				hi = f
			}
		}
		sum += f
		count++
	}
	if count == 0 {
		return nil, nil, nil
	}
	return lo, hi, sum / float64(count)
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
