package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRecording(t *testing.T) {
	m := NewMetrics()
	assert.NotNil(t, m)

	m.RecordWorkflowExecution("wf-1", "completed", 2*time.Second)
	m.RecordNodeExecution("http", "success", 100*time.Millisecond)
	m.RecordNodeError("http")
	m.RecordPluginLoad("acme/uppercase", "active")
	m.Refresh()

	assert.NotNil(t, m.Handler())
}
