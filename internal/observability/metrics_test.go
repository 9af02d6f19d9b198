package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/tasks", "GET", 200, 5*time.Millisecond)
	m.RecordRequest("/tasks", "GET", 200, 7*time.Millisecond)
	m.RecordRequest("/tasks", "POST", 201, 3*time.Millisecond)
	m.RecordError("/tasks/:id", "GET", "NOT_FOUND")

	assert.Equal(t, int64(2), m.RequestCount("/tasks", "GET", 200))
	assert.Equal(t, int64(1), m.RequestCount("/tasks", "POST", 201))
	assert.Equal(t, int64(0), m.RequestCount("/tasks", "DELETE", 200))
	assert.Equal(t, int64(1), m.ErrorCount("/tasks/:id", "GET", "NOT_FOUND"))
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/tasks", "GET", 200, time.Millisecond)
	m.RecordError("/tasks", "GET", "INTERNAL_ERROR")
	assert.Equal(t, int64(0), m.RequestCount("/tasks", "GET", 200))
}
