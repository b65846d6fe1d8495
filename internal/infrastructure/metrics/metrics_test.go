package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewClientMetrics(reg)
	require.NoError(t, err)

	m.Observe("storage", "list", 200, 10*time.Millisecond)
	m.Observe("storage", "list", 200, 5*time.Millisecond)
	m.Observe("storage", "get", 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests().WithLabelValues("storage", "list", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests().WithLabelValues("storage", "get", "error")))
}

func TestNewClientMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewClientMetrics(reg)
	require.NoError(t, err)
	second, err := NewClientMetrics(reg)
	require.NoError(t, err)

	first.Observe("products", "create", 201, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.Requests().WithLabelValues("products", "create", "201")))
}

func TestNilMetrics_AreSafe(t *testing.T) {
	var cm *ClientMetrics
	var sm *StoreMetrics
	cm.Observe("products", "list", 200, time.Millisecond)
	sm.Transition("products", "reset")
}

func TestStoreMetrics_Transition(t *testing.T) {
	m, err := NewStoreMetrics(nil)
	require.NoError(t, err)

	m.Transition("storageRoom", "read_requested")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions().WithLabelValues("storageRoom", "read_requested")))
}
