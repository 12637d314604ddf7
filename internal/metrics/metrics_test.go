package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRegistration(ResultCreated, 10*time.Millisecond)
	m.ObserveRegistration(ResultCreated, 20*time.Millisecond)
	m.ObserveRegistration(ResultLocked, time.Millisecond)
	m.IncrementAuditEntries()
	m.IncrementLockChanges(true)
	m.AddPurgedRows("department_lunches", 3)
	m.AddPurgedRows("lunch_locks", 0)
	m.IncrementRealtimeMessages(OutcomeDropped)
	m.AddRealtimeConnections(2)
	m.AddRealtimeConnections(-1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RegistrationsWritten.WithLabelValues(ResultCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistrationsWritten.WithLabelValues(ResultLocked)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditEntries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LockChanges.WithLabelValues("true")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PurgedRows.WithLabelValues("department_lunches")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RealtimeMessages.WithLabelValues(OutcomeDropped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RealtimeConnections))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRegistration(ResultError, time.Second)
		m.IncrementAuditEntries()
		m.IncrementLockChanges(false)
		m.AddPurgedRows("lunch_locks", 1)
		m.IncrementPurgeFailures()
		m.IncrementRealtimeMessages(OutcomeDelivered)
		m.AddRealtimeConnections(1)
	})
}
