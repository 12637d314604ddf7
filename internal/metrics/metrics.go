// Package metrics 报餐服务的 Prometheus 指标。
//
// 所有方法对 nil 接收者安全，未启用指标时可直接传 nil。
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 写入结果标签
const (
	ResultCreated   = "created"
	ResultUpdated   = "updated"
	ResultUnchanged = "unchanged"
	ResultLocked    = "locked"
	ResultConflict  = "conflict"
	ResultError     = "error"
)

// 推送结果标签
const (
	OutcomeDelivered = "delivered"
	OutcomeDropped   = "dropped"
)

type Metrics struct {
	RegistrationsWritten *prometheus.CounterVec
	AuditEntries         prometheus.Counter
	LockChanges          *prometheus.CounterVec
	PurgedRows           *prometheus.CounterVec
	PurgeFailures        prometheus.Counter
	RealtimeMessages     *prometheus.CounterVec
	RealtimeConnections  prometheus.Gauge
	RegistrationDuration prometheus.Histogram
}

// New 在给定 Registerer 上注册全部指标
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RegistrationsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Name: "meals_registrations_written_total",
			Help: "Total number of department lunch write attempts by result",
		}, []string{"result"}),
		AuditEntries: f.NewCounter(prometheus.CounterOpts{
			Name: "meals_audit_entries_total",
			Help: "Total number of audit entries appended",
		}),
		LockChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "meals_lock_changes_total",
			Help: "Total number of manual lock/unlock actions",
		}, []string{"locked"}),
		PurgedRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "meals_purged_rows_total",
			Help: "Total number of rows removed by the retention purge",
		}, []string{"table"}),
		PurgeFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "meals_purge_failures_total",
			Help: "Total number of failed retention purge runs",
		}),
		RealtimeMessages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "meals_realtime_messages_total",
			Help: "Total number of realtime messages handed to clients by outcome",
		}, []string{"outcome"}),
		RealtimeConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "meals_realtime_connections",
			Help: "Current number of connected realtime clients",
		}),
		RegistrationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "meals_registration_duration_seconds",
			Help:    "Latency of department lunch writes including retries",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveRegistration(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.RegistrationsWritten.WithLabelValues(result).Inc()
	m.RegistrationDuration.Observe(d.Seconds())
}

func (m *Metrics) IncrementAuditEntries() {
	if m == nil {
		return
	}
	m.AuditEntries.Inc()
}

func (m *Metrics) IncrementLockChanges(locked bool) {
	if m == nil {
		return
	}
	m.LockChanges.WithLabelValues(strconv.FormatBool(locked)).Inc()
}

func (m *Metrics) AddPurgedRows(table string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.PurgedRows.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) IncrementPurgeFailures() {
	if m == nil {
		return
	}
	m.PurgeFailures.Inc()
}

func (m *Metrics) IncrementRealtimeMessages(outcome string) {
	if m == nil {
		return
	}
	m.RealtimeMessages.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddRealtimeConnections(delta int) {
	if m == nil {
		return
	}
	m.RealtimeConnections.Add(float64(delta))
}
