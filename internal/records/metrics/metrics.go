package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the records module.
type Metrics struct {
	RecordsCreated    prometheus.Counter
	RecordsDeleted    prometheus.Counter
	OperationDuration *prometheus.HistogramVec
	OperationFailures *prometheus.CounterVec
	CacheLookups      *prometheus.CounterVec
}

// New registers the records metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "userdir_records_created_total",
			Help: "Total number of user records created",
		}),
		RecordsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "userdir_records_deleted_total",
			Help: "Total number of user records deleted",
		}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "userdir_record_operation_duration_seconds",
			Help:    "Duration of record service operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		OperationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "userdir_record_operation_failures_total",
			Help: "Record service operations that returned an error, by error code",
		}, []string{"operation", "code"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "userdir_record_cache_lookups_total",
			Help: "Record cache lookups by result (hit, miss)",
		}, []string{"result"}),
	}
}

// IncrementCreated records a successful creation.
func (m *Metrics) IncrementCreated() {
	m.RecordsCreated.Inc()
}

// IncrementDeleted records a successful deletion.
func (m *Metrics) IncrementDeleted() {
	m.RecordsDeleted.Inc()
}

// ObserveOperation records the duration of an operation.
// Call with time.Now() taken at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// IncrementFailure counts a failed operation under its error code.
func (m *Metrics) IncrementFailure(operation, code string) {
	m.OperationFailures.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) RecordCacheHit() {
	m.CacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) RecordCacheMiss() {
	m.CacheLookups.WithLabelValues("miss").Inc()
}
