// Package metrics expone las métricas Prometheus del servicio CRUD, del compilador de filtros
// y del relayer del outbox.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
)

type Metrics struct {
	operations      *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	queriesRejected *prometheus.CounterVec
	outboxPublished *prometheus.CounterVec
}

// New registra las métricas en reg. Con prometheus.DefaultRegisterer se publican en /metrics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crudlab_operations_total",
				Help: "Total number of CRUD service operations",
			},
			[]string{"record_type", "operation", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crudlab_operation_duration_seconds",
				Help:    "CRUD service operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"record_type", "operation"},
		),
		queriesRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crudlab_filter_rejected_total",
				Help: "Filters rejected while compiling, before reaching storage",
			},
			[]string{"record_type", "reason"},
		),
		outboxPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crudlab_outbox_published_total",
				Help: "Outbox events handled by the relayer",
			},
			[]string{"event_type", "status"},
		),
	}
}

func (m *Metrics) ObserveOperation(recordType, operation string, elapsed time.Duration, err error) {
	m.operations.WithLabelValues(recordType, operation, Status(err)).Inc()
	m.duration.WithLabelValues(recordType, operation).Observe(elapsed.Seconds())
}

func (m *Metrics) QueryRejected(recordType string, err error) {
	m.queriesRejected.WithLabelValues(recordType, reason(err)).Inc()
}

// OutboxPublished lo llama el relayer por cada evento que intenta publicar.
func (m *Metrics) OutboxPublished(eventType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.outboxPublished.WithLabelValues(eventType, status).Inc()
}

// Status clasifica el error de una operación en una etiqueta de baja cardinalidad.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, sharedDomain.ErrValidation):
		return "invalid"
	case sharedDomain.IsQueryError(err):
		return "bad_query"
	case errors.Is(err, sharedDomain.ErrConflict):
		return "conflict"
	case errors.Is(err, sharedDomain.ErrNotFound):
		return "not_found"
	}
	return "error"
}

func reason(err error) string {
	switch {
	case errors.Is(err, sharedDomain.ErrUnknownField):
		return "unknown_field"
	case errors.Is(err, sharedDomain.ErrInvalidPath):
		return "invalid_path"
	case errors.Is(err, sharedDomain.ErrUnsupportedOperator):
		return "unsupported_operator"
	case errors.Is(err, sharedDomain.ErrInvalidValue):
		return "invalid_value"
	}
	return "other"
}
