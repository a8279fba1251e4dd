package validation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks validator latency and the error codes validators report.
type Metrics struct {
	ValidatorDuration *prometheus.HistogramVec
	EntityErrors      *prometheus.CounterVec
	RequestFailures   *prometheus.CounterVec
}

// NewMetrics registers the chain metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ValidatorDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hcm_validator_duration_seconds",
			Help:    "Duration of a single validator unit over a bulk request",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"chain", "validator"}),
		EntityErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hcm_validation_errors_total",
			Help: "Entity-level validation errors by code",
		}, []string{"chain", "code"}),
		RequestFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hcm_validation_request_failures_total",
			Help: "Requests aborted because a validator could not determine batch validity",
		}, []string{"chain", "validator"}),
	}
}

// ObserveValidator records how long a unit ran.
// Call with time.Now() at the start of the unit.
func (m *Metrics) ObserveValidator(chain, validator string, start time.Time) {
	m.ValidatorDuration.WithLabelValues(chain, validator).Observe(time.Since(start).Seconds())
}

// CountErrors increments the per-code counter for every error in found.
func (m *Metrics) CountErrors(chain string, found ErrorMap) {
	for _, errs := range found {
		for _, e := range errs {
			m.EntityErrors.WithLabelValues(chain, e.Code).Inc()
		}
	}
}

func (m *Metrics) IncRequestFailure(chain, validator string) {
	m.RequestFailures.WithLabelValues(chain, validator).Inc()
}
