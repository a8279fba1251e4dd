package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks bulk operations on household members.
type Metrics struct {
	Requests        *prometheus.CounterVec
	Members         *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the service metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hcm_household_member_requests_total",
			Help: "Household member requests by operation and outcome",
		}, []string{"operation", "outcome"}),
		Members: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hcm_household_members_total",
			Help: "Household members processed by operation and result",
		}, []string{"operation", "result"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hcm_household_member_request_duration_seconds",
			Help:    "Duration of household member operations",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
	}
}

// ObserveRequest records the outcome and duration of one operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRequest(operation string, err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Requests.WithLabelValues(operation, outcome).Inc()
	m.RequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// CountMembers records how many members were persisted and rejected.
func (m *Metrics) CountMembers(operation string, persisted, rejected int) {
	m.Members.WithLabelValues(operation, "persisted").Add(float64(persisted))
	m.Members.WithLabelValues(operation, "rejected").Add(float64(rejected))
}
