package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRequest(http.MethodPost, "/household/member/v1/_create", http.StatusAccepted, 20*time.Millisecond)
	m.ObserveRequest(http.MethodPost, "/household/member/v1/_create", http.StatusBadRequest, time.Millisecond)
	m.ObserveRequest(http.MethodPost, "/household/member/v1/_create", http.StatusServiceUnavailable, time.Millisecond)

	route := "/household/member/v1/_create"
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Responses.WithLabelValues(http.MethodPost, route, "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Responses.WithLabelValues(http.MethodPost, route, "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Responses.WithLabelValues(http.MethodPost, route, "5xx")))
}
