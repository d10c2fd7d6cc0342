package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSetCircuitBreakerStateSetsOnlyActiveState(t *testing.T) {
	SetCircuitBreakerState("resolver", "open")
	assert.Equal(t, float64(1), testutil.ToFloat64(circuitBreakerState.WithLabelValues("resolver", "open")))
	assert.Equal(t, float64(0), testutil.ToFloat64(circuitBreakerState.WithLabelValues("resolver", "closed")))
	assert.Equal(t, float64(0), testutil.ToFloat64(circuitBreakerState.WithLabelValues("resolver", "half-open")))
}

func TestSetCircuitBreakerStatusRecordsIntegerCode(t *testing.T) {
	SetCircuitBreakerStatus("tmdb", 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(circuitBreakerStatus.WithLabelValues("tmdb")))
}

func TestRecordCircuitBreakerTripIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(circuitBreakerTrips.WithLabelValues("llm", "tech_failure_threshold"))
	RecordCircuitBreakerTrip("llm", "tech_failure_threshold")
	after := testutil.ToFloat64(circuitBreakerTrips.WithLabelValues("llm", "tech_failure_threshold"))
	assert.Equal(t, before+1, after)
}
