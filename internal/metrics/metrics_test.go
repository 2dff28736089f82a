package metrics

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	apperrors "go-gin-supper-club/pkg/app_errors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSeatResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{apperrors.ErrCapacityExceeded, "capacity_exceeded"},
		{fmt.Errorf("reserve: %w", apperrors.ErrEventClosed), "event_closed"},
		{apperrors.ErrEventNotFound, "not_found"},
		{fmt.Errorf("boom"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SeatResult(tt.err))
	}
}

func TestObserveSeatOperation(t *testing.T) {
	counter := SeatOperations.WithLabelValues("reserve", "capacity_exceeded")
	before := testutil.ToFloat64(counter)

	ObserveSeatOperation("reserve", apperrors.ErrCapacityExceeded)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestObserveHTTP(t *testing.T) {
	counter := HTTPRequests.WithLabelValues(http.MethodGet, "/api/v1/events/:id", "404")
	before := testutil.ToFloat64(counter)

	ObserveHTTP(http.MethodGet, "/api/v1/events/:id", http.StatusNotFound, 15*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
