package fee

import (
	"testing"

	apperrors "go-gin-supper-club/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		price     int64
		count     int
		rateBps   int
		wantTotal int64
		wantFee   int64
	}{
		{name: "ten percent", price: 5000, count: 2, rateBps: 1000, wantTotal: 10000, wantFee: 1000},
		{name: "rounds half up", price: 5, count: 1, rateBps: 1000, wantTotal: 5, wantFee: 1},
		{name: "rounds down below half", price: 4, count: 1, rateBps: 1000, wantTotal: 4, wantFee: 0},
		{name: "fractional bps", price: 3333, count: 3, rateBps: 1250, wantTotal: 9999, wantFee: 1250},
		{name: "free event", price: 0, count: 4, rateBps: 1000, wantTotal: 0, wantFee: 0},
		{name: "zero rate", price: 2500, count: 2, rateBps: 0, wantTotal: 5000, wantFee: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.price, tt.count, tt.rateBps)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, got.TotalPrice)
			assert.Equal(t, tt.wantFee, got.PlatformFee)
			assert.Equal(t, tt.rateBps, got.RateBps)
		})
	}
}

func TestCompute_InvalidArgument(t *testing.T) {
	_, err := Compute(-1, 1, 1000)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = Compute(100, -1, 1000)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = Compute(100, 1, 10001)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestCompute_Pure(t *testing.T) {
	first, err := Compute(4999, 3, 875)
	require.NoError(t, err)
	second, err := Compute(4999, 3, 875)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "123.45", Format(12345))
	assert.Equal(t, "0.05", Format(5))
	assert.Equal(t, "-1.00", Format(-100))
}
