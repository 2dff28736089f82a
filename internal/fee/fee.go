// Package fee computes booking totals and the platform's cut.
package fee

import (
	"fmt"

	apperrors "go-gin-supper-club/pkg/app_errors"

	"github.com/shopspring/decimal"
)

// BasisPointsPerUnit is 100%.
const BasisPointsPerUnit = 10000

var bpsDivisor = decimal.NewFromInt(BasisPointsPerUnit)

// Breakdown is the price split captured on a booking at creation time.
type Breakdown struct {
	TotalPrice  int64
	PlatformFee int64
	RateBps     int
}

// Compute returns ticketPrice*ticketCount and the platform fee on that total,
// rounded half-up to the smallest currency unit. Amounts are minor units.
func Compute(ticketPrice int64, ticketCount int, feeRateBps int) (Breakdown, error) {
	if ticketPrice < 0 {
		return Breakdown{}, fmt.Errorf("%w: negative ticket price %d", apperrors.ErrInvalidArgument, ticketPrice)
	}
	if ticketCount < 0 {
		return Breakdown{}, fmt.Errorf("%w: negative ticket count %d", apperrors.ErrInvalidArgument, ticketCount)
	}
	if feeRateBps < 0 || feeRateBps > BasisPointsPerUnit {
		return Breakdown{}, fmt.Errorf("%w: fee rate %d bps out of range", apperrors.ErrInvalidArgument, feeRateBps)
	}

	total := decimal.NewFromInt(ticketPrice).Mul(decimal.NewFromInt(int64(ticketCount)))
	// Round is half away from zero, which is half-up for the non-negative amounts allowed here.
	platformFee := total.Mul(decimal.NewFromInt(int64(feeRateBps))).Div(bpsDivisor).Round(0)

	return Breakdown{
		TotalPrice:  total.IntPart(),
		PlatformFee: platformFee.IntPart(),
		RateBps:     feeRateBps,
	}, nil
}

// Format renders a minor-unit amount with two decimals, e.g. 12345 -> "123.45".
func Format(amount int64) string {
	return decimal.New(amount, -2).StringFixed(2)
}
