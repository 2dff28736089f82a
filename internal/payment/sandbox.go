package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-gin-supper-club/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SandboxGateway settles everything locally. Replaying an idempotency key
// returns the first receipt.
type SandboxGateway struct {
	decline bool
	now     func() time.Time

	mu       sync.Mutex
	receipts map[string]*Receipt
}

func NewSandboxGateway(decline bool) *SandboxGateway {
	return &SandboxGateway{
		decline:  decline,
		now:      time.Now,
		receipts: make(map[string]*Receipt),
	}
}

func (g *SandboxGateway) Charge(ctx context.Context, req ChargeRequest) (*Receipt, error) {
	if req.Amount < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrDeclined)
	}
	if g.decline {
		logger.WithComponent("payment").Info("sandbox declined charge",
			zap.String("booking_id", req.BookingID.String()), zap.Int64("amount", req.Amount))
		return nil, ErrDeclined
	}
	return g.settle("ch_", req.IdempotencyKey), nil
}

func (g *SandboxGateway) Refund(ctx context.Context, req RefundRequest) (*Receipt, error) {
	if req.Amount < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrDeclined)
	}
	return g.settle("re_", req.IdempotencyKey), nil
}

func (g *SandboxGateway) settle(prefix, key string) *Receipt {
	g.mu.Lock()
	defer g.mu.Unlock()

	if key != "" {
		if r, ok := g.receipts[key]; ok {
			return r
		}
	}
	r := &Receipt{
		Reference:   prefix + uuid.NewString(),
		ProcessedAt: g.now(),
	}
	if key != "" {
		g.receipts[key] = r
	}
	return r
}
