package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rental-booking/internal/model"
)

// Charge is what a settlement gateway is asked to collect.
type Charge struct {
	BookingID uint64
	Reference string
	Amount    decimal.Decimal
	Method    model.PaymentMethod
	Type      model.PaymentType
}

// Gateway settles a charge with an external payment provider. Settle must
// honour ctx cancellation.
type Gateway interface {
	Settle(ctx context.Context, c Charge) error
}

// SimulatedGateway settles every charge instantly.
type SimulatedGateway struct{}

func (SimulatedGateway) Settle(ctx context.Context, _ Charge) error { return ctx.Err() }

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, c Charge) error

func (f GatewayFunc) Settle(ctx context.Context, c Charge) error { return f(ctx, c) }
