package wallet

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/socialpulse/backend/internal/platform/paypalclient"
	"github.com/socialpulse/backend/pkg/types"
)

type paypalCharger struct {
	provider paypalclient.Client
}

// NewCharger charges saved methods through the billing provider: an order is
// created and captured in one go against the stored method reference.
func NewCharger(provider paypalclient.Client) Charger {
	return &paypalCharger{provider: provider}
}

func (c *paypalCharger) Charge(ctx context.Context, paymentMethodID string, amount decimal.Decimal) (string, error) {
	order, err := c.provider.CreateOrder(ctx, amount, "USD", "", paymentMethodID)
	if err != nil {
		return "", err
	}
	captured, err := c.provider.CaptureOrder(ctx, order.ID)
	if err != nil {
		return "", err
	}
	if captured.Status != paypalclient.OrderStatusCompleted {
		return "", types.Faultf(types.FaultUpstreamPermanent, "charge ended in status %s", captured.Status)
	}
	return captured.ID, nil
}
