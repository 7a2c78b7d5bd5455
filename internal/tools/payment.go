package tools

import (
	"context"
	"fmt"
)

// TakePaymentTool charges the caller's stored payment method for an
// order.
type TakePaymentTool struct{}

func (TakePaymentTool) Name() string { return "take_payment" }

func (TakePaymentTool) Description() string {
	return "Charge the caller's stored payment method for an order. State the amount to the caller before calling this."
}

func (TakePaymentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"order_id":     map[string]any{"type": "string"},
			"amount_cents": map[string]any{"type": "integer", "description": "Amount to charge; defaults to the order balance"},
		},
		"required": []string{"order_id"},
	}
}

func (TakePaymentTool) Execute(ctx context.Context, args Args, env *Env) (string, error) {
	orderID := args.GetString("order_id", "")
	if orderID == "" {
		return "", fmt.Errorf("order_id is required")
	}
	amount := int64(args.GetInt("amount_cents", 0))
	if amount <= 0 {
		order, err := env.DB.GetOrderByID(ctx, orderID)
		if err != nil {
			return "", err
		}
		amount = order.AmountCents
	}
	receipt, err := env.DB.RecordPayment(ctx, orderID, amount)
	if err != nil {
		return "", fmt.Errorf("payment failed: %w", err)
	}
	return jsonResult(map[string]any{
		"receipt_id":   receipt,
		"order_id":     orderID,
		"amount_cents": amount,
	})
}

func (TakePaymentTool) FillerPhrase(args Args) string {
	return "Give me just a second while I process that payment."
}
