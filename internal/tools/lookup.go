package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/ringline/ringline/internal/convo"
	"github.com/ringline/ringline/internal/database"
)

// FindUserTool resolves the caller's identity against the user records.
type FindUserTool struct{}

func (FindUserTool) Name() string { return "find_user" }

func (FindUserTool) Description() string {
	return "Look up a customer by phone number or name. Sets the caller identity for the rest of the call."
}

func (FindUserTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"phone": map[string]any{"type": "string", "description": "Phone number in E.164 format"},
			"name":  map[string]any{"type": "string", "description": "Full or partial name"},
		},
	}
}

func (FindUserTool) Execute(ctx context.Context, args Args, env *Env) (string, error) {
	phone := args.GetString("phone", "")
	name := args.GetString("name", "")
	if phone == "" && name == "" {
		return "", fmt.Errorf("provide a phone number or a name")
	}

	if phone != "" {
		u, err := env.DB.FindUserByPhone(ctx, phone)
		if errors.Is(err, database.ErrNotFound) {
			return `{"found":false}`, nil
		}
		if err != nil {
			return "", err
		}
		env.Store.SetContext(convo.ContextPatch{Caller: &convo.Caller{UserID: u.ID, Name: u.Name, Phone: u.Phone}})
		return jsonResult(map[string]any{"found": true, "user": u})
	}

	users, err := env.DB.SearchUsersByName(ctx, name)
	if err != nil {
		return "", err
	}
	if len(users) == 1 {
		u := users[0]
		env.Store.SetContext(convo.ContextPatch{Caller: &convo.Caller{UserID: u.ID, Name: u.Name, Phone: u.Phone}})
	}
	return jsonResult(map[string]any{"found": len(users) > 0, "users": users})
}

func (FindUserTool) FillerPhrase(args Args) string {
	return "One moment while I look up your account."
}

// GetUserOrdersTool lists the identified caller's orders.
type GetUserOrdersTool struct{}

func (GetUserOrdersTool) Name() string { return "get_user_orders" }

func (GetUserOrdersTool) Description() string {
	return "List the identified caller's orders, newest first. Requires find_user to have succeeded."
}

func (GetUserOrdersTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_id": map[string]any{"type": "string", "description": "Override the identified caller"},
		},
	}
}

func (GetUserOrdersTool) Execute(ctx context.Context, args Args, env *Env) (string, error) {
	userID := args.GetString("user_id", "")
	if userID == "" {
		c := env.Store.Context()
		if c.Caller == nil {
			return "", fmt.Errorf("caller not identified yet; call find_user first")
		}
		userID = c.Caller.UserID
	}
	orders, err := env.DB.GetUserOrders(ctx, userID)
	if err != nil {
		return "", err
	}
	return jsonResult(map[string]any{"orders": orders})
}

func (GetUserOrdersTool) FillerPhrase(args Args) string {
	return "Let me pull up your orders."
}

// GetOrderEventsTool returns event details for an order.
type GetOrderEventsTool struct{}

func (GetOrderEventsTool) Name() string { return "get_order_events" }

func (GetOrderEventsTool) Description() string {
	return "Get the event details (venue, start time) for an order."
}

func (GetOrderEventsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"order_id": map[string]any{"type": "string"},
		},
		"required": []string{"order_id"},
	}
}

func (GetOrderEventsTool) Execute(ctx context.Context, args Args, env *Env) (string, error) {
	orderID := args.GetString("order_id", "")
	if orderID == "" {
		return "", fmt.Errorf("order_id is required")
	}
	order, err := env.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	event, err := env.DB.GetEvent(ctx, order.EventID)
	if err != nil {
		return "", err
	}
	return jsonResult(map[string]any{"order": order, "event": event})
}
