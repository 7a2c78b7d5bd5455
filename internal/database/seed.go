package database

import (
	"context"
	"time"
)

// Seed loads a small demo dataset for simulate mode. Idempotent enough
// for tests: fixed ids, inserts skipped when the user already exists.
func (d *DB) Seed(ctx context.Context) error {
	if _, err := d.GetUserByID(ctx, "user-ada"); err == nil {
		return nil
	}

	users := []User{
		{ID: "user-ada", Name: "Ada Reyes", Phone: "+15550100"},
		{ID: "user-marcus", Name: "Marcus Webb", Phone: "+15550101"},
	}
	for i := range users {
		if err := d.AddUser(ctx, &users[i]); err != nil {
			return err
		}
	}

	events := []Event{
		{ID: "event-jazz", Name: "Riverside Jazz Night", Venue: "Harbor Hall", StartsAt: time.Date(2026, 9, 12, 19, 30, 0, 0, time.UTC)},
		{ID: "event-expo", Name: "Maker Expo", Venue: "Pier 9", StartsAt: time.Date(2026, 10, 3, 10, 0, 0, 0, time.UTC)},
	}
	for i := range events {
		if err := d.AddEvent(ctx, &events[i]); err != nil {
			return err
		}
	}

	orders := []Order{
		{ID: "order-1001", UserID: "user-ada", EventID: "event-jazz", Status: "open", AmountCents: 4500},
		{ID: "order-1002", UserID: "user-marcus", EventID: "event-expo", Status: "paid", AmountCents: 2500},
	}
	for i := range orders {
		if err := d.AddOrder(ctx, &orders[i]); err != nil {
			return err
		}
	}
	return nil
}
