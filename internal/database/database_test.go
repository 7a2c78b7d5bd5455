package database

import (
	"context"
	"errors"
	"testing"
)

func openSeeded(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func TestFindUserByPhone(t *testing.T) {
	db := openSeeded(t)
	u, err := db.FindUserByPhone(context.Background(), "+15550100")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if u.Name != "Ada Reyes" {
		t.Fatalf("wrong user: %+v", u)
	}

	if _, err := db.FindUserByPhone(context.Background(), "+19990000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetUserOrdersAndEvent(t *testing.T) {
	db := openSeeded(t)
	orders, err := db.GetUserOrders(context.Background(), "user-ada")
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != "order-1001" {
		t.Fatalf("unexpected orders: %+v", orders)
	}

	ev, err := db.GetEvent(context.Background(), orders[0].EventID)
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if ev.Venue != "Harbor Hall" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestRecordPaymentMarksOrderPaid(t *testing.T) {
	db := openSeeded(t)
	receipt, err := db.RecordPayment(context.Background(), "order-1001", 4500)
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if receipt == "" {
		t.Fatal("empty receipt id")
	}
	o, err := db.GetOrderByID(context.Background(), "order-1001")
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != "paid" {
		t.Fatalf("order not marked paid: %s", o.Status)
	}
}

func TestRecordPaymentUnknownOrder(t *testing.T) {
	db := openSeeded(t)
	if _, err := db.RecordPayment(context.Background(), "order-404", 100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
