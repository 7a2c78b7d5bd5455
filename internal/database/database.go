// Package database provides the external domain records collaborator:
// users, orders, events and payments backing the bot's lookup tools.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// User is a known customer.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Event is something with a venue and a start time.
type Event struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Venue    string    `json:"venue"`
	StartsAt time.Time `json:"starts_at"`
}

// Order links a user to an event.
type Order struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	EventID     string    `json:"event_id"`
	Status      string    `json:"status"`
	AmountCents int64     `json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

// DB wraps the sqlite-backed domain store.
type DB struct {
	db *sql.DB
}

// Open opens (and migrates) the domain database at path. Use ":memory:"
// for an ephemeral store.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open domain db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error { return d.db.Close() }

// Ping verifies the connection.
func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

// FindUserByPhone returns the user registered with the given phone number.
func (d *DB) FindUserByPhone(ctx context.Context, phone string) (*User, error) {
	u := &User{}
	err := d.db.QueryRowContext(ctx,
		`SELECT id, name, phone FROM users WHERE phone = ?`, phone,
	).Scan(&u.ID, &u.Name, &u.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by phone: %w", err)
	}
	return u, nil
}

// SearchUsersByName returns users whose name matches the query.
func (d *DB) SearchUsersByName(ctx context.Context, name string) ([]User, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, phone FROM users WHERE name LIKE ? ORDER BY name LIMIT 10`,
		"%"+name+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Phone); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// GetUserByID returns a user by id.
func (d *DB) GetUserByID(ctx context.Context, id string) (*User, error) {
	u := &User{}
	err := d.db.QueryRowContext(ctx,
		`SELECT id, name, phone FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &u.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserOrders returns the user's orders, newest first.
func (d *DB) GetUserOrders(ctx context.Context, userID string) ([]Order, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, event_id, status, amount_cents, created_at
		 FROM orders WHERE user_id = ? ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get user orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.EventID, &o.Status, &o.AmountCents, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetOrderByID returns an order by id.
func (d *DB) GetOrderByID(ctx context.Context, id string) (*Order, error) {
	o := &Order{}
	err := d.db.QueryRowContext(ctx,
		`SELECT id, user_id, event_id, status, amount_cents, created_at
		 FROM orders WHERE id = ?`, id,
	).Scan(&o.ID, &o.UserID, &o.EventID, &o.Status, &o.AmountCents, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// GetEvent returns an event by id.
func (d *DB) GetEvent(ctx context.Context, id string) (*Event, error) {
	e := &Event{}
	err := d.db.QueryRowContext(ctx,
		`SELECT id, name, venue, starts_at FROM events WHERE id = ?`, id,
	).Scan(&e.ID, &e.Name, &e.Venue, &e.StartsAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// AddUser inserts a user; a fresh id is generated when absent.
func (d *DB) AddUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO users (id, name, phone) VALUES (?, ?, ?)`, u.ID, u.Name, u.Phone)
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	return nil
}

// AddEvent inserts an event.
func (d *DB) AddEvent(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO events (id, name, venue, starts_at) VALUES (?, ?, ?, ?)`,
		e.ID, e.Name, e.Venue, e.StartsAt)
	if err != nil {
		return fmt.Errorf("add event: %w", err)
	}
	return nil
}

// AddOrder inserts an order.
func (d *DB) AddOrder(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = "open"
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, event_id, status, amount_cents) VALUES (?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.EventID, o.Status, o.AmountCents)
	if err != nil {
		return fmt.Errorf("add order: %w", err)
	}
	return nil
}

// SetOrderStatus updates an order's status.
func (d *DB) SetOrderStatus(ctx context.Context, orderID, status string) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE id = ?`, status, orderID)
	if err != nil {
		return fmt.Errorf("set order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordPayment records a settled charge against an order and returns the
// receipt id.
func (d *DB) RecordPayment(ctx context.Context, orderID string, amountCents int64) (string, error) {
	if _, err := d.GetOrderByID(ctx, orderID); err != nil {
		return "", err
	}
	receiptID := uuid.NewString()
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO payments (id, order_id, amount_cents) VALUES (?, ?, ?)`,
		receiptID, orderID, amountCents)
	if err != nil {
		return "", fmt.Errorf("record payment: %w", err)
	}
	if err := d.SetOrderStatus(ctx, orderID, "paid"); err != nil {
		return "", err
	}
	return receiptID, nil
}
