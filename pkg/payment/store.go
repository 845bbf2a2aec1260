package payment

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/aitarf0921/AI-Secretary/pkg/models"
)

// EventLog appends verified IPN callbacks to a SQLite table.
type EventLog struct {
	db *sql.DB
}

// NewEventLog opens the database at dbPath and creates the schema.
func NewEventLog(dbPath string) (*EventLog, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open payment db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate payment db: %w", err)
	}
	return &EventLog{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS payment_events (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		payment_id     TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		order_id       TEXT,
		payload        TEXT NOT NULL,
		received_at    DATETIME NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_payment_events_payment ON payment_events(payment_id)`)
	return err
}

// Record appends ev.
func (l *EventLog) Record(ctx context.Context, ev models.PaymentEvent) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO payment_events (payment_id, payment_status, order_id, payload, received_at) VALUES (?, ?, ?, ?, ?)`,
		ev.PaymentID, ev.PaymentStatus, ev.OrderID, ev.Payload, ev.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("record payment event: %w", err)
	}
	return nil
}

// ByPayment returns every event for paymentID, oldest first.
func (l *EventLog) ByPayment(ctx context.Context, paymentID string) ([]models.PaymentEvent, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT payment_id, payment_status, order_id, payload, received_at
		 FROM payment_events WHERE payment_id = ? ORDER BY id`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("query payment events: %w", err)
	}
	defer rows.Close()

	var events []models.PaymentEvent
	for rows.Next() {
		var ev models.PaymentEvent
		var orderID sql.NullString
		if err := rows.Scan(&ev.PaymentID, &ev.PaymentStatus, &orderID, &ev.Payload, &ev.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan payment event: %w", err)
		}
		ev.OrderID = orderID.String
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close releases the database connection.
func (l *EventLog) Close() error {
	return l.db.Close()
}
