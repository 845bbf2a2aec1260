package models

import "time"

// PaymentEvent is a verified NOWPayments IPN callback.
type PaymentEvent struct {
	PaymentID     string    `json:"payment_id"`
	PaymentStatus string    `json:"payment_status"`
	OrderID       string    `json:"order_id"`
	Payload       string    `json:"payload"`
	ReceivedAt    time.Time `json:"received_at"`
}
