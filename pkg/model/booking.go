package model

import "time"

// BookingStatus is treated as an opaque value; only equality matters here.
type BookingStatus string

const (
	StatusPendingPayment BookingStatus = "PENDING_PAYMENT"
	StatusPaid           BookingStatus = "PAID"
	StatusAssigned       BookingStatus = "ASSIGNED"
	StatusInProgress     BookingStatus = "IN_PROGRESS"
	StatusCompleted      BookingStatus = "COMPLETED"
	StatusCancelled      BookingStatus = "CANCELLED"
	StatusRefunded       BookingStatus = "REFUNDED"
)

func (s BookingStatus) IsPayable() bool {
	return s == StatusPendingPayment
}

func (s BookingStatus) String() string {
	return string(s)
}

type Booking struct {
	ID              string        `json:"id"`
	Status          BookingStatus `json:"status"`
	TotalPrice      Amount        `json:"total_price"`
	Currency        string        `json:"currency,omitempty"`
	PaymentIntentID string        `json:"payment_intent_id,omitempty"`
	PickupDateTime  *time.Time    `json:"pickup_datetime,omitempty"`
	UpdatedAt       *time.Time    `json:"updated_at,omitempty"`
}

// PaymentSession is created once per payment attempt and goes stale once the
// booking leaves PENDING_PAYMENT.
type PaymentSession struct {
	BookingID       string `json:"booking_id"`
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
}
