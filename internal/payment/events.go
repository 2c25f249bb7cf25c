package payment

import (
	"context"
	"time"
	"transferly/pkg/kafka"
	"transferly/pkg/model"
)

const (
	EventIntentCreated = "payment.intent_created"
	EventCardError     = "payment.card_error"
	EventConfirmed     = "payment.confirmed"
	EventReconciled    = "payment.reconciled"
	EventAmbiguous     = "payment.ambiguous"
	EventFailed        = "payment.failed"

	eventSchemaVersion = "1"
)

// Event describes one payment lifecycle step for downstream consumers
// (support tooling, notifications).
type Event struct {
	Type            string              `json:"type"`
	BookingID       string              `json:"booking_id"`
	PaymentIntentID string              `json:"payment_intent_id,omitempty"`
	Amount          model.Amount        `json:"amount"`
	From            State               `json:"from"`
	To              State               `json:"to"`
	BookingStatus   model.BookingStatus `json:"booking_status,omitempty"`
	Reconciled      bool                `json:"reconciled,omitempty"`
	Error           string              `json:"error,omitempty"`
	OccurredAt      time.Time           `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaPublisher publishes events keyed by booking id so that one booking's
// events stay ordered on a partition.
type KafkaPublisher struct {
	producer messagePublisher
	source   string
}

func NewKafkaPublisher(producer *kafka.Producer, source string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, source: source}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := kafka.NewMessage().
		WithKey(event.BookingID).
		WithEventID("").
		WithEventType(event.Type).
		WithCorrelationID(event.PaymentIntentID).
		WithSchemaVersion(eventSchemaVersion).
		WithSource(p.source).
		WithValue(event).
		Build()
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

func eventType(to State) string {
	switch to {
	case StateIntentCreated:
		return EventIntentCreated
	case StateConfirming:
		return EventCardError
	case StateConfirmedBackend:
		return EventConfirmed
	case StateTerminalSuccess:
		return EventReconciled
	case StateAmbiguous:
		return EventAmbiguous
	case StateFailed:
		return EventFailed
	default:
		return ""
	}
}
