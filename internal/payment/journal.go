package payment

import (
	"context"
	"fmt"
	"time"
	"transferly/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "payment_attempts"

	defaultJournalTimeout = 5 * time.Second
)

// Attempt is one recorded state transition. The journal is append-only and
// is what support staff search when a customer quotes a support reference.
type Attempt struct {
	ID               string       `json:"id" bson:"_id"`
	BookingID        string       `json:"booking_id" bson:"booking_id"`
	PaymentIntentID  string       `json:"payment_intent_id,omitempty" bson:"payment_intent_id,omitempty"`
	From             State        `json:"from" bson:"from"`
	To               State        `json:"to" bson:"to"`
	Amount           model.Amount `json:"amount" bson:"amount"`
	Recoverable      bool         `json:"recoverable" bson:"recoverable"`
	SupportReference string       `json:"support_reference,omitempty" bson:"support_reference,omitempty"`
	Error            string       `json:"error,omitempty" bson:"error,omitempty"`
	RecordedAt       time.Time    `json:"recorded_at" bson:"recorded_at"`
}

type Journal interface {
	Record(ctx context.Context, attempt Attempt) error
	History(ctx context.Context, bookingID string) ([]Attempt, error)
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) ([]Attempt, error)
}

type mongoJournal struct {
	collection *mongo.Collection
	timeout    time.Duration
}

func NewMongoJournal(db *mongo.Database, timeout time.Duration) Journal {
	if timeout <= 0 {
		timeout = defaultJournalTimeout
	}
	return &mongoJournal{
		collection: db.Collection(CollectionName),
		timeout:    timeout,
	}
}

// withTimeout uses the shorter of the caller's remaining deadline and the
// journal timeout.
func (j *mongoJournal) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < j.timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, j.timeout)
}

func (j *mongoJournal) Record(ctx context.Context, attempt Attempt) error {
	ctx, cancel := j.withTimeout(ctx)
	defer cancel()

	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.RecordedAt.IsZero() {
		attempt.RecordedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	if _, err := j.collection.InsertOne(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record payment attempt: %w", err)
	}
	return nil
}

func (j *mongoJournal) History(ctx context.Context, bookingID string) ([]Attempt, error) {
	return j.find(ctx, bson.M{"booking_id": bookingID})
}

func (j *mongoJournal) FindByPaymentIntent(ctx context.Context, paymentIntentID string) ([]Attempt, error) {
	return j.find(ctx, bson.M{"payment_intent_id": paymentIntentID})
}

func (j *mongoJournal) find(ctx context.Context, filter bson.M) ([]Attempt, error) {
	ctx, cancel := j.withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: 1}})
	cursor, err := j.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment attempts: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var attempts []Attempt
	if err := cursor.All(ctx, &attempts); err != nil {
		return nil, fmt.Errorf("failed to decode payment attempts: %w", err)
	}
	return attempts, nil
}
