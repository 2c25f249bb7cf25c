// Package payment drives one booking's payment from intent creation through
// widget confirmation, backend confirmation and status reconciliation.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
	"transferly/internal/poller"
	apperrors "transferly/pkg/errors"
	"transferly/pkg/logger"
	"transferly/pkg/model"
)

const (
	DefaultRedirectDelay = 3 * time.Second

	// maxReconcileHeadroom caps the time kept free before the caller's
	// deadline once reconciliation polling stops.
	maxReconcileHeadroom = time.Second
)

// Backend is the booking service. pkg/client.BookingClient satisfies it.
type Backend interface {
	GetBookingByID(ctx context.Context, id string) (*model.Booking, error)
	CreatePaymentIntent(ctx context.Context, bookingID string, amount model.Amount) (*model.PaymentSession, error)
	ConfirmPayment(ctx context.Context, bookingID string, paymentIntentID string) (*model.Booking, error)
}

// Widget confirms a payment intent with the processor. It may block for as
// long as the customer takes (card entry, 3-D Secure). A recoverable card
// problem is reported as an apperrors CARD_ERROR.
type Widget interface {
	Confirm(ctx context.Context, clientSecret string) error
}

type WidgetFunc func(ctx context.Context, clientSecret string) error

func (f WidgetFunc) Confirm(ctx context.Context, clientSecret string) error {
	return f(ctx, clientSecret)
}

type Options struct {
	PollInterval    time.Duration
	PollMaxAttempts int
	RedirectDelay   time.Duration
	// Navigate runs once, RedirectDelay after TERMINAL_SUCCESS.
	Navigate func(bookingID string)
	Journal  Journal
	Events   Publisher
	Logger   *logger.Logger
}

// Snapshot is the externally visible state of a controller.
type Snapshot struct {
	BookingID        string              `json:"booking_id"`
	State            State               `json:"state"`
	Recoverable      bool                `json:"recoverable"`
	Amount           model.Amount        `json:"amount"`
	ClientSecret     string              `json:"client_secret,omitempty"`
	PaymentIntentID  string              `json:"payment_intent_id,omitempty"`
	BookingStatus    model.BookingStatus `json:"booking_status,omitempty"`
	Reconciled       bool                `json:"reconciled"`
	SupportReference string              `json:"support_reference,omitempty"`
	RedirectAfterMs  int64               `json:"redirect_after_ms,omitempty"`
	Error            *apperrors.AppError `json:"error,omitempty"`
}

type Controller struct {
	bookingID string
	backend   Backend
	opts      Options
	log       *logger.Logger

	mu          sync.Mutex
	state       State
	recoverable bool
	busy        bool // a backend call for this booking is in flight
	session     *model.PaymentSession
	amount      model.Amount
	booking     *model.Booking
	reconciled  bool
	supportRef  string
	lastErr     error
	redirect    *time.Timer
	closed      bool
	// the journal has been consulted for attempts made by earlier controllers
	historyChecked bool
}

func NewController(bookingID string, backend Backend, opts Options) *Controller {
	if opts.RedirectDelay <= 0 {
		opts.RedirectDelay = DefaultRedirectDelay
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	return &Controller{
		bookingID: bookingID,
		backend:   backend,
		opts:      opts,
		log:       opts.Logger.With("booking_id", bookingID),
		state:     StateInit,
	}
}

func (c *Controller) BookingID() string {
	return c.bookingID
}

// Start moves INIT to INTENT_CREATED: the booking must be payable, then
// exactly one payment intent is requested. While an intent is outstanding a
// repeat call returns the existing session without another backend call, and
// a call racing the first one is rejected with PAYMENT_IN_PROGRESS.
//
// A zero amount means the booking's own total. A recoverable FAILED state is
// reset before starting again. The first start consults the journal, so a
// booking whose earlier controller left a live intent or an unacknowledged
// charge is refused instead of being charged twice.
func (c *Controller) Start(ctx context.Context, amount model.Amount) (*model.PaymentSession, error) {
	if amount.IsNegative() {
		return nil, apperrors.Validation("amount cannot be negative", map[string]any{"amount": amount})
	}

	c.mu.Lock()
	if err := c.checkOpenLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.busy {
		c.mu.Unlock()
		return nil, apperrors.PaymentInProgress(c.bookingID)
	}
	switch {
	case c.state.HasOutstandingIntent():
		session := *c.session
		c.mu.Unlock()
		c.log.Info("payment intent already outstanding, reusing session",
			"payment_intent_id", session.PaymentIntentID,
		)
		return &session, nil
	case c.state == StateFailed && c.recoverable:
		c.resetLocked()
	case c.state != StateInit:
		err := c.blockedErrorLocked()
		c.mu.Unlock()
		return nil, err
	}
	c.busy = true
	checkHistory := !c.historyChecked && c.opts.Journal != nil
	c.mu.Unlock()

	if checkHistory {
		if err := c.resumeFromJournal(ctx); err != nil {
			return nil, err
		}
	}

	booking, err := c.backend.GetBookingByID(ctx, c.bookingID)
	if err != nil {
		c.fail(ctx, StateInit, true, err)
		return nil, err
	}
	if !booking.Status.IsPayable() {
		err := apperrors.BookingNotPayable(c.bookingID, booking.Status.String())
		c.fail(ctx, StateInit, false, err)
		return nil, err
	}

	if amount == 0 {
		amount = booking.TotalPrice
	}
	if amount <= 0 {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
		return nil, apperrors.Validation("booking has no payable amount", map[string]any{"booking_id": c.bookingID})
	}

	session, err := c.backend.CreatePaymentIntent(ctx, c.bookingID, amount)
	if err == nil && (session == nil || session.ClientSecret == "" || session.PaymentIntentID == "") {
		err = apperrors.Upstream("booking service", errors.New("payment intent response is missing client secret or intent id"))
	}
	if err != nil {
		c.mu.Lock()
		c.amount = amount
		c.mu.Unlock()
		c.fail(ctx, StateInit, true, err)
		return nil, err
	}

	c.mu.Lock()
	c.session = session
	c.amount = amount
	c.booking = booking
	c.state = StateIntentCreated
	c.busy = false
	out := *session
	c.mu.Unlock()

	c.log.Info("payment intent created",
		"payment_intent_id", session.PaymentIntentID,
		"amount", amount.String(),
	)
	c.record(ctx, StateInit, StateIntentCreated, nil)
	return &out, nil
}

// BeginConfirmation hands the client secret to the widget side. It is
// repeatable while CONFIRMING so that a customer can retry after a card error
// on the same intent.
func (c *Controller) BeginConfirmation() (*model.PaymentSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOpenLocked(); err != nil {
		return nil, err
	}
	if c.busy {
		return nil, apperrors.PaymentInProgress(c.bookingID)
	}
	if !c.state.CanTransitionTo(StateConfirming) {
		return nil, c.transitionErrorLocked(StateConfirming)
	}

	c.state = StateConfirming
	session := *c.session
	return &session, nil
}

// ReportWidgetResult consumes the widget outcome. A card error keeps the
// controller in CONFIRMING on the same intent; any other widget error fails
// the attempt. On success the backend is told, and the booking is polled
// until it shows PAID.
//
// If the backend confirmation fails after the widget succeeded, the charge
// may have happened: the controller ends in AMBIGUOUS_NEEDS_SUPPORT and
// returns PAYMENT_PENDING_CONFIRMATION carrying the intent id as the support
// reference. It never reports that as a plain failure.
func (c *Controller) ReportWidgetResult(ctx context.Context, widgetErr error) (Snapshot, error) {
	c.mu.Lock()
	if err := c.checkOpenLocked(); err != nil {
		c.mu.Unlock()
		return c.Snapshot(), err
	}
	if c.busy {
		c.mu.Unlock()
		return c.Snapshot(), apperrors.PaymentInProgress(c.bookingID)
	}
	if c.state != StateConfirming {
		err := c.transitionErrorLocked(StateConfirmedClient)
		c.mu.Unlock()
		return c.Snapshot(), err
	}

	if widgetErr != nil {
		if apperrors.HasCode(widgetErr, apperrors.CodeCardError) {
			c.lastErr = widgetErr
			c.mu.Unlock()
			c.log.Info("card error reported, awaiting retry on same intent", "error", widgetErr)
			c.record(ctx, StateConfirming, StateConfirming, widgetErr)
			return c.Snapshot(), widgetErr
		}
		c.mu.Unlock()
		c.fail(ctx, StateConfirming, true, widgetErr)
		return c.Snapshot(), widgetErr
	}

	c.state = StateConfirmedClient
	c.busy = true
	c.lastErr = nil
	intentID := c.session.PaymentIntentID
	c.mu.Unlock()
	c.record(ctx, StateConfirming, StateConfirmedClient, nil)

	// the charge has happened; a caller going away must not abandon the
	// backend confirmation
	confirmed, err := c.backend.ConfirmPayment(context.WithoutCancel(ctx), c.bookingID, intentID)
	if err != nil {
		pending := apperrors.PaymentPendingConfirmation(intentID, err)
		c.mu.Lock()
		c.state = StateAmbiguous
		c.supportRef = intentID
		c.lastErr = pending
		c.busy = false
		c.mu.Unlock()

		c.log.Error("payment taken but backend confirmation failed",
			"payment_intent_id", intentID,
			"support_reference", intentID,
			"error", err,
		)
		c.record(ctx, StateConfirmedClient, StateAmbiguous, err)
		return c.Snapshot(), pending
	}

	c.mu.Lock()
	c.state = StateConfirmedBackend
	c.booking = confirmed
	c.mu.Unlock()
	c.record(ctx, StateConfirmedClient, StateConfirmedBackend, nil)

	booking, reconciled := c.reconcile(ctx, confirmed)

	c.mu.Lock()
	c.state = StateTerminalSuccess
	c.booking = booking
	c.reconciled = reconciled
	c.busy = false
	c.scheduleRedirectLocked()
	c.mu.Unlock()

	c.log.Info("payment complete",
		"payment_intent_id", intentID,
		"reconciled", reconciled,
	)
	c.record(ctx, StateConfirmedBackend, StateTerminalSuccess, nil)
	return c.Snapshot(), nil
}

// Confirm runs the widget in-process: BeginConfirmation, the widget call and
// ReportWidgetResult.
func (c *Controller) Confirm(ctx context.Context, widget Widget) (Snapshot, error) {
	session, err := c.BeginConfirmation()
	if err != nil {
		return c.Snapshot(), err
	}
	return c.ReportWidgetResult(ctx, widget.Confirm(ctx, session.ClientSecret))
}

// reconcile waits for the booking to show PAID. The backend has already
// accepted the confirmation, so a timeout is not a failure. Polling stops
// short of the caller's deadline so the outcome can still be delivered.
func (c *Controller) reconcile(ctx context.Context, confirmed *model.Booking) (*model.Booking, bool) {
	if confirmed != nil && confirmed.Status == model.StatusPaid {
		return confirmed, true
	}

	ctx, cancel := reconcileContext(ctx)
	defer cancel()

	res, err := poller.Until(ctx,
		func(ctx context.Context) (*model.Booking, error) {
			return c.backend.GetBookingByID(ctx, c.bookingID)
		},
		func(b *model.Booking) bool {
			return b != nil && b.Status == model.StatusPaid
		},
		poller.Options[*model.Booking]{
			Interval:    c.opts.PollInterval,
			MaxAttempts: c.opts.PollMaxAttempts,
			Logger:      c.log,
			OnAttempt: func(attempt int, b *model.Booking) {
				c.log.Debug("reconciling booking status", "attempt", attempt, "status", b.Status)
			},
		},
	)
	if err != nil {
		c.log.Warn("status reconciliation interrupted", "attempts", res.Attempts, "error", err)
	} else if res.TimedOut {
		c.log.Warn("booking not yet PAID after confirmation", "attempts", res.Attempts)
	}

	if res.Data != nil {
		return res.Data, res.Success
	}
	return confirmed, false
}

// resumeFromJournal looks at the booking's last journalled transition. One
// left in AMBIGUOUS_NEEDS_SUPPORT or CONFIRMED_CLIENT means money may have
// moved without the backend knowing: the controller adopts the ambiguous
// state. One with an outstanding intent refuses the start. An unreadable
// journal is logged and does not block payment. Called with busy set.
func (c *Controller) resumeFromJournal(ctx context.Context) error {
	history, err := c.opts.Journal.History(ctx, c.bookingID)
	if err != nil {
		c.log.Warn("payment history unavailable, starting without it", "error", err)
		return nil
	}

	c.mu.Lock()
	if len(history) == 0 {
		c.historyChecked = true
		c.mu.Unlock()
		return nil
	}
	last := history[len(history)-1]

	switch {
	case last.To == StateAmbiguous || last.To == StateConfirmedClient:
		ref := last.SupportReference
		if ref == "" {
			ref = last.PaymentIntentID
		}
		pending := apperrors.PaymentPendingConfirmation(ref, fmt.Errorf("earlier attempt ended in %s", last.To))
		c.state = StateAmbiguous
		c.supportRef = ref
		c.amount = last.Amount
		c.session = &model.PaymentSession{BookingID: c.bookingID, PaymentIntentID: last.PaymentIntentID}
		c.lastErr = pending
		c.busy = false
		c.mu.Unlock()

		c.log.Error("earlier payment attempt needs support, refusing a new intent",
			"payment_intent_id", last.PaymentIntentID,
			"support_reference", ref,
		)
		return pending

	case last.To.HasOutstandingIntent():
		c.busy = false
		c.mu.Unlock()

		c.log.Warn("earlier payment intent still outstanding, refusing a new one",
			"payment_intent_id", last.PaymentIntentID,
		)
		err := apperrors.PaymentInProgress(c.bookingID)
		err.Details["payment_intent_id"] = last.PaymentIntentID
		return err
	}

	c.historyChecked = true
	c.mu.Unlock()
	return nil
}

// Retained reports whether the controller still holds a payment or has a
// backend call in flight.
func (c *Controller) Retained() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy || (!c.closed && c.state.HoldsPayment())
}

// Reset returns a recoverable FAILED controller to INIT.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateFailed || !c.recoverable {
		return c.transitionErrorLocked(StateInit)
	}
	c.resetLocked()
	return nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		BookingID:        c.bookingID,
		State:            c.state,
		Recoverable:      c.state == StateFailed && c.recoverable,
		Amount:           c.amount,
		Reconciled:       c.reconciled,
		SupportReference: c.supportRef,
	}
	if c.session != nil {
		s.PaymentIntentID = c.session.PaymentIntentID
		if c.state.HasOutstandingIntent() {
			s.ClientSecret = c.session.ClientSecret
		}
	}
	if c.booking != nil {
		s.BookingStatus = c.booking.Status
	}
	if c.state == StateTerminalSuccess {
		s.RedirectAfterMs = c.opts.RedirectDelay.Milliseconds()
	}
	if c.lastErr != nil {
		s.Error = apperrors.AsAppError(c.lastErr)
	}
	return s
}

// Close cancels a scheduled redirect. Further calls are rejected.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.redirect != nil {
		c.redirect.Stop()
		c.redirect = nil
	}
}

// reconcileContext ends a fifth of the remaining time (at most
// maxReconcileHeadroom) before ctx's deadline.
func reconcileContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	headroom := min(time.Until(deadline)/5, maxReconcileHeadroom)
	return context.WithDeadline(ctx, deadline.Add(-headroom))
}

func (c *Controller) fail(ctx context.Context, from State, recoverable bool, err error) {
	c.mu.Lock()
	c.state = StateFailed
	c.recoverable = recoverable
	c.lastErr = err
	c.busy = false
	c.mu.Unlock()

	c.log.Warn("payment attempt failed",
		"from", from,
		"recoverable", recoverable,
		"error", err,
	)
	c.record(ctx, from, StateFailed, err)
}

func (c *Controller) resetLocked() {
	c.state = StateInit
	c.recoverable = false
	c.session = nil
	c.lastErr = nil
}

func (c *Controller) scheduleRedirectLocked() {
	if c.opts.Navigate == nil || c.closed {
		return
	}
	navigate, bookingID := c.opts.Navigate, c.bookingID
	c.redirect = time.AfterFunc(c.opts.RedirectDelay, func() {
		navigate(bookingID)
	})
}

func (c *Controller) checkOpenLocked() error {
	if c.closed {
		return apperrors.Conflict("payment session for this booking has been closed")
	}
	return nil
}

// blockedErrorLocked explains why Start cannot run from the current state.
func (c *Controller) blockedErrorLocked() error {
	switch c.state {
	case StateFailed:
		return c.lastErr
	case StateAmbiguous:
		return c.lastErr
	case StateTerminalSuccess:
		return apperrors.BookingNotPayable(c.bookingID, model.StatusPaid.String())
	default:
		return apperrors.PaymentInProgress(c.bookingID)
	}
}

func (c *Controller) transitionErrorLocked(to State) error {
	err := transitionError(c.state, to)
	return apperrors.Wrap(err, apperrors.CodeConflict, fmt.Sprintf("payment is %s", c.state), http.StatusConflict)
}

// record writes the transition to the journal and the event stream. Both are
// best effort; a failure is logged and never changes the payment outcome.
func (c *Controller) record(ctx context.Context, from, to State, cause error) {
	if c.opts.Journal == nil && c.opts.Events == nil {
		return
	}

	c.mu.Lock()
	attempt := Attempt{
		BookingID:        c.bookingID,
		From:             from,
		To:               to,
		Amount:           c.amount,
		Recoverable:      to == StateFailed && c.recoverable,
		SupportReference: c.supportRef,
		RecordedAt:       time.Now().UTC().Truncate(time.Millisecond),
	}
	if c.session != nil {
		attempt.PaymentIntentID = c.session.PaymentIntentID
	}
	var status model.BookingStatus
	if c.booking != nil {
		status = c.booking.Status
	}
	reconciled := c.reconciled
	c.mu.Unlock()
	if cause != nil {
		attempt.Error = cause.Error()
	}

	ctx = context.WithoutCancel(ctx)

	if c.opts.Journal != nil {
		if err := c.opts.Journal.Record(ctx, attempt); err != nil {
			c.log.Warn("failed to journal payment transition", "to", to, "error", err)
		}
	}

	if c.opts.Events != nil {
		if typ := eventType(to); typ != "" {
			event := Event{
				Type:            typ,
				BookingID:       c.bookingID,
				PaymentIntentID: attempt.PaymentIntentID,
				Amount:          attempt.Amount,
				From:            from,
				To:              to,
				BookingStatus:   status,
				Reconciled:      reconciled,
				Error:           attempt.Error,
				OccurredAt:      attempt.RecordedAt,
			}
			if err := c.opts.Events.Publish(ctx, event); err != nil {
				c.log.Warn("failed to publish payment event", "type", typ, "error", err)
			}
		}
	}
}
