package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	checkout "transferly/internal/checkout/core"
	"transferly/internal/payment"
	"transferly/pkg/app"
	"transferly/pkg/config"
	"transferly/pkg/logger"
	"transferly/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupRouter_ListsFlows(t *testing.T) {
	router := SetupRouter(&checkout.Deps{}, checkout.NewLimiter(1), nil, logger.Discard())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/checkout/flows", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Flows []string `json:"flows"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"confirm_payment", "payment_status", "quote_trip", "start_payment"}, resp.Data.Flows)
}

func TestSetupRouter_UnknownFlow(t *testing.T) {
	router := SetupRouter(&checkout.Deps{}, nil, nil, logger.Discard())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/execute", strings.NewReader(`{"flow":"refund"}`))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetupRouter_Health(t *testing.T) {
	router := SetupRouter(&checkout.Deps{}, nil, nil, logger.Discard())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// slowBackend confirms payments but never shows the booking as PAID.
type slowBackend struct {
	intents atomic.Int32
}

func (b *slowBackend) GetBookingByID(ctx context.Context, id string) (*model.Booking, error) {
	return &model.Booking{ID: id, Status: model.StatusPendingPayment, TotalPrice: 8540}, nil
}

func (b *slowBackend) CreatePaymentIntent(ctx context.Context, bookingID string, amount model.Amount) (*model.PaymentSession, error) {
	b.intents.Add(1)
	return &model.PaymentSession{BookingID: bookingID, ClientSecret: "pi_1_secret", PaymentIntentID: "pi_1"}, nil
}

func (b *slowBackend) ConfirmPayment(ctx context.Context, bookingID, paymentIntentID string) (*model.Booking, error) {
	return &model.Booking{ID: bookingID, Status: model.StatusPendingPayment, PaymentIntentID: paymentIntentID}, nil
}

func newServedApp(t *testing.T, requestTimeout time.Duration, poll time.Duration, attempts int) (http.Handler, *slowBackend) {
	t.Helper()
	log := logger.Discard()
	backend := &slowBackend{}

	registry := payment.NewRegistry(time.Minute, func(bookingID string) *payment.Controller {
		return payment.NewController(bookingID, backend, payment.Options{
			PollInterval:    poll,
			PollMaxAttempts: attempts,
			RedirectDelay:   time.Hour,
			Logger:          log,
		})
	})
	t.Cleanup(registry.Close)

	cfg := &config.Config{
		Port:           "0",
		RequestTimeout: requestTimeout,
		IdempotencyTTL: time.Minute,
		MaxRequestSize: config.DefaultMaxRequestSize,
		Log:            log,
	}
	flowHandler, healthHandler := NewHandlers(&checkout.Deps{Payments: registry}, checkout.NewLimiter(4), nil, log)

	application := app.NewApplication()
	application.SetApp(cfg, flowHandler, healthHandler)
	return application.Handler(), backend
}

func execute(t *testing.T, h http.Handler, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/execute", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestApp_ConfirmAnswersBeforeRequestTimeout(t *testing.T) {
	// the poll alone would outlast the request deadline
	h, backend := newServedApp(t, 300*time.Millisecond, 20*time.Millisecond, 30)

	rec := execute(t, h, "start-1", `{"flow":"start_payment","input":{"booking_id":"b-1"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	started := time.Now()
	rec = execute(t, h, "confirm-1", `{"flow":"confirm_payment","input":{"booking_id":"b-1","status":"succeeded"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Less(t, time.Since(started), 300*time.Millisecond)

	var resp struct {
		Data struct {
			Payment payment.Snapshot `json:"payment"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, payment.StateTerminalSuccess, resp.Data.Payment.State)
	assert.False(t, resp.Data.Payment.Reconciled)

	replay := execute(t, h, "confirm-1", `{"flow":"confirm_payment","input":{"booking_id":"b-1","status":"succeeded"}}`)
	assert.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, int32(1), backend.intents.Load())
}

func TestApp_RepeatedStartKeepsOneIntent(t *testing.T) {
	h, backend := newServedApp(t, time.Second, time.Millisecond, 3)

	for _, key := range []string{"a", "b", ""} {
		rec := execute(t, h, key, `{"flow":"start_payment","input":{"booking_id":"b-1"}}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	assert.Equal(t, int32(1), backend.intents.Load())
}
