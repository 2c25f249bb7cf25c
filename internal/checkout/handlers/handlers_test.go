package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	apperrors "transferly/pkg/errors"
	"transferly/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type fakeFlowService struct {
	gotFlow  string
	gotInput map[string]any
	output   map[string]any
	err      error
}

func (f *fakeFlowService) ExecuteFlow(ctx context.Context, flowName string, input map[string]any) (map[string]any, error) {
	f.gotFlow = flowName
	f.gotInput = input
	return f.output, f.err
}

func (f *fakeFlowService) GetAvailableFlows() []string {
	return []string{"payment_status", "quote_trip"}
}

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(ctx context.Context, rp *readpref.ReadPref) error {
	return p.err
}

func newRouter(svc FlowService, db Pinger) *httprouter.Router {
	router := httprouter.New()
	NewFlowHandler(svc, logger.Discard()).RegisterRoutes(router)
	NewHealthHandler(db, logger.Discard()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestFlowHandler_Execute(t *testing.T) {
	svc := &fakeFlowService{output: map[string]any{"state": "INTENT_CREATED"}}
	rec := serve(newRouter(svc, nil), http.MethodPost, "/api/v1/checkout/execute",
		`{"flow":"start_payment","input":{"booking_id":"b-1"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "start_payment", svc.gotFlow)
	assert.Equal(t, "b-1", svc.gotInput["booking_id"])
	assert.JSONEq(t, `{"data":{"state":"INTENT_CREATED"}}`, rec.Body.String())
}

func TestFlowHandler_ExecuteDefaultsInput(t *testing.T) {
	svc := &fakeFlowService{}
	rec := serve(newRouter(svc, nil), http.MethodPost, "/api/v1/checkout/execute", `{"flow":"payment_status"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, svc.gotInput)
}

func TestFlowHandler_ExecuteErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		svcErr   error
		wantCode int
		wantErr  string
	}{
		{"malformed body", `{"flow":`, nil, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"unknown field", `{"flow":"x","extra":1}`, nil, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"missing flow", `{"input":{}}`, nil, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"card error", `{"flow":"confirm_payment"}`, apperrors.CardError("declined", nil), http.StatusPaymentRequired, apperrors.CodeCardError},
		{"ambiguous", `{"flow":"confirm_payment"}`, apperrors.PaymentPendingConfirmation("pi_1", errors.New("reset")), http.StatusAccepted, apperrors.CodePaymentPendingConfirmation},
		{"plain error", `{"flow":"quote_trip"}`, errors.New("boom"), http.StatusInternalServerError, apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newRouter(&fakeFlowService{err: tt.svcErr}, nil), http.MethodPost, "/api/v1/checkout/execute", tt.body)

			assert.Equal(t, tt.wantCode, rec.Code)
			var resp apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErr, resp.Code)
		})
	}
}

func TestFlowHandler_PendingConfirmationExposesReference(t *testing.T) {
	svc := &fakeFlowService{err: apperrors.PaymentPendingConfirmation("pi_77", errors.New("timeout"))}
	rec := serve(newRouter(svc, nil), http.MethodPost, "/api/v1/checkout/execute", `{"flow":"confirm_payment"}`)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pi_77", resp.Details["support_reference"])
}

func TestFlowHandler_ListFlows(t *testing.T) {
	rec := serve(newRouter(&fakeFlowService{}, nil), http.MethodGet, "/api/v1/checkout/flows", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"flows":["payment_status","quote_trip"]}}`, rec.Body.String())
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name     string
		db       Pinger
		wantCode int
		wantDB   string
	}{
		{"journal disabled", nil, http.StatusOK, "disabled"},
		{"database up", fakePinger{}, http.StatusOK, "ok"},
		{"database down", fakePinger{err: errors.New("no reachable servers")}, http.StatusServiceUnavailable, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(&fakeFlowService{}, tt.db)

			rec := serve(router, http.MethodGet, "/ready", "")
			assert.Equal(t, tt.wantCode, rec.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantDB, resp.Database)

			rec = serve(router, http.MethodGet, "/health", "")
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}
