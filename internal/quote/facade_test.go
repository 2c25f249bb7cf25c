package quote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
	"transferly/pkg/client"
	apperrors "transferly/pkg/errors"
	"transferly/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFare struct {
	calls     atomic.Int32
	last      model.QuoteRequest
	quoteFunc func(req model.QuoteRequest) (*model.Quote, error)
}

func (f *fakeFare) Quote(ctx context.Context, req model.QuoteRequest) (*model.Quote, error) {
	f.calls.Add(1)
	f.last = req
	if f.quoteFunc != nil {
		return f.quoteFunc(req)
	}
	return &model.Quote{QuoteID: "q1", TotalPrice: 8540, Currency: "gbp"}, nil
}

func heathrow() *model.ResolvedAddress {
	return &model.ResolvedAddress{Address: "Heathrow Terminal 5", Lat: 51.4723, Lng: -0.4901, PlaceID: "lhr"}
}

func kingsCross() *model.ResolvedAddress {
	return &model.ResolvedAddress{Address: "King's Cross", Lat: 51.5308, Lng: -0.1238, PlaceID: "kgx"}
}

func resolvedStop(id, name string, lat, lng float64) model.Stop {
	return model.Stop{ID: id}.WithResolution(model.ResolvedAddress{Address: name, Lat: lat, Lng: lng})
}

func validRequest() Request {
	return Request{
		Pickup:         heathrow(),
		Dropoff:        kingsCross(),
		Stops:          []model.Stop{resolvedStop("s1", "Windsor", 51.48, -0.60)},
		VehicleType:    " Executive  Saloon ",
		Passengers:     2,
		Luggage:        3,
		ServiceType:    "airport_transfer",
		PickupDateTime: time.Date(2026, 11, 2, 9, 30, 0, 0, time.UTC),
	}
}

func TestFacade_RejectsUnresolvedLocations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Request)
		detail string
	}{
		{
			name:   "unresolved stop",
			mutate: func(r *Request) { r.Stops = append(r.Stops, model.Stop{ID: "s2", Text: "Eton"}) },
			detail: "unresolved_stops",
		},
		{
			name:   "missing pickup",
			mutate: func(r *Request) { r.Pickup = nil },
			detail: "missing",
		},
		{
			name:   "missing dropoff",
			mutate: func(r *Request) { r.Dropoff = nil },
			detail: "missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fare := &fakeFare{}
			f := NewFacade(fare, nil)

			req := validRequest()
			tt.mutate(&req)
			_, err := f.Quote(context.Background(), req)

			require.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
			assert.Contains(t, apperrors.AsAppError(err).Details, tt.detail)
			assert.Equal(t, int32(0), fare.calls.Load(), "no network call for an unresolved route")
		})
	}
}

func TestFacade_UnresolvedStopPositions(t *testing.T) {
	f := NewFacade(&fakeFare{}, nil)
	req := validRequest()
	req.Stops = []model.Stop{
		{ID: "a", Text: "?"},
		resolvedStop("b", "Slough", 51.51, -0.59),
		{ID: "c", Text: "??"},
	}

	_, err := f.Quote(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, []int{0, 2}, apperrors.AsAppError(err).Details["unresolved_stops"])
}

func TestFacade_FieldValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Request)
		field  string
	}{
		{"no passengers", func(r *Request) { r.Passengers = 0 }, "passengers"},
		{"too many passengers", func(r *Request) { r.Passengers = 17 }, "passengers"},
		{"negative luggage", func(r *Request) { r.Luggage = -1 }, "luggage"},
		{"no vehicle", func(r *Request) { r.VehicleType = "   " }, "vehicle_type"},
		{"no service type", func(r *Request) { r.ServiceType = "" }, "service_type"},
		{"no pickup time", func(r *Request) { r.PickupDateTime = time.Time{} }, "pickup_datetime"},
		{"bad latitude", func(r *Request) { r.Pickup = &model.ResolvedAddress{Address: "x", Lat: 123, Lng: 0} }, "pickup.lat"},
		{"same endpoints without stops", func(r *Request) { r.Stops = nil; r.Dropoff = heathrow() }, "dropoff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fare := &fakeFare{}
			f := NewFacade(fare, nil)

			req := validRequest()
			tt.mutate(&req)
			_, err := f.Quote(context.Background(), req)

			require.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "got %v", err)
			fields, ok := apperrors.AsAppError(err).Details["fields"].(ValidationErrors)
			require.True(t, ok)

			var names []string
			for _, fe := range fields {
				names = append(names, fe.Field)
			}
			assert.Contains(t, names, tt.field)
			assert.Equal(t, int32(0), fare.calls.Load())
		})
	}
}

func TestFacade_RoundTripWithStopIsValid(t *testing.T) {
	f := NewFacade(&fakeFare{}, nil)
	req := validRequest()
	req.Dropoff = heathrow()

	_, err := f.Quote(context.Background(), req)
	assert.NoError(t, err)
}

func TestFacade_BuildsPayload(t *testing.T) {
	fare := &fakeFare{}
	f := NewFacade(fare, nil)

	req := validRequest()
	req.Stops = append(req.Stops, resolvedStop("s2", "Eton", 51.49, -0.61))
	_, err := f.Quote(context.Background(), req)
	require.NoError(t, err)

	sent := fare.last
	assert.Equal(t, "executive saloon", sent.VehicleType)
	assert.Equal(t, "Heathrow Terminal 5", sent.Pickup.Address)
	require.Len(t, sent.Stops, 2)
	assert.Equal(t, 0, sent.Stops[0].StopOrder)
	assert.Equal(t, 1, sent.Stops[1].StopOrder)
	assert.Equal(t, "Eton", sent.Stops[1].Address)
}

func TestFacade_NormalizesQuote(t *testing.T) {
	fare := &fakeFare{}
	f := NewFacade(fare, nil)

	q, err := f.Quote(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, model.Amount(8540), q.TotalPrice)
	assert.Equal(t, "GBP", q.Currency)
	assert.Equal(t, "£85.40", q.DisplayPrice)
	assert.Equal(t, "executive saloon", q.VehicleType)
}

func TestFacade_DefaultCurrency(t *testing.T) {
	fare := &fakeFare{quoteFunc: func(req model.QuoteRequest) (*model.Quote, error) {
		return &model.Quote{TotalPrice: 4550}, nil
	}}
	q, err := NewFacade(fare, nil).Quote(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, DefaultCurrency, q.Currency)
	assert.Equal(t, "£45.50", q.DisplayPrice)
}

func TestFacade_NegativePriceIsUpstreamFailure(t *testing.T) {
	fare := &fakeFare{quoteFunc: func(req model.QuoteRequest) (*model.Quote, error) {
		return &model.Quote{TotalPrice: -100, Currency: "GBP"}, nil
	}}
	_, err := NewFacade(fare, nil).Quote(context.Background(), validRequest())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUpstream))
}

func TestFacade_FailureIsTypedAndNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"plain error", errors.New("connection reset"), apperrors.CodeUpstream},
		{"typed error passes through", apperrors.Validation("route too long", nil), apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fare := &fakeFare{quoteFunc: func(req model.QuoteRequest) (*model.Quote, error) {
				return nil, tt.err
			}}
			_, err := NewFacade(fare, nil).Quote(context.Background(), validRequest())

			assert.True(t, apperrors.HasCode(err, tt.code))
			assert.Equal(t, int32(1), fare.calls.Load())
		})
	}
}

func TestFacade_StringPriceFromBackend(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"data":{"quote_id":"q9","total_price":"120.5","currency":"EUR"}}`))
	}))
	defer srv.Close()

	f := NewFacade(client.NewFareClient(srv.URL, time.Second), nil)
	q, err := f.Quote(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, model.Amount(12050), q.TotalPrice)
	assert.Equal(t, "€120.50", q.DisplayPrice)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFacade_BackendErrorStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewFacade(client.NewFareClient(srv.URL, time.Second), nil)
	_, err := f.Quote(context.Background(), validRequest())

	assert.True(t, apperrors.HasCode(err, apperrors.CodeUpstream))
	assert.Equal(t, int32(1), calls.Load())
}
