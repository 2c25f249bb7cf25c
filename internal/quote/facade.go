// Package quote submits a fully resolved route to the fare calculator and
// normalizes the answer.
package quote

import (
	"context"
	"errors"
	"fmt"
	"time"
	apperrors "transferly/pkg/errors"
	"transferly/pkg/logger"
	"transferly/pkg/model"
	"transferly/pkg/sanitizer"
)

const DefaultCurrency = "GBP"

// FareCalculator is the remote fare backend. pkg/client.FareClient satisfies it.
type FareCalculator interface {
	Quote(ctx context.Context, req model.QuoteRequest) (*model.Quote, error)
}

// Request is the façade input. Pickup and Dropoff are nil until the parent
// form has resolved them; Stops are in route order.
type Request struct {
	Pickup         *model.ResolvedAddress `json:"pickup"`
	Stops          []model.Stop           `json:"stops"`
	Dropoff        *model.ResolvedAddress `json:"dropoff"`
	VehicleType    string                 `json:"vehicle_type"`
	Passengers     int                    `json:"passengers"`
	Luggage        int                    `json:"luggage"`
	ServiceType    string                 `json:"service_type"`
	PickupDateTime time.Time              `json:"pickup_datetime"`
}

type Facade struct {
	fare            FareCalculator
	validator       *RequestValidator
	defaultCurrency string
	log             *logger.Logger
}

func NewFacade(fare FareCalculator, log *logger.Logger) *Facade {
	if log == nil {
		log = logger.Discard()
	}
	return &Facade{
		fare:            fare,
		validator:       NewRequestValidator(),
		defaultCurrency: DefaultCurrency,
		log:             log,
	}
}

// Quote validates req, sends it once and returns a quote with a numeric
// price and a formatted display value. Any location without coordinates is
// rejected before a network call. There are no retries.
func (f *Facade) Quote(ctx context.Context, req Request) (*model.Quote, error) {
	payload, err := f.buildRequest(req)
	if err != nil {
		return nil, err
	}

	if err := f.validator.Validate(payload); err != nil {
		var verrs ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperrors.Validation("invalid quote request", map[string]any{
				"fields": verrs,
			})
		}
		return nil, apperrors.Internal("failed to validate quote request", err)
	}

	quote, err := f.fare.Quote(ctx, *payload)
	if err != nil {
		f.log.Warn("fare quote failed",
			"vehicle_type", payload.VehicleType,
			"stops", len(payload.Stops),
			"error", err,
		)
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Upstream("fare service", err)
	}

	return f.normalize(quote, payload)
}

func (f *Facade) buildRequest(req Request) (*model.QuoteRequest, error) {
	var missing []string
	if req.Pickup == nil {
		missing = append(missing, "pickup")
	}
	if req.Dropoff == nil {
		missing = append(missing, "dropoff")
	}

	stops := make([]model.StopPayload, 0, len(req.Stops))
	var unresolved []int
	for i, s := range req.Stops {
		p, ok := s.Payload(i)
		if !ok {
			unresolved = append(unresolved, i)
			continue
		}
		stops = append(stops, p)
	}

	if len(missing) > 0 || len(unresolved) > 0 {
		details := map[string]any{}
		if len(missing) > 0 {
			details["missing"] = missing
		}
		if len(unresolved) > 0 {
			details["unresolved_stops"] = unresolved
		}
		return nil, apperrors.Validation("every location must be resolved before quoting", details)
	}

	return &model.QuoteRequest{
		Pickup:         *req.Pickup,
		Stops:          stops,
		Dropoff:        *req.Dropoff,
		VehicleType:    sanitizer.NormalizeLabel(req.VehicleType),
		Passengers:     req.Passengers,
		Luggage:        req.Luggage,
		ServiceType:    sanitizer.NormalizeLabel(req.ServiceType),
		PickupDateTime: req.PickupDateTime,
	}, nil
}

func (f *Facade) normalize(q *model.Quote, req *model.QuoteRequest) (*model.Quote, error) {
	if q == nil {
		return nil, apperrors.Upstream("fare service", errors.New("empty quote"))
	}
	if q.TotalPrice.IsNegative() {
		return nil, apperrors.Upstream("fare service", fmt.Errorf("negative total price %s", q.TotalPrice))
	}

	out := *q
	out.Currency = sanitizer.NormalizeCurrency(out.Currency)
	if out.Currency == "" {
		out.Currency = f.defaultCurrency
	}
	if out.VehicleType == "" {
		out.VehicleType = req.VehicleType
	}
	out.DisplayPrice = out.TotalPrice.Format(out.Currency)
	return &out, nil
}
