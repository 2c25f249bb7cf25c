package flows

import (
	"errors"
	"fmt"
	checkout "transferly/internal/checkout/core"
	"transferly/internal/checkout/types"
	"transferly/internal/quote"
	"transferly/internal/resolver"
	"transferly/internal/route"
	apperrors "transferly/pkg/errors"
	"transferly/pkg/model"
)

const (
	keyQuoteInput = "quote_input"
	keySession    = "session_token"
	keyPickup     = "pickup"
	keyDropoff    = "dropoff"
	keyRoute      = "route"
)

// QuoteTrip resolves every location of a trip and asks the fare backend for
// one price.
//
// requires: pickup, dropoff, vehicle_type, passengers, service_type, pickup_datetime
// optional: stops, luggage, session_token
func QuoteTrip() checkout.Flow {
	return checkout.NewFlow("quote_trip",
		checkout.NewStep("decode_input", decodeQuoteInput),
		checkout.NewStep("resolve_endpoints", resolveEndpoints),
		checkout.NewStep("assemble_route", assembleRoute),
		checkout.NewStep("request_quote", requestQuote),
	)
}

func decodeQuoteInput(ctx *checkout.CheckoutContext) error {
	var input types.QuoteTripInput
	if err := ctx.Decode(&input); err != nil {
		return err
	}
	if err := input.Validate(); err != nil {
		return apperrors.InvalidInput(err.Error())
	}
	ctx.Process[keyQuoteInput] = &input
	ctx.Process[keySession] = resolver.ResumeSessionToken(input.SessionToken)
	return nil
}

func resolveEndpoints(ctx *checkout.CheckoutContext) error {
	input := ctx.Process[keyQuoteInput].(*types.QuoteTripInput)
	token := ctx.Process[keySession].(*resolver.SessionToken)

	ctx.Process[keyPickup] = resolveLocation(ctx, "pickup", input.Pickup, token)
	ctx.Process[keyDropoff] = resolveLocation(ctx, "dropoff", input.Dropoff, token)
	return nil
}

// resolveLocation returns nil when the location stays unresolved; the quote
// step reports which ones.
func resolveLocation(ctx *checkout.CheckoutContext, field string, loc types.LocationInput, token *resolver.SessionToken) *model.ResolvedAddress {
	if loc.Address != nil {
		addr := *loc.Address
		return &addr
	}
	if checkout.IsMissing(loc.PlaceID) || ctx.Deps.Places == nil {
		return nil
	}

	opts := ctx.Deps.ResolverOptions
	opts.Token = token
	opts.Logger = ctx.Log
	r := resolver.New(ctx.Deps.Places, opts)
	defer r.Close()

	addr, ok := r.Select(ctx.Ctx, loc.Prediction())
	if !ok {
		ctx.Log.Info("location left unresolved", "field", field, "place_id", loc.PlaceID)
		return nil
	}
	return addr
}

func assembleRoute(ctx *checkout.CheckoutContext) error {
	input := ctx.Process[keyQuoteInput].(*types.QuoteTripInput)
	token := ctx.Process[keySession].(*resolver.SessionToken)

	opts := ctx.Deps.RouteOptions
	opts.Provider = ctx.Deps.Places
	opts.ResolverOptions = ctx.Deps.ResolverOptions
	opts.ResolverOptions.Token = token
	opts.Logger = ctx.Log
	assembler := route.New(opts)
	ctx.Process[keyRoute] = assembler
	ctx.OnCleanup(assembler.Close)

	for i, loc := range input.Stops {
		stop, err := assembler.AddStop()
		if errors.Is(err, route.ErrMaxStopsReached) {
			return apperrors.Validation(fmt.Sprintf("a trip can have at most %d stops", assembler.MaxStops()), map[string]any{
				"max_stops": assembler.MaxStops(),
			})
		}
		if err != nil {
			return err
		}

		switch {
		case loc.Address != nil:
			err = assembler.UpdateStopSelection(i, *loc.Address)
		case !checkout.IsMissing(loc.PlaceID) && ctx.Deps.Places != nil:
			var ok bool
			ok, err = assembler.SelectPrediction(ctx.Ctx, stop.ID, loc.Prediction())
			if err == nil && !ok {
				err = assembler.SetStopText(i, loc.Text)
			}
		default:
			err = assembler.SetStopText(i, loc.Text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func requestQuote(ctx *checkout.CheckoutContext) error {
	input := ctx.Process[keyQuoteInput].(*types.QuoteTripInput)
	token := ctx.Process[keySession].(*resolver.SessionToken)
	assembler := ctx.Process[keyRoute].(*route.Assembler)

	pickup, _ := ctx.Process[keyPickup].(*model.ResolvedAddress)
	dropoff, _ := ctx.Process[keyDropoff].(*model.ResolvedAddress)

	q, err := ctx.Deps.Quotes.Quote(ctx.Ctx, quote.Request{
		Pickup:         pickup,
		Stops:          assembler.Stops(),
		Dropoff:        dropoff,
		VehicleType:    input.VehicleType,
		Passengers:     input.Passengers,
		Luggage:        input.Luggage,
		ServiceType:    input.ServiceType,
		PickupDateTime: input.PickupDateTime,
	})
	if err != nil {
		return err
	}

	ctx.Output["quote"] = q
	ctx.Output["pickup"] = pickup
	ctx.Output["dropoff"] = dropoff
	ctx.Output["stops"] = assembler.Numbered()
	ctx.Output["session_token"] = token.Value()
	return nil
}
