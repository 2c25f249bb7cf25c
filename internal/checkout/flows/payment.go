package flows

import (
	"errors"
	"strings"
	checkout "transferly/internal/checkout/core"
	"transferly/internal/checkout/types"
	apperrors "transferly/pkg/errors"
)

// StartPayment opens (or returns the open) payment intent for a booking.
//
// requires: booking_id
// optional: amount, defaults to the booking total
func StartPayment() checkout.Flow {
	return checkout.NewFlow("start_payment",
		checkout.NewStep("start_session", startSession),
	)
}

func startSession(ctx *checkout.CheckoutContext) error {
	bookingID, err := ctx.RequireString("booking_id")
	if err != nil {
		return err
	}
	amount, err := ctx.OptionalAmount("amount")
	if err != nil {
		return err
	}

	controller := ctx.Deps.Payments.GetOrCreate(bookingID)
	session, err := controller.Start(ctx.Ctx, amount)
	if err != nil {
		return err
	}

	ctx.Output["session"] = session
	ctx.Output["payment"] = controller.Snapshot()
	return nil
}

// ConfirmPayment takes the widget outcome for a booking whose intent is open.
//
// requires: booking_id, status (succeeded | card_error | failed)
// optional: message
func ConfirmPayment() checkout.Flow {
	return checkout.NewFlow("confirm_payment",
		checkout.NewStep("report_widget_result", reportWidgetResult),
	)
}

func reportWidgetResult(ctx *checkout.CheckoutContext) error {
	var input types.WidgetResultInput
	if err := ctx.Decode(&input); err != nil {
		return err
	}
	if checkout.IsMissing(input.BookingID) {
		return checkout.MissingParamErr("booking_id")
	}

	widgetErr, err := parseWidgetStatus(input)
	if err != nil {
		return err
	}

	controller, ok := ctx.Deps.Payments.Get(input.BookingID)
	if !ok {
		return apperrors.NotFound("payment session for booking " + input.BookingID)
	}
	if _, err := controller.BeginConfirmation(); err != nil {
		return err
	}

	snapshot, err := controller.ReportWidgetResult(ctx.Ctx, widgetErr)
	if err != nil {
		return err
	}
	ctx.Output["payment"] = snapshot
	return nil
}

// parseWidgetStatus maps the reported status to the error the controller
// expects. The second return is for malformed input.
func parseWidgetStatus(input types.WidgetResultInput) (error, error) {
	message := strings.TrimSpace(input.Message)
	switch strings.ToLower(strings.TrimSpace(input.Status)) {
	case types.WidgetSucceeded:
		return nil, nil
	case types.WidgetCardError:
		if message == "" {
			message = "card was declined"
		}
		return apperrors.CardError(message, nil), nil
	case types.WidgetFailed:
		if message == "" {
			message = "payment widget failed"
		}
		return apperrors.Upstream("payment widget", errors.New(message)), nil
	case "":
		return nil, checkout.MissingParamErr("status")
	default:
		return nil, apperrors.InvalidInput("status must be one of succeeded, card_error, failed")
	}
}

// PaymentStatus reports where a booking's payment stands. The attempt
// history is included when journaling is enabled.
//
// requires: booking_id
func PaymentStatus() checkout.Flow {
	return checkout.NewFlow("payment_status",
		checkout.NewStep("load_snapshot", loadSnapshot),
		checkout.NewStep("load_history", loadHistory),
	)
}

func loadSnapshot(ctx *checkout.CheckoutContext) error {
	bookingID, err := ctx.RequireString("booking_id")
	if err != nil {
		return err
	}
	controller, ok := ctx.Deps.Payments.Get(bookingID)
	if !ok {
		return apperrors.NotFound("payment session for booking " + bookingID)
	}
	ctx.Process["booking_id"] = bookingID
	ctx.Output["payment"] = controller.Snapshot()
	return nil
}

func loadHistory(ctx *checkout.CheckoutContext) error {
	if ctx.Deps.Journal == nil {
		return nil
	}
	bookingID := ctx.Process["booking_id"].(string)
	history, err := ctx.Deps.Journal.History(ctx.Ctx, bookingID)
	if err != nil {
		// the snapshot is authoritative; history is a convenience
		ctx.Log.Warn("failed to load payment history", "booking_id", bookingID, "error", err)
		return nil
	}
	ctx.Output["history"] = history
	return nil
}

// All is every flow the checkout service serves.
func All() []checkout.Flow {
	return []checkout.Flow{
		QuoteTrip(),
		StartPayment(),
		ConfirmPayment(),
		PaymentStatus(),
	}
}
