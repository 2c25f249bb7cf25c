package types

// Widget outcomes reported by the client after the payment form settles.
const (
	WidgetSucceeded = "succeeded"
	WidgetCardError = "card_error"
	WidgetFailed    = "failed"
)

type WidgetResultInput struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}
