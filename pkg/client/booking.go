package client

import (
	"context"
	"net/url"
	"time"
	"transferly/pkg/model"
)

const bookingService = "booking"

type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseUrl string, timeout time.Duration) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseUrl, timeout),
	}
}

type createIntentRequest struct {
	BookingID string       `json:"booking_id"`
	Amount    model.Amount `json:"amount"`
}

type confirmPaymentRequest struct {
	BookingID       string `json:"booking_id"`
	PaymentIntentID string `json:"payment_intent_id"`
}

func (c *BookingClient) GetBookingByID(ctx context.Context, id string) (*model.Booking, error) {
	path := "/api/v1/bookings/" + url.PathEscape(id)
	resp, err := c.httpClient.GET(ctx, path)
	if err := checkResponse(bookingService, resp, err); err != nil {
		return nil, err
	}
	return decodeData[model.Booking](bookingService, resp)
}

func (c *BookingClient) CreatePaymentIntent(ctx context.Context, bookingID string, amount model.Amount) (*model.PaymentSession, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/payments/intents", createIntentRequest{
		BookingID: bookingID,
		Amount:    amount,
	})
	if err := checkResponse(bookingService, resp, err); err != nil {
		return nil, err
	}

	session, err := decodeData[model.PaymentSession](bookingService, resp)
	if err != nil {
		return nil, err
	}
	if session.BookingID == "" {
		session.BookingID = bookingID
	}
	return session, nil
}

func (c *BookingClient) ConfirmPayment(ctx context.Context, bookingID string, paymentIntentID string) (*model.Booking, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/payments/confirm", confirmPaymentRequest{
		BookingID:       bookingID,
		PaymentIntentID: paymentIntentID,
	})
	if err := checkResponse(bookingService, resp, err); err != nil {
		return nil, err
	}
	return decodeData[model.Booking](bookingService, resp)
}
