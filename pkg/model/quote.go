package model

import "time"

type QuoteRequest struct {
	Pickup         ResolvedAddress `json:"pickup"`
	Stops          []StopPayload   `json:"stops" validate:"max=10,dive"`
	Dropoff        ResolvedAddress `json:"dropoff"`
	VehicleType    string          `json:"vehicle_type" validate:"required,max=50"`
	Passengers     int             `json:"passengers" validate:"min=1,max=16"`
	Luggage        int             `json:"luggage" validate:"min=0,max=20"`
	ServiceType    string          `json:"service_type" validate:"required,max=50"`
	PickupDateTime time.Time       `json:"pickup_datetime" validate:"required"`
}

// Quote is the normalized fare. TotalPrice is always numeric regardless of how
// the fare backend encoded it.
type Quote struct {
	QuoteID         string     `json:"quote_id,omitempty"`
	TotalPrice      Amount     `json:"total_price"`
	Currency        string     `json:"currency"`
	DisplayPrice    string     `json:"display_price"`
	VehicleType     string     `json:"vehicle_type,omitempty"`
	DistanceKm      float64    `json:"distance_km,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}
