package types

import (
	"fmt"
	"strings"
	"time"
	"transferly/pkg/model"
)

// LocationInput names one point of the trip. Exactly one of Address (already
// geocoded by the client) or PlaceID (a prediction to resolve) settles it;
// Text alone leaves the location unresolved.
type LocationInput struct {
	Text    string                 `json:"text,omitempty"`
	PlaceID string                 `json:"place_id,omitempty"`
	Address *model.ResolvedAddress `json:"address,omitempty"`
}

func (l LocationInput) IsEmpty() bool {
	return l.Address == nil && strings.TrimSpace(l.PlaceID) == "" && strings.TrimSpace(l.Text) == ""
}

// Prediction rebuilds the prediction the client picked from a dropdown.
func (l LocationInput) Prediction() model.PlacePrediction {
	return model.PlacePrediction{
		PlaceID:  strings.TrimSpace(l.PlaceID),
		MainText: l.Text,
	}
}

type QuoteTripInput struct {
	SessionToken   string          `json:"session_token,omitempty"`
	Pickup         LocationInput   `json:"pickup"`
	Stops          []LocationInput `json:"stops,omitempty"`
	Dropoff        LocationInput   `json:"dropoff"`
	VehicleType    string          `json:"vehicle_type"`
	Passengers     int             `json:"passengers"`
	Luggage        int             `json:"luggage"`
	ServiceType    string          `json:"service_type"`
	PickupDateTime time.Time       `json:"pickup_datetime"`
}

// Validate only rejects shapes no resolution step can fix. Field ranges are
// left to the quote request validator.
func (i *QuoteTripInput) Validate() error {
	var errors []string

	if i.Pickup.IsEmpty() {
		errors = append(errors, "pickup is required")
	}
	if i.Dropoff.IsEmpty() {
		errors = append(errors, "dropoff is required")
	}
	for idx, stop := range i.Stops {
		if stop.IsEmpty() {
			errors = append(errors, fmt.Sprintf("stops[%d] is empty", idx))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}
