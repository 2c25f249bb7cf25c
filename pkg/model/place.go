package model

// PlacePrediction is an unconfirmed suggestion returned by the places provider
// for partial input. PlaceID is only meaningful within the request that
// produced it.
type PlacePrediction struct {
	PlaceID       string `json:"place_id"`
	MainText      string `json:"main_text"`
	SecondaryText string `json:"secondary_text,omitempty"`
}

// ResolvedAddress is a geocoded selection. It is treated as a value: once
// attached to a Stop or to pickup/drop-off it is replaced, never mutated.
type ResolvedAddress struct {
	Address  string  `json:"address" bson:"address" validate:"required,max=500"`
	Postcode *string `json:"postcode,omitempty" bson:"postcode,omitempty"`
	Lat      float64 `json:"lat" bson:"lat" validate:"latitude"`
	Lng      float64 `json:"lng" bson:"lng" validate:"longitude"`
	PlaceID  string  `json:"place_id,omitempty" bson:"place_id,omitempty"`
}

func (a ResolvedAddress) PostcodeOrEmpty() string {
	if a.Postcode == nil {
		return ""
	}
	return *a.Postcode
}
