package model

// Stop is an intermediate waypoint. Lat/Lng stay nil until a ResolvedAddress
// has been attached; ID is assigned once and survives reorders and removals.
type Stop struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Address  string   `json:"address,omitempty"`
	Postcode *string  `json:"postcode,omitempty"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	PlaceID  string   `json:"place_id,omitempty"`
}

func (s Stop) IsResolved() bool {
	return s.Lat != nil && s.Lng != nil
}

// Resolved returns the attached address, or false when the stop has no
// coordinates yet.
func (s Stop) Resolved() (ResolvedAddress, bool) {
	if !s.IsResolved() {
		return ResolvedAddress{}, false
	}
	return ResolvedAddress{
		Address:  s.Address,
		Postcode: s.Postcode,
		Lat:      *s.Lat,
		Lng:      *s.Lng,
		PlaceID:  s.PlaceID,
	}, true
}

// WithResolution returns a copy of s carrying addr. The input text is replaced
// by the formatted address, matching what the field displays after a selection.
func (s Stop) WithResolution(addr ResolvedAddress) Stop {
	lat, lng := addr.Lat, addr.Lng
	var postcode *string
	if addr.Postcode != nil {
		pc := *addr.Postcode
		postcode = &pc
	}
	return Stop{
		ID:       s.ID,
		Text:     addr.Address,
		Address:  addr.Address,
		Postcode: postcode,
		Lat:      &lat,
		Lng:      &lng,
		PlaceID:  addr.PlaceID,
	}
}

// StopPayload is the wire form of a resolved stop. StopOrder is the stop's
// zero-based position at submission time.
type StopPayload struct {
	Address   string  `json:"address" validate:"required,max=500"`
	Postcode  *string `json:"postcode,omitempty"`
	Lat       float64 `json:"lat" validate:"latitude"`
	Lng       float64 `json:"lng" validate:"longitude"`
	PlaceID   string  `json:"place_id,omitempty"`
	StopOrder int     `json:"stop_order" validate:"min=0"`
}

// Payload converts a resolved stop to its wire form at the given position.
// It reports false for an unresolved stop.
func (s Stop) Payload(order int) (StopPayload, bool) {
	addr, ok := s.Resolved()
	if !ok {
		return StopPayload{}, false
	}
	return StopPayload{
		Address:   addr.Address,
		Postcode:  addr.Postcode,
		Lat:       addr.Lat,
		Lng:       addr.Lng,
		PlaceID:   addr.PlaceID,
		StopOrder: order,
	}, true
}
