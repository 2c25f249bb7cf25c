package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"transferly/pkg/cache"
	apperrors "transferly/pkg/errors"
	"transferly/pkg/model"
)

const placesService = "places"

type PlacesClient struct {
	httpClient *HttpClient
	details    *cache.Cache[model.ResolvedAddress]
}

func NewPlacesClient(baseUrl string, timeout time.Duration, detailsTTL time.Duration) *PlacesClient {
	c := &PlacesClient{
		httpClient: NewHttpClient(baseUrl, timeout),
	}
	if detailsTTL > 0 {
		c.details = cache.New[model.ResolvedAddress](detailsTTL)
	}
	return c
}

type placeDetailsPayload struct {
	FormattedAddress string  `json:"formatted_address"`
	Postcode         *string `json:"postcode"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
}

// Autocomplete returns ranked predictions for input, billed against sessionToken.
func (c *PlacesClient) Autocomplete(ctx context.Context, input string, sessionToken string) ([]model.PlacePrediction, error) {
	q := url.Values{}
	q.Set("input", input)
	if sessionToken != "" {
		q.Set("session_token", sessionToken)
	}

	resp, err := c.httpClient.GET(ctx, "/api/v1/places/autocomplete?"+q.Encode())
	if err := checkResponse(placesService, resp, err); err != nil {
		return nil, err
	}

	predictions, err := decodeData[[]model.PlacePrediction](placesService, resp)
	if err != nil {
		return nil, err
	}
	return *predictions, nil
}

// Details resolves placeID into a geocoded address. Results are cached per
// place id when a details TTL was configured.
func (c *PlacesClient) Details(ctx context.Context, placeID string, sessionToken string) (*model.ResolvedAddress, error) {
	if strings.TrimSpace(placeID) == "" {
		return nil, apperrors.InvalidInput("place_id is required")
	}
	if c.details != nil {
		if cached, ok := c.details.Get(placeID); ok {
			return &cached, nil
		}
	}

	q := url.Values{}
	q.Set("place_id", placeID)
	if sessionToken != "" {
		q.Set("session_token", sessionToken)
	}

	resp, err := c.httpClient.GET(ctx, "/api/v1/places/details?"+q.Encode())
	if err := checkResponse(placesService, resp, err); err != nil {
		return nil, err
	}

	payload, err := decodeData[placeDetailsPayload](placesService, resp)
	if err != nil {
		return nil, err
	}
	if payload.FormattedAddress == "" {
		return nil, apperrors.Upstream(placesService, fmt.Errorf("place %s has no formatted address", placeID))
	}

	addr := model.ResolvedAddress{
		Address:  payload.FormattedAddress,
		Postcode: payload.Postcode,
		Lat:      payload.Lat,
		Lng:      payload.Lng,
		PlaceID:  placeID,
	}
	if c.details != nil {
		c.details.Set(placeID, addr)
	}
	return &addr, nil
}

func (c *PlacesClient) Close() {
	if c.details != nil {
		c.details.Stop()
	}
}
