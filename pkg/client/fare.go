package client

import (
	"context"
	"time"
	"transferly/pkg/model"
)

const fareService = "fare"

type FareClient struct {
	httpClient *HttpClient
}

func NewFareClient(baseUrl string, timeout time.Duration) *FareClient {
	return &FareClient{
		httpClient: NewHttpClient(baseUrl, timeout),
	}
}

func (c *FareClient) Quote(ctx context.Context, req model.QuoteRequest) (*model.Quote, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/quotes", req)
	if err := checkResponse(fareService, resp, err); err != nil {
		return nil, err
	}
	return decodeData[model.Quote](fareService, resp)
}
