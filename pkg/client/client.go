package client

import (
	"context"
	"time"
	"transferly/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Client struct {
	Places  *PlacesClient
	Fare    *FareClient
	Booking *BookingClient
	Mongo   *mongo.Client
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) SetPlacesClient(baseURL string, timeout time.Duration, detailsTTL time.Duration) {
	c.Places = NewPlacesClient(baseURL, timeout, detailsTTL)
}

func (c *Client) SetFareClient(baseURL string, timeout time.Duration) {
	c.Fare = NewFareClient(baseURL, timeout)
}

func (c *Client) SetBookingClient(baseURL string, timeout time.Duration) {
	c.Booking = NewBookingClient(baseURL, timeout)
}

func (c *Client) SetMongo(log *logger.Logger, mongoURI string, mongoConnTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB",
			"error", err,
		)
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB", "error", err)
	}

	log.Info("Successfully connected to MongoDB")
	c.Mongo = client
}

func (c *Client) GracefulShutdown(ctx context.Context, log *logger.Logger) {
	if c.Places != nil {
		c.Places.Close()
	}
	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(ctx); err != nil {
			log.Error("Failed to disconnect MongoDB", "error", err)
		}
	}
}
