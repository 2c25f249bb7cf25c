package main

import (
	"context"
	"time"
	"transferly/internal/checkout/api"
	checkout "transferly/internal/checkout/core"
	"transferly/internal/checkout/handlers"
	"transferly/internal/payment"
	"transferly/internal/quote"
	"transferly/internal/resolver"
	"transferly/internal/route"
	"transferly/pkg/app"
	"transferly/pkg/config"
	"transferly/pkg/kafka"
	kafka_config "transferly/pkg/kafka/config"
	kafka_middleware "transferly/pkg/kafka/middleware"
)

const (
	ServiceName    = "checkout"
	journalTimeout = 5 * time.Second
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetClients()

	application := app.NewApplication()

	var (
		journal payment.Journal
		db      handlers.Pinger
	)
	if cfg.MongoEnabled() {
		journal = payment.NewMongoJournal(cfg.Client.Mongo.Database(cfg.MongoDatabaseName), journalTimeout)
		db = cfg.Client.Mongo
	}

	var events payment.Publisher
	if cfg.KafkaEnabled {
		producer := newPaymentProducer(cfg)
		events = payment.NewKafkaPublisher(producer, ServiceName)
		application.OnShutdown(func(context.Context) {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		})
	}

	registry := payment.NewRegistry(cfg.PaymentSessionTTL, func(bookingID string) *payment.Controller {
		return payment.NewController(bookingID, cfg.Client.Booking, payment.Options{
			PollInterval:    cfg.PollInterval,
			PollMaxAttempts: cfg.PollMaxAttempts,
			RedirectDelay:   cfg.SuccessRedirectDelay,
			Navigate: func(bookingID string) {
				cfg.Log.Info("Payment complete, client redirected to confirmation", "booking_id", bookingID)
			},
			Journal: journal,
			Events:  events,
			Logger:  cfg.Log,
		})
	})

	deps := &checkout.Deps{
		Places: cfg.Client.Places,
		ResolverOptions: resolver.Options{
			Debounce: cfg.AutocompleteDebounce,
			MinChars: cfg.AutocompleteMinChars,
		},
		RouteOptions: route.Options{
			MaxStops: cfg.MaxStops,
		},
		Quotes:   quote.NewFacade(cfg.Client.Fare, cfg.Log),
		Payments: registry,
		Journal:  journal,
	}

	flowHandler, healthHandler := api.NewHandlers(deps, checkout.NewLimiter(cfg.MaxConcurrentFlows), db, cfg.Log)
	application.SetApp(cfg, flowHandler, healthHandler)

	application.OnShutdown(func(context.Context) {
		registry.Close()
	})
	application.OnShutdown(cfg.GracefulShutdown)

	application.Run()
}

func newPaymentProducer(cfg *config.Config) *kafka.Producer {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.KafkaPaymentTopic, cfg.KafkaPaymentDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}
	return producer
}
