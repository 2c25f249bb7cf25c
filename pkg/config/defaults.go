package config

import "time"

const (
	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultMaxConcurrentFlows = 40

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 45 * time.Second // above DefaultRequestTimeout
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPlacesBaseURL   = "http://localhost:8081"
	DefaultFareBaseURL     = "http://localhost:8082"
	DefaultBookingBaseURL  = "http://localhost:8083"
	DefaultUpstreamTimeout = 10 * time.Second

	DefaultAutocompleteDebounce = 300 * time.Millisecond
	DefaultAutocompleteMinChars = 3
	DefaultMaxStops             = 5
	DefaultPlaceDetailsCacheTTL = 10 * time.Minute

	DefaultPollInterval         = 2 * time.Second
	DefaultPollMaxAttempts      = 12 // 24s of polling inside the 30s request timeout
	DefaultSuccessRedirectDelay = 3 * time.Second
	DefaultPaymentSessionTTL    = 30 * time.Minute

	DefaultMongoURI          = ""
	DefaultMongoDatabaseName = "transferly"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultKafkaEnabled         = false
	DefaultKafkaPaymentTopic    = "payments.lifecycle"
	DefaultKafkaPaymentDLQTopic = "payments.lifecycle.dlq"
)
