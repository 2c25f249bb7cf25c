package config

const (
	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvMaxConcurrentFlows = "MAX_CONCURRENT_FLOWS"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvPlacesBaseURL   = "PLACES_BASE_URL"
	EnvFareBaseURL     = "FARE_BASE_URL"
	EnvBookingBaseURL  = "BOOKING_BASE_URL"
	EnvUpstreamTimeout = "UPSTREAM_TIMEOUT"

	EnvAutocompleteDebounce = "AUTOCOMPLETE_DEBOUNCE"
	EnvAutocompleteMinChars = "AUTOCOMPLETE_MIN_CHARS"
	EnvMaxStops             = "MAX_STOPS"
	EnvPlaceDetailsCacheTTL = "PLACE_DETAILS_CACHE_TTL"

	EnvPollInterval         = "POLL_INTERVAL"
	EnvPollMaxAttempts      = "POLL_MAX_ATTEMPTS"
	EnvSuccessRedirectDelay = "SUCCESS_REDIRECT_DELAY"
	EnvPaymentSessionTTL    = "PAYMENT_SESSION_TTL"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvKafkaEnabled         = "KAFKA_ENABLED"
	EnvKafkaPaymentTopic    = "KAFKA_PAYMENT_TOPIC"
	EnvKafkaPaymentDLQTopic = "KAFKA_PAYMENT_DLQ_TOPIC"
)
