package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"transferly/pkg/client"
	"transferly/pkg/logger"
)

type Config struct {
	Port string

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	MaxConcurrentFlows int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	PlacesBaseURL   string
	FareBaseURL     string
	BookingBaseURL  string
	UpstreamTimeout time.Duration

	AutocompleteDebounce time.Duration
	AutocompleteMinChars int
	MaxStops             int
	PlaceDetailsCacheTTL time.Duration

	PollInterval         time.Duration
	PollMaxAttempts      int
	SuccessRedirectDelay time.Duration
	PaymentSessionTTL    time.Duration

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	KafkaEnabled         bool
	KafkaPaymentTopic    string
	KafkaPaymentDLQTopic string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		Port: getEnvStr(EnvPort, DefaultPort),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		MaxConcurrentFlows: getEnvNum(EnvMaxConcurrentFlows, DefaultMaxConcurrentFlows),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		PlacesBaseURL:   strings.TrimSuffix(getEnvStr(EnvPlacesBaseURL, DefaultPlacesBaseURL), "/"),
		FareBaseURL:     strings.TrimSuffix(getEnvStr(EnvFareBaseURL, DefaultFareBaseURL), "/"),
		BookingBaseURL:  strings.TrimSuffix(getEnvStr(EnvBookingBaseURL, DefaultBookingBaseURL), "/"),
		UpstreamTimeout: getEnvDuration(EnvUpstreamTimeout, DefaultUpstreamTimeout),

		AutocompleteDebounce: getEnvDuration(EnvAutocompleteDebounce, DefaultAutocompleteDebounce),
		AutocompleteMinChars: getEnvNum(EnvAutocompleteMinChars, DefaultAutocompleteMinChars),
		MaxStops:             getEnvNum(EnvMaxStops, DefaultMaxStops),
		PlaceDetailsCacheTTL: getEnvDuration(EnvPlaceDetailsCacheTTL, DefaultPlaceDetailsCacheTTL),

		PollInterval:         getEnvDuration(EnvPollInterval, DefaultPollInterval),
		PollMaxAttempts:      getEnvNum(EnvPollMaxAttempts, DefaultPollMaxAttempts),
		SuccessRedirectDelay: getEnvDuration(EnvSuccessRedirectDelay, DefaultSuccessRedirectDelay),
		PaymentSessionTTL:    getEnvDuration(EnvPaymentSessionTTL, DefaultPaymentSessionTTL),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		KafkaEnabled:         getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		KafkaPaymentTopic:    getEnvStr(EnvKafkaPaymentTopic, DefaultKafkaPaymentTopic),
		KafkaPaymentDLQTopic: getEnvStr(EnvKafkaPaymentDLQTopic, DefaultKafkaPaymentDLQTopic),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	err := cfg.Validate()
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// SetClients wires the upstream HTTP clients and, when configured, MongoDB.
func (cfg *Config) SetClients() {
	cfg.Client.SetPlacesClient(cfg.PlacesBaseURL, cfg.UpstreamTimeout, cfg.PlaceDetailsCacheTTL)
	cfg.Client.SetFareClient(cfg.FareBaseURL, cfg.UpstreamTimeout)
	cfg.Client.SetBookingClient(cfg.BookingBaseURL, cfg.UpstreamTimeout)
	if cfg.MongoEnabled() {
		cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
	}
}

func (cfg *Config) MongoEnabled() bool {
	return cfg.MongoURI != ""
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	baseURLs := []struct {
		name  string
		value string
	}{
		{"PlacesBaseURL", cfg.PlacesBaseURL},
		{"FareBaseURL", cfg.FareBaseURL},
		{"BookingBaseURL", cfg.BookingBaseURL},
	}
	for _, b := range baseURLs {
		if u, err := url.Parse(b.value); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("%s must be an absolute http(s) URL, got: %s", b.name, b.value))
		}
	}

	if cfg.MongoURI != "" && !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoURI != "" && cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty when MongoURI is set")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"UpstreamTimeout", cfg.UpstreamTimeout},
		{"AutocompleteDebounce", cfg.AutocompleteDebounce},
		{"PlaceDetailsCacheTTL", cfg.PlaceDetailsCacheTTL},
		{"PollInterval", cfg.PollInterval},
		{"PaymentSessionTTL", cfg.PaymentSessionTTL},
		{"MongoConnTimeout", cfg.MongoConnTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}
	if cfg.SuccessRedirectDelay < 0 {
		errors = append(errors, fmt.Sprintf("SuccessRedirectDelay cannot be negative, got: %s", cfg.SuccessRedirectDelay))
	}

	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.MaxConcurrentFlows <= 0 {
		errors = append(errors, fmt.Sprintf("MaxConcurrentFlows must be positive, got: %d", cfg.MaxConcurrentFlows))
	}
	if cfg.AutocompleteMinChars < 1 {
		errors = append(errors, fmt.Sprintf("AutocompleteMinChars must be at least 1, got: %d", cfg.AutocompleteMinChars))
	}
	if cfg.MaxStops < 0 {
		errors = append(errors, fmt.Sprintf("MaxStops cannot be negative, got: %d", cfg.MaxStops))
	}
	if cfg.PollMaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("PollMaxAttempts must be positive, got: %d", cfg.PollMaxAttempts))
	}
	// confirm_payment polls inside the request; the whole poll has to fit
	pollBudget := cfg.PollInterval * time.Duration(cfg.PollMaxAttempts)
	if cfg.PollInterval > 0 && cfg.PollMaxAttempts > 0 && pollBudget >= cfg.RequestTimeout {
		errors = append(errors, fmt.Sprintf("PollInterval x PollMaxAttempts (%s) must be shorter than RequestTimeout (%s)", pollBudget, cfg.RequestTimeout))
	}
	if cfg.WriteTimeout > 0 && cfg.WriteTimeout <= cfg.RequestTimeout {
		errors = append(errors, fmt.Sprintf("WriteTimeout (%s) must be longer than RequestTimeout (%s)", cfg.WriteTimeout, cfg.RequestTimeout))
	}

	if cfg.KafkaEnabled && cfg.KafkaPaymentTopic == "" {
		errors = append(errors, "KafkaPaymentTopic cannot be empty when Kafka is enabled")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"max_concurrent_flows", cfg.MaxConcurrentFlows,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"places_base_url", cfg.PlacesBaseURL,
		"fare_base_url", cfg.FareBaseURL,
		"booking_base_url", cfg.BookingBaseURL,
		"upstream_timeout", cfg.UpstreamTimeout,
		"autocomplete_debounce", cfg.AutocompleteDebounce,
		"autocomplete_min_chars", cfg.AutocompleteMinChars,
		"max_stops", cfg.MaxStops,
		"place_details_cache_ttl", cfg.PlaceDetailsCacheTTL,
		"poll_interval", cfg.PollInterval,
		"poll_max_attempts", cfg.PollMaxAttempts,
		"success_redirect_delay", cfg.SuccessRedirectDelay,
		"payment_session_ttl", cfg.PaymentSessionTTL,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"kafka_enabled", cfg.KafkaEnabled,
		"kafka_payment_topic", cfg.KafkaPaymentTopic,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown(ctx context.Context) {
	cfg.Client.GracefulShutdown(ctx, cfg.Log)
}
