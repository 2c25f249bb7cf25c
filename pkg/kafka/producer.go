package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"
	kafka_config "transferly/pkg/kafka/config"
	"transferly/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

// messageWriter is the subset of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer wraps a kafka-go writer with a middleware chain and an optional
// dead letter topic.
type Producer struct {
	writer       messageWriter
	dlqWriter    messageWriter
	topic        string
	dlqTopic     string
	writeTimeout time.Duration
	middleware   []ProducerMiddleware
	closed       bool
	mu           sync.RWMutex
}

// ProducerMiddleware allows intercepting publish operations
type ProducerMiddleware func(ctx context.Context, msg Message, next func(ctx context.Context, msg Message) error) error

func NewProducer(cfg *kafka_config.Config, topic string, dlqTopic string, log *logger.Logger) (*Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	if log == nil {
		log = logger.Discard()
	}
	errorLogger := kafka.LoggerFunc(func(msg string, args ...any) {
		log.Error(fmt.Sprintf(msg, args...), "component", "kafka-writer")
	})
	transport := &kafka.Transport{ClientID: cfg.ClientID}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // per-booking ordering
		RequiredAcks: requiredAcks(cfg.ProducerRequireAcks),
		Compression:  compression(cfg.ProducerCompression),
		MaxAttempts:  cfg.ProducerMaxAttempts,
		BatchTimeout: cfg.ProducerBatchTimeout,
		WriteTimeout: cfg.ProducerWriteTimeout,
		Async:        cfg.ProducerAsync,
		Transport:    transport,
		ErrorLogger:  errorLogger,
	}

	var dlqWriter messageWriter
	if dlqTopic != "" {
		dlqWriter = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        dlqTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  compression(cfg.ProducerCompression),
			MaxAttempts:  3,
			WriteTimeout: cfg.ProducerWriteTimeout,
			Transport:    transport,
			ErrorLogger:  errorLogger,
		}
	}

	return newProducer(writer, dlqWriter, topic, dlqTopic, cfg.ProducerWriteTimeout), nil
}

func newProducer(writer, dlqWriter messageWriter, topic, dlqTopic string, writeTimeout time.Duration) *Producer {
	return &Producer{
		writer:       writer,
		dlqWriter:    dlqWriter,
		topic:        topic,
		dlqTopic:     dlqTopic,
		writeTimeout: writeTimeout,
		middleware:   make([]ProducerMiddleware, 0),
	}
}

func (p *Producer) Use(middleware ProducerMiddleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.middleware = append(p.middleware, middleware)
}

func (p *Producer) Topic() string {
	return p.topic
}

// Publish writes msg to the producer's topic. A failed write is copied to the
// dead letter topic when one is configured; the original error is still
// returned, classified as transient or permanent.
func (p *Producer) Publish(ctx context.Context, msg Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrProducerClosed
	}
	chain := make([]ProducerMiddleware, len(p.middleware))
	copy(chain, p.middleware)
	p.mu.RUnlock()

	if msg.Key == "" {
		return ErrEmptyKey
	}
	if len(msg.Value) == 0 {
		return ErrEmptyValue
	}
	msg.Topic = p.topic

	handler := p.publishInternal
	for i := len(chain) - 1; i >= 0; i-- {
		middleware := chain[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return middleware(ctx, m, next)
		}
	}

	return handler(ctx, msg)
}

func (p *Producer) publishInternal(ctx context.Context, msg Message) error {
	if p.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.writeTimeout)
		defer cancel()
	}

	err := p.writer.WriteMessages(ctx, toKafkaMessage(msg, msg.Headers, msg.Timestamp))
	if err == nil {
		return nil
	}

	var kerr *KafkaError
	if ClassifyError(err) == ErrorTypeTransient {
		kerr = NewTransientError("publish failed", err)
	} else {
		kerr = NewPermanentError("publish failed", err)
	}
	kerr.WithDetail("topic", p.topic).WithDetail("key", msg.Key)

	if p.dlqWriter != nil {
		if dlqErr := p.sendToDLQ(ctx, msg, err); dlqErr != nil {
			kerr.WithDetail("dlq_error", dlqErr.Error())
		}
	}
	return kerr
}

func (p *Producer) sendToDLQ(ctx context.Context, msg Message, originalErr error) error {
	headers := msg.cloneHeaders()
	headers[HeaderOriginalTopic] = p.topic
	headers[HeaderDLQError] = originalErr.Error()
	headers[HeaderDLQTimestamp] = time.Now().Format(time.RFC3339)

	// the primary write may have used up the caller's deadline
	dlqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.dlqTimeout())
	defer cancel()

	return p.dlqWriter.WriteMessages(dlqCtx, toKafkaMessage(msg, headers, time.Now()))
}

func (p *Producer) dlqTimeout() time.Duration {
	if p.writeTimeout > 0 {
		return p.writeTimeout
	}
	return 5 * time.Second
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true

	var err error
	if p.writer != nil {
		err = p.writer.Close()
	}

	if p.dlqWriter != nil {
		dlqErr := p.dlqWriter.Close()
		if err == nil {
			err = dlqErr
		}
	}

	return err
}

func toKafkaMessage(msg Message, headers map[string]string, ts time.Time) kafka.Message {
	km := kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Value,
		Time:  ts,
	}
	for k, v := range headers {
		km.Headers = append(km.Headers, kafka.Header{
			Key:   k,
			Value: []byte(v),
		})
	}
	return km
}

func compression(name string) compress.Compression {
	switch name {
	case "gzip":
		return compress.Gzip
	case "snappy":
		return compress.Snappy
	case "lz4":
		return compress.Lz4
	case "zstd":
		return compress.Zstd
	default:
		return compress.None
	}
}

func requiredAcks(acks int) kafka.RequiredAcks {
	switch acks {
	case 0:
		return kafka.RequireNone
	case 1:
		return kafka.RequireOne
	default:
		return kafka.RequireAll
	}
}
