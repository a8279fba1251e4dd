// Package kafka publishes records to Kafka (or Redpanda) with franz-go.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Record is one message to publish.
type Record struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

// Producer produces records synchronously.
type Producer struct {
	client *kgo.Client
	logger *slog.Logger
}

// Option configures a Producer.
type Option func(*config)

type config struct {
	logger    *slog.Logger
	clientID  string
	timeout   time.Duration
	extraOpts []kgo.Opt
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func WithClientID(id string) Option {
	return func(c *config) {
		c.clientID = id
	}
}

// WithProduceTimeout bounds each produce request.
func WithProduceTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithClientOpts passes raw franz-go options through.
func WithClientOpts(opts ...kgo.Opt) Option {
	return func(c *config) {
		c.extraOpts = append(c.extraOpts, opts...)
	}
}

// NewProducer connects to brokers. Records are acknowledged by all in-sync
// replicas before Publish returns.
func NewProducer(brokers []string, opts ...Option) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	cfg := config{logger: slog.Default(), clientID: "hcm", timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	kopts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(cfg.clientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProduceRequestTimeout(cfg.timeout),
		kgo.RecordDeliveryTimeout(cfg.timeout),
	}
	kopts = append(kopts, cfg.extraOpts...)
	client, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, fmt.Errorf("kafka: new client: %w", err)
	}
	return &Producer{client: client, logger: cfg.logger}, nil
}

// Ping checks broker connectivity.
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Publish writes records to topic and waits for every acknowledgement.
func (p *Producer) Publish(ctx context.Context, topic string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	krs := make([]*kgo.Record, len(records))
	for i, r := range records {
		kr := &kgo.Record{Topic: topic, Key: []byte(r.Key), Value: r.Value}
		for k, v := range r.Headers {
			kr.Headers = append(kr.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
		}
		krs[i] = kr
	}
	if err := p.client.ProduceSync(ctx, krs...).FirstErr(); err != nil {
		p.logger.ErrorContext(ctx, "kafka produce failed",
			"topic", topic,
			"records", len(records),
			"error", err,
		)
		return fmt.Errorf("kafka: produce to %s: %w", topic, err)
	}
	return nil
}

// EnsureTopics creates topics that do not exist yet.
func (p *Producer) EnsureTopics(ctx context.Context, partitions int32, replicationFactor int16, topics ...string) error {
	adm := kadm.NewClient(p.client)
	resps, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, topics...)
	if err != nil {
		return fmt.Errorf("kafka: create topics: %w", err)
	}
	var errs []error
	for _, r := range resps.Sorted() {
		if r.Err == nil {
			p.logger.InfoContext(ctx, "kafka topic created", "topic", r.Topic)
			continue
		}
		if errors.Is(r.Err, kerr.TopicAlreadyExists) {
			continue
		}
		errs = append(errs, fmt.Errorf("topic %s: %w", r.Topic, r.Err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("kafka: create topics: %w", errors.Join(errs...))
	}
	return nil
}

// Close flushes buffered records and closes the client.
func (p *Producer) Close(ctx context.Context) {
	if err := p.client.Flush(ctx); err != nil {
		p.logger.WarnContext(ctx, "kafka flush on close failed", "error", err)
	}
	p.client.Close()
}
