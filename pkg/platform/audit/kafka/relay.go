// Package kafka relays audit outbox rows to a Kafka topic. Kafka is the
// long-term source of truth for audit events; the outbox table guarantees
// no event is lost between the guard's write and the broker acknowledging it.
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	auditpg "equitygate/pkg/platform/audit/store/postgres"
)

// Outbox is the slice of the postgres audit store the relay needs.
type Outbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]auditpg.OutboxRow, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Relay polls the outbox and publishes pending rows.
type Relay struct {
	client   *kgo.Client
	outbox   Outbox
	topic    string
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

// Config for the relay. Brokers and Topic are required.
type Config struct {
	Brokers  []string
	Topic    string
	Interval time.Duration
	Batch    int
}

// New connects to the brokers and ensures the audit topic exists.
func New(ctx context.Context, cfg Config, outbox Outbox, logger *slog.Logger) (*Relay, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(ctx, 1, 1, nil, cfg.Topic); err != nil {
		// Topic may already exist; anything else is fatal at startup.
		exists, checkErr := topicExists(ctx, admin, cfg.Topic)
		if checkErr != nil || !exists {
			client.Close()
			return nil, fmt.Errorf("ensure audit topic %q: %w", cfg.Topic, err)
		}
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = time.Second
	}
	batch := cfg.Batch
	if batch == 0 {
		batch = 100
	}
	return &Relay{
		client:   client,
		outbox:   outbox,
		topic:    cfg.Topic,
		logger:   logger,
		interval: interval,
		batch:    batch,
	}, nil
}

func topicExists(ctx context.Context, admin *kadm.Client, topic string) (bool, error) {
	details, err := admin.ListTopics(ctx, topic)
	if err != nil {
		return false, err
	}
	return details.Has(topic), nil
}

// Run polls the outbox until ctx is cancelled. Failed batches are retried on
// the next tick; rows are only marked published after the broker acks.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drain(ctx); err != nil {
				if r.logger != nil {
					r.logger.ErrorContext(ctx, "audit relay batch failed", "error", err)
				}
			}
		}
	}
}

func (r *Relay) drain(ctx context.Context) error {
	rows, err := r.outbox.FetchUnpublished(ctx, r.batch)
	if err != nil {
		return fmt.Errorf("fetch outbox: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, &kgo.Record{
			Topic: r.topic,
			Key:   []byte(row.Category),
			Value: row.Body,
		})
	}
	if err := r.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit batch: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	if err := r.outbox.MarkPublished(ctx, ids); err != nil {
		// Rows will be re-published next tick; consumers must deduplicate by id.
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}

// Close flushes and releases the Kafka client.
func (r *Relay) Close() {
	r.client.Close()
}
