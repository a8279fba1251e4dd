// Package events announces persisted household members on Kafka topics.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"hcm/internal/household/models"
	"hcm/internal/platform/kafka"
	"hcm/pkg/requestcontext"
)

// Producer is the record sink, satisfied by *kafka.Producer.
type Producer interface {
	Publish(ctx context.Context, topic string, records []kafka.Record) error
}

// Publisher writes one record per member keyed by member id, so every change
// to a member lands on the same partition in order.
type Publisher struct {
	producer Producer
}

func NewPublisher(p Producer) *Publisher {
	return &Publisher{producer: p}
}

func (p *Publisher) Publish(ctx context.Context, topic string, members []models.HouseholdMember) error {
	records := make([]kafka.Record, 0, len(members))
	requestID := requestcontext.RequestID(ctx)
	for _, m := range members {
		value, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode member %s: %w", m.ID, err)
		}
		headers := map[string]string{"tenantId": m.TenantID}
		if requestID != "" {
			headers["requestId"] = requestID
		}
		records = append(records, kafka.Record{Key: m.ID, Value: value, Headers: headers})
	}
	return p.producer.Publish(ctx, topic, records)
}
