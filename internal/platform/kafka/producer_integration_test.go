//go:build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"hcm/pkg/testutil/containers"
)

type ProducerSuite struct {
	suite.Suite
	ctx      context.Context
	brokers  []string
	producer *Producer
}

func TestProducerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerSuite))
}

func (s *ProducerSuite) SetupSuite() {
	s.ctx = context.Background()
	s.brokers = containers.GetManager().GetRedpanda(s.T()).Brokers
	p, err := NewProducer(s.brokers, WithClientID("hcm-test"))
	s.Require().NoError(err)
	s.producer = p
}

func (s *ProducerSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close(s.ctx)
	}
}

func (s *ProducerSuite) TestEnsureTopicsIsIdempotent() {
	s.Require().NoError(s.producer.EnsureTopics(s.ctx, 1, 1, "hcm-ensure-a", "hcm-ensure-b"))
	s.Require().NoError(s.producer.EnsureTopics(s.ctx, 1, 1, "hcm-ensure-a"))
}

func (s *ProducerSuite) TestPublishRoundTrip() {
	topic := "hcm-publish-roundtrip"
	s.Require().NoError(s.producer.EnsureTopics(s.ctx, 1, 1, topic))

	err := s.producer.Publish(s.ctx, topic, []Record{
		{Key: "m1", Value: []byte(`{"id":"m1"}`), Headers: map[string]string{"tenantId": "pb"}},
		{Key: "m2", Value: []byte(`{"id":"m2"}`)},
	})
	s.Require().NoError(err)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()
	var got []*kgo.Record
	for len(got) < 2 {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err())
		fetches.EachRecord(func(r *kgo.Record) { got = append(got, r) })
	}
	s.Equal("m1", string(got[0].Key))
	s.Equal(`{"id":"m1"}`, string(got[0].Value))
	s.Require().Len(got[0].Headers, 1)
	s.Equal("tenantId", got[0].Headers[0].Key)
	s.Equal("m2", string(got[1].Key))
}

func (s *ProducerSuite) TestPublishEmptyIsNoop() {
	s.NoError(s.producer.Publish(s.ctx, "never-created", nil))
}
