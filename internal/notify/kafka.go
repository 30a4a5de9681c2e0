package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSender publishes notification envelopes to one topic, keyed by
// registration so a participant's messages stay ordered.
type KafkaSender struct {
	client *kgo.Client
	topic  string
}

func NewKafkaSender(brokers []string, topic string) (*KafkaSender, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(20*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaSender{client: client, topic: topic}, nil
}

// EnsureTopic creates the notification topic if it does not exist yet.
func (k *KafkaSender) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	admin := kadm.NewClient(k.client)
	resp, err := admin.CreateTopics(ctx, partitions, replicationFactor, nil, k.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", k.topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

func (k *KafkaSender) Send(ctx context.Context, msg Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	record := &kgo.Record{
		Key:   []byte(msg.Key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(msg.Type)},
		},
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", msg.Type, err)
	}
	return nil
}

func (k *KafkaSender) Ping(ctx context.Context) error {
	return k.client.Ping(ctx)
}

func (k *KafkaSender) Close() {
	k.client.Close()
}
