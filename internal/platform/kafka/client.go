package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Client wraps a franz-go producer for the event relay. Records are produced
// synchronously: the relay marks an outbox row published only after the
// broker acknowledges the write, which keeps delivery at-least-once.
type Client struct {
	client *kgo.Client
	topic  string
}

// New connects to the brokers and ensures the event topic exists.
// Returns nil if brokers is empty (event export disabled).
func New(ctx context.Context, brokers []string, topic string) (*Client, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}
	return &Client{client: client, topic: topic}, nil
}

// ensureTopic creates the topic if missing. One partition: consumers rely on
// broker order matching ledger sequence order.
func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)

	topics, err := adm.ListTopics(ctx, topic)
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}
	if topics.Has(topic) {
		return nil
	}

	resp, err := adm.CreateTopic(ctx, 1, -1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %q: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %q: %w", topic, resp.Err)
	}
	return nil
}

// Produce sends one record and waits for broker acknowledgement.
func (c *Client) Produce(ctx context.Context, key, value []byte) error {
	rec := &kgo.Record{Topic: c.topic, Key: key, Value: value}
	if err := c.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce: %w", err)
	}
	return nil
}

// Health checks broker reachability.
func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx)
}

// Close flushes buffered records and releases the connection.
func (c *Client) Close() {
	c.client.Close()
}
