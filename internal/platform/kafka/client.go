package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Config selects the brokers and the topic the client produces to.
type Config struct {
	Brokers           []string
	Topic             string
	Partitions        int32
	ReplicationFactor int16
}

// NewClient connects to the brokers and makes sure the topic exists. The
// caller owns the returned client and must Close it.
func NewClient(ctx context.Context, cfg Config) (*kgo.Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: new client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka: ping: %w", err)
	}
	if err := EnsureTopic(ctx, kadm.NewClient(client), cfg); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// EnsureTopic creates the topic, treating an existing topic as success.
func EnsureTopic(ctx context.Context, adm *kadm.Client, cfg Config) error {
	partitions := cfg.Partitions
	if partitions <= 0 {
		partitions = 1
	}
	rf := cfg.ReplicationFactor
	if rf <= 0 {
		rf = 1
	}
	resp, err := adm.CreateTopics(ctx, partitions, rf, nil, cfg.Topic)
	if err != nil {
		return fmt.Errorf("kafka: create topic %s: %w", cfg.Topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("kafka: create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}
