package kafka

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type Client struct {
	Brokers []string
}

func NewClient(brokersCSV string) *Client {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return &Client{Brokers: brokers}
}

func (c *Client) Enabled() bool {
	return len(c.Brokers) > 0
}

// NewWriter returns a writer without a fixed topic; every message names its own.
func (c *Client) NewWriter() *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

func (c *Client) NewReader(topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.Brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
}

// Publisher hands outbox records to Kafka.
type Publisher struct {
	Writer *kafka.Writer
}

func (p *Publisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	return p.Writer.WriteMessages(ctx, kafka.Message{Topic: topic, Key: []byte(key), Value: payload, Time: time.Now().UTC()})
}

func (p *Publisher) Close() error {
	return p.Writer.Close()
}
