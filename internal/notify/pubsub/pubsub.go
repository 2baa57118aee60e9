// Package pubsub implements a Google Cloud Pub/Sub Notifier.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"go.opentelemetry.io/otel"

	"github.com/racekit/pacer/internal/notify"
)

// Notifier wraps a Pub/Sub publisher client.
type Notifier struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
}

// New creates a Notifier for the provided topic publisher. The caller keeps
// ownership of the underlying client.
func New(publisher *pubsub.Publisher) *Notifier {
	return &Notifier{publisher: publisher}
}

// Connect creates a Pub/Sub client and a publisher for the topic. The
// client authenticates with Application Default Credentials and is closed
// by Close.
func Connect(ctx context.Context, projectID, topicID string) (*Notifier, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &Notifier{
		client:    client,
		publisher: client.Publisher(topicID),
	}, nil
}

// Close stops the publisher and releases the client connection, if this
// Notifier owns one.
func (n *Notifier) Close() error {
	if n.publisher != nil {
		n.publisher.Stop()
	}
	if n.client == nil {
		return nil
	}
	if err := n.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}

// Publish marshals the finish event to JSON and publishes it to the topic.
func (n *Notifier) Publish(ctx context.Context, evt notify.FinishEvent) (string, error) {
	if n.publisher == nil {
		return "", fmt.Errorf("pubsub publisher is not configured")
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return "", fmt.Errorf("marshal finish event: %w", err)
	}

	msg := &pubsub.Message{Data: data}
	msg.Attributes = map[string]string{"runner": evt.Name}
	otel.GetTextMapPropagator().Inject(ctx, &pubsubCarrier{attrs: msg.Attributes})

	result := n.publisher.Publish(ctx, msg)
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// pubsubCarrier implements propagation.TextMapCarrier for Pub/Sub attributes.
type pubsubCarrier struct {
	attrs map[string]string
}

func (c *pubsubCarrier) Get(key string) string {
	return c.attrs[key]
}

func (c *pubsubCarrier) Set(key, value string) {
	c.attrs[key] = value
}

func (c *pubsubCarrier) Keys() []string {
	keys := make([]string, 0, len(c.attrs))
	for k := range c.attrs {
		keys = append(keys, k)
	}
	return keys
}
