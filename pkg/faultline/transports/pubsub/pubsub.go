// Package pubsub provides a transport that publishes events and sessions to
// a Google Cloud Pub/Sub topic for downstream correlation pipelines.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/faultline-dev/faultline/pkg/faultline"
)

// pubsubTransport publishes envelopes to one topic. Message attributes carry
// the item kind and severity so subscribers can filter without decoding.
type pubsubTransport struct {
	client *gcppubsub.Client
	topic  *gcppubsub.Topic
}

// New creates a transport publishing to the given project and topic.
func New(ctx context.Context, projectID, topicID string, opts ...option.ClientOption) (faultline.Transport, error) {
	client, err := gcppubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub: %w", err)
	}
	return &pubsubTransport{
		client: client,
		topic:  client.Topic(topicID),
	}, nil
}

// SendEvent publishes one event and waits for the server acknowledgement.
func (t *pubsubTransport) SendEvent(ctx context.Context, event *faultline.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("pubsub: marshal event: %w", err)
	}
	return t.publish(ctx, body, map[string]string{
		"kind":  "event",
		"level": string(event.Level),
	})
}

// SendSession publishes one session record.
func (t *pubsubTransport) SendSession(ctx context.Context, session *faultline.Session) error {
	body, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("pubsub: marshal session: %w", err)
	}
	return t.publish(ctx, body, map[string]string{
		"kind":   "session",
		"status": string(session.Status),
	})
}

func (t *pubsubTransport) publish(ctx context.Context, body []byte, attrs map[string]string) error {
	res := t.topic.Publish(ctx, &gcppubsub.Message{
		Data:       body,
		Attributes: attrs,
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("pubsub: publish: %w", err)
	}
	return nil
}

// Flush blocks until all buffered publishes have been sent.
func (t *pubsubTransport) Flush(ctx context.Context) error {
	t.topic.Flush()
	return nil
}

// Close stops the topic's publish goroutines and closes the client.
func (t *pubsubTransport) Close() error {
	t.topic.Stop()
	return t.client.Close()
}
