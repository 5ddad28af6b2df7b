package worker

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tidewise/tidewise/internal/resilience"
)

// ResultPublisher delivers scored days to downstream consumers.
type ResultPublisher interface {
	Publish(ctx context.Context, day ScoredDay) error
}

// PubSubPublisher publishes scored days to a Pub/Sub topic.
type PubSubPublisher struct {
	publisher *pubsub.Publisher
	topic     string
	guard     *resilience.Guard
	logger    zerolog.Logger
}

// PubSubPublisherConfig holds configuration for the results publisher.
type PubSubPublisherConfig struct {
	Client *pubsub.Client
	Topic  string
	Guard  *resilience.Guard
	Logger zerolog.Logger
}

// NewPubSubPublisher creates a publisher for the results topic.
func NewPubSubPublisher(cfg PubSubPublisherConfig) *PubSubPublisher {
	return &PubSubPublisher{
		publisher: cfg.Client.Publisher(cfg.Topic),
		topic:     cfg.Topic,
		guard:     cfg.Guard,
		logger:    cfg.Logger,
	}
}

// Publish encodes day and waits for the server to acknowledge it.
func (p *PubSubPublisher) Publish(ctx context.Context, day ScoredDay) error {
	msg, err := encodeScoredDay(day)
	if err != nil {
		return err
	}

	return p.guard.Do(ctx, func(ctx context.Context) error {
		serverID, err := p.publisher.Publish(ctx, msg).Get(ctx)
		if err != nil {
			return fmt.Errorf("publishing to %s: %w", p.topic, err)
		}
		p.logger.Debug().
			Str("server_id", serverID).
			Str("reference_date", day.ReferenceDate).
			Msg("scored day published")
		return nil
	})
}

// Stop flushes pending messages.
func (p *PubSubPublisher) Stop() {
	p.publisher.Stop()
}

func encodeScoredDay(day ScoredDay) (*pubsub.Message, error) {
	data, err := json.Marshal(day)
	if err != nil {
		return nil, fmt.Errorf("encoding scored day: %w", err)
	}
	return &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"job_id":         day.JobID,
			"reference_date": day.ReferenceDate,
			"grouping":       string(day.Grouping),
		},
	}, nil
}
