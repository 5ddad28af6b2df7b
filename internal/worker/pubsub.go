package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tidewise/tidewise/internal/conditions"
	"github.com/tidewise/tidewise/internal/grouping"
)

// Job types.
const (
	JobTypeScoreDay    = "score_day"
	JobTypeHealthCheck = "health_check"
)

// ScoreMessage is the body of a scoring job.
type ScoreMessage struct {
	JobType string `json:"job_type"`
	JobID   string `json:"job_id,omitempty"`

	// Data is a single day; Days carries a batch. Both may be set.
	Data *conditions.DataContext  `json:"data,omitempty"`
	Days []conditions.DataContext `json:"days,omitempty"`

	ActivityIDs []string `json:"activity_ids,omitempty"`
	Grouping    string   `json:"grouping,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dispatcher decodes job messages and runs them.
type Dispatcher struct {
	job     *ScoreJob
	catalog Pinger
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher. catalog may be nil.
func NewDispatcher(job *ScoreJob, catalog Pinger, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{job: job, catalog: catalog, logger: logger}
}

// Dispatch handles one message body and reports whether it should be acked.
// Undecodable bodies and failed jobs are nacked; unknown job types and
// jobs that can never succeed are acked to prevent redelivery.
func (d *Dispatcher) Dispatch(ctx context.Context, data []byte) bool {
	var msg ScoreMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		d.logger.Error().Err(err).Msg("failed to parse message")
		return false
	}

	logger := d.logger.With().Str("job_type", msg.JobType).Logger()

	var err error
	switch msg.JobType {
	case JobTypeScoreDay:
		err = d.handleScoreDay(ctx, msg)
	case JobTypeHealthCheck:
		err = d.handleHealthCheck(ctx)
	default:
		logger.Warn().Msg("unknown job type")
		return true
	}

	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrNoDays), errors.Is(err, grouping.ErrUnknownMode):
		logger.Error().Err(err).Msg("dropping invalid job")
		return true
	default:
		logger.Error().Err(err).Msg("job failed")
		return false
	}
}

func (d *Dispatcher) handleScoreDay(ctx context.Context, msg ScoreMessage) error {
	var mode grouping.Mode
	if msg.Grouping != "" {
		parsed, err := grouping.ParseMode(msg.Grouping)
		if err != nil {
			return err
		}
		mode = parsed
	}

	days := msg.Days
	if msg.Data != nil {
		days = append([]conditions.DataContext{*msg.Data}, days...)
	}

	jobID := msg.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	result, err := d.job.Run(ctx, ScoreRequest{
		JobID:       jobID,
		Days:        days,
		ActivityIDs: msg.ActivityIDs,
		Grouping:    mode,
		Limit:       msg.Limit,
	})
	if err != nil {
		return err
	}
	return result.err()
}

func (d *Dispatcher) handleHealthCheck(ctx context.Context) error {
	d.logger.Debug().Msg("running health check")
	if d.catalog == nil {
		return nil
	}
	if err := d.catalog.Ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	d.logger.Debug().Msg("health check passed")
	return nil
}

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       *Dispatcher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	Client           *pubsub.Client
	SubscriptionName string
	MaxOutstanding   int
	Dispatcher       *Dispatcher
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler on an existing client.
func NewPubSubHandler(cfg PubSubConfig) *PubSubHandler {
	subscriber := cfg.Client.Subscriber(cfg.SubscriptionName)

	maxOutstanding := cfg.MaxOutstanding
	if maxOutstanding <= 0 {
		maxOutstanding = 10
	}
	subscriber.ReceiveSettings.MaxOutstandingMessages = maxOutstanding
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		dispatcher:       cfg.Dispatcher,
		logger:           cfg.Logger,
	}
}

// Start receives messages until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	if !h.dispatcher.Dispatch(ctx, msg.Data) {
		msg.Nack()
		return
	}

	logger.Info().
		Dur("duration", time.Since(startTime)).
		Msg("message handled")
	msg.Ack()
}
