package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const SubmissionTaskTopic = "quiz.submission.process"

// SubmissionJob asks the worker to generate questions for one submission
type SubmissionJob struct {
	SubmissionID uint `json:"submission_id"`
	AssignmentID uint `json:"assignment_id"`
}

// JobHandler processes one job. Returning an error only logs it; the job
// outcome is recorded by the handler itself.
type JobHandler func(ctx context.Context, job SubmissionJob) error

// TaskQueue carries submission jobs from the webhook to the worker
type TaskQueue struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	wmLogger   watermill.LoggerAdapter
	logger     *slog.Logger
	// publisher and subscriber are the same go channel
	shared bool
}

// NewChannelTaskQueue keeps jobs in process
func NewChannelTaskQueue(logger *slog.Logger) *TaskQueue {
	wmLogger := watermill.NewSlogLogger(logger)
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
	return &TaskQueue{
		publisher:  pubSub,
		subscriber: pubSub,
		wmLogger:   wmLogger,
		logger:     logger,
		shared:     true,
	}
}

// NewKafkaTaskQueue distributes jobs across worker instances through a consumer group
func NewKafkaTaskQueue(brokers []string, consumerGroup string, logger *slog.Logger) (*TaskQueue, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka task publisher: %w", err)
	}

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: kafka.DefaultSaramaSubscriberConfig(),
		ConsumerGroup:         consumerGroup,
	}, wmLogger)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("failed to create Kafka task subscriber: %w", err)
	}

	return &TaskQueue{
		publisher:  publisher,
		subscriber: subscriber,
		wmLogger:   wmLogger,
		logger:     logger,
	}, nil
}

// Enqueue publishes a job; delivery is fire-and-forget for the caller
func (q *TaskQueue) Enqueue(ctx context.Context, job SubmissionJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal submission job: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("submission_id", strconv.FormatUint(uint64(job.SubmissionID), 10))
	msg.Metadata.Set("assignment_id", strconv.FormatUint(uint64(job.AssignmentID), 10))

	if err := q.publisher.Publish(SubmissionTaskTopic, msg); err != nil {
		return fmt.Errorf("failed to enqueue submission job: %w", err)
	}
	return nil
}

// NewRouter builds the worker router that dispatches jobs to handler
func (q *TaskQueue) NewRouter(handler JobHandler) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, q.wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	router.AddNoPublisherHandler(
		"submission_processor",
		SubmissionTaskTopic,
		q.subscriber,
		func(msg *message.Message) error {
			var job SubmissionJob
			if err := json.Unmarshal(msg.Payload, &job); err != nil {
				// Redelivering a malformed payload cannot succeed
				q.logger.Error("Dropping malformed submission job", "message_id", msg.UUID, "error", err)
				return nil
			}
			if err := handler(msg.Context(), job); err != nil {
				q.logger.Error("Submission job failed",
					"submission_id", job.SubmissionID,
					"assignment_id", job.AssignmentID,
					"error", err)
			}
			return nil
		},
	)
	return router, nil
}

// Close releases the underlying pub/sub
func (q *TaskQueue) Close() error {
	pubErr := q.publisher.Close()
	if q.shared {
		return pubErr
	}
	if err := q.subscriber.Close(); err != nil {
		return err
	}
	return pubErr
}
