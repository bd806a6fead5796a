package config

import (
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventConfig holds configuration for event publishing and the task queue
type EventConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Publisher     string `mapstructure:"publisher"` // kafka, channel or mock
	KafkaBrokers  string `mapstructure:"kafka_brokers"`
	Topic         string `mapstructure:"topic"`
	ConsumerGroup string `mapstructure:"consumer_group"`
}

// GetKafkaBrokers returns Kafka brokers as a slice
func (c *EventConfig) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokers, ",")
}

// CreateEventPublisher creates an event publisher based on configuration
func (c *EventConfig) CreateEventPublisher(logger *slog.Logger) (events.EventPublisher, error) {
	if !c.Enabled {
		logger.Info("Event publishing disabled, using mock publisher")
		return events.NewMockEventPublisher(logger), nil
	}

	switch c.Publisher {
	case "kafka":
		logger.Info("Creating Kafka event publisher",
			"brokers", c.KafkaBrokers,
			"topic", c.Topic)

		return events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: c.GetKafkaBrokers(),
			TopicName:    c.Topic,
			Logger:       logger,
		})
	case "channel":
		logger.Info("Using in-process event publisher", "topic", c.Topic)
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
		return events.NewWatermillEventPublisher(pubSub, c.Topic, logger), nil
	case "mock":
		logger.Info("Using mock event publisher")
		return events.NewMockEventPublisher(logger), nil
	default:
		logger.Warn("Unknown event publisher type, falling back to mock", "publisher", c.Publisher)
		return events.NewMockEventPublisher(logger), nil
	}
}

// CreateTaskQueue picks the transport for submission jobs
func (c *EventConfig) CreateTaskQueue(logger *slog.Logger) (*events.TaskQueue, error) {
	if c.Enabled && c.Publisher == "kafka" {
		logger.Info("Creating Kafka task queue", "brokers", c.KafkaBrokers, "group", c.ConsumerGroup)
		return events.NewKafkaTaskQueue(c.GetKafkaBrokers(), c.ConsumerGroup, logger)
	}
	logger.Info("Using in-process task queue")
	return events.NewChannelTaskQueue(logger), nil
}
