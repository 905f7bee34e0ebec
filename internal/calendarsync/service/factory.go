package service

import (
	"fmt"
	"medsched/pkg/config"
	"medsched/pkg/kafka"
	kafka_config "medsched/pkg/kafka/config"
	kafkamiddleware "medsched/pkg/kafka/middleware"
)

// NewPublisherFromConfig returns a Kafka-backed publisher when calendar sync
// is enabled and a no-op one otherwise. The returned func closes the producer.
func NewPublisherFromConfig(cfg *config.Config, source string) (Publisher, func(), error) {
	if !cfg.CalendarSyncEnabled {
		cfg.Log.Info("Calendar sync disabled")
		return NewNoopPublisher(cfg.Log), func() {}, nil
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load kafka config: %w", err)
	}
	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.CalendarSyncTopic, cfg.CalendarSyncDLQTopic)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create calendar producer: %w", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))
	}

	cfg.Log.Info("Calendar sync enabled", "topic", cfg.CalendarSyncTopic, "brokers", kafkaCfg.Brokers)
	closeFn := func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close calendar producer", "error", err)
		}
	}
	return NewKafkaPublisher(producer, source, cfg.Log), closeFn, nil
}
