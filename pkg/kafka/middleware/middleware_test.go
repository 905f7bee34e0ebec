package kafka_middleware

import (
	"context"
	"errors"
	"medsched/pkg/kafka"
	"medsched/pkg/logger"
	"testing"
)

func TestMetrics_CountsOutcomes(t *testing.T) {
	m := NewMetrics()
	produce := m.ProducerMiddleware()
	consume := m.ConsumerMiddleware()
	msg := kafka.Message{Key: "k", Value: []byte("{}"), Headers: map[string]string{}}

	ok := func(context.Context, kafka.Message) error { return nil }
	fail := func(context.Context, kafka.Message) error { return errors.New("boom") }

	_ = produce(context.Background(), msg, ok)
	_ = produce(context.Background(), msg, ok)
	_ = produce(context.Background(), msg, fail)
	_ = consume(context.Background(), msg, fail)

	s := m.Snapshot()
	if s.Published != 2 || s.PublishFailed != 1 {
		t.Errorf("publish counters = %+v", s)
	}
	if s.Consumed != 0 || s.ConsumeFailed != 1 {
		t.Errorf("consume counters = %+v", s)
	}
}

func TestLoggingMiddleware_PassesErrorThrough(t *testing.T) {
	want := errors.New("handler failed")
	mw := LoggingConsumerMiddleware(logger.Discard())
	got := mw(context.Background(), kafka.Message{Headers: map[string]string{}}, func(context.Context, kafka.Message) error {
		return want
	})
	if !errors.Is(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	pmw := LoggingProducerMiddleware(logger.Discard())
	if err := pmw(context.Background(), kafka.Message{Headers: map[string]string{}}, func(context.Context, kafka.Message) error { return nil }); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
