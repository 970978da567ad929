package kafka_client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/spacesedan/emosupport/internal/models"
	"github.com/spacesedan/emosupport/internal/utils"
)

// messageProducer is the subset of *kafka.Producer used by EventProducer.
type messageProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Events() chan kafka.Event
	Flush(timeoutMs int) int
	Close()
}

// EventProducer buffers analysis events and publishes them in batches, either
// when the buffer fills or on every flush interval.
type EventProducer struct {
	producer messageProducer
	topic    string
	interval time.Duration
	buffer   *utils.BatchBuffer[models.AnalysisEvent]
	flushCh  chan struct{}
	done     chan struct{}
	started  atomic.Bool
	once     sync.Once

	// Delivery reports count towards Flush, so they are drained until the
	// client has been flushed, not just until Run returns.
	stopReports chan struct{}
	reportsDone chan struct{}
}

func NewEventProducer(cfg KafkaConfig) (*EventProducer, error) {
	cfg = cfg.withDefaults()
	slog.Info("[KafkaClient] Initializing Kafka Producer...", slog.String("broker", cfg.Broker))

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":   cfg.Broker,
		"security.protocol":   "PLAINTEXT",
		"api.version.request": "true",
		"enable.idempotence":  true,
		"acks":                "all",
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to create producer: %w", err)
	}

	slog.Info("[KafkaClient] Kafka Producer initialized successfully", slog.String("topic", cfg.Topic))
	return newEventProducer(p, cfg), nil
}

func newEventProducer(p messageProducer, cfg KafkaConfig) *EventProducer {
	cfg = cfg.withDefaults()
	return &EventProducer{
		producer: p,
		topic:    cfg.Topic,
		interval: cfg.FlushInterval,
		buffer:   utils.NewBatchBuffer[models.AnalysisEvent](cfg.BatchSize),
		flushCh:  make(chan struct{}, 1),
		done:     make(chan struct{}),

		stopReports: make(chan struct{}),
		reportsDone: make(chan struct{}),
	}
}

// Publish only buffers the event; Run ships it.
func (ep *EventProducer) Publish(_ context.Context, event models.AnalysisEvent) error {
	if full := ep.buffer.Add(event); full {
		select {
		case ep.flushCh <- struct{}{}:
		default:
		}
	}
	return nil
}

// Run flushes batches until ctx is done, then flushes whatever is left.
func (ep *EventProducer) Run(ctx context.Context) {
	ep.started.Store(true)
	defer close(ep.done)

	go ep.logDeliveryReports()

	ticker := time.NewTicker(ep.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Warn("[KafkaClient] Stopping event producer...")
			ep.flush()
			return
		case <-ticker.C:
			ep.flush()
		case <-ep.flushCh:
			ep.flush()
		}
	}
}

func (ep *EventProducer) flush() {
	batch := ep.buffer.GetAndClear()
	if len(batch) == 0 {
		return
	}

	published := 0
	for _, event := range batch {
		if err := ep.produce(event); err != nil {
			slog.Error("[KafkaClient] Dropping analysis event",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()))
			continue
		}
		published++
	}

	slog.Info("[KafkaClient] Published analysis events",
		slog.String("topic", ep.topic),
		slog.Int("count", published),
		slog.Int("dropped", len(batch)-published))
}

func (ep *EventProducer) produce(event models.AnalysisEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &ep.topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.ID),
		Value:          value,
	}

	attempt := 0
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(PRODUCE_RETRY_BACKOFF), MAX_RETRIES-1)
	return backoff.Retry(func() error {
		attempt++
		err := ep.producer.Produce(msg, nil)
		if err != nil {
			slog.Warn("[KafkaClient] Failed to produce message, retrying...",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
		}
		return err
	}, b)
}

func (ep *EventProducer) logDeliveryReports() {
	defer close(ep.reportsDone)
	events := ep.producer.Events()
	for {
		select {
		case <-ep.stopReports:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if m, isMsg := e.(*kafka.Message); isMsg && m.TopicPartition.Error != nil {
				slog.Warn("[KafkaClient] Delivery failed",
					slog.String("error", m.TopicPartition.Error.Error()))
			}
		}
	}
}

// Close waits for a running Run to finish its final flush, then flushes the
// client while delivery reports are still drained, and shuts it down.
func (ep *EventProducer) Close() {
	ep.once.Do(func() {
		if ep.started.Load() {
			<-ep.done
		}
		slog.Info("[KafkaClient] Flushing Kafka producer before shutdown...")
		if remaining := ep.producer.Flush(FLUSH_TIMEOUT); remaining > 0 {
			slog.Warn("[KafkaClient] Not all messages were delivered before shutdown",
				slog.Int("remaining", remaining))
		}
		close(ep.stopReports)
		if ep.started.Load() {
			<-ep.reportsDone
		}
		ep.producer.Close()
		slog.Info("[KafkaClient] Kafka producer shut down")
	})
}
