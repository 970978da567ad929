package kafka_client

import "time"

type KafkaConfig struct {
	Broker        string
	Topic         string
	BatchSize     int
	FlushInterval time.Duration
}

func (c KafkaConfig) withDefaults() KafkaConfig {
	if c.Topic == "" {
		c.Topic = KAFKA_TOPIC_ANALYSIS_EVENTS
	}
	if c.BatchSize <= 0 {
		c.BatchSize = BATCH_SIZE
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = BATCH_TIMEOUT
	}
	return c
}
