package kafka_client

import "time"

const KAFKA_TOPIC_ANALYSIS_EVENTS = "analysis-events" // anonymised analysis outcomes

const (
	BATCH_SIZE            = 50
	BATCH_TIMEOUT         = 5 * time.Second
	MAX_RETRIES           = 3
	PRODUCE_RETRY_BACKOFF = 50 * time.Millisecond
	FLUSH_TIMEOUT         = 5000 // milliseconds
)
