package clients

import "time"

const (
	MAX_RETRIES     = 3
	INITIAL_BACKOFF = 500 * time.Millisecond
	USER_AGENT      = "emosupport-client/1.0 (+https://github.com/spacesedan/emosupport)"

	DEFAULT_HTTP_TIMEOUT = 30 * time.Second
)
