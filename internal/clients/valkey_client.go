package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/valkey-io/valkey-go"

	"github.com/spacesedan/emosupport/internal/models"
)

const VALKEY_LABEL_COUNTS_KEY = "emosupport:label_counts"

type ValkeyConfig struct {
	Address  string
	Password string
	TLS      bool
	Key      string
}

// ValkeyClient keeps per-label analysis counts in a single hash.
type ValkeyClient struct {
	Client valkey.Client
	cfg    ValkeyConfig
	mu     sync.Mutex
}

func NewValkeyClient(ctx context.Context, cfg ValkeyConfig) (*ValkeyClient, error) {
	if cfg.Key == "" {
		cfg.Key = VALKEY_LABEL_COUNTS_KEY
	}
	client, err := dialValkey(ctx, cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("[ValkeyClient] Successfully connected to valkey", slog.String("address", cfg.Address))
	return &ValkeyClient{Client: client, cfg: cfg}, nil
}

func dialValkey(ctx context.Context, cfg ValkeyConfig) (valkey.Client, error) {
	opts := valkey.ClientOption{
		InitAddress:      []string{cfg.Address},
		Password:         cfg.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}
	return client, nil
}

func (vc *ValkeyClient) recreateClient(ctx context.Context) {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")
	client, err := dialValkey(ctx, vc.cfg)
	if err != nil {
		slog.Error("[ValkeyClient] Recreate failed", slog.String("error", err.Error()))
		return
	}
	vc.Client.Close()
	vc.Client = client
	slog.Info("[ValkeyClient] Successfully reconnected to valkey")
}

func (vc *ValkeyClient) client() valkey.Client {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.Client
}

func (vc *ValkeyClient) Close() {
	vc.client().Close()
}

func (vc *ValkeyClient) Increment(ctx context.Context, label string) error {
	res := vc.DoWithRetry(ctx, func(c valkey.Client) valkey.Completed {
		return c.B().Hincrby().Key(vc.cfg.Key).Field(label).Increment(1).Build()
	}, 3)
	return res.Error()
}

func (vc *ValkeyClient) Counts(ctx context.Context) ([]models.LabelCount, error) {
	res := vc.DoWithRetry(ctx, func(c valkey.Client) valkey.Completed {
		return c.B().Hgetall().Key(vc.cfg.Key).Build()
	}, 3)
	counts, err := res.AsIntMap()
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] read counts: %w", err)
	}

	out := make([]models.LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, models.LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out, nil
}

// HealthCheck pings the server.
func (vc *ValkeyClient) HealthCheck(ctx context.Context) bool {
	c := vc.client()
	return c.Do(ctx, c.B().Ping().Build()).Error() == nil
}

// DoWithRetry rebuilds the command on every attempt since completed commands
// are recycled by the client after Do.
func (vc *ValkeyClient) DoWithRetry(ctx context.Context, build func(valkey.Client) valkey.Completed, retries int) valkey.ValkeyResult {
	if retries < 1 {
		retries = 1
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(250*time.Millisecond), uint64(retries-1)), ctx)

	var result valkey.ValkeyResult
	attempt := 0
	_ = backoff.Retry(func() error {
		attempt++
		c := vc.client()
		result = c.Do(ctx, build(c))
		if result.Error() == nil || valkey.IsValkeyNil(result.Error()) {
			return nil
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", attempt),
			slog.String("error", result.Error().Error()))

		if isConnectionError(result.Error()) {
			vc.recreateClient(ctx)
		}
		return result.Error()
	}, b)

	return result
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
