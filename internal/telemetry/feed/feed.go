// Package feed implements the optional telemetry publisher of spec.md §9's
// supplement table: every dispatched/completed flight event is pushed to a
// Redis channel for an external dashboard to subscribe to, entirely outside
// the simulation's own state (the core never reads it back).
//
// Wraps go-redis the same way the teacher repo's internal/redis.Client
// does: an embedded *redis.Client plus a named *zap.Logger, with a startup
// Ping for connection diagnostics.
package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultChannel = "airportsim:events"

// Client wraps a Redis publish-only connection. A nil *Client is valid and
// treats Publish as a no-op, so a caller (cmd/airportsim) can hold one unconditionally
// and only construct a real one when config.RedisAddr is set (spec.md §0's
// ambient-stack note: disabled by default, never required for correctness).
type Client struct {
	rdb *redis.Client
	log *zap.Logger
	ch  string
}

// New dials addr and returns a Client publishing to the default channel.
// Connection failures are logged, not fatal — telemetry is best-effort.
func New(addr string, log *zap.Logger) *Client {
	log = log.Named("telemetry_feed")

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     5,
	})

	c := &Client{rdb: rdb, log: log, ch: defaultChannel}

	pingCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("telemetry feed connection failed; publishing will be best-effort", zap.Error(err))
	} else {
		log.Info("telemetry feed connected", zap.String("addr", addr))
	}

	return c
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// event is the wire shape published on the channel.
type event struct {
	Kind      string `json:"kind"`
	Payload   any    `json:"payload"`
	Timestamp int64  `json:"ts_unix_ms"`
}

// Publish pushes one event, logging (not returning) any error — a dropped
// telemetry message never blocks the simulation (spec.md §6.5's "the core
// never reads logs" principle extended to this outward-only feed).
func (c *Client) Publish(kind string, payload any, now time.Time) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(event{Kind: kind, Payload: payload, Timestamp: now.UnixMilli()})
	if err != nil {
		c.log.Warn("encode event failed", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.rdb.Publish(ctx, c.ch, raw).Err(); err != nil {
		c.log.Warn("publish failed", zap.String("kind", kind), zap.Error(err))
	}
}
