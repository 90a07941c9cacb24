package governor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for flood-wait tracking.
var (
	tgFloodWaitSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tg_flood_wait_seconds",
		Help: "Remaining seconds of the pending flood wait",
	})

	tgFloodBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tg_flood_blocks_total",
		Help: "Total number of requests blocked due to a pending flood wait",
	})

	tgFloodThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tg_flood_throttles_total",
		Help: "Total number of requests throttled inside the flood cooldown window",
	})
)

// Tracker stores flood-wait state in Redis and gates requests on it.
// The state is shared across all processes using the same gateway
// session, since Telegram penalizes the session, not the process.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTracker creates a new flood-wait tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState retrieves the current flood-wait state from Redis.
// Returns a default healthy state if no data exists.
func (t *Tracker) GetState(ctx context.Context) (*FloodState, error) {
	waitUntilUnix, err := t.redis.Get(ctx, RedisKeyFloodWaitUntil).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get flood wait deadline: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	if err == redis.Nil && waitUntilUnix == 0 {
		t.logger.Debug().Msg("No flood state in Redis, returning default healthy state")
		return &FloodState{
			LastUpdate: time.Now(),
			Healthy:    true,
		}, nil
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &FloodState{
		WaitUntil:  time.Unix(waitUntilUnix, 0),
		LastUpdate: lastUpdate,
	}
	state.UpdateHealth()

	return state, nil
}

// RecordFloodWait stores a server-imposed wait deadline. Only extends
// the deadline; a shorter hint never shortens a pending wait.
func (t *Tracker) RecordFloodWait(ctx context.Context, retryAfter time.Duration) error {
	if retryAfter <= 0 {
		return nil
	}

	current, err := t.GetState(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	waitUntil := now.Add(retryAfter)
	if current.WaitUntil.After(waitUntil) {
		waitUntil = current.WaitUntil
	}

	lastUpdateJSON, err := json.Marshal(now)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyFloodWaitUntil, waitUntil.Unix(), 0)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store flood state in redis: %w", err)
	}

	tgFloodWaitSeconds.Set(time.Until(waitUntil).Seconds())

	t.logger.Warn().
		Dur("retry_after", retryAfter).
		Time("wait_until", waitUntil).
		Msg("Flood wait recorded")

	return nil
}

// ShouldAllowRequest checks if a request should be issued given the
// current flood-wait state. Returns false while a wait is pending.
// Returns true but sleeps briefly inside the cooldown window.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get flood state: %w", err)
	}

	if state.NeedsBlock() {
		t.logger.Error().
			Dur("remaining", state.Remaining()).
			Msg("Flood wait pending - blocking request")

		tgFloodBlocksTotal.Inc()
		tgFloodWaitSeconds.Set(state.Remaining().Seconds())
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Time("wait_expired_at", state.WaitUntil).
			Msg("Inside flood cooldown window - throttling request")

		tgFloodThrottlesTotal.Inc()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(ThrottleDelay):
		}
	}

	tgFloodWaitSeconds.Set(0)
	return true, nil
}
