//go:build integration

package governor

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a Redis container and returns a client.
func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() {
		_ = redisContainer.Terminate(context.Background())
	})

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	return client
}

func TestTracker_FloodWaitLifecycle(t *testing.T) {
	redisClient := setupRedisContainer(t)
	ctx := context.Background()

	// Two trackers sharing one Redis see the same penalty, like two
	// processes sharing one gateway session.
	writer := NewTracker(redisClient, zerolog.Nop())
	reader := NewTracker(redisClient, zerolog.Nop())

	if err := writer.RecordFloodWait(ctx, 2*time.Second); err != nil {
		t.Fatalf("RecordFloodWait() error = %v", err)
	}

	allowed, err := reader.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Fatal("request allowed while flood wait is pending")
	}

	time.Sleep(2500 * time.Millisecond)

	// Wait expired: the request is allowed but throttled inside the
	// cooldown window (ShouldAllowRequest sleeps ThrottleDelay).
	start := time.Now()
	allowed, err = reader.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if !allowed {
		t.Fatal("request blocked after flood wait expired")
	}
	if elapsed := time.Since(start); elapsed < ThrottleDelay {
		t.Errorf("cooldown request released after %v, want at least %v", elapsed, ThrottleDelay)
	}
}
