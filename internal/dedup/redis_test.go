package dedup_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"imaged/internal/dedup"
)

// setupRedis spins up a Redis container and returns a connected store.
func setupRedis(t *testing.T, window time.Duration) *dedup.RedisStore {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	s, err := dedup.NewRedisStore("redis://"+host+":"+port.Port(), window)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Ping(ctx))
	return s
}

func TestRedisStore_RememberLookup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := setupRedis(t, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, s.Remember(ctx, "fp1", "job-1"))
	id, ok, err := s.Lookup(ctx, "fp1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "job-1", id)

	_, ok, err = s.Lookup(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Expiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := setupRedis(t, time.Second)
	ctx := context.Background()

	require.NoError(t, s.Remember(ctx, "fp", "job-1"))
	time.Sleep(1500 * time.Millisecond)
	_, ok, err := s.Lookup(ctx, "fp")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisStore_ForgetJob(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := setupRedis(t, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, s.Remember(ctx, "fp", "job-1"))
	require.NoError(t, s.Remember(ctx, "fp", "job-2"))
	// job-1 no longer owns fp, forgetting it must keep job-2's mapping
	require.NoError(t, s.ForgetJob(ctx, "job-1"))
	id, ok, err := s.Lookup(ctx, "fp")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "job-2", id)

	require.NoError(t, s.ForgetJob(ctx, "job-2"))
	_, ok, err = s.Lookup(ctx, "fp")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, s.ForgetJob(ctx, "never-existed"))
}
