package testutils

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RedisConfig holds test Redis configuration
type RedisConfig struct {
	Image string
	Port  string
}

// ContainerPort returns the exposed Redis port in container notation
func (c RedisConfig) ContainerPort() nat.Port {
	return nat.Port(c.Port + "/tcp")
}

// TestRedis wraps a throwaway Redis container
type TestRedis struct {
	Container testcontainers.Container
	Client    *redis.Client
	Addr      string
	t         *testing.T
}

// DefaultRedisConfig returns the default test Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Image: "redis:7-alpine",
		Port:  "6379",
	}
}

// SetupTestRedis starts a Redis container for the test. It skips the
// test in -short mode since it needs a container runtime.
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}
	return SetupTestRedisWithConfig(t, DefaultRedisConfig())
}

// SetupTestRedisWithConfig starts a Redis container with custom configuration
func SetupTestRedisWithConfig(t *testing.T, cfg RedisConfig) *TestRedis {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        cfg.Image,
				ExposedPorts: []string{string(cfg.ContainerPort())},
				WaitingFor: wait.ForLog("Ready to accept connections").
					WithStartupTimeout(60 * time.Second),
			},
			Started: true,
		})
	require.NoError(t, err, "Failed to start redis container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, cfg.ContainerPort())
	require.NoError(t, err)

	addr := fmt.Sprintf("%s:%s", host, port.Port())
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(ctx).Err(), "Failed to ping test redis")

	testRedis := &TestRedis{
		Container: container,
		Client:    client,
		Addr:      addr,
		t:         t,
	}

	t.Cleanup(testRedis.Cleanup)

	return testRedis
}

// Cleanup closes the client and stops the container
func (tr *TestRedis) Cleanup() {
	if tr.Client != nil {
		_ = tr.Client.Close()
	}
	if tr.Container != nil {
		if err := tr.Container.Terminate(context.Background()); err != nil {
			tr.t.Logf("Failed to terminate redis container: %v", err)
		}
	}
}
