//go:build integration

package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"hcm/internal/platform/config"
	"hcm/pkg/testutil/containers"
)

func TestNewConnects(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	container := containers.GetManager().GetRedis(t)

	ctx := context.Background()
	c, err := New(ctx, config.RedisConfig{URL: container.URL, PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Health(ctx))
}
