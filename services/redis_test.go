package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every helper must fail loudly, not panic, when no client is configured;
// callers treat redis as a soft dependency.
func TestRedisHelpersWithoutClient(t *testing.T) {
	svc := &RedisService{}
	ctx := context.Background()

	require.Error(t, svc.Set(ctx, "k", "v", time.Minute))
	require.Error(t, svc.Delete(ctx, "k"))
	require.Error(t, svc.Expire(ctx, "k", time.Minute))
	require.Error(t, svc.SAdd(ctx, "k", "m"))

	seen, err := svc.SIsMember(ctx, "k", "m")
	require.Error(t, err)
	assert.False(t, seen)
}
