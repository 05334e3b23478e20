package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/jobalert-service/internal/logger"
)

func TestNewRedisClient_ErrorsHidePassword(t *testing.T) {
	for _, raw := range []string{
		"http://:s3cret@localhost:6379/0",
		"redis://:s3cret@localhost:notaport/0",
	} {
		_, err := NewRedisClient(context.Background(), raw, logger.Nop())
		require.Error(t, err, raw)
		assert.NotContains(t, err.Error(), "s3cret")
	}
}

func TestNewRedisClient_StopsRetryingWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRedisClient(ctx, "redis://127.0.0.1:1/0", logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 1 attempts")
}
