package lock

import (
	"context"
	"testing"
	"time"

	"github.com/diewo77/paintms/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestNewRedisLockerRejectsBadURL(t *testing.T) {
	_, err := NewRedisLocker(context.Background(), "http://not-redis", logging.Discard())
	assert.ErrorContains(t, err, "parse redis url")
}

func TestNewRedisLockerUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := NewRedisLocker(ctx, "redis://127.0.0.1:1/0", logging.Discard())
	assert.ErrorContains(t, err, "ping redis")
}
