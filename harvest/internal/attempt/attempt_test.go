package attempt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptional_Success(t *testing.T) {
	ran := false
	ok := Optional(context.Background(), nil, "noop", time.Second, func(context.Context) error {
		ran = true
		return nil
	})
	assert.True(t, ok)
	assert.True(t, ran)
}

func TestOptional_ErrorIsSwallowed(t *testing.T) {
	ok := Optional(context.Background(), nil, "fails", time.Second, func(context.Context) error {
		return errors.New("selector not found")
	})
	assert.False(t, ok)
}

func TestOptional_TimeoutBoundsStep(t *testing.T) {
	start := time.Now()
	ok := Optional(context.Background(), nil, "slow", 20*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestOptional_ZeroTimeoutMeansUnbounded(t *testing.T) {
	ok := Optional(context.Background(), nil, "unbounded", 0, func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.False(t, hasDeadline)
		return nil
	})
	assert.True(t, ok)
}

func TestOptional_ParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok := Optional(ctx, nil, "canceled", time.Second, func(ctx context.Context) error {
		return ctx.Err()
	})
	assert.False(t, ok)
	assert.Error(t, ctx.Err())
}

func TestPause(t *testing.T) {
	assert.NoError(t, Pause(context.Background(), 0))
	assert.NoError(t, Pause(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Pause(ctx, time.Hour), context.Canceled)
}
