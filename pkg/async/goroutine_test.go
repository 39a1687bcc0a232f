package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not finish")
	}
}

func TestSafeGo_Success(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	executed := atomic.Bool{}

	wait(t, SafeGo(context.Background(), time.Second, "test task", log, func(ctx context.Context) error {
		executed.Store(true)
		return nil
	}))

	assert.True(t, executed.Load())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Background task finished", hook.LastEntry().Message)
	assert.Equal(t, "test task", hook.LastEntry().Data["task"])
}

func TestSafeGo_WithError(t *testing.T) {
	log, hook := test.NewNullLogger()

	wait(t, SafeGo(context.Background(), time.Second, "test task", log, func(ctx context.Context) error {
		return errors.New("test error")
	}))

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "test error", hook.LastEntry().Data[logrus.ErrorKey].(error).Error())
}

func TestSafeGo_Timeout(t *testing.T) {
	log, hook := test.NewNullLogger()
	completed := atomic.Bool{}

	wait(t, SafeGo(context.Background(), 50*time.Millisecond, "test task", log, func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			completed.Store(true)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}))

	assert.False(t, completed.Load())
	require.NotNil(t, hook.LastEntry())
	assert.ErrorIs(t, hook.LastEntry().Data[logrus.ErrorKey].(error), context.DeadlineExceeded)
}

func TestSafeGo_PanicRecovery(t *testing.T) {
	log, hook := test.NewNullLogger()

	wait(t, SafeGo(context.Background(), time.Second, "test task", log, func(ctx context.Context) error {
		panic("test panic")
	}))

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "Background task panicked", hook.LastEntry().Message)
	assert.Equal(t, "test panic", hook.LastEntry().Data["panic"])
	assert.NotEmpty(t, hook.LastEntry().Data["stack"])
}

func TestSafeGo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	completed := atomic.Bool{}

	done := SafeGo(ctx, 5*time.Second, "test task", nil, func(ctx context.Context) error {
		close(started)
		select {
		case <-time.After(time.Second):
			completed.Store(true)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	<-started
	cancel()
	wait(t, done)
	assert.False(t, completed.Load())
}

func TestSafeGoNoError(t *testing.T) {
	executed := atomic.Bool{}

	wait(t, SafeGoNoError(context.Background(), time.Second, "test task", nil, func(ctx context.Context) {
		executed.Store(true)
	}))

	assert.True(t, executed.Load())
}
