package observability

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownManager_Shutdown(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	sm := NewShutdownManager(log, 0)

	var order []string
	sm.Register("store", func(context.Context) error {
		order = append(order, "store")
		return nil
	})
	sm.Register("cache", func(context.Context) error {
		order = append(order, "cache")
		return errors.New("flush failed")
	})
	sm.Register("http", func(context.Context) error {
		order = append(order, "http")
		return nil
	})

	err := sm.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache: flush failed")
	assert.Equal(t, []string{"http", "cache", "store"}, order)
}

func TestShutdownManager_NoFuncs(t *testing.T) {
	log, hook := test.NewNullLogger()
	sm := NewShutdownManager(log, 0)

	assert.NoError(t, sm.Shutdown())
	assert.Equal(t, "Graceful shutdown complete", hook.LastEntry().Message)
}

func TestRecoverPanic(t *testing.T) {
	log, hook := test.NewNullLogger()

	func() {
		defer RecoverPanic(log, "reminder")
		panic("boom")
	}()

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "reminder", hook.LastEntry().Data["context"])
	assert.Equal(t, "boom", hook.LastEntry().Data["panic"])
}
