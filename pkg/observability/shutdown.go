package observability

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// ShutdownFunc is a function to call during shutdown
type ShutdownFunc func(context.Context) error

// ShutdownManager runs registered shutdown functions in reverse
// registration order once a termination signal arrives.
type ShutdownManager struct {
	log             *logrus.Logger
	shutdownFuncs   []namedShutdown
	shutdownTimeout time.Duration
	mu              sync.Mutex
}

type namedShutdown struct {
	name string
	fn   ShutdownFunc
}

// NewShutdownManager creates a new shutdown manager
func NewShutdownManager(log *logrus.Logger, timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		log:             log,
		shutdownTimeout: timeout,
	}
}

// Register adds a named function to call during shutdown
func (sm *ShutdownManager) Register(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.shutdownFuncs = append(sm.shutdownFuncs, namedShutdown{name: name, fn: fn})
}

// WaitForSignal blocks until SIGINT or SIGTERM and then shuts down
func (sm *ShutdownManager) WaitForSignal() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	sig := <-sigChan
	sm.log.Infof("Received signal %s, starting graceful shutdown", sig)
	return sm.Shutdown()
}

// Shutdown runs every registered function, last registered first. Later
// functions still run when an earlier one fails.
func (sm *ShutdownManager) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), sm.shutdownTimeout)
	defer cancel()

	sm.mu.Lock()
	funcs := make([]namedShutdown, len(sm.shutdownFuncs))
	copy(funcs, sm.shutdownFuncs)
	sm.mu.Unlock()

	var errs []error
	for i := len(funcs) - 1; i >= 0; i-- {
		entry := sm.log.WithField("component", funcs[i].name)
		if err := funcs[i].fn(ctx); err != nil {
			entry.WithError(err).Error("Shutdown failed")
			errs = append(errs, fmt.Errorf("%s: %w", funcs[i].name, err))
			continue
		}
		entry.Info("Shutdown complete")
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	sm.log.Info("Graceful shutdown complete")
	return nil
}
