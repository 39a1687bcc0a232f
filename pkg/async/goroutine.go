package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
)

// SafeGo runs fn in a goroutine bounded by timeout. Panics are recovered and
// errors are logged against taskName. The returned channel is closed once fn
// has returned.
//
// Example:
//
//	async.SafeGo(ctx, 2*time.Minute, "cache warm-up", log, func(ctx context.Context) error {
//	    return warm(ctx)
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, log logrus.FieldLogger, fn func(context.Context) error) <-chan struct{} {
	if log == nil {
		log = logrus.New()
	}
	done := make(chan struct{})

	go func() {
		defer close(done)

		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		entry := log.WithField("task", taskName)
		defer func() {
			if r := recover(); r != nil {
				entry.WithFields(logrus.Fields{
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("Background task panicked")
			}
		}()

		start := time.Now()
		if err := fn(ctx); err != nil {
			entry.WithError(err).Warn("Background task failed")
			return
		}
		entry.WithField("duration", time.Since(start)).Debug("Background task finished")
	}()

	return done
}

// SafeGoNoError is SafeGo for functions that cannot fail
func SafeGoNoError(parentCtx context.Context, timeout time.Duration, taskName string, log logrus.FieldLogger, fn func(context.Context)) <-chan struct{} {
	return SafeGo(parentCtx, timeout, taskName, log, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
