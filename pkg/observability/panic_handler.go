package observability

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// RecoverPanic recovers from a panic and logs it. Call it deferred at the top
// of goroutines started on behalf of the host, such as scheduled reminder
// runs, so a bad row never takes the process down.
//
//	go func() {
//	    defer observability.RecoverPanic(log, "reminder")
//	    ...
//	}()
func RecoverPanic(log logrus.FieldLogger, context string) {
	if r := recover(); r != nil {
		log.WithFields(logrus.Fields{
			"panic":   r,
			"stack":   string(debug.Stack()),
			"context": context,
		}).Error("PANIC recovered")
	}
}
