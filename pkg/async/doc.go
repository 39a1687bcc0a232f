// Package async runs background work without bare go statements.
//
// SafeGo bounds the task with a timeout derived from the caller's context,
// recovers panics and logs failures through logrus:
//
//	done := async.SafeGoNoError(ctx, 2*time.Minute, "cache warm-up", log, func(ctx context.Context) {
//		svc.Warm(ctx, dir)
//	})
//	<-done
package async
