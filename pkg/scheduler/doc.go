// Package scheduler runs named units of work on a bounded pool and hands
// back futures for their results.
//
// Each submitted item gets its own goroutine and context. A buffered slot
// channel caps how many execute at once; the rest wait for a slot or for
// their context, whichever comes first.
//
//	AddWork / AddWorkWithTimeout
//	          │
//	          ▼
//	   ┌─────────────┐   ctx done   ┌──────────────────────┐
//	   │ wait for    │─────────────▶│ Result{Err: ctx.Err} │
//	   │ a free slot │              └──────────────────────┘
//	   └──────┬──────┘
//	          │ slot acquired
//	          ▼
//	   ┌─────────────┐              ┌──────────────────────┐
//	   │  work(ctx)  │─────────────▶│ Result{Data, Err}    │──▶ Future.C()
//	   └─────────────┘              └──────────────────────┘
//
// The workspace provider uses it at suite teardown: every owned workspace is
// deleted as its own item with its own timeout, so one hung deletion cannot
// hold back the others.
//
// # Futures
//
//   - C() receives exactly one result
//   - Wait(ctx) blocks for the result or until ctx is done, then cancels the work
//   - Stop() cancels the work's context
//
//	sched := scheduler.NewScheduler[struct{}](4)
//	defer sched.Close()
//
//	future := sched.AddWork("delete ws1", func(ctx context.Context) (struct{}, error) {
//	    ctx, cancel := context.WithTimeout(ctx, time.Minute)
//	    defer cancel()
//	    return struct{}{}, client.Delete(ctx, "ws1", "admin")
//	})
//
// AddWorkWithTimeout starts the clock at submission instead, which also
// covers the time spent waiting for a slot.
//	result, err := future.Wait(ctx)
//
// A panic in a work function is recovered and reported as the result's
// error. Close cancels everything still queued or running and waits for it.
package scheduler
