// Package async provides safe concurrent execution primitives for background tasks.
//
// # Overview
//
// This package handles goroutine lifecycle management with panic recovery, timeout
// enforcement, context cancellation, and error collection.
//
// # Key Functions
//
// SafeGo: Execute function in goroutine with safety features
//
//	async.SafeGo(ctx, 30*time.Second, "transform:sum-xy", func(ctx context.Context) error {
//		// Task code with automatic panic recovery and timeout
//		return evaluate(ctx)
//	})
//
// WorkerPool: Managed pool of concurrent workers
//
//	pool := async.NewWorkerPool(ctx, 10, "batch import", 30*time.Second)
//	defer pool.Shutdown(5 * time.Second)
//
//	pool.Submit(func(ctx context.Context) error {
//		return importBatch(ctx, batch)
//	})
//
// Batch: Concurrent batch processing
//
//	results := async.Batch(ctx, items, 5, "field import", 10*time.Second, func(ctx context.Context, item Item) error {
//		return processItem(ctx, item)
//	})
//
// # Features
//
// Panic Recovery: Captures panics with stack traces
// Timeout Enforcement: Per-task timeouts
// Context Cancellation: Respects context cancellation
// Error Collection: Non-blocking error channels
// Graceful Shutdown: Worker draining
//
// # Related Packages
//
//   - pkg/orchestrator: wraps each transform evaluation in SafeGo for panic
//     recovery and wall-clock enforcement, on top of its own
//     folderrors-typed recovery so a panicking transform still surfaces as a
//     normal Executed{Err: ...} event rather than crashing the executor
//   - pkg/bus: subscriber dispatch needs non-blocking, drop-oldest-on-overflow
//     delivery (Publish must never block), which WorkerPool's blocking
//     Submit cannot provide; bus/subscriber.go instead hand-rolls a
//     single-worker-per-subscription loop in the same panic-recovery style
//     as WorkerPool.worker, preserving per-subscriber ordering
package async
