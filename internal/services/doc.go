// Package services implements the business logic layer of the dashboard.
// Handlers and the WebSocket hub call into it; it owns validation against
// the product catalog, the view cache, exports and chart rendering.
//
// # Evaluation cycle
//
// Every filter change is one synchronous evaluation:
//
//	criteria -> strict catalog check -> cache lookup / Filter -> Summarize
//
// An unknown product name halts the cycle with ErrUnknownProduct and no
// partial view is produced. The next valid criteria recover immediately.
//
// # Concurrency
//
// The dataset is immutable and shared by every goroutine. The view cache is
// the only mutable state and is internally synchronized.
package services
