// Package server provides HTTP routing, middleware, and an in-memory job queue backend.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns internally.
//
// # Mock Queue Backend
//
// [MockQueue] implements the four job queue endpoints (submit, status, cleanup, stats) in memory.
// Jobs move from waiting to active to completed by a fixed step on each status read.
// Items whose id starts with the failure prefix fail halfway through instead.
//
// It backs `webpq mock serve` for local runs and the end-to-end tests of the client and orchestrator.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
