// Package controller contains HTTP middlewares and helper handlers used by the API server.
//
// Middlewares:
//   - WithCORS: permissive CORS headers and OPTIONS preflight handling.
//   - WithLogger: request-scoped logger, request ID and access log.
//   - WithMetrics: request latency histogram keyed by the matched route.
//   - WithRecover: turns handler panics into a logged, opaque 500.
//
// Helpers:
//   - PprofMux: a ServeMux exposing net/http/pprof handlers.
package controller
