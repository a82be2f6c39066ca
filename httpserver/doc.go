// Package httpserver hosts the activation API: a chi router with request
// logging, liveness/readiness/drain endpoints, an optional pprof mount, and a
// Prometheus metrics server on its own listener.
package httpserver
