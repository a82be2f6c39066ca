// Package activationhandler implements both sides of the activation wire
// contract defined in the api package.
//
// Handler is the service side: it consults the binding ledger, enforces the
// one-device-per-purchase rule, and issues content keys from the key deriver.
// Client is the consumer side used by the unlock pipeline; it maps every
// failure into the core error taxonomy so callers never see raw transport
// errors. MockProvider supports tests of anything that consumes an
// ActivationProvider.
package activationhandler
