// Package fingerprint provides device fingerprint providers for content
// activation. The activation core only requires an opaque token that is
// stable for a given installation; the providers here differ in where that
// token comes from (local hardware probe, remote agent, or fixed value).
package fingerprint
