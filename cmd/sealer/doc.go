// Command sealer encrypts plaintext content into a BYBX envelope for an
// (order, product) pair, using the same key the activation service will later
// issue to the buyer's device.
package main
