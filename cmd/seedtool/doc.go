// Command seedtool manages the activation master seed: generating a fresh
// seed, splitting it into Shamir shares for operator custody, and recombining
// a threshold of shares. Shares can be distributed through any configured
// storage backend.
package main
