// Package ledger stores device bindings for the activation service: which
// fingerprint each (order, product) pair is bound to and when the bond was
// recorded. The BadgerDB implementation is the production store; the memory
// implementation serves tests and development. Snapshots serialize the full
// binding set for archival through a storage backend.
package ledger
