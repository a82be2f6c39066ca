// Package kms manages the activation service's master seed and the content
// keys derived from it.
//
// Content keys are derived per (order, product) with HKDF-SHA256, so the
// service never stores keys: a verified device is always re-issued exactly
// the key its content was sealed under, and losing the ledger loses no key
// material. The master seed is the only secret; it can be loaded from a flag,
// a file, or a Vault KV secret, and split into Shamir shares for operator
// custody.
package kms
