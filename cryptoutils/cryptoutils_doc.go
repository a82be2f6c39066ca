// Package cryptoutils provides the authenticated symmetric primitives for the
// BYBX content protection scheme.
//
// Content is sealed with AES-256-GCM using a 12-byte nonce and a 16-byte
// authentication tag. The nonce and tag travel in the envelope header while
// the ciphertext forms the envelope body; DecryptContent reassembles the
// ciphertext||tag ordering the producer emitted.
//
// Key material is never handled as a bare byte slice. KeyHex is the hex wire
// encoding issued by the activation service, and KeyBuffer is the guarded
// in-memory form: decoded immediately before a single decryption and
// overwritten via Destroy on every exit path, including errors and
// cancellation. Code that holds a KeyBuffer across operations is incorrect.
package cryptoutils
