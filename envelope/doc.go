// Package envelope implements the BYBX binary container format.
//
// A BYBX file is a fixed 156-byte header followed by AEAD ciphertext:
//
//	offset  length  field
//	0       4       magic "BYBX" (bytes 4-5 reserved)
//	6       36      order number, null-padded
//	42      4       product id, big-endian signed 32-bit
//	46      64      hardware binding slot (all-zero = unbound)
//	128     12      AEAD nonce
//	140     16      AEAD authentication tag
//	156     ...     AEAD ciphertext
//
// Parse is pure and side-effect free: it validates the magic before trusting
// any other field and copies every region out of the caller's buffer. Marshal
// and Seal are the producer side used by tooling and tests.
package envelope
