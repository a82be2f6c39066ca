package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	// ContentKeySize is the AES-256 key size used for content encryption.
	ContentKeySize = 32

	// ContentNonceSize is the GCM nonce size carried in the envelope header.
	ContentNonceSize = 12

	// ContentTagSize is the GCM authentication tag size carried in the envelope header.
	ContentTagSize = 16
)

// ErrIntegrity indicates the authentication tag did not verify: the content
// was tampered with, corrupted, or decrypted with the wrong key. No plaintext
// is ever returned alongside this error.
var ErrIntegrity = errors.New("content integrity verification failed")

// ErrKeyDestroyed indicates a key buffer was used after being destroyed.
var ErrKeyDestroyed = errors.New("key buffer already destroyed")

// KeyHex is a hex-encoded content key as carried over the wire by the
// activation service. It must decode to exactly ContentKeySize bytes.
type KeyHex string

// Decode converts the wire representation into a guarded key buffer.
// The caller owns the returned buffer and must call Destroy on every exit path.
func (k KeyHex) Decode() (*KeyBuffer, error) {
	raw, err := hex.DecodeString(string(k))
	if err != nil {
		return nil, fmt.Errorf("could not decode content key: %w", err)
	}
	if len(raw) != ContentKeySize {
		// Zero whatever we decoded before bailing out.
		for i := range raw {
			raw[i] = 0
		}
		return nil, fmt.Errorf("content key must be %d bytes, got %d", ContentKeySize, len(raw))
	}
	return &KeyBuffer{key: raw}, nil
}

// KeyBuffer holds raw content key material for the duration of a single
// decryption. Destroy overwrites the material; the buffer is single-use and
// must not be retained beyond the operation that decoded it.
type KeyBuffer struct {
	key []byte
}

// NewKeyBuffer wraps raw key material in a guarded buffer. The input slice is
// copied so the caller's copy can be discarded independently.
func NewKeyBuffer(raw []byte) (*KeyBuffer, error) {
	if len(raw) != ContentKeySize {
		return nil, fmt.Errorf("content key must be %d bytes, got %d", ContentKeySize, len(raw))
	}
	key := make([]byte, ContentKeySize)
	copy(key, raw)
	return &KeyBuffer{key: key}, nil
}

// Bytes exposes the raw key material. The slice aliases the guarded buffer
// and becomes invalid after Destroy.
func (b *KeyBuffer) Bytes() ([]byte, error) {
	if b.key == nil {
		return nil, ErrKeyDestroyed
	}
	return b.key, nil
}

// Destroy overwrites the key material and marks the buffer unusable.
// It is safe to call multiple times.
func (b *KeyBuffer) Destroy() {
	for i := range b.key {
		b.key[i] = 0
	}
	b.key = nil
}

// Destroyed reports whether the buffer has been wiped.
func (b *KeyBuffer) Destroyed() bool {
	return b.key == nil
}

// Hex returns the wire encoding of the key material.
func (b *KeyBuffer) Hex() (KeyHex, error) {
	if b.key == nil {
		return "", ErrKeyDestroyed
	}
	return KeyHex(hex.EncodeToString(b.key)), nil
}

// DecryptContent performs authenticated AES-256-GCM decryption of envelope
// content. The tag is appended to the ciphertext before opening, matching the
// ciphertext||tag ordering produced when the envelope was sealed.
//
// Size mismatches on the nonce or tag are reported as plain errors since they
// indicate a malformed envelope rather than a failed verification. A tag
// verification failure returns ErrIntegrity and no plaintext.
func DecryptContent(ciphertext, tag, iv []byte, key *KeyBuffer) ([]byte, error) {
	if len(iv) != ContentNonceSize {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", ContentNonceSize, len(iv))
	}
	if len(tag) != ContentTagSize {
		return nil, fmt.Errorf("authentication tag must be %d bytes, got %d", ContentTagSize, len(tag))
	}

	keyBytes, err := key.Bytes()
	if err != nil {
		return nil, err
	}

	aesBlock, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	// ciphertext||tag is the wire ordering; assemble into a fresh buffer so
	// the caller's slices are never mutated.
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aesGCM.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrIntegrity, err)
	}

	return plaintext, nil
}

// EncryptContent performs the producer side of DecryptContent: it seals
// plaintext under a fresh random nonce and returns the nonce, authentication
// tag, and ciphertext separately, as they are laid out in the envelope header.
func EncryptContent(plaintext []byte, key *KeyBuffer) (iv, tag, ciphertext []byte, err error) {
	keyBytes, err := key.Bytes()
	if err != nil {
		return nil, nil, nil, err
	}

	aesBlock, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	iv = make([]byte, ContentNonceSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aesGCM.Seal(nil, iv, plaintext, nil)
	ciphertext = sealed[:len(sealed)-ContentTagSize]
	tag = sealed[len(sealed)-ContentTagSize:]

	return iv, tag, ciphertext, nil
}
