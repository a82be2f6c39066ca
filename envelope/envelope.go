package envelope

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/byblosmedia/bybx-activation/cryptoutils"
	"github.com/byblosmedia/bybx-activation/interfaces"
)

// BYBX fixed header layout, all offsets in bytes from file start.
const (
	magicOffset       = 0
	magicSize         = 4
	orderNumberOffset = 6
	orderNumberSize   = 36
	productIDOffset   = 42
	hardwareIDOffset  = 46
	ivOffset          = 128
	authTagOffset     = 140
	ciphertextOffset  = 156

	// HeaderSize is the fixed BYBX header length; the ciphertext begins
	// immediately after.
	HeaderSize = ciphertextOffset
)

// Magic is the four-byte file signature every BYBX envelope starts with.
var Magic = [magicSize]byte{'B', 'Y', 'B', 'X'}

// ErrBadMagic indicates the file does not start with the BYBX signature and
// is not an envelope at all.
var ErrBadMagic = errors.New("not a BYBX envelope: bad magic")

// ErrTooShort indicates the file is smaller than the fixed header and cannot
// contain an envelope.
var ErrTooShort = errors.New("not a BYBX envelope: file shorter than header")

// Envelope is the parsed, immutable representation of a BYBX file. It is
// constructed once per file-open attempt and discarded when the orchestration
// run completes.
type Envelope struct {
	// OrderNumber is the null-trimmed order reference from the header. Its
	// business format is validated by the activation service, not here.
	OrderNumber string

	// ProductID identifies the purchased product within the order.
	ProductID int32

	// HardwareID is the 64-byte binding slot. All-zero means the envelope has
	// never been bound to any device.
	HardwareID interfaces.HardwareID

	// IV is the 12-byte AEAD nonce.
	IV []byte

	// AuthTag is the 16-byte AEAD authentication tag.
	AuthTag []byte

	// Ciphertext is the AEAD ciphertext, everything after the fixed header.
	Ciphertext []byte
}

// Activated reports whether the envelope carries a hardware binding. This
// single boolean decides whether an open routes through bind or verify.
func (e *Envelope) Activated() bool {
	return e.HardwareID.Bound()
}

// Parse validates and decodes a raw BYBX file buffer. The magic is checked
// before any other field is trusted. Parse never performs I/O and copies all
// variable-size regions out of the input buffer.
func Parse(raw []byte) (*Envelope, error) {
	if len(raw) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooShort, len(raw))
	}
	if !bytes.Equal(raw[magicOffset:magicOffset+magicSize], Magic[:]) {
		return nil, ErrBadMagic
	}

	env := &Envelope{
		OrderNumber: string(bytes.TrimRight(raw[orderNumberOffset:orderNumberOffset+orderNumberSize], "\x00")),
		ProductID:   int32(binary.BigEndian.Uint32(raw[productIDOffset : productIDOffset+4])),
		IV:          make([]byte, cryptoutils.ContentNonceSize),
		AuthTag:     make([]byte, cryptoutils.ContentTagSize),
		Ciphertext:  make([]byte, len(raw)-ciphertextOffset),
	}
	copy(env.HardwareID[:], raw[hardwareIDOffset:hardwareIDOffset+interfaces.HardwareIDSize])
	copy(env.IV, raw[ivOffset:ivOffset+cryptoutils.ContentNonceSize])
	copy(env.AuthTag, raw[authTagOffset:authTagOffset+cryptoutils.ContentTagSize])
	copy(env.Ciphertext, raw[ciphertextOffset:])

	return env, nil
}

// Marshal serializes an envelope back into the BYBX wire layout. Order
// numbers longer than the 36-byte slot are rejected rather than truncated.
func Marshal(env *Envelope) ([]byte, error) {
	if len(env.OrderNumber) > orderNumberSize {
		return nil, fmt.Errorf("order number exceeds %d bytes: %q", orderNumberSize, env.OrderNumber)
	}
	if len(env.IV) != cryptoutils.ContentNonceSize {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", cryptoutils.ContentNonceSize, len(env.IV))
	}
	if len(env.AuthTag) != cryptoutils.ContentTagSize {
		return nil, fmt.Errorf("authentication tag must be %d bytes, got %d", cryptoutils.ContentTagSize, len(env.AuthTag))
	}

	raw := make([]byte, HeaderSize+len(env.Ciphertext))
	copy(raw[magicOffset:], Magic[:])
	copy(raw[orderNumberOffset:], env.OrderNumber)
	binary.BigEndian.PutUint32(raw[productIDOffset:], uint32(env.ProductID))
	copy(raw[hardwareIDOffset:], env.HardwareID[:])
	copy(raw[ivOffset:], env.IV)
	copy(raw[authTagOffset:], env.AuthTag)
	copy(raw[ciphertextOffset:], env.Ciphertext)

	return raw, nil
}

// Seal encrypts plaintext under the given key and wraps it in a fresh
// unbound envelope for the (order, product) pair. This is the producer side
// used by the sealer tool and by tests.
func Seal(orderNumber string, productID int32, plaintext []byte, key *cryptoutils.KeyBuffer) ([]byte, error) {
	iv, tag, ciphertext, err := cryptoutils.EncryptContent(plaintext, key)
	if err != nil {
		return nil, fmt.Errorf("could not seal content: %w", err)
	}

	return Marshal(&Envelope{
		OrderNumber: orderNumber,
		ProductID:   productID,
		IV:          iv,
		AuthTag:     tag,
		Ciphertext:  ciphertext,
	})
}
