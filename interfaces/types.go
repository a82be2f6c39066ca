package interfaces

import (
	"bytes"
	"context"
	"time"

	"github.com/byblosmedia/bybx-activation/cryptoutils"
)

type KeyHex = cryptoutils.KeyHex
type KeyBuffer = cryptoutils.KeyBuffer

// Fingerprint is an opaque, stable identifier for a device or installation.
// The core treats it as a black box: equal devices produce equal fingerprints
// and different devices produce different ones with high probability.
type Fingerprint string

// String returns the fingerprint token as a string.
func (f Fingerprint) String() string {
	return string(f)
}

// HardwareIDSize is the fixed size of the hardware binding slot in the
// envelope header.
const HardwareIDSize = 64

// HardwareID is the 64-byte hardware binding slot of an envelope. An all-zero
// value means the envelope has never been bound to any device.
type HardwareID [HardwareIDSize]byte

// Bound reports whether any byte of the slot is non-zero, i.e. whether the
// envelope has been bound to a device at least once.
func (id HardwareID) Bound() bool {
	return !bytes.Equal(id[:], make([]byte, HardwareIDSize))
}

// Bytes returns the raw 64-byte slot.
func (id HardwareID) Bytes() []byte {
	return id[:]
}

// Binding records that an (order, product) pair has been activated on a
// specific device. It is the unit stored by the activation ledger.
type Binding struct {
	// ID uniquely identifies the binding record.
	ID string `json:"id"`

	// OrderNumber is the marketplace order the content belongs to.
	OrderNumber string `json:"order_number"`

	// ProductID identifies the purchased product within the order.
	ProductID int32 `json:"product_id"`

	// Fingerprint is the device the pair was bound to.
	Fingerprint Fingerprint `json:"fingerprint"`

	// BoundAt is when the first successful bond was recorded.
	BoundAt time.Time `json:"bound_at"`
}

// FingerprintProvider produces the current device fingerprint. Probing may
// touch OS or hardware state, so the operation takes a context.
type FingerprintProvider interface {
	CurrentFingerprint(ctx context.Context) (Fingerprint, error)
}

// KeyDeriver produces the content key for an (order, product) pair. The same
// pair always yields the same key so that re-verification re-issues the key
// originally used to seal the content.
type KeyDeriver interface {
	ContentKey(orderNumber string, productID int32) (KeyHex, error)
}

// BindingLedger is the server-side store of device bindings. Lookup returns
// ErrBindingNotFound when the pair has never been bound.
type BindingLedger interface {
	// Lookup returns the binding for an (order, product) pair.
	Lookup(ctx context.Context, orderNumber string, productID int32) (*Binding, error)

	// Record stores a new binding. It fails if the pair is already bound.
	Record(ctx context.Context, binding Binding) error

	// Snapshot serializes all bindings for archival.
	Snapshot(ctx context.Context) ([]byte, error)

	// Restore loads bindings from a previous Snapshot.
	Restore(ctx context.Context, snapshot []byte) error

	// Close releases the underlying store.
	Close() error
}

// Storage is a named blob store used for ledger snapshots and seed share
// distribution.
type Storage interface {
	// Store saves data under the given name.
	Store(ctx context.Context, name string, data []byte) error

	// Fetch retrieves data by name. Returns ErrContentNotFound if missing.
	Fetch(ctx context.Context, name string) ([]byte, error)

	// Available checks whether the backend is reachable.
	Available(ctx context.Context) bool

	// Name returns a unique identifier for this backend.
	Name() string

	// LocationURI returns the URI this backend was created from.
	LocationURI() string
}
