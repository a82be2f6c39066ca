package api

import (
	"context"

	"github.com/byblosmedia/bybx-activation/interfaces"
)

// Activation service endpoints. Bond registers a first-time device binding;
// verify re-confirms an existing one. Both accept the same request shape and
// return the same response shape.
const (
	BondPath   = "/activation/bond"
	VerifyPath = "/activation/verify"
)

// ActivationRequest is the body of both bond and verify calls.
type ActivationRequest struct {
	// OrderNumber is the marketplace order reference from the envelope.
	OrderNumber string `json:"orderNumber"`

	// ProductID identifies the purchased product within the order.
	ProductID int32 `json:"productId"`

	// Fingerprint is the opaque device token presented for binding.
	Fingerprint string `json:"fingerprint"`
}

// ActivationResponse carries the hex-encoded content decryption key issued
// after a successful bond or verify.
type ActivationResponse struct {
	DecryptionKey interfaces.KeyHex `json:"decryptionKey"`
}

// ActivationProvider is the client-side view of the activation service.
//
// Bind is used exactly when the envelope carries no hardware binding; it
// registers the (order, product, device) triple for the first time. Verify is
// used when the envelope is already bound; it re-confirms the fingerprint and
// re-issues the same key. Both are idempotent from the caller's perspective
// and neither caches locally: every file open re-derives the key over the
// network.
type ActivationProvider interface {
	Bind(ctx context.Context, orderNumber string, productID int32, fingerprint interfaces.Fingerprint) (interfaces.KeyHex, error)
	Verify(ctx context.Context, orderNumber string, productID int32, fingerprint interfaces.Fingerprint) (interfaces.KeyHex, error)
}
