package kms

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/byblosmedia/bybx-activation/cryptoutils"
	"github.com/byblosmedia/bybx-activation/interfaces"
	"golang.org/x/crypto/hkdf"
)

// SeedSize is the required master seed length in bytes.
const SeedSize = 32

// keyDomain separates content keys from any other material derived from the
// same seed. It is part of the key derivation contract: changing it changes
// every issued key.
const keyDomain = "bybx/content-key/v1"

// SimpleKeyDeriver derives deterministic per-(order, product) content keys
// from a master seed using HKDF-SHA256. The same pair always yields the same
// key, which is what lets verify re-issue the key the content was sealed
// under without the server storing keys at all.
type SimpleKeyDeriver struct {
	masterSeed []byte
}

// NewSimpleKeyDeriver creates a deriver from a 32-byte master seed.
func NewSimpleKeyDeriver(masterSeed []byte) (*SimpleKeyDeriver, error) {
	if len(masterSeed) != SeedSize {
		return nil, fmt.Errorf("master seed must be %d bytes, got %d", SeedSize, len(masterSeed))
	}

	seed := make([]byte, SeedSize)
	copy(seed, masterSeed)
	return &SimpleKeyDeriver{masterSeed: seed}, nil
}

// ContentKey derives the content key for an (order, product) pair.
func (d *SimpleKeyDeriver) ContentKey(orderNumber string, productID int32) (interfaces.KeyHex, error) {
	if orderNumber == "" {
		return "", errors.New("order number must not be empty")
	}

	info := fmt.Sprintf("%s|%s|%d", keyDomain, orderNumber, productID)
	reader := hkdf.New(sha256.New, d.masterSeed, nil, []byte(info))

	key := make([]byte, cryptoutils.ContentKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return "", fmt.Errorf("could not derive content key: %w", err)
	}

	return interfaces.KeyHex(hex.EncodeToString(key)), nil
}

// SeedFromHex parses a hex-encoded master seed.
func SeedFromHex(seedHex string) ([]byte, error) {
	seed, err := hex.DecodeString(strings.TrimSpace(seedHex))
	if err != nil {
		return nil, fmt.Errorf("invalid master seed hex: %w", err)
	}
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("master seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	return seed, nil
}

// SeedFromFile reads a hex-encoded master seed from a file.
func SeedFromFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read seed file: %w", err)
	}
	return SeedFromHex(string(data))
}
