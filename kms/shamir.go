package kms

import (
	"errors"
	"fmt"

	"github.com/hashicorp/vault/shamir"
)

// SplitSeed splits the master seed into shares for operator custody. At least
// threshold shares are required to reconstruct the seed; any fewer reveal
// nothing about it. The seed itself should be erased after distribution.
func SplitSeed(masterSeed []byte, shares, threshold int) ([][]byte, error) {
	if len(masterSeed) != SeedSize {
		return nil, fmt.Errorf("master seed must be %d bytes, got %d", SeedSize, len(masterSeed))
	}
	if threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}
	if shares < threshold {
		return nil, fmt.Errorf("share count %d is below threshold %d", shares, threshold)
	}

	split, err := shamir.Split(masterSeed, shares, threshold)
	if err != nil {
		return nil, fmt.Errorf("could not split master seed: %w", err)
	}
	return split, nil
}

// CombineSeed reconstructs the master seed from a threshold of shares.
func CombineSeed(shares [][]byte) ([]byte, error) {
	if len(shares) < 2 {
		return nil, errors.New("at least 2 shares are required")
	}

	seed, err := shamir.Combine(shares)
	if err != nil {
		return nil, fmt.Errorf("could not combine shares: %w", err)
	}
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("combined secret is %d bytes, expected %d: wrong or mismatched shares", len(seed), SeedSize)
	}
	return seed, nil
}
