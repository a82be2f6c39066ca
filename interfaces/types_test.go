package interfaces

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHardwareIDBound(t *testing.T) {
	var id HardwareID
	assert.False(t, id.Bound(), "all-zero slot means unbound")

	var first HardwareID
	first[0] = 1
	assert.True(t, first.Bound(), "non-zero byte at offset 0")

	var last HardwareID
	last[HardwareIDSize-1] = 1
	assert.True(t, last.Bound(), "non-zero byte at offset 63")
}

func TestErrorKindClassification(t *testing.T) {
	rejected := NewCoreError(KindActivationRejected, "hardware mismatch", nil)
	assert.Equal(t, KindActivationRejected, KindOf(rejected))
	assert.False(t, KindActivationRejected.Retryable())
	assert.True(t, KindActivationNetwork.Retryable())
	assert.True(t, KindActivationServer.Retryable())
	assert.False(t, KindIntegrity.Retryable())

	wrapped := NewCoreError(KindFormat, "bad magic", errors.New("magic mismatch"))
	assert.Equal(t, KindFormat, KindOf(wrapped))
	assert.Contains(t, wrapped.Error(), "bad magic")

	assert.Equal(t, KindCancelled, KindOf(context.Canceled))
}
