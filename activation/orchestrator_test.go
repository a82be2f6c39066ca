package activation

import (
	"context"
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/byblosmedia/bybx-activation/api/activationhandler"
	"github.com/byblosmedia/bybx-activation/cryptoutils"
	"github.com/byblosmedia/bybx-activation/envelope"
	"github.com/byblosmedia/bybx-activation/fingerprint"
	"github.com/byblosmedia/bybx-activation/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// sealTestEnvelope produces a raw BYBX buffer plus the wire key it was sealed
// under. hardwareID filled with zeroes leaves the envelope unbound.
func sealTestEnvelope(t *testing.T, orderNumber string, productID int32, plaintext []byte, hardwareID []byte) ([]byte, interfaces.KeyHex) {
	t.Helper()

	raw := make([]byte, cryptoutils.ContentKeySize)
	_, err := rand.Read(raw)
	require.NoError(t, err)

	key, err := cryptoutils.NewKeyBuffer(raw)
	require.NoError(t, err)
	defer key.Destroy()

	keyHex, err := key.Hex()
	require.NoError(t, err)

	sealed, err := envelope.Seal(orderNumber, productID, plaintext, key)
	require.NoError(t, err)

	if hardwareID != nil {
		env, err := envelope.Parse(sealed)
		require.NoError(t, err)
		copy(env.HardwareID[:], hardwareID)
		sealed, err = envelope.Marshal(env)
		require.NoError(t, err)
	}

	return sealed, keyHex
}

// captureSink records the single delivery it receives.
type captureSink struct {
	delivered bool
	content   Content
}

func (s *captureSink) Deliver(ctx context.Context, content Content) error {
	s.delivered = true
	s.content = content
	return nil
}

func TestOpenEnvelope_BindPath(t *testing.T) {
	raw, keyHex := sealTestEnvelope(t, "ORD-0001", 42, []byte("hello world"), nil)

	provider := new(activationhandler.MockProvider)
	provider.On("Bind", mock.Anything, "ORD-0001", int32(42), interfaces.Fingerprint("device-a")).
		Return(keyHex, nil).Once()

	var states []State
	sink := &captureSink{}
	orch := &Orchestrator{
		Fingerprints: &fingerprint.StaticProvider{Token: "device-a"},
		Activation:   provider,
		OnTransition: func(s State) { states = append(states, s) },
	}

	err := orch.OpenEnvelope(context.Background(), raw, "novel.bybx", sink)
	require.NoError(t, err)

	require.True(t, sink.delivered)
	assert.Equal(t, []byte("hello world"), sink.content.Plaintext)
	assert.Equal(t, "novel", sink.content.ContentName)
	assert.Equal(t, []State{StateParsing, StateFingerprinting, StateActivating, StateDecrypting, StateReady}, states)
	provider.AssertExpectations(t)
	provider.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOpenEnvelope_VerifyPathRouting(t *testing.T) {
	testCases := []struct {
		name       string
		hardwareID []byte
	}{
		{name: "first byte set", hardwareID: append([]byte{1}, make([]byte, 63)...)},
		{name: "last byte set", hardwareID: append(make([]byte, 63), 1)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw, keyHex := sealTestEnvelope(t, "ORD-0002", 7, []byte("bound content"), tc.hardwareID)

			provider := new(activationhandler.MockProvider)
			provider.On("Verify", mock.Anything, "ORD-0002", int32(7), interfaces.Fingerprint("device-a")).
				Return(keyHex, nil).Once()

			sink := &captureSink{}
			orch := &Orchestrator{
				Fingerprints: &fingerprint.StaticProvider{Token: "device-a"},
				Activation:   provider,
			}

			err := orch.OpenEnvelope(context.Background(), raw, "bound.bybx", sink)
			require.NoError(t, err)
			assert.Equal(t, []byte("bound content"), sink.content.Plaintext)
			provider.AssertExpectations(t)
			provider.AssertNotCalled(t, "Bind", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestOpenEnvelope_NotAnEnvelope(t *testing.T) {
	provider := new(activationhandler.MockProvider)
	fingerprints := new(fingerprint.MockProvider)

	sink := &captureSink{}
	orch := &Orchestrator{Fingerprints: fingerprints, Activation: provider}

	err := orch.OpenEnvelope(context.Background(), []byte("%PDF-1.7 definitely not ours, padded to well past the fixed header size so only the magic check can reject it........................................."), "doc.pdf", sink)
	require.Error(t, err)
	assert.Equal(t, interfaces.KindFormat, interfaces.KindOf(err))
	assert.False(t, sink.delivered)

	// A format rejection never probes the device or the network.
	fingerprints.AssertNotCalled(t, "CurrentFingerprint", mock.Anything)
}

func TestOpenEnvelope_TruncatedFile(t *testing.T) {
	orch := &Orchestrator{
		Fingerprints: &fingerprint.StaticProvider{Token: "device-a"},
		Activation:   new(activationhandler.MockProvider),
	}

	err := orch.OpenEnvelope(context.Background(), []byte("BYBX"), "short.bybx", &captureSink{})
	require.Error(t, err)
	assert.Equal(t, interfaces.KindFormat, interfaces.KindOf(err))
}

func TestOpenEnvelope_RejectionShortCircuits(t *testing.T) {
	raw, _ := sealTestEnvelope(t, "ORD-0003", 1, []byte("secret"), nil)

	provider := new(activationhandler.MockProvider)
	provider.On("Bind", mock.Anything, "ORD-0003", int32(1), mock.Anything).
		Return(interfaces.KeyHex(""), interfaces.NewCoreError(interfaces.KindActivationRejected, "order already bound to a different device", nil))

	var states []State
	sink := &captureSink{}
	orch := &Orchestrator{
		Fingerprints: &fingerprint.StaticProvider{Token: "device-b"},
		Activation:   provider,
		OnTransition: func(s State) { states = append(states, s) },
	}

	err := orch.OpenEnvelope(context.Background(), raw, "secret.bybx", sink)
	require.Error(t, err)
	assert.Equal(t, interfaces.KindActivationRejected, interfaces.KindOf(err))
	assert.Contains(t, err.Error(), "already bound to a different device")

	assert.False(t, sink.delivered, "no plaintext on denial")
	assert.NotContains(t, states, StateDecrypting)
	assert.Equal(t, StateFailed, states[len(states)-1])
}

func TestOpenEnvelope_CancelledDuringActivation(t *testing.T) {
	raw, _ := sealTestEnvelope(t, "ORD-0004", 1, []byte("secret"), nil)

	ctx, cancel := context.WithCancel(context.Background())

	provider := new(activationhandler.MockProvider)
	provider.On("Bind", mock.Anything, "ORD-0004", int32(1), mock.Anything).
		Run(func(args mock.Arguments) {
			cancel()
			<-args.Get(0).(context.Context).Done()
		}).
		Return(interfaces.KeyHex(""), context.Canceled)

	var states []State
	sink := &captureSink{}
	orch := &Orchestrator{
		Fingerprints: &fingerprint.StaticProvider{Token: "device-a"},
		Activation:   provider,
		OnTransition: func(s State) { states = append(states, s) },
	}

	err := orch.OpenEnvelope(ctx, raw, "secret.bybx", sink)
	require.Error(t, err)
	assert.Equal(t, interfaces.KindCancelled, interfaces.KindOf(err))

	assert.False(t, sink.delivered, "no plaintext after cancellation")
	assert.NotContains(t, states, StateDecrypting)
	assert.Equal(t, StateCancelled, states[len(states)-1])
}

func TestOpenEnvelope_IntegrityFailure(t *testing.T) {
	raw, _ := sealTestEnvelope(t, "ORD-0005", 1, []byte("secret"), nil)

	// A key that decodes fine but is not the one the content was sealed under.
	wrongRaw := make([]byte, cryptoutils.ContentKeySize)
	_, err := rand.Read(wrongRaw)
	require.NoError(t, err)
	wrongKey, err := cryptoutils.NewKeyBuffer(wrongRaw)
	require.NoError(t, err)
	wrongHex, err := wrongKey.Hex()
	require.NoError(t, err)
	wrongKey.Destroy()

	provider := new(activationhandler.MockProvider)
	provider.On("Bind", mock.Anything, "ORD-0005", int32(1), mock.Anything).Return(wrongHex, nil)

	sink := &captureSink{}
	orch := &Orchestrator{
		Fingerprints: &fingerprint.StaticProvider{Token: "device-a"},
		Activation:   provider,
	}

	err = orch.OpenEnvelope(context.Background(), raw, "secret.bybx", sink)
	require.Error(t, err)
	assert.Equal(t, interfaces.KindIntegrity, interfaces.KindOf(err))
	assert.False(t, sink.delivered)
}

func TestDecryptScopedWipesKey(t *testing.T) {
	raw, keyHex := sealTestEnvelope(t, "ORD-0010", 1, []byte("secret"), nil)
	env, err := envelope.Parse(raw)
	require.NoError(t, err)

	t.Run("on success", func(t *testing.T) {
		key, err := keyHex.Decode()
		require.NoError(t, err)

		plaintext, err := decryptScoped(env, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("secret"), plaintext)
		assert.True(t, key.Destroyed(), "key material must be wiped after decryption")
	})

	t.Run("on integrity failure", func(t *testing.T) {
		wrongRaw := make([]byte, cryptoutils.ContentKeySize)
		_, err := rand.Read(wrongRaw)
		require.NoError(t, err)
		wrongKey, err := cryptoutils.NewKeyBuffer(wrongRaw)
		require.NoError(t, err)

		_, err = decryptScoped(env, wrongKey)
		require.Error(t, err)
		assert.Equal(t, interfaces.KindIntegrity, interfaces.KindOf(err))
		assert.True(t, wrongKey.Destroyed(), "key material must be wiped on failure too")
	})
}

func TestOpenEnvelope_UnusableKeyFromService(t *testing.T) {
	raw, _ := sealTestEnvelope(t, "ORD-0006", 1, []byte("secret"), nil)

	provider := new(activationhandler.MockProvider)
	provider.On("Bind", mock.Anything, "ORD-0006", int32(1), mock.Anything).
		Return(interfaces.KeyHex("deadbeef"), nil) // too short to be a content key

	orch := &Orchestrator{
		Fingerprints: &fingerprint.StaticProvider{Token: "device-a"},
		Activation:   provider,
	}

	err := orch.OpenEnvelope(context.Background(), raw, "secret.bybx", &captureSink{})
	require.Error(t, err)
	assert.Equal(t, interfaces.KindActivationServer, interfaces.KindOf(err))
}

func TestOpenEnvelope_FingerprintUnavailable(t *testing.T) {
	raw, _ := sealTestEnvelope(t, "ORD-0007", 1, []byte("secret"), nil)

	fingerprints := new(fingerprint.MockProvider)
	fingerprints.On("CurrentFingerprint", mock.Anything).
		Return(interfaces.Fingerprint(""), fmt.Errorf("probe agent offline"))

	provider := new(activationhandler.MockProvider)
	orch := &Orchestrator{Fingerprints: fingerprints, Activation: provider}

	err := orch.OpenEnvelope(context.Background(), raw, "secret.bybx", &captureSink{})
	require.Error(t, err)
	assert.Equal(t, interfaces.KindActivationNetwork, interfaces.KindOf(err))
	assert.Contains(t, err.Error(), "fingerprint unavailable")
	provider.AssertNotCalled(t, "Bind", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestContentName(t *testing.T) {
	testCases := []struct {
		filename string
		want     string
	}{
		{filename: "novel.bybx", want: "novel"},
		{filename: "Novel.BYBX", want: "Novel"},
		{filename: "archive.tar.bybx", want: "archive.tar"},
		{filename: "plain.txt", want: "plain.txt"},
		{filename: ".bybx", want: ".bybx"},
		{filename: "", want: ""},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, ContentName(tc.filename), "filename %q", tc.filename)
	}
}
