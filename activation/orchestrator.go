package activation

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/byblosmedia/bybx-activation/api"
	"github.com/byblosmedia/bybx-activation/cryptoutils"
	"github.com/byblosmedia/bybx-activation/envelope"
	"github.com/byblosmedia/bybx-activation/interfaces"
)

// State identifies a stage of the unlock pipeline. A run moves strictly
// forward through the non-terminal states; StateReady, StateFailed, and
// StateCancelled are terminal.
type State int

const (
	StateIdle State = iota
	StateParsing
	StateFingerprinting
	StateActivating
	StateDecrypting
	StateReady
	StateFailed
	StateCancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateParsing:
		return "parsing"
	case StateFingerprinting:
		return "fingerprinting"
	case StateActivating:
		return "activating"
	case StateDecrypting:
		return "decrypting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Content is what a successful unlock delivers to the sink: the decrypted
// payload, held only in memory, and a display name derived from the original
// filename. Ownership transfers to the sink; the orchestrator retains nothing.
type Content struct {
	Plaintext   []byte
	ContentName string
}

// Sink receives the decrypted content at the end of a successful run.
type Sink interface {
	Deliver(ctx context.Context, content Content) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, content Content) error

// Deliver calls the wrapped function.
func (f SinkFunc) Deliver(ctx context.Context, content Content) error {
	return f(ctx, content)
}

// Orchestrator drives the unlock pipeline for BYBX envelopes: parse, obtain a
// device fingerprint, bind or verify against the activation service, decrypt,
// and hand the plaintext to the sink.
//
// Each OpenEnvelope call is one independent, sequential pipeline; the
// orchestrator holds no per-run state, so concurrent opens share nothing.
// There is no internal retry: any failure surfaces immediately as a
// CoreError, and retry-on-user-action is the caller's concern.
type Orchestrator struct {
	// Fingerprints produces the device identity presented to the service.
	Fingerprints interfaces.FingerprintProvider

	// Activation performs the bind/verify handshake.
	Activation api.ActivationProvider

	// Log receives per-stage debug logging. Optional.
	Log *slog.Logger

	// OnTransition, if set, observes every state change of a run. Intended
	// for progress reporting and tests; it must not block.
	OnTransition func(State)
}

// run is the short-lived context of a single OpenEnvelope call. It exists for
// the duration of one pipeline and carries no shared state.
type run struct {
	orch  *Orchestrator
	state State
	log   *slog.Logger
}

func (r *run) to(next State) {
	r.state = next
	r.log.Debug("unlock pipeline transition", slog.String("state", next.String()))
	if r.orch.OnTransition != nil {
		r.orch.OnTransition(next)
	}
}

// checkpoint observes cancellation before entering the next stage. Every
// suspend point of the pipeline passes through here.
func (r *run) checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		r.to(StateCancelled)
		return interfaces.NewCoreError(interfaces.KindCancelled, "unlock cancelled", err)
	}
	return nil
}

// OpenEnvelope unlocks a raw BYBX file buffer and delivers the plaintext to
// the sink. The content name handed to the sink is the filename with its
// .bybx suffix stripped.
//
// The returned error, if any, is always a *interfaces.CoreError carrying one
// of the taxonomy kinds. No partial plaintext is ever surfaced on failure,
// and key material obtained during the run is wiped on every exit path.
func (o *Orchestrator) OpenEnvelope(ctx context.Context, raw []byte, filename string, sink Sink) error {
	log := o.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	r := &run{orch: o, state: StateIdle, log: log}

	err := r.execute(ctx, raw, filename, sink)
	if err != nil {
		if r.state != StateCancelled {
			r.to(StateFailed)
		}
		return err
	}
	return nil
}

func (r *run) execute(ctx context.Context, raw []byte, filename string, sink Sink) error {
	// Parsing.
	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	r.to(StateParsing)

	env, err := envelope.Parse(raw)
	if err != nil {
		return interfaces.NewCoreError(interfaces.KindFormat, formatMessage(err), err)
	}

	// Fingerprinting.
	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	r.to(StateFingerprinting)

	fp, err := r.orch.Fingerprints.CurrentFingerprint(ctx)
	if err != nil {
		if ctx.Err() != nil {
			r.to(StateCancelled)
			return interfaces.NewCoreError(interfaces.KindCancelled, "unlock cancelled", ctx.Err())
		}
		return interfaces.NewCoreError(interfaces.KindActivationNetwork, "device fingerprint unavailable", err)
	}

	// Activating: the hardware slot alone decides the mode.
	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	r.to(StateActivating)

	var keyHex interfaces.KeyHex
	if env.Activated() {
		keyHex, err = r.orch.Activation.Verify(ctx, env.OrderNumber, env.ProductID, fp)
	} else {
		keyHex, err = r.orch.Activation.Bind(ctx, env.OrderNumber, env.ProductID, fp)
	}
	if err != nil {
		mapped := asCoreError(err, ctx)
		if interfaces.KindOf(mapped) == interfaces.KindCancelled {
			r.to(StateCancelled)
		}
		return mapped
	}

	// Decrypting: the key buffer lives exactly as long as this block.
	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	r.to(StateDecrypting)

	key, err := keyHex.Decode()
	if err != nil {
		return interfaces.NewCoreError(interfaces.KindActivationServer, "activation service issued an unusable key", err)
	}
	plaintext, err := decryptScoped(env, key)
	if err != nil {
		return err
	}

	// Ready: ownership of the plaintext transfers to the sink.
	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	r.to(StateReady)

	content := Content{Plaintext: plaintext, ContentName: ContentName(filename)}
	if err := sink.Deliver(ctx, content); err != nil {
		// A sink refusing delivery is the caller aborting at the last moment.
		r.to(StateCancelled)
		return interfaces.NewCoreError(interfaces.KindCancelled, "content sink refused delivery", err)
	}
	return nil
}

// decryptScoped decrypts the envelope content and wipes the key buffer on
// every path out, success or failure. It takes ownership of the buffer.
func decryptScoped(env *envelope.Envelope, key *interfaces.KeyBuffer) ([]byte, error) {
	defer key.Destroy()

	plaintext, err := cryptoutils.DecryptContent(env.Ciphertext, env.AuthTag, env.IV, key)
	if err != nil {
		if errors.Is(err, cryptoutils.ErrIntegrity) {
			return nil, interfaces.NewCoreError(interfaces.KindIntegrity, "content failed integrity verification", err)
		}
		return nil, interfaces.NewCoreError(interfaces.KindFormat, "envelope cryptographic fields are malformed", err)
	}
	return plaintext, nil
}

// asCoreError passes through already-classified errors and maps anything else
// conservatively.
func asCoreError(err error, ctx context.Context) error {
	var coreErr *interfaces.CoreError
	if errors.As(err, &coreErr) {
		return err
	}
	if ctx.Err() != nil {
		return interfaces.NewCoreError(interfaces.KindCancelled, "unlock cancelled", ctx.Err())
	}
	return interfaces.NewCoreError(interfaces.KindActivationNetwork, "activation failed", err)
}

func formatMessage(err error) string {
	switch {
	case errors.Is(err, envelope.ErrBadMagic):
		return "this file is not BYBX protected content"
	case errors.Is(err, envelope.ErrTooShort):
		return "this file is truncated or not BYBX protected content"
	default:
		return "this file could not be read as BYBX protected content"
	}
}

// ContentName derives the display name delivered with the plaintext: the
// filename with a trailing .bybx suffix removed, case-insensitively.
func ContentName(filename string) string {
	if ext := ".bybx"; len(filename) > len(ext) && strings.EqualFold(filename[len(filename)-len(ext):], ext) {
		return filename[:len(filename)-len(ext)]
	}
	return filename
}
