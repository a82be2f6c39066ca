package ledger

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/byblosmedia/bybx-activation/interfaces"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBinding(order string, product int32, fp string) interfaces.Binding {
	return interfaces.Binding{
		ID:          uuid.NewString(),
		OrderNumber: order,
		ProductID:   product,
		Fingerprint: interfaces.Fingerprint(fp),
		BoundAt:     time.Now().UTC().Truncate(time.Second),
	}
}

// ledgerUnderTest runs the shared contract tests against any implementation.
func ledgerUnderTest(t *testing.T, l interfaces.BindingLedger) {
	ctx := context.Background()

	_, err := l.Lookup(ctx, "ORD-0001", 42)
	assert.ErrorIs(t, err, interfaces.ErrBindingNotFound)

	binding := testBinding("ORD-0001", 42, "device-a")
	require.NoError(t, l.Record(ctx, binding))

	got, err := l.Lookup(ctx, "ORD-0001", 42)
	require.NoError(t, err)
	assert.Equal(t, binding.Fingerprint, got.Fingerprint)
	assert.Equal(t, binding.ID, got.ID)

	// Same order, different product is a distinct pair.
	_, err = l.Lookup(ctx, "ORD-0001", 43)
	assert.ErrorIs(t, err, interfaces.ErrBindingNotFound)

	// Double record is refused at the store level.
	err = l.Record(ctx, testBinding("ORD-0001", 42, "device-b"))
	assert.ErrorIs(t, err, interfaces.ErrAlreadyBound)

	got, err = l.Lookup(ctx, "ORD-0001", 42)
	require.NoError(t, err)
	assert.Equal(t, interfaces.Fingerprint("device-a"), got.Fingerprint, "original binding survives")
}

func TestMemoryLedger(t *testing.T) {
	l := NewMemoryLedger()
	defer l.Close()
	ledgerUnderTest(t, l)
}

func TestBadgerLedger(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	l, err := NewBadgerLedger(t.TempDir(), log)
	require.NoError(t, err)
	defer l.Close()
	ledgerUnderTest(t, l)
}

func TestBadgerLedgerPersistence(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	l, err := NewBadgerLedger(dir, log)
	require.NoError(t, err)
	require.NoError(t, l.Record(ctx, testBinding("ORD-0007", 7, "device-x")))
	require.NoError(t, l.Close())

	reopened, err := NewBadgerLedger(dir, log)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Lookup(ctx, "ORD-0007", 7)
	require.NoError(t, err)
	assert.Equal(t, interfaces.Fingerprint("device-x"), got.Fingerprint)
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	source, err := NewBadgerLedger(t.TempDir(), log)
	require.NoError(t, err)
	defer source.Close()

	require.NoError(t, source.Record(ctx, testBinding("ORD-0001", 1, "device-a")))
	require.NoError(t, source.Record(ctx, testBinding("ORD-0002", 2, "device-b")))

	snapshot, err := source.Snapshot(ctx)
	require.NoError(t, err)

	target := NewMemoryLedger()
	defer target.Close()

	// Pre-existing bindings are never overwritten by a restore.
	require.NoError(t, target.Record(ctx, testBinding("ORD-0001", 1, "device-z")))
	require.NoError(t, target.Restore(ctx, snapshot))

	kept, err := target.Lookup(ctx, "ORD-0001", 1)
	require.NoError(t, err)
	assert.Equal(t, interfaces.Fingerprint("device-z"), kept.Fingerprint)

	restored, err := target.Lookup(ctx, "ORD-0002", 2)
	require.NoError(t, err)
	assert.Equal(t, interfaces.Fingerprint("device-b"), restored.Fingerprint)

	assert.Error(t, target.Restore(ctx, []byte("not json")))
}
