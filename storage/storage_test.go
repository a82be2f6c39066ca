package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/byblosmedia/bybx-activation/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileBackend_StoreFetch(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	require.True(t, backend.Available(ctx))

	data := []byte(`{"bindings":[]}`)
	require.NoError(t, backend.Store(ctx, "ledger/snapshot.json", data))

	fetched, err := backend.Fetch(ctx, "ledger/snapshot.json")
	require.NoError(t, err)
	assert.Equal(t, data, fetched)

	// Overwrites replace previous content.
	require.NoError(t, backend.Store(ctx, "ledger/snapshot.json", []byte("v2")))
	fetched, err = backend.Fetch(ctx, "ledger/snapshot.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), fetched)
}

func TestFileBackend_NotFound(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	_, err = backend.Fetch(context.Background(), "missing")
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestFileBackend_RejectsEscapingNames(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"", "../outside", "/etc/passwd", "a/../../outside"} {
		assert.Error(t, backend.Store(ctx, name, []byte("x")), "name %q", name)
	}
}

func TestMultiBackend_FallbackFetch(t *testing.T) {
	ctx := context.Background()
	primary, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)
	secondary, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	// Blob exists only in the secondary.
	require.NoError(t, secondary.Store(ctx, "shares/share-1", []byte("share data")))

	multi := NewMultiBackend([]interfaces.Storage{primary, secondary}, testLogger())
	data, err := multi.Fetch(ctx, "shares/share-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("share data"), data)
}

func TestMultiBackend_StoreReplicates(t *testing.T) {
	ctx := context.Background()
	primary, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)
	secondary, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	multi := NewMultiBackend([]interfaces.Storage{primary, secondary}, testLogger())
	require.NoError(t, multi.Store(ctx, "snapshot", []byte("replicated")))

	for _, backend := range []interfaces.Storage{primary, secondary} {
		data, err := backend.Fetch(ctx, "snapshot")
		require.NoError(t, err, backend.Name())
		assert.Equal(t, []byte("replicated"), data)
	}
}

func TestMultiBackend_NotFoundWhenNoBackendHasBlob(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	multi := NewMultiBackend([]interfaces.Storage{backend}, testLogger())
	_, err = multi.Fetch(context.Background(), "missing")
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestFactory_BackendFor(t *testing.T) {
	factory := NewFactory(testLogger())

	testCases := []struct {
		name     string
		uri      string
		wantName string
		wantErr  bool
	}{
		{name: "file", uri: "file://" + t.TempDir(), wantName: "file-"},
		{name: "s3", uri: "s3://my-bucket/snapshots?region=eu-central-1", wantName: "s3-my-bucket"},
		{name: "ipfs", uri: "ipfs://127.0.0.1:5001/bybx", wantName: "ipfs-127.0.0.1-5001"},
		{name: "unsupported", uri: "ftp://host/path", wantErr: true},
		{name: "empty file path", uri: "file://", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			backend, err := factory.BackendFor(tc.uri)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, backend.Name(), tc.wantName)
		})
	}
}

func TestFactory_MultiBackendFor(t *testing.T) {
	factory := NewFactory(testLogger())

	// Invalid URIs are skipped as long as one backend survives.
	backend, err := factory.MultiBackendFor([]string{"ftp://nope", "file://" + t.TempDir()})
	require.NoError(t, err)
	assert.Contains(t, backend.Name(), "file-")

	_, err = factory.MultiBackendFor([]string{"ftp://nope"})
	assert.Error(t, err)

	multi, err := factory.MultiBackendFor([]string{"file://" + t.TempDir(), "file://" + t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "multi-storage", multi.Name())
}
