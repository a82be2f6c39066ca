package httpserver

import (
	"crypto/rand"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/byblosmedia/bybx-activation/api/activationhandler"
	"github.com/byblosmedia/bybx-activation/kms"
	"github.com/byblosmedia/bybx-activation/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	seed := make([]byte, kms.SeedSize)
	_, err := rand.Read(seed)
	require.NoError(t, err)
	deriver, err := kms.NewSimpleKeyDeriver(seed)
	require.NoError(t, err)

	handler := activationhandler.NewHandler(ledger.NewMemoryLedger(), deriver, log)

	srv, err := New(&HTTPServerConfig{
		ListenAddr:    "127.0.0.1:0",
		Log:           log,
		DrainDuration: 10 * time.Millisecond,
	}, handler)
	require.NoError(t, err)
	return srv
}

func TestServerHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	router := srv.getRouter()

	for _, path := range []string{"/livez", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Result().StatusCode, path)
	}
}

func TestServerDrainUndrain(t *testing.T) {
	srv := newTestServer(t)
	router := srv.getRouter()

	get := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Result().StatusCode
	}

	require.Equal(t, http.StatusOK, get("/drain"))
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz"))
	require.Equal(t, http.StatusOK, get("/undrain"))
	assert.Equal(t, http.StatusOK, get("/readyz"))
}

func TestServerRoutesActivationAPI(t *testing.T) {
	srv := newTestServer(t)
	router := srv.getRouter()

	req := httptest.NewRequest(http.MethodPost, "/activation/bond", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Empty body is a bad request, proving the route is wired.
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}
