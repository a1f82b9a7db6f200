package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendio/beverage-machine/internal/machine"
)

func gateRouter(coord *machine.Coordinator) http.Handler {
	r := NewRouter(coord)
	ok := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }
	r.Post("/api/orders", ok)
	r.Get("/api/orders", ok)
	r.Post("/api/orders/validate-payment", ok)
	r.Post("/api/import/products", ok)
	r.Put("/api/coins/{nominal}", ok)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, connID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if connID != "" {
		req.Header.Set(HeaderConnectionID, connID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMachineGate_FreeMachinePassesEveryone(t *testing.T) {
	h := gateRouter(machine.NewCoordinator())

	rec := doRequest(t, h, http.MethodPost, "/api/orders", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/api/orders", "stranger")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMachineGate_OccupiedRejectsOthers(t *testing.T) {
	coord := machine.NewCoordinator()
	require.True(t, coord.Claim("conn-a"))
	h := gateRouter(coord)

	rec := doRequest(t, h, http.MethodPost, "/api/orders", "")
	require.Equal(t, http.StatusLocked, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, codeMachineOccupied, body.Code)
	assert.Equal(t, "Machine is currently occupied", body.Error)
	assert.NotEmpty(t, body.Message)

	rec = doRequest(t, h, http.MethodPost, "/api/orders", "conn-b")
	assert.Equal(t, http.StatusLocked, rec.Code)
}

func TestMachineGate_HolderPasses(t *testing.T) {
	coord := machine.NewCoordinator()
	require.True(t, coord.Claim("conn-a"))
	h := gateRouter(coord)

	rec := doRequest(t, h, http.MethodPost, "/api/orders", "conn-a")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/api/orders/validate-payment", "conn-a")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMachineGate_AllowListBypassesLock(t *testing.T) {
	coord := machine.NewCoordinator()
	require.True(t, coord.Claim("conn-a"))
	h := gateRouter(coord)

	cases := []struct {
		name   string
		method string
		path   string
	}{
		{"import", http.MethodPost, "/api/import/products"},
		{"coins", http.MethodPut, "/api/coins/5"},
		{"order history", http.MethodGet, "/api/orders"},
		{"health", http.MethodGet, "/healthz"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, h, tc.method, tc.path, "")
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestMachineGate_StaleConnectionIDRejected(t *testing.T) {
	coord := machine.NewCoordinator()
	require.True(t, coord.Claim("conn-a"))
	require.True(t, coord.Release("conn-a"))
	require.True(t, coord.Claim("conn-b"))
	h := gateRouter(coord)

	// conn-a held the machine once but lost it; its id no longer passes
	rec := doRequest(t, h, http.MethodPost, "/api/orders", "conn-a")
	assert.Equal(t, http.StatusLocked, rec.Code)
}
