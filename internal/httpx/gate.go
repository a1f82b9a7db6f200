package httpx

import (
	"net/http"
	"strings"

	"github.com/vendio/beverage-machine/internal/machine"
)

// HeaderConnectionID carries the websocket connection id a client
// obtained from the notification channel.
const HeaderConnectionID = "X-Connection-Id"

// Administrative and read-only surfaces stay reachable while a customer
// holds the machine.
func gateExempt(r *http.Request) bool {
	path := strings.ToLower(r.URL.Path)
	if !strings.HasPrefix(path, "/api") {
		return true
	}
	if strings.HasPrefix(path, "/api/import") || strings.HasPrefix(path, "/api/coins") {
		return true
	}
	// order listing and history are read-only; order creation and
	// mutation under the same prefix stay gated
	if strings.HasPrefix(path, "/api/orders") && r.Method == http.MethodGet {
		return true
	}
	return false
}

// MachineGate rejects requests to customer-facing endpoints unless the
// caller is the current machine holder (or the machine is free). It
// never mutates coordinator state.
func MachineGate(coord *machine.Coordinator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gateExempt(r) {
				next.ServeHTTP(w, r)
				return
			}

			connID := r.Header.Get(HeaderConnectionID)
			if connID == "" {
				if coord.IsOccupied() {
					writeLocked(w)
					return
				}
			} else if coord.IsOccupied() && !coord.IsActiveHolder(connID) {
				writeLocked(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeLocked(w http.ResponseWriter) {
	writeJSON(w, http.StatusLocked, errorResponse{
		Error:   "Machine is currently occupied",
		Message: "The machine is in use by another customer, please wait",
		Code:    codeMachineOccupied,
	})
}
