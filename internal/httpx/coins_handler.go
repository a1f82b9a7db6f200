package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vendio/beverage-machine/internal/coins"
)

// CoinsHandler manages the machine's coin inventory. It sits on the
// gate's allow list so an operator can refill while a customer session
// is active.
type CoinsHandler struct {
	Repo *coins.Repo
}

func (h *CoinsHandler) Register(r *chi.Mux) {
	r.Route("/api/coins", func(r chi.Router) {
		r.Get("/", h.list)
		r.Put("/{nominal}", h.setCount)
		r.Post("/{nominal}/restock", h.restock)
	})
}

func (h *CoinsHandler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.Repo.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if out == nil {
		out = []coins.Denomination{}
	}
	writeJSON(w, http.StatusOK, out)
}

func parseNominal(r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "nominal"))
	return n, err == nil && n > 0
}

type setCountRequest struct {
	Count int `json:"count"`
}

func (h *CoinsHandler) setCount(w http.ResponseWriter, r *http.Request) {
	nominal, ok := parseNominal(r)
	if !ok {
		writeError(w, http.StatusBadRequest, codeValidationError, "nominal must be a positive integer")
		return
	}
	var in setCountRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Count < 0 {
		writeError(w, http.StatusBadRequest, codeValidationError, "count must be a non-negative integer")
		return
	}

	d, err := h.Repo.SetCount(r.Context(), nominal, in.Count)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type restockRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CoinsHandler) restock(w http.ResponseWriter, r *http.Request) {
	nominal, ok := parseNominal(r)
	if !ok {
		writeError(w, http.StatusBadRequest, codeValidationError, "nominal must be a positive integer")
		return
	}
	var in restockRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, codeValidationError, "quantity must be a positive integer")
		return
	}

	d, err := h.Repo.Restock(r.Context(), nominal, in.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
