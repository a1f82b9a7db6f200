package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vendio/beverage-machine/internal/catalog"
	"github.com/vendio/beverage-machine/internal/coins"
	"github.com/vendio/beverage-machine/internal/orders"
)

const (
	codeMachineOccupied     = "MACHINE_OCCUPIED"
	codeInsufficientFunds   = "INSUFFICIENT_FUNDS"
	codeChangeUnavailable   = "CHANGE_UNAVAILABLE"
	codeStockUnavailable    = "STOCK_UNAVAILABLE"
	codeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	codeValidationError     = "VALIDATION_ERROR"
	codeNotFound            = "NOT_FOUND"
	codeInternalError       = "INTERNAL_ERROR"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeDomainError maps workflow errors onto the API's error taxonomy.
// Anything unrecognized is an internal failure and leaks no detail.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		fundsErr  *coins.InsufficientFundsError
		changeErr *coins.ChangeUnavailableError
		stockErr  *orders.StockUnavailableError
		rowErr    *catalog.RowError
	)
	switch {
	case errors.As(err, &fundsErr):
		writeError(w, http.StatusBadRequest, codeInsufficientFunds, fundsErr.Error())
	case errors.As(err, &changeErr):
		writeError(w, http.StatusConflict, codeChangeUnavailable, changeErr.Error())
	case errors.As(err, &stockErr):
		writeError(w, http.StatusConflict, codeStockUnavailable, stockErr.Error())
	case errors.As(err, &rowErr):
		writeError(w, http.StatusBadRequest, codeValidationError, rowErr.Error())
	case errors.Is(err, orders.ErrOrderNotFound), errors.Is(err, catalog.ErrProductNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, orders.ErrConcurrencyConflict):
		writeError(w, http.StatusConflict, codeConcurrencyConflict, err.Error())
	case errors.Is(err, catalog.ErrBrandNotFound),
		errors.Is(err, orders.ErrInvalidStatusTransition),
		errors.Is(err, orders.ErrCustomerNameRequired),
		errors.Is(err, orders.ErrNoItems),
		errors.Is(err, orders.ErrInvalidQuantity),
		errors.Is(err, orders.ErrInvalidPaymentMethod),
		errors.Is(err, orders.ErrInvalidPaymentCoins):
		writeError(w, http.StatusBadRequest, codeValidationError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
