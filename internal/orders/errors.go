package orders

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrConcurrencyConflict     = errors.New("order was modified concurrently")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrCustomerNameRequired    = errors.New("customer name is required")
	ErrNoItems                 = errors.New("order must contain at least one item")
	ErrInvalidQuantity         = errors.New("item quantity must be positive")
	ErrInvalidPaymentMethod    = errors.New("unknown payment method")
	ErrInvalidPaymentCoins     = errors.New("payment coins must have positive nominal and quantity")
)

// StockUnavailableError rejects the whole order: a referenced product
// is missing, disabled, or short of stock.
type StockUnavailableError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
	Missing     bool
}

func (e *StockUnavailableError) Error() string {
	if e.Missing {
		return fmt.Sprintf("product %s not found", e.ProductID)
	}
	return fmt.Sprintf("product %s is not available in the requested quantity: %d requested, %d in stock",
		e.ProductName, e.Requested, e.Available)
}
