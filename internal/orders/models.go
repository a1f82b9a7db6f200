package orders

import "time"

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentMobile PaymentMethod = "mobile"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentMobile:
		return true
	}
	return false
}

// Order is the aggregate root; its total and lines never change after
// creation, only the status does.
type Order struct {
	ID            string        `json:"id"`
	CustomerName  string        `json:"customerName"`
	CustomerEmail string        `json:"customerEmail,omitempty"`
	CustomerPhone string        `json:"customerPhone,omitempty"`
	TotalAmount   int           `json:"totalAmount"`
	Status        Status        `json:"status"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	Lines         []Line        `json:"orderItems"`
}

// Line snapshots product name, brand and price at purchase time, so a
// later catalog edit cannot rewrite order history. It deliberately
// carries no product reference.
type Line struct {
	ID          string `json:"id"`
	OrderID     string `json:"-"`
	ProductName string `json:"productName"`
	BrandName   string `json:"brandName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int    `json:"unitPrice"`
	TotalPrice  int    `json:"totalPrice"`
}
