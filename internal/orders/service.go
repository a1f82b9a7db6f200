package orders

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vendio/beverage-machine/internal/catalog"
	"github.com/vendio/beverage-machine/internal/coins"
)

// Repository is the transactional storage surface of the commit
// workflow. Inside WithTx every product and coin row touched must stay
// locked until commit, so concurrent purchases cannot over-allocate
// stock or coins.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	ProductsForUpdate(ctx context.Context, ids []string) (map[string]catalog.Product, error)
	AdjustStock(ctx context.Context, productID string, delta int) error
	CoinsForUpdate(ctx context.Context) ([]coins.Denomination, error)
	// CreditCoin adds inserted coins; unknown nominals are ignored, the
	// machine has no slot to put them in.
	CreditCoin(ctx context.Context, nominal, qty int) error
	DebitCoin(ctx context.Context, nominal, qty int) error

	InsertOrder(ctx context.Context, o Order) error
	GetOrder(ctx context.Context, id string) (Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	// UpdateStatusCAS flips the status only if it still equals from;
	// reports whether a row changed.
	UpdateStatusCAS(ctx context.Context, id string, from, to Status) (bool, error)
	DeleteOrder(ctx context.Context, id string) error
	RestoreStock(ctx context.Context, productName, brandName string, qty int) error
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

type ItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderInput struct {
	CustomerName  string            `json:"customerName"`
	CustomerEmail string            `json:"customerEmail"`
	CustomerPhone string            `json:"customerPhone"`
	PaymentMethod PaymentMethod     `json:"paymentMethod"`
	Items         []ItemInput       `json:"orderItems"`
	PaymentCoins  []coins.CoinCount `json:"paymentCoins"`
}

func (in CreateOrderInput) validate() error {
	if in.CustomerName == "" {
		return ErrCustomerNameRequired
	}
	if !in.PaymentMethod.Valid() {
		return ErrInvalidPaymentMethod
	}
	if len(in.Items) == 0 {
		return ErrNoItems
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	for _, c := range in.PaymentCoins {
		if c.Denomination <= 0 || c.Quantity <= 0 {
			return ErrInvalidPaymentCoins
		}
	}
	return nil
}

// Create runs the whole purchase as one transaction: validate stock,
// snapshot lines, persist the order, decrement stock, credit the
// inserted coins, then re-check that change is dispensable from the
// post-credit inventory and debit it. Change feasibility is recomputed
// here no matter what a prior validate-payment call returned, because
// coin stock may have moved in between. Any failure rolls everything
// back.
func (s *Service) Create(ctx context.Context, in CreateOrderInput) (Order, error) {
	if err := in.validate(); err != nil {
		return Order{}, err
	}

	paid := coins.Sum(in.PaymentCoins)
	now := s.now().UTC()
	var result Order

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		ids := make([]string, 0, len(in.Items))
		for _, it := range in.Items {
			ids = append(ids, it.ProductID)
		}
		products, err := s.repo.ProductsForUpdate(txCtx, ids)
		if err != nil {
			return err
		}

		lines := make([]Line, 0, len(in.Items))
		total := 0
		for _, it := range in.Items {
			p, ok := products[it.ProductID]
			if !ok {
				return &StockUnavailableError{ProductID: it.ProductID, Requested: it.Quantity, Missing: true}
			}
			if !p.IsAvailable || p.StockQuantity < it.Quantity {
				return &StockUnavailableError{
					ProductID:   p.ID,
					ProductName: p.Name,
					Requested:   it.Quantity,
					Available:   p.StockQuantity,
				}
			}
			line := Line{
				ID:          uuid.NewString(),
				ProductName: p.Name,
				BrandName:   p.BrandName,
				Quantity:    it.Quantity,
				UnitPrice:   p.Price,
				TotalPrice:  p.Price * it.Quantity,
			}
			total += line.TotalPrice
			lines = append(lines, line)
		}

		if paid < total {
			return &coins.InsufficientFundsError{Due: total, Paid: paid}
		}

		order := Order{
			ID:            uuid.NewString(),
			CustomerName:  in.CustomerName,
			CustomerEmail: in.CustomerEmail,
			CustomerPhone: in.CustomerPhone,
			TotalAmount:   total,
			Status:        StatusPending,
			PaymentMethod: in.PaymentMethod,
			CreatedAt:     now,
			UpdatedAt:     now,
			Lines:         lines,
		}
		if err := s.repo.InsertOrder(txCtx, order); err != nil {
			return err
		}

		for _, it := range in.Items {
			if err := s.repo.AdjustStock(txCtx, it.ProductID, -it.Quantity); err != nil {
				return err
			}
		}

		for _, c := range in.PaymentCoins {
			if err := s.repo.CreditCoin(txCtx, c.Denomination, c.Quantity); err != nil {
				return err
			}
		}

		inventory, err := s.repo.CoinsForUpdate(txCtx)
		if err != nil {
			return err
		}
		breakdown, err := coins.MakeChange(total, paid, inventory)
		if err != nil {
			return err
		}
		for _, c := range breakdown {
			if err := s.repo.DebitCoin(txCtx, c.Denomination, c.Quantity); err != nil {
				return err
			}
		}

		result = order
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.repo.ListOrders(ctx)
}

// UpdateStatus applies a validated transition with a compare-and-swap
// on the previously read status: a concurrent writer surfaces as
// ErrConcurrencyConflict, not as silent last-write-wins.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status) (Order, error) {
	if !to.Valid() {
		return Order{}, ErrInvalidStatusTransition
	}
	current, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(current.Status, to) {
		return Order{}, ErrInvalidStatusTransition
	}

	changed, err := s.repo.UpdateStatusCAS(ctx, id, current.Status, to)
	if err != nil {
		return Order{}, err
	}
	if !changed {
		return Order{}, ErrConcurrencyConflict
	}
	return s.repo.GetOrder(ctx, id)
}

// Delete removes an order and puts its quantities back on the shelf.
// Restocking matches by the line's name/brand snapshot; products
// deleted since the purchase are simply skipped.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrder(txCtx, id)
		if err != nil {
			return err
		}
		for _, line := range order.Lines {
			if err := s.repo.RestoreStock(txCtx, line.ProductName, line.BrandName, line.Quantity); err != nil {
				return err
			}
		}
		return s.repo.DeleteOrder(txCtx, id)
	})
}
