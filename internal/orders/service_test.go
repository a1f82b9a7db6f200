package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendio/beverage-machine/internal/catalog"
	"github.com/vendio/beverage-machine/internal/coins"
)

type fakeRepo struct {
	products map[string]catalog.Product
	coins    map[int]int
	orders   map[string]Order

	failCAS bool
}

func newFakeRepo(products []catalog.Product, coinCounts map[int]int) *fakeRepo {
	r := &fakeRepo{
		products: make(map[string]catalog.Product),
		coins:    make(map[int]int),
		orders:   make(map[string]Order),
	}
	for _, p := range products {
		r.products[p.ID] = p
	}
	for nominal, count := range coinCounts {
		r.coins[nominal] = count
	}
	return r
}

// WithTx snapshots state and restores it when fn fails, mirroring a
// database rollback.
func (r *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	products := make(map[string]catalog.Product, len(r.products))
	for k, v := range r.products {
		products[k] = v
	}
	coinCounts := make(map[int]int, len(r.coins))
	for k, v := range r.coins {
		coinCounts[k] = v
	}
	orders := make(map[string]Order, len(r.orders))
	for k, v := range r.orders {
		orders[k] = v
	}

	if err := fn(ctx); err != nil {
		r.products, r.coins, r.orders = products, coinCounts, orders
		return err
	}
	return nil
}

func (r *fakeRepo) ProductsForUpdate(ctx context.Context, ids []string) (map[string]catalog.Product, error) {
	out := make(map[string]catalog.Product)
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r *fakeRepo) AdjustStock(ctx context.Context, productID string, delta int) error {
	p := r.products[productID]
	p.StockQuantity += delta
	p.IsAvailable = p.StockQuantity > 0
	r.products[productID] = p
	return nil
}

func (r *fakeRepo) CoinsForUpdate(ctx context.Context) ([]coins.Denomination, error) {
	out := make([]coins.Denomination, 0, len(r.coins))
	for nominal, count := range r.coins {
		out = append(out, coins.Denomination{Nominal: nominal, Count: count})
	}
	return out, nil
}

func (r *fakeRepo) CreditCoin(ctx context.Context, nominal, qty int) error {
	if _, ok := r.coins[nominal]; ok {
		r.coins[nominal] += qty
	}
	return nil
}

func (r *fakeRepo) DebitCoin(ctx context.Context, nominal, qty int) error {
	r.coins[nominal] -= qty
	return nil
}

func (r *fakeRepo) InsertOrder(ctx context.Context, o Order) error {
	r.orders[o.ID] = o
	return nil
}

func (r *fakeRepo) GetOrder(ctx context.Context, id string) (Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (r *fakeRepo) ListOrders(ctx context.Context) ([]Order, error) {
	out := make([]Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o)
	}
	return out, nil
}

func (r *fakeRepo) UpdateStatusCAS(ctx context.Context, id string, from, to Status) (bool, error) {
	if r.failCAS {
		return false, nil
	}
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	r.orders[id] = o
	return true, nil
}

func (r *fakeRepo) DeleteOrder(ctx context.Context, id string) error {
	if _, ok := r.orders[id]; !ok {
		return ErrOrderNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *fakeRepo) RestoreStock(ctx context.Context, productName, brandName string, qty int) error {
	for id, p := range r.products {
		if p.Name == productName && p.BrandName == brandName {
			p.StockQuantity += qty
			p.IsAvailable = true
			r.products[id] = p
		}
	}
	return nil
}

func cola(stock int) catalog.Product {
	return catalog.Product{
		ID:            "p-cola",
		Name:          "Cola Classic",
		BrandName:     "FizzCo",
		Price:         100,
		IsAvailable:   stock > 0,
		StockQuantity: stock,
	}
}

func createInput(items []ItemInput, payment []coins.CoinCount) CreateOrderInput {
	return CreateOrderInput{
		CustomerName:  "Alice",
		PaymentMethod: PaymentCash,
		Items:         items,
		PaymentCoins:  payment,
	}
}

func TestService_Create(t *testing.T) {
	t.Run("commits order, stock and coin movements", func(t *testing.T) {
		repo := newFakeRepo([]catalog.Product{cola(3)}, map[int]int{10: 5, 5: 10, 2: 0, 1: 0})
		svc := NewService(repo)
		svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

		// due 100, paid 110 in ten-coins: change is one ten-coin back
		order, err := svc.Create(context.Background(), createInput(
			[]ItemInput{{ProductID: "p-cola", Quantity: 1}},
			[]coins.CoinCount{{Denomination: 10, Quantity: 11}},
		))
		require.NoError(t, err)

		assert.Equal(t, StatusPending, order.Status)
		assert.Equal(t, 100, order.TotalAmount)
		require.Len(t, order.Lines, 1)
		assert.Equal(t, Line{
			ID:          order.Lines[0].ID,
			ProductName: "Cola Classic",
			BrandName:   "FizzCo",
			Quantity:    1,
			UnitPrice:   100,
			TotalPrice:  100,
		}, order.Lines[0])

		assert.Equal(t, 2, repo.products["p-cola"].StockQuantity)
		// 5 + 11 inserted - 1 dispensed as change
		assert.Equal(t, 15, repo.coins[10])
		assert.Len(t, repo.orders, 1)
	})

	t.Run("stock drops to zero flips availability", func(t *testing.T) {
		repo := newFakeRepo([]catalog.Product{cola(2)}, map[int]int{10: 5})
		svc := NewService(repo)

		_, err := svc.Create(context.Background(), createInput(
			[]ItemInput{{ProductID: "p-cola", Quantity: 2}},
			[]coins.CoinCount{{Denomination: 10, Quantity: 20}},
		))
		require.NoError(t, err)
		assert.False(t, repo.products["p-cola"].IsAvailable)
	})

	t.Run("rejects quantity above stock and leaves stock untouched", func(t *testing.T) {
		repo := newFakeRepo([]catalog.Product{cola(3)}, map[int]int{10: 5})
		svc := NewService(repo)

		_, err := svc.Create(context.Background(), createInput(
			[]ItemInput{{ProductID: "p-cola", Quantity: 5}},
			[]coins.CoinCount{{Denomination: 10, Quantity: 50}},
		))

		var serr *StockUnavailableError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, 5, serr.Requested)
		assert.Equal(t, 3, serr.Available)
		assert.Equal(t, 3, repo.products["p-cola"].StockQuantity)
		assert.Empty(t, repo.orders)
	})

	t.Run("rejects unknown product", func(t *testing.T) {
		repo := newFakeRepo([]catalog.Product{cola(3)}, map[int]int{10: 5})
		svc := NewService(repo)

		_, err := svc.Create(context.Background(), createInput(
			[]ItemInput{{ProductID: "p-ghost", Quantity: 1}},
			[]coins.CoinCount{{Denomination: 10, Quantity: 10}},
		))

		var serr *StockUnavailableError
		require.ErrorAs(t, err, &serr)
		assert.True(t, serr.Missing)
	})

	t.Run("rejects disabled product", func(t *testing.T) {
		p := cola(3)
		p.IsAvailable = false
		repo := newFakeRepo([]catalog.Product{p}, map[int]int{10: 5})
		svc := NewService(repo)

		_, err := svc.Create(context.Background(), createInput(
			[]ItemInput{{ProductID: "p-cola", Quantity: 1}},
			[]coins.CoinCount{{Denomination: 10, Quantity: 10}},
		))

		var serr *StockUnavailableError
		require.ErrorAs(t, err, &serr)
	})

	t.Run("rejects underpayment with exact shortfall", func(t *testing.T) {
		repo := newFakeRepo([]catalog.Product{cola(3)}, map[int]int{10: 5})
		svc := NewService(repo)

		_, err := svc.Create(context.Background(), createInput(
			[]ItemInput{{ProductID: "p-cola", Quantity: 1}},
			[]coins.CoinCount{{Denomination: 10, Quantity: 4}},
		))

		var ferr *coins.InsufficientFundsError
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, 60, ferr.Shortfall())
		assert.Equal(t, 3, repo.products["p-cola"].StockQuantity)
	})

	t.Run("rolls everything back when change is not dispensable", func(t *testing.T) {
		// paid 103 against 100; the machine holds one two-coin, so a
		// remainder of 1 cannot be covered even after crediting the
		// customer's coins
		repo := newFakeRepo([]catalog.Product{cola(3)}, map[int]int{10: 0, 5: 0, 2: 1, 1: 0})
		svc := NewService(repo)

		// bills fall into the untracked cash box, so the credited
		// payment does not improve the coin inventory
		_, err := svc.Create(context.Background(), createInput(
			[]ItemInput{{ProductID: "p-cola", Quantity: 1}},
			[]coins.CoinCount{{Denomination: 100, Quantity: 1}, {Denomination: 3, Quantity: 1}},
		))

		var cerr *coins.ChangeUnavailableError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, 3, cerr.Change)

		// the failed commit left no trace: no order, no stock change,
		// no credited coins
		assert.Empty(t, repo.orders)
		assert.Equal(t, 3, repo.products["p-cola"].StockQuantity)
		assert.Equal(t, map[int]int{10: 0, 5: 0, 2: 1, 1: 0}, repo.coins)
	})

	t.Run("exact payment dispenses no change", func(t *testing.T) {
		repo := newFakeRepo([]catalog.Product{cola(3)}, map[int]int{10: 5})
		svc := NewService(repo)

		_, err := svc.Create(context.Background(), createInput(
			[]ItemInput{{ProductID: "p-cola", Quantity: 1}},
			[]coins.CoinCount{{Denomination: 10, Quantity: 10}},
		))
		require.NoError(t, err)
		assert.Equal(t, 15, repo.coins[10], "all inserted coins stay in the machine")
	})

	t.Run("change is drawn from the post-credit inventory", func(t *testing.T) {
		// the machine alone cannot change 10, but the customer's own
		// ten-coin makes it feasible once credited
		repo := newFakeRepo([]catalog.Product{cola(3)}, map[int]int{10: 0, 5: 1, 1: 3})
		svc := NewService(repo)

		_, err := svc.Create(context.Background(), createInput(
			[]ItemInput{{ProductID: "p-cola", Quantity: 1}},
			[]coins.CoinCount{{Denomination: 10, Quantity: 11}},
		))
		require.NoError(t, err)
		assert.Equal(t, 10, repo.coins[10], "11 credited, 1 returned as change")
		assert.Equal(t, 1, repo.coins[5])
	})

	t.Run("validation failures never reach storage", func(t *testing.T) {
		repo := newFakeRepo([]catalog.Product{cola(3)}, map[int]int{10: 5})
		svc := NewService(repo)
		item := []ItemInput{{ProductID: "p-cola", Quantity: 1}}
		pay := []coins.CoinCount{{Denomination: 10, Quantity: 10}}

		cases := []struct {
			name string
			in   CreateOrderInput
			want error
		}{
			{"missing customer name", CreateOrderInput{PaymentMethod: PaymentCash, Items: item, PaymentCoins: pay}, ErrCustomerNameRequired},
			{"no items", createInput(nil, pay), ErrNoItems},
			{"zero quantity", createInput([]ItemInput{{ProductID: "p-cola", Quantity: 0}}, pay), ErrInvalidQuantity},
			{"bad payment method", CreateOrderInput{CustomerName: "Alice", PaymentMethod: "barter", Items: item, PaymentCoins: pay}, ErrInvalidPaymentMethod},
			{"bad coin entry", createInput(item, []coins.CoinCount{{Denomination: -5, Quantity: 1}}), ErrInvalidPaymentCoins},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.Create(context.Background(), tc.in)
				assert.ErrorIs(t, err, tc.want)
			})
		}
		assert.Empty(t, repo.orders)
	})
}

func seedOrder(repo *fakeRepo, status Status) Order {
	o := Order{
		ID:           "o-1",
		CustomerName: "Alice",
		TotalAmount:  100,
		Status:       status,
		Lines: []Line{{
			ID: "l-1", OrderID: "o-1", ProductName: "Cola Classic", BrandName: "FizzCo",
			Quantity: 1, UnitPrice: 100, TotalPrice: 100,
		}},
	}
	repo.orders[o.ID] = o
	return o
}

func TestService_UpdateStatus(t *testing.T) {
	t.Run("valid transition", func(t *testing.T) {
		repo := newFakeRepo(nil, nil)
		seedOrder(repo, StatusPending)
		svc := NewService(repo)

		o, err := svc.UpdateStatus(context.Background(), "o-1", StatusPaid)
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, o.Status)
	})

	t.Run("invalid transition", func(t *testing.T) {
		repo := newFakeRepo(nil, nil)
		seedOrder(repo, StatusCompleted)
		svc := NewService(repo)

		_, err := svc.UpdateStatus(context.Background(), "o-1", StatusPending)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})

	t.Run("unknown status", func(t *testing.T) {
		repo := newFakeRepo(nil, nil)
		seedOrder(repo, StatusPending)
		svc := NewService(repo)

		_, err := svc.UpdateStatus(context.Background(), "o-1", "Shipped")
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})

	t.Run("concurrent writer surfaces as conflict", func(t *testing.T) {
		repo := newFakeRepo(nil, nil)
		seedOrder(repo, StatusPending)
		repo.failCAS = true
		svc := NewService(repo)

		_, err := svc.UpdateStatus(context.Background(), "o-1", StatusPaid)
		assert.ErrorIs(t, err, ErrConcurrencyConflict)
	})

	t.Run("missing order", func(t *testing.T) {
		repo := newFakeRepo(nil, nil)
		svc := NewService(repo)

		_, err := svc.UpdateStatus(context.Background(), "o-missing", StatusPaid)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestService_DeleteRestoresStock(t *testing.T) {
	repo := newFakeRepo([]catalog.Product{cola(0)}, nil)
	seedOrder(repo, StatusCancelled)
	svc := NewService(repo)

	require.NoError(t, svc.Delete(context.Background(), "o-1"))

	assert.Empty(t, repo.orders)
	assert.Equal(t, 1, repo.products["p-cola"].StockQuantity)
	assert.True(t, repo.products["p-cola"].IsAvailable)
}
