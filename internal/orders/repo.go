package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendio/beverage-machine/internal/catalog"
	"github.com/vendio/beverage-machine/internal/coins"
)

// PG implements Repository on Postgres. Transactions travel in the
// context so every method works both inside and outside WithTx.
type PG struct{ Pool *pgxpool.Pool }

type txKey struct{}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *PG) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.Pool
}

func (r *PG) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// ProductsForUpdate loads and row-locks the referenced products for the
// duration of the surrounding transaction.
func (r *PG) ProductsForUpdate(ctx context.Context, ids []string) (map[string]catalog.Product, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT p.id, p.name, p.brand_id, b.name, p.price, COALESCE(p.image_url, ''),
		       p.is_available, p.stock_quantity, p.created_at, p.updated_at
		FROM products p JOIN brands b ON b.id = p.brand_id
		WHERE p.id = ANY($1)
		FOR UPDATE OF p`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]catalog.Product, len(ids))
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.BrandID, &p.BrandName, &p.Price, &p.ImageURL,
			&p.IsAvailable, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *PG) AdjustStock(ctx context.Context, productID string, delta int) error {
	ct, err := r.q(ctx).Exec(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $2,
		    is_available = stock_quantity + $2 > 0,
		    updated_at = now()
		WHERE id = $1`, productID, delta)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("adjust stock: product %s not found", productID)
	}
	return nil
}

func (r *PG) CoinsForUpdate(ctx context.Context) ([]coins.Denomination, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT id, nominal, count, created_at, updated_at
		FROM coins ORDER BY nominal DESC
		FOR UPDATE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []coins.Denomination
	for rows.Next() {
		var d coins.Denomination
		if err := rows.Scan(&d.ID, &d.Nominal, &d.Count, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PG) CreditCoin(ctx context.Context, nominal, qty int) error {
	// No row means the machine has no slot for this nominal; the coin
	// falls through to the cash box and is not tracked.
	_, err := r.q(ctx).Exec(ctx, `
		UPDATE coins SET count = count + $2, updated_at = now()
		WHERE nominal = $1`, nominal, qty)
	return err
}

func (r *PG) DebitCoin(ctx context.Context, nominal, qty int) error {
	ct, err := r.q(ctx).Exec(ctx, `
		UPDATE coins SET count = count - $2, updated_at = now()
		WHERE nominal = $1 AND count >= $2`, nominal, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("debit coin: %d x%d exceeds stock", nominal, qty)
	}
	return nil
}

func (r *PG) InsertOrder(ctx context.Context, o Order) error {
	q := r.q(ctx)
	_, err := q.Exec(ctx, `
		INSERT INTO orders (id, customer_name, customer_email, customer_phone,
			total_amount, status, payment_method, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9)`,
		o.ID, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.TotalAmount, o.Status, o.PaymentMethod, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}
	for _, line := range o.Lines {
		if _, err := q.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_name, brand_name, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			line.ID, o.ID, line.ProductName, line.BrandName, line.Quantity, line.UnitPrice, line.TotalPrice); err != nil {
			return err
		}
	}
	return nil
}

func (r *PG) GetOrder(ctx context.Context, id string) (Order, error) {
	q := r.q(ctx)
	var o Order
	err := q.QueryRow(ctx, `
		SELECT id, customer_name, COALESCE(customer_email, ''), COALESCE(customer_phone, ''),
		       total_amount, status, payment_method, created_at, updated_at
		FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
			&o.TotalAmount, &o.Status, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}

	lines, err := r.linesFor(ctx, []string{id})
	if err != nil {
		return Order{}, err
	}
	o.Lines = lines[id]
	return o, nil
}

func (r *PG) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT id, customer_name, COALESCE(customer_email, ''), COALESCE(customer_phone, ''),
		       total_amount, status, payment_method, created_at, updated_at
		FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	var ids []string
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
			&o.TotalAmount, &o.Status, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Lines = lines[out[i].ID]
	}
	return out, nil
}

func (r *PG) linesFor(ctx context.Context, orderIDs []string) (map[string][]Line, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	rows, err := r.q(ctx).Query(ctx, `
		SELECT id, order_id, product_name, brand_name, quantity, unit_price, total_price
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY product_name`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]Line)
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductName, &l.BrandName, &l.Quantity, &l.UnitPrice, &l.TotalPrice); err != nil {
			return nil, err
		}
		out[l.OrderID] = append(out[l.OrderID], l)
	}
	return out, rows.Err()
}

func (r *PG) UpdateStatusCAS(ctx context.Context, id string, from, to Status) (bool, error) {
	ct, err := r.q(ctx).Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *PG) DeleteOrder(ctx context.Context, id string) error {
	// order_items go with the order via ON DELETE CASCADE
	ct, err := r.q(ctx).Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *PG) RestoreStock(ctx context.Context, productName, brandName string, qty int) error {
	_, err := r.q(ctx).Exec(ctx, `
		UPDATE products p
		SET stock_quantity = p.stock_quantity + $3,
		    is_available = true,
		    updated_at = now()
		FROM brands b
		WHERE b.id = p.brand_id AND p.name = $1 AND b.name = $2`,
		productName, brandName, qty)
	return err
}
