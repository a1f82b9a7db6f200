package coins

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Denomination is one coin slot of the machine, keyed by nominal.
type Denomination struct {
	ID        string    `json:"id"`
	Nominal   int       `json:"nominal"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CoinCount is a denomination/quantity pair as it appears in payment
// and change breakdowns.
type CoinCount struct {
	Denomination int `json:"denomination"`
	Quantity     int `json:"quantity"`
}

// Sum is the total value of a breakdown.
func Sum(cc []CoinCount) int {
	total := 0
	for _, c := range cc {
		total += c.Denomination * c.Quantity
	}
	return total
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) List(ctx context.Context) ([]Denomination, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, nominal, count, created_at, updated_at
	                              FROM coins ORDER BY nominal DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Denomination
	for rows.Next() {
		var d Denomination
		if err := rows.Scan(&d.ID, &d.Nominal, &d.Count, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetCount upserts the stock level for one nominal.
func (r *Repo) SetCount(ctx context.Context, nominal, count int) (Denomination, error) {
	var d Denomination
	err := r.DB.QueryRow(ctx, `
		INSERT INTO coins (nominal, count)
		VALUES ($1, $2)
		ON CONFLICT (nominal) DO UPDATE SET count = $2, updated_at = now()
		RETURNING id, nominal, count, created_at, updated_at`,
		nominal, count,
	).Scan(&d.ID, &d.Nominal, &d.Count, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Denomination{}, err
	}
	return d, nil
}

// Restock adds delta coins to one nominal.
func (r *Repo) Restock(ctx context.Context, nominal, delta int) (Denomination, error) {
	var d Denomination
	err := r.DB.QueryRow(ctx, `
		UPDATE coins SET count = count + $2, updated_at = now()
		WHERE nominal = $1
		RETURNING id, nominal, count, created_at, updated_at`,
		nominal, delta,
	).Scan(&d.ID, &d.Nominal, &d.Count, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.SetCount(ctx, nominal, delta)
	}
	if err != nil {
		return Denomination{}, err
	}
	return d, nil
}
