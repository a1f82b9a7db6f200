package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const productCols = `p.id, p.name, p.brand_id, b.name, p.price, COALESCE(p.image_url, ''),
	p.is_available, p.stock_quantity, p.created_at, p.updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.BrandID, &p.BrandName, &p.Price, &p.ImageURL,
		&p.IsAvailable, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repo) ListProducts(ctx context.Context, f Filter) ([]Product, error) {
	q := `SELECT ` + productCols + ` FROM products p JOIN brands b ON b.id = p.brand_id`
	var (
		conds []string
		args  []any
	)
	if f.Brand != "" && f.Brand != "all" {
		args = append(args, f.Brand)
		conds = append(conds, fmt.Sprintf("b.name = $%d", len(args)))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		conds = append(conds, fmt.Sprintf("p.price <= $%d", len(args)))
	}
	if f.Available != nil {
		args = append(args, *f.Available)
		conds = append(conds, fmt.Sprintf("p.is_available = $%d", len(args)))
	}
	for i, c := range conds {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	q += " ORDER BY p.name"

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+productCols+`
		FROM products p JOIN brands b ON b.id = p.brand_id WHERE p.id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

// ListBrandNames returns brands that still have an available product.
func (r *Repo) ListBrandNames(ctx context.Context) ([]string, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT DISTINCT b.name FROM brands b
		JOIN products p ON p.brand_id = b.id AND p.is_available
		ORDER BY b.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

type CreateProductInput struct {
	Name          string
	Brand         string
	Price         int
	ImageURL      string
	StockQuantity int
}

// CreateProduct requires the brand to exist already; import is the path
// that creates brands on the fly.
func (r *Repo) CreateProduct(ctx context.Context, in CreateProductInput) (Product, error) {
	var brandID string
	err := r.DB.QueryRow(ctx, `SELECT id FROM brands WHERE name = $1`, in.Brand).Scan(&brandID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrBrandNotFound
	}
	if err != nil {
		return Product{}, err
	}

	id := uuid.NewString()
	_, err = r.DB.Exec(ctx, `
		INSERT INTO products (id, name, brand_id, price, image_url, stock_quantity, is_available)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $6 > 0)`,
		id, in.Name, brandID, in.Price, in.ImageURL, in.StockQuantity)
	if err != nil {
		return Product{}, err
	}
	return r.GetProduct(ctx, id)
}

type UpdateProductInput struct {
	Name          *string
	Price         *int
	ImageURL      *string
	StockQuantity *int
	IsAvailable   *bool
}

func (r *Repo) UpdateProduct(ctx context.Context, id string, in UpdateProductInput) (Product, error) {
	current, err := r.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if in.Name != nil {
		current.Name = *in.Name
	}
	if in.Price != nil {
		current.Price = *in.Price
	}
	if in.ImageURL != nil {
		current.ImageURL = *in.ImageURL
	}
	if in.StockQuantity != nil {
		current.StockQuantity = *in.StockQuantity
		current.IsAvailable = *in.StockQuantity > 0
	}
	if in.IsAvailable != nil {
		current.IsAvailable = *in.IsAvailable
	}

	ct, err := r.DB.Exec(ctx, `
		UPDATE products SET name = $2, price = $3, image_url = NULLIF($4, ''),
			stock_quantity = $5, is_available = $6, updated_at = now()
		WHERE id = $1`,
		id, current.Name, current.Price, current.ImageURL, current.StockQuantity, current.IsAvailable)
	if err != nil {
		return Product{}, err
	}
	if ct.RowsAffected() == 0 {
		return Product{}, ErrProductNotFound
	}
	return r.GetProduct(ctx, id)
}

func (r *Repo) DeleteProduct(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// ImportProducts creates every row in one transaction, creating unknown
// brands as it goes. A failing row aborts the whole import.
func (r *Repo) ImportProducts(ctx context.Context, rows []ImportRow) ([]Product, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	brandIDs := map[string]string{}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		brandID, ok := brandIDs[row.BrandName]
		if !ok {
			err := tx.QueryRow(ctx, `
				INSERT INTO brands (id, name, description)
				VALUES ($1, $2, NULLIF($3, ''))
				ON CONFLICT (name) DO UPDATE SET updated_at = now()
				RETURNING id`,
				uuid.NewString(), row.BrandName, row.Description,
			).Scan(&brandID)
			if err != nil {
				return nil, err
			}
			brandIDs[row.BrandName] = brandID
		}

		id := uuid.NewString()
		if _, err := tx.Exec(ctx, `
			INSERT INTO products (id, name, brand_id, price, image_url, stock_quantity, is_available)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $6 > 0)`,
			id, row.Name, brandID, row.Price, row.ImageURL, row.StockQuantity); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		p, err := r.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
