package httpx

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/vendio/beverage-machine/internal/catalog"
	"github.com/vendio/beverage-machine/internal/redisx"
)

// ProductsHandler serves the catalog. Listings are cached in Redis per
// filter combination and every mutation drops the whole listing cache.
type ProductsHandler struct {
	Repo  *catalog.Repo
	Redis *redis.Client
}

func (h *ProductsHandler) Register(r *chi.Mux) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/brands", h.brands)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

// productResponse adds the storefront status label to the stored fields.
type productResponse struct {
	catalog.Product
	Status string `json:"status"`
}

func toResponse(p catalog.Product) productResponse {
	return productResponse{Product: p, Status: p.Status()}
}

func toResponses(ps []catalog.Product) []productResponse {
	out := make([]productResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toResponse(p))
	}
	return out
}

func parseFilter(r *http.Request) catalog.Filter {
	q := r.URL.Query()
	f := catalog.Filter{Brand: q.Get("brand")}
	if v := q.Get("maxPrice"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.MaxPrice = &n
		}
	}
	if v := q.Get("available"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Available = &b
		}
	}
	return f
}

func filterKey(f catalog.Filter) string {
	raw := f.Brand
	if f.MaxPrice != nil {
		raw += "|max=" + strconv.Itoa(*f.MaxPrice)
	}
	if f.Available != nil {
		raw += "|avail=" + strconv.FormatBool(*f.Available)
	}
	sum := sha1.Sum([]byte(raw))
	return fmt.Sprintf(redisx.KeyProductList, fmt.Sprintf("%x", sum[:8]))
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f := parseFilter(r)
	key := filterKey(f)

	if cached, err := h.Redis.Get(ctx, key).Bytes(); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}

	products, err := h.Repo.ListProducts(ctx, f)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	body, err := json.Marshal(toResponses(products))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Redis.Set(ctx, key, body, redisx.TTLProductCache).Err(); err != nil {
		log.Printf("redis set product list: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *ProductsHandler) brands(w http.ResponseWriter, r *http.Request) {
	names, err := h.Repo.ListBrandNames(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Repo.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(p))
}

type createProductRequest struct {
	Name          string `json:"name"`
	Brand         string `json:"brand"`
	Price         int    `json:"price"`
	ImageURL      string `json:"imageUrl"`
	StockQuantity int    `json:"stockQuantity"`
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationError, "invalid request body")
		return
	}
	if in.Name == "" || in.Brand == "" || in.Price <= 0 {
		writeError(w, http.StatusBadRequest, codeValidationError, "name, brand and a positive price are required")
		return
	}

	p, err := h.Repo.CreateProduct(r.Context(), catalog.CreateProductInput{
		Name:          in.Name,
		Brand:         in.Brand,
		Price:         in.Price,
		ImageURL:      in.ImageURL,
		StockQuantity: in.StockQuantity,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	invalidateProductListings(r.Context(), h.Redis)
	writeJSON(w, http.StatusCreated, toResponse(p))
}

type updateProductRequest struct {
	Name          *string `json:"name"`
	Price         *int    `json:"price"`
	ImageURL      *string `json:"imageUrl"`
	StockQuantity *int    `json:"stockQuantity"`
	IsAvailable   *bool   `json:"isAvailable"`
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	var in updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationError, "invalid request body")
		return
	}
	if in.Price != nil && *in.Price <= 0 {
		writeError(w, http.StatusBadRequest, codeValidationError, "price must be positive")
		return
	}

	p, err := h.Repo.UpdateProduct(r.Context(), chi.URLParam(r, "id"), catalog.UpdateProductInput{
		Name:          in.Name,
		Price:         in.Price,
		ImageURL:      in.ImageURL,
		StockQuantity: in.StockQuantity,
		IsAvailable:   in.IsAvailable,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	invalidateProductListings(r.Context(), h.Redis)
	writeJSON(w, http.StatusOK, toResponse(p))
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	invalidateProductListings(r.Context(), h.Redis)
	w.WriteHeader(http.StatusNoContent)
}

// invalidateProductListings drops every cached filter combination.
func invalidateProductListings(ctx context.Context, rdb *redis.Client) {
	pattern := fmt.Sprintf(redisx.KeyProductList, "*")
	iter := rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := rdb.Del(ctx, iter.Val()).Err(); err != nil {
			log.Printf("redis del %s: %v", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("redis scan product cache: %v", err)
	}
}
