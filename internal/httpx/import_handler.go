package httpx

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/vendio/beverage-machine/internal/catalog"
)

const maxImportSize = 10 << 20 // 10 MiB upload cap

// ImportHandler ingests operator price lists. Like the coin endpoints
// it bypasses the machine gate, restocking happens regardless of an
// active customer session.
type ImportHandler struct {
	Repo  *catalog.Repo
	Redis *redis.Client
}

func (h *ImportHandler) Register(r *chi.Mux) {
	r.Post("/api/import/products", h.importProducts)
	r.Get("/api/import/template", h.template)
}

type importResponse struct {
	Message  string            `json:"message"`
	Products []productResponse `json:"products"`
}

func (h *ImportHandler) importProducts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationError, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationError, "form field 'file' is required")
		return
	}
	defer file.Close()

	var rows []catalog.ImportRow
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".csv":
		rows, err = catalog.ParseCSV(file)
	case ".xlsx":
		rows, err = catalog.ParseXLSX(file)
	default:
		writeError(w, http.StatusBadRequest, codeValidationError, "unsupported file type, expected .csv or .xlsx")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	products, err := h.Repo.ImportProducts(r.Context(), rows)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	invalidateProductListings(r.Context(), h.Redis)

	writeJSON(w, http.StatusOK, importResponse{
		Message:  fmt.Sprintf("imported %d products", len(products)),
		Products: toResponses(products),
	})
}

func (h *ImportHandler) template(w http.ResponseWriter, r *http.Request) {
	body, err := catalog.Template()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="products_template.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
