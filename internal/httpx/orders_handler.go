package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	segkafka "github.com/segmentio/kafka-go"
	"github.com/redis/go-redis/v9"

	"github.com/vendio/beverage-machine/internal/coins"
	kafkax "github.com/vendio/beverage-machine/internal/kafka"
	"github.com/vendio/beverage-machine/internal/orders"
	"github.com/vendio/beverage-machine/internal/redisx"
)

// OrdersHandler drives the commit workflow and the pre-payment check.
type OrdersHandler struct {
	Svc            *orders.Service
	Coins          *coins.Repo
	Redis          *redis.Client
	Producer       *kafkax.Producer // vending.order.created
	StatusProducer *kafkax.Producer // vending.order.status
	Service        string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Post("/validate-payment", h.validatePayment)
		r.Get("/{id}", h.get)
		r.Put("/{id}/status", h.updateStatus)
		r.Delete("/{id}", h.delete)
	})
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var in orders.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationError, "invalid request body")
		return
	}

	o, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.cacheStatus(r.Context(), o.ID, o.Status)
	h.publishCreated(o, in.Items)

	writeJSON(w, http.StatusCreated, o)
}

type validatePaymentRequest struct {
	TotalAmount int               `json:"totalAmount"`
	PaidAmount  int               `json:"paidAmount"`
	Coins       []coins.CoinCount `json:"coins"`
}

// paid prefers the explicit amount; clients that only send the coin
// list get it summed for them.
func (r validatePaymentRequest) paid() int {
	if r.PaidAmount > 0 {
		return r.PaidAmount
	}
	return coins.Sum(r.Coins)
}

type validatePaymentResponse struct {
	IsValid      bool              `json:"isValid"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Change       int               `json:"change"`
	ChangeCoins  []coins.CoinCount `json:"changeCoins,omitempty"`
}

// validatePayment is advisory: it answers with the machine's current
// coin stock, but the commit transaction re-checks on its own locked
// read, so a yes here is never binding.
func (h *OrdersHandler) validatePayment(w http.ResponseWriter, r *http.Request) {
	var in validatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationError, "invalid request body")
		return
	}

	inventory, err := h.Coins.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	paid := in.paid()
	breakdown, err := coins.MakeChange(in.TotalAmount, paid, inventory)
	if err != nil {
		var (
			fundsErr  *coins.InsufficientFundsError
			changeErr *coins.ChangeUnavailableError
		)
		switch {
		case errors.As(err, &fundsErr):
			writeJSON(w, http.StatusOK, validatePaymentResponse{
				ErrorMessage: fundsErr.Error(),
			})
		case errors.As(err, &changeErr):
			writeJSON(w, http.StatusOK, validatePaymentResponse{
				ErrorMessage: changeErr.Error(),
				Change:       paid - in.TotalAmount,
			})
		default:
			writeDomainError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, validatePaymentResponse{
		IsValid:     true,
		Change:      paid - in.TotalAmount,
		ChangeCoins: breakdown,
	})
}

type updateStatusRequest struct {
	Status orders.Status `json:"status"`
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var in updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationError, "invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	before, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	o, err := h.Svc.UpdateStatus(r.Context(), id, in.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.cacheStatus(r.Context(), o.ID, o.Status)
	h.publishStatusChanged(o, before.Status)

	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Redis.Del(r.Context(), fmt.Sprintf(redisx.KeyOrderStatus, id)).Err(); err != nil {
		log.Printf("redis del order status: %v", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// cacheStatus is best-effort; the database stays the source of truth.
func (h *OrdersHandler) cacheStatus(ctx context.Context, orderID string, status orders.Status) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	val := fmt.Sprintf(`{"status":%q}`, status)
	if err := h.Redis.Set(ctx, key, val, redisx.TTLStatusCache).Err(); err != nil {
		log.Printf("redis set order status: %v", err)
	}
}

// publishCreated zips the request items with the persisted lines; the
// workflow builds lines in request order, so index i of both refers to
// the same product.
func (h *OrdersHandler) publishCreated(o orders.Order, reqItems []orders.ItemInput) {
	items := make([]orders.ItemSold, 0, len(o.Lines))
	for i, line := range o.Lines {
		productID := ""
		if i < len(reqItems) {
			productID = reqItems[i].ProductID
		}
		items = append(items, orders.ItemSold{
			ProductID:   productID,
			ProductName: line.ProductName,
			Qty:         line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(orders.OrderCreatedPayload{
			OrderID:       o.ID,
			CustomerName:  o.CustomerName,
			PaymentMethod: string(o.PaymentMethod),
			Items:         items,
			TotalAmount:   o.TotalAmount,
		}),
	}
	h.Producer.Publish(
		orders.PartitionKey(o.ID),
		kafkax.MustMarshal(env),
		segkafka.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		segkafka.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) publishStatusChanged(o orders.Order, from orders.Status) {
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderStatusChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(orders.OrderStatusChangedPayload{
			OrderID: o.ID,
			From:    string(from),
			To:      string(o.Status),
		}),
	}
	h.StatusProducer.Publish(
		orders.PartitionKey(o.ID),
		kafkax.MustMarshal(env),
		segkafka.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		segkafka.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
