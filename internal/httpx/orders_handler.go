package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type OrderService interface {
	CreateOrder(ctx context.Context, userID, productID int, amount float64) (orders.PurchaseOrder, error)
	Get(ctx context.Context, id uuid.UUID) (orders.PurchaseOrder, error)
	List(ctx context.Context) ([]orders.PurchaseOrder, error)
}

// StatusCache is optional; a nil cache sends every status read to the store.
type StatusCache interface {
	Get(ctx context.Context, id uuid.UUID) (orders.Status, bool, error)
	Put(ctx context.Context, id uuid.UUID, s orders.Status) error
}

type OrdersHandler struct {
	Orders OrderService
	Cache  StatusCache
	Log    zerolog.Logger
}

type CreateOrderReq struct {
	UserID    int     `json:"userId"`
	ProductID int     `json:"productId"`
	Amount    float64 `json:"amount"`
}

type OrderStatusResp struct {
	OrderID uuid.UUID     `json:"orderId"`
	Status  orders.Status `json:"status"`
	Cached  bool          `json:"cached"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getStatus)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProductID == 0 {
		req.ProductID = saga.DefaultProductID
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.CreateOrder(ctx, req.UserID, req.ProductID, req.Amount)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, o)
	case isValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case o.ID != uuid.Nil:
		// stored but OrderCreated did not go out; the sweeper reports it
		h.Log.Error().Err(err).Str("order_id", o.ID.String()).Msg("order stored, event not published")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "order event not published", "orderId": o.ID})
	default:
		h.Log.Error().Err(err).Msg("create order")
		writeError(w, http.StatusInternalServerError, "could not create order")
	}
}

func isValidation(err error) bool {
	return errors.Is(err, orders.ErrInvalidUser) ||
		errors.Is(err, orders.ErrInvalidProduct) ||
		errors.Is(err, orders.ErrInvalidAmount)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Orders.List(ctx)
	if err != nil {
		h.Log.Error().Err(err).Msg("list orders")
		writeError(w, http.StatusInternalServerError, "could not list orders")
		return
	}
	if list == nil {
		list = []orders.PurchaseOrder{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.Get(ctx, id)
	if err != nil {
		h.notFoundOr500(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) cache
	if h.Cache != nil {
		if s, hit, err := h.Cache.Get(ctx, id); err == nil && hit {
			writeJSON(w, http.StatusOK, OrderStatusResp{OrderID: id, Status: s, Cached: true})
			return
		} else if err != nil {
			h.Log.Warn().Err(err).Msg("status cache read")
		}
	}

	// 2) store
	o, err := h.Orders.Get(ctx, id)
	if err != nil {
		h.notFoundOr500(w, err)
		return
	}
	if h.Cache != nil {
		if err := h.Cache.Put(ctx, id, o.Status); err != nil {
			h.Log.Warn().Err(err).Msg("status cache write")
		}
	}
	writeJSON(w, http.StatusOK, OrderStatusResp{OrderID: id, Status: o.Status})
}

func orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *OrdersHandler) notFoundOr500(w http.ResponseWriter, err error) {
	if errors.Is(err, orders.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	h.Log.Error().Err(err).Msg("get order")
	writeError(w, http.StatusInternalServerError, "could not load order")
}
