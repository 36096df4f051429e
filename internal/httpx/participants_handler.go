package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/inventory"
	"github.com/ariefcatur/go-saga-orders/internal/payment"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type BalanceReader interface {
	Balance(ctx context.Context, userID int) (payment.UserBalance, error)
}

type PaymentsHandler struct {
	Payments BalanceReader
	Log      zerolog.Logger
}

func (h *PaymentsHandler) Register(r chi.Router) {
	r.Get("/payments/balance/{userId}", h.getBalance)
}

func (h *PaymentsHandler) getBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := intParam(w, r, "userId")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	b, err := h.Payments.Balance(ctx, userID)
	switch {
	case errors.Is(err, payment.ErrBalanceNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case err != nil:
		h.Log.Error().Err(err).Int("user_id", userID).Msg("get balance")
		writeError(w, http.StatusInternalServerError, "could not load balance")
	default:
		writeJSON(w, http.StatusOK, b)
	}
}

type ProductReader interface {
	Product(ctx context.Context, productID int) (inventory.Product, error)
	Products(ctx context.Context) ([]inventory.Product, error)
}

type InventoryHandler struct {
	Inventory ProductReader
	Log       zerolog.Logger
}

func (h *InventoryHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
}

func (h *InventoryHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Inventory.Products(ctx)
	if err != nil {
		h.Log.Error().Err(err).Msg("list products")
		writeError(w, http.StatusInternalServerError, "could not list products")
		return
	}
	if ps == nil {
		ps = []inventory.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *InventoryHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Inventory.Product(ctx, id)
	switch {
	case errors.Is(err, inventory.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case err != nil:
		h.Log.Error().Err(err).Int("product_id", id).Msg("get product")
		writeError(w, http.StatusInternalServerError, "could not load product")
	default:
		writeJSON(w, http.StatusOK, p)
	}
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return v, true
}
