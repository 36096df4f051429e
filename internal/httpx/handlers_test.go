package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/clock"
	"github.com/ariefcatur/go-saga-orders/internal/inventory"
	"github.com/ariefcatur/go-saga-orders/internal/memory"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/ariefcatur/go-saga-orders/internal/payment"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeCache struct {
	m    map[uuid.UUID]orders.Status
	puts int
}

func (c *fakeCache) Get(_ context.Context, id uuid.UUID) (orders.Status, bool, error) {
	s, ok := c.m[id]
	return s, ok, nil
}

func (c *fakeCache) Put(_ context.Context, id uuid.UUID, s orders.Status) error {
	c.puts++
	if s.Terminal() {
		c.m[id] = s
	}
	return nil
}

type orderServer struct {
	http.Handler
	store *memory.OrderStore
	pub   *memory.Recorder
	cache *fakeCache
}

func newOrderServer(t *testing.T) orderServer {
	t.Helper()
	store := memory.NewOrderStore()
	pub := &memory.Recorder{}
	cache := &fakeCache{m: map[uuid.UUID]orders.Status{}}
	svc := orders.NewService(store, pub, clock.NewFixed(now), zerolog.Nop())

	r := NewRouter(zerolog.Nop(), prometheus.NewRegistry())
	(&OrdersHandler{Orders: svc, Cache: cache, Log: zerolog.Nop()}).Register(r)
	return orderServer{Handler: r, store: store, pub: pub, cache: cache}
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateOrder(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantProduct int
	}{
		{"created", `{"userId":1,"productId":102,"amount":100}`, http.StatusAccepted, 102},
		{"product defaults", `{"userId":1,"amount":100}`, http.StatusAccepted, saga.DefaultProductID},
		{"bad json", `{"userId":`, http.StatusBadRequest, 0},
		{"zero amount", `{"userId":1,"productId":101,"amount":0}`, http.StatusBadRequest, 0},
		{"missing user", `{"productId":101,"amount":5}`, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newOrderServer(t)
			rec := do(srv, http.MethodPost, "/orders", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusAccepted {
				assert.Empty(t, srv.pub.Messages())
				return
			}
			var o orders.PurchaseOrder
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
			assert.Equal(t, tt.wantProduct, o.ProductID)
			assert.Equal(t, orders.StatusCreated, o.Status)
			assert.Equal(t, []saga.Kind{saga.KindOrderCreated}, srv.pub.Kinds())
		})
	}
}

func TestCreateOrder_PublishFailure(t *testing.T) {
	srv := newOrderServer(t)
	srv.pub.Err = errors.New("broker down")

	rec := do(srv, http.MethodPost, "/orders", `{"userId":1,"productId":101,"amount":10}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"orderId"`)
}

func TestGetAndListOrders(t *testing.T) {
	srv := newOrderServer(t)
	ctx := context.Background()
	o := orders.PurchaseOrder{ID: uuid.New(), UserID: 1, ProductID: 101, Price: 10, Status: orders.StatusCompleted, CreatedAt: now}
	require.NoError(t, srv.store.Create(ctx, o))

	rec := do(srv, http.MethodGet, "/orders/"+o.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"orderStatus":"COMPLETED"`)

	assert.Equal(t, http.StatusNotFound, do(srv, http.MethodGet, "/orders/"+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusBadRequest, do(srv, http.MethodGet, "/orders/not-a-uuid", "").Code)

	rec = do(srv, http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []orders.PurchaseOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestListOrders_EmptyIsArray(t *testing.T) {
	rec := do(newOrderServer(t), http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetStatus_CachesFinalOnly(t *testing.T) {
	srv := newOrderServer(t)
	ctx := context.Background()
	open := orders.PurchaseOrder{ID: uuid.New(), Status: orders.StatusCreated, CreatedAt: now}
	done := orders.PurchaseOrder{ID: uuid.New(), Status: orders.StatusCancelled, CreatedAt: now}
	require.NoError(t, srv.store.Create(ctx, open))
	require.NoError(t, srv.store.Create(ctx, done))

	rec := do(srv, http.MethodGet, "/orders/"+done.ID.String()+"/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cached":false`)

	rec = do(srv, http.MethodGet, "/orders/"+done.ID.String()+"/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cached":true`)

	rec = do(srv, http.MethodGet, "/orders/"+open.ID.String()+"/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"CREATED"`)
	_, cached := srv.cache.m[open.ID]
	assert.False(t, cached)
}

func TestBalance(t *testing.T) {
	store := memory.NewPaymentStore(payment.UserBalance{UserID: 1, Balance: 1000})
	svc := payment.NewService(store, &memory.Recorder{}, clock.NewFixed(now), zerolog.Nop())
	r := NewRouter(zerolog.Nop(), nil)
	(&PaymentsHandler{Payments: svc, Log: zerolog.Nop()}).Register(r)

	tests := []struct {
		path string
		want int
		body string
	}{
		{"/payments/balance/1", http.StatusOK, `{"userId":1,"balance":1000}`},
		{"/payments/balance/2", http.StatusNotFound, ""},
		{"/payments/balance/abc", http.StatusBadRequest, ""},
		{"/payments/balance/0", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(r, http.MethodGet, tt.path, "")
			require.Equal(t, tt.want, rec.Code)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestProducts(t *testing.T) {
	store := memory.NewInventoryStore(inventory.SeedProducts...)
	svc := inventory.NewService(store, &memory.Recorder{}, clock.NewFixed(now), zerolog.Nop())
	r := NewRouter(zerolog.Nop(), nil)
	(&InventoryHandler{Inventory: svc, Log: zerolog.Nop()}).Register(r)

	rec := do(r, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"productId":101,"availableStock":10},{"productId":102,"availableStock":0}]`, rec.Body.String())

	rec = do(r, http.MethodGet, "/products/102", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"productId":102,"availableStock":0}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/products/999", "").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_total", Help: "probe"}))
	r := NewRouter(zerolog.Nop(), reg)

	rec := do(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "probe_total")
}
