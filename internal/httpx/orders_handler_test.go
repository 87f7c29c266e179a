package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/rasoilink/orderhub/internal/auth"
	"github.com/rasoilink/orderhub/internal/feed"
	"github.com/rasoilink/orderhub/internal/orders"
)

type fakeOrderStore struct {
	created   orders.Order
	createErr error
	getOrder  orders.Order
	getErr    error
	list      []orders.Order
	listErr   error
	gotFilter orders.Filter
}

func (f *fakeOrderStore) Create(_ context.Context, in orders.NewOrder) (orders.Order, error) {
	if f.createErr != nil {
		return orders.Order{}, f.createErr
	}
	o := f.created
	o.VendorID = in.VendorID
	o.SupplierID = in.SupplierID
	return o, nil
}

func (f *fakeOrderStore) Get(context.Context, string) (orders.Order, error) {
	return f.getOrder, f.getErr
}

func (f *fakeOrderStore) List(_ context.Context, flt orders.Filter) ([]orders.Order, error) {
	f.gotFilter = flt
	return f.list, f.listErr
}

type fakeEngine struct {
	res orders.TransitionResult
	err error
	got orders.TransitionRequest
}

func (f *fakeEngine) Apply(_ context.Context, _ string, req orders.TransitionRequest) (orders.TransitionResult, error) {
	f.got = req
	return f.res, f.err
}

type fakeFeed struct {
	snaps []feed.Snapshot
}

func (f *fakeFeed) Subscribe(context.Context, string, auth.Role) (<-chan feed.Snapshot, func(), error) {
	ch := make(chan feed.Snapshot, len(f.snaps))
	for _, s := range f.snaps {
		ch <- s
	}
	close(ch)
	return ch, func() {}, nil
}

func newTestRouter(h *OrdersHandler) *chi.Mux {
	h.Log = zerolog.Nop()
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func asVendor(r *http.Request, id string) *http.Request {
	r.Header.Set("X-Actor-Id", id)
	r.Header.Set("X-Actor-Role", "vendor")
	return r
}

func asSupplier(r *http.Request, id string) *http.Request {
	r.Header.Set("X-Actor-Id", id)
	r.Header.Set("X-Actor-Role", "supplier")
	return r
}

const createBody = `{
	"vendor_id": "vend-1",
	"supplier_id": "supp-1",
	"items": [{"product_id":"p1","product_name":"Rice","quantity":2,"unit_price_paise":50000,"unit":"kg"}],
	"total_paise": 100000,
	"delivery_address": "Stall 12, FC Road, Pune"
}`

func TestCreateOrder(t *testing.T) {
	store := &fakeOrderStore{created: orders.Order{ID: "o1", Status: orders.StatusPending}}
	router := newTestRouter(&OrdersHandler{Store: store})

	req := asVendor(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(createBody)), "vend-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body)
	}
	var got orders.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "o1" || got.Status != orders.StatusPending {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestCreateOrderAuth(t *testing.T) {
	router := newTestRouter(&OrdersHandler{Store: &fakeOrderStore{}})

	// no identity at all
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(createBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: status %d", rec.Code)
	}

	// vendor placing an order for someone else
	req = asVendor(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(createBody)), "vend-2")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("mismatched vendor: status %d", rec.Code)
	}

	// supplier cannot place vendor orders
	req = asSupplier(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(createBody)), "supp-1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("supplier create: status %d", rec.Code)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	store := &fakeOrderStore{createErr: orders.Validationf("order must contain at least one item")}
	router := newTestRouter(&OrdersHandler{Store: store})

	req := asVendor(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(createBody)), "vend-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestUpdateOrderStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid transition", &orders.InvalidTransitionError{From: orders.StatusCancelled, To: orders.StatusShipped}, http.StatusConflict},
		{"conflict", orders.ErrConflict, http.StatusConflict},
		{"not found", orders.ErrNotFound, http.StatusNotFound},
		{"forbidden", orders.ErrForbidden, http.StatusForbidden},
		{"bad status", orders.Validationf("unknown status"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&OrdersHandler{Store: &fakeOrderStore{}, Engine: &fakeEngine{err: tt.err}})
			req := asSupplier(httptest.NewRequest(http.MethodPut, "/orders/o1",
				strings.NewReader(`{"status":"shipped"}`)), "supp-1")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestUpdateOrderOK(t *testing.T) {
	eng := &fakeEngine{res: orders.TransitionResult{
		Order: orders.Order{ID: "o1", Status: orders.StatusConfirmed},
		From:  orders.StatusPending,
	}}
	router := newTestRouter(&OrdersHandler{Store: &fakeOrderStore{}, Engine: eng})

	req := asSupplier(httptest.NewRequest(http.MethodPut, "/orders/o1",
		strings.NewReader(`{"status":"confirmed","note":"on it"}`)), "supp-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body)
	}
	if eng.got.Status != "confirmed" || eng.got.Note != "on it" {
		t.Fatalf("engine got %+v", eng.got)
	}
	if eng.got.Actor.ID != "supp-1" || eng.got.Actor.Role != auth.RoleSupplier {
		t.Fatalf("actor not propagated: %+v", eng.got.Actor)
	}
}

func TestListOrdersDefaultScope(t *testing.T) {
	store := &fakeOrderStore{list: []orders.Order{{ID: "o1"}}}
	router := newTestRouter(&OrdersHandler{Store: store})

	req := asSupplier(httptest.NewRequest(http.MethodGet, "/orders", nil), "supp-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if store.gotFilter.SupplierID != "supp-1" || store.gotFilter.VendorID != "" {
		t.Fatalf("filter not scoped to actor: %+v", store.gotFilter)
	}
}

func TestListOrdersExplicitFilter(t *testing.T) {
	store := &fakeOrderStore{}
	router := newTestRouter(&OrdersHandler{Store: store})

	req := asVendor(httptest.NewRequest(http.MethodGet, "/orders?vendor_id=vend-1&status=pending", nil), "vend-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if store.gotFilter.VendorID != "vend-1" || store.gotFilter.Status != orders.StatusPending {
		t.Fatalf("filter %+v", store.gotFilter)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Fatalf("empty list must encode as [], got %s", body)
	}
}

func TestSummarizeOrders(t *testing.T) {
	store := &fakeOrderStore{list: []orders.Order{
		{Status: orders.StatusPending},
		{Status: orders.StatusConfirmed},
		{Status: orders.StatusDelivered},
	}}
	router := newTestRouter(&OrdersHandler{Store: store})

	req := asVendor(httptest.NewRequest(http.MethodGet, "/orders/summary", nil), "vend-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var got orders.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := orders.Summary{Total: 3, Pending: 1, InProgress: 1, Delivered: 1}
	if got != want {
		t.Fatalf("summary %+v, want %+v", got, want)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	store := &fakeOrderStore{getErr: orders.ErrNotFound}
	router := newTestRouter(&OrdersHandler{Store: store})

	req := asVendor(httptest.NewRequest(http.MethodGet, "/orders/nope", nil), "vend-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}

func TestStreamFeed(t *testing.T) {
	snaps := []feed.Snapshot{
		{Orders: []orders.Order{{ID: "o1", Status: orders.StatusPending}}},
		{Orders: []orders.Order{{ID: "o1", Status: orders.StatusConfirmed}}},
	}
	router := newTestRouter(&OrdersHandler{Store: &fakeOrderStore{}, Feed: &fakeFeed{snaps: snaps}})

	req := asVendor(httptest.NewRequest(http.MethodGet, "/orders/feed", nil), "vend-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}
	body := rec.Body.String()
	if strings.Count(body, "data: ") != 2 {
		t.Fatalf("want 2 SSE events, body:\n%s", body)
	}
	if !strings.Contains(body, `"confirmed"`) {
		t.Fatalf("second snapshot missing, body:\n%s", body)
	}
}

func TestStreamFeedError(t *testing.T) {
	router := newTestRouter(&OrdersHandler{
		Store: &fakeOrderStore{},
		Feed:  &fakeFeed{snaps: []feed.Snapshot{{Err: feed.ErrClosed}}},
	})

	req := asSupplier(httptest.NewRequest(http.MethodGet, "/orders/feed", nil), "supp-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), "event: error") {
		t.Fatalf("transport loss must be reported, body:\n%s", rec.Body)
	}
}
