package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/correlation"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/filter"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/store"
)

func i64(v int64) *int64 { return &v }

func testCatalog() *catalog.Engine {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	products := []catalog.Product{
		{
			ID: "p1", Slug: "silk-dress", Name: "Silk Dress", Price: 2499, CompareAtPrice: i64(3499),
			Category: catalog.Category{Slug: "women"}, Collections: []string{"summer-edit"},
			Variants: []catalog.Variant{
				{ID: "p1-s", Size: "S", Stock: 2},
				{ID: "p1-m", Size: "M", Stock: 5},
			},
			CreatedAt: base,
		},
		{
			ID: "p2", Slug: "silk-scarf", Name: "Silk Scarf", Price: 499,
			Category: catalog.Category{Slug: "accessories"},
			Variants: []catalog.Variant{{ID: "p2-v", Stock: 10}},
			CreatedAt: base.Add(time.Hour),
		},
	}
	collections := []catalog.Collection{{Slug: "summer-edit", Name: "Summer Edit"}}
	return catalog.NewEngine(products, collections)
}

type recordingPublisher struct {
	mu   sync.Mutex
	got  []cart.Checkout
	fail error
}

func (p *recordingPublisher) PublishCartCheckedOut(_ context.Context, co cart.Checkout) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.got = append(p.got, co)
	return nil
}

type testServer struct {
	handler   http.Handler
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	sessions  *session.Registry
}

func newTestServer(t *testing.T, q catalog.Querier, verifier *identity.Verifier) *testServer {
	t.Helper()
	m := metrics.New()
	sessions := session.NewRegistry(store.NewMemoryBackend(), cart.DefaultPricing(), session.WithMetrics(m))
	pub := &recordingPublisher{}
	if verifier == nil {
		verifier = identity.NewVerifier("", "")
	}
	return &testServer{
		handler: NewRouter(Deps{
			Logger:           zerolog.Nop(),
			Catalog:          q,
			Sessions:         sessions,
			Publisher:        pub,
			Verifier:         verifier,
			Metrics:          m,
			CORSAllowOrigins: []string{"*"},
		}),
		publisher: pub,
		metrics:   m,
		sessions:  sessions,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func sessionHeaders(id string) map[string]string {
	return map[string]string{HeaderSessionID: id}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testCatalog(), nil)
	rec := s.do(t, http.MethodGet, "/health", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get(correlation.Header))
}

func TestCorrelationIDIsEchoed(t *testing.T) {
	s := newTestServer(t, testCatalog(), nil)
	rec := s.do(t, http.MethodGet, "/health", nil, map[string]string{correlation.Header: "corr-1"})
	assert.Equal(t, "corr-1", rec.Header().Get(correlation.Header))
}

func TestListProducts(t *testing.T) {
	s := newTestServer(t, testCatalog(), nil)
	rec := s.do(t, http.MethodGet, "/api/products?sort=price-asc&limit=1&page=2", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[productListResponse](t, rec)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "p1", resp.Data[0].ID)
	assert.Equal(t, 2, resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.Page)
	assert.True(t, resp.Pagination.HasPrev)
	assert.False(t, resp.Pagination.HasNext)
	assert.Equal(t, filter.SortPriceAsc, resp.Filters.Sort)
	assert.Equal(t, "limit=1&page=2&sort=price-asc", resp.Query)
}

type failingCatalog struct{}

func (failingCatalog) Query(context.Context, filter.Filters) (catalog.Page, error) {
	return catalog.Page{}, catalog.ErrQuery
}

func (failingCatalog) Collection(context.Context, string) (catalog.Collection, error) {
	return catalog.Collection{}, catalog.ErrQuery
}

func (failingCatalog) Product(context.Context, string) (catalog.Product, error) {
	return catalog.Product{}, catalog.ErrQuery
}

func TestListProductsFallsBackToEmptyPage(t *testing.T) {
	s := newTestServer(t, failingCatalog{}, nil)
	rec := s.do(t, http.MethodGet, "/api/products?page=3", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[productListResponse](t, rec)
	assert.Empty(t, resp.Data)
	assert.NotNil(t, resp.Data)
	assert.Zero(t, resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.Page)
}

func TestProductAndCollection(t *testing.T) {
	s := newTestServer(t, testCatalog(), nil)

	rec := s.do(t, http.MethodGet, "/api/products/silk-dress", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1", decode[catalog.Product](t, rec).ID)

	rec = s.do(t, http.MethodGet, "/api/products/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/collections/summer-edit", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[catalog.Collection](t, rec).ProductCount)

	rec = s.do(t, http.MethodGet, "/api/collections/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	failing := newTestServer(t, failingCatalog{}, nil)
	rec = failing.do(t, http.MethodGet, "/api/products/silk-dress", nil, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSessionIsMintedAndReused(t *testing.T) {
	s := newTestServer(t, testCatalog(), nil)

	rec := s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "p2"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sid := rec.Header().Get(HeaderSessionID)
	require.NotEmpty(t, sid)

	rec = s.do(t, http.MethodGet, "/api/cart", nil, sessionHeaders(sid))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[cartResponse](t, rec)
	assert.Equal(t, sid, resp.SessionID)
	assert.Equal(t, 1, resp.ItemCount)

	rec = s.do(t, http.MethodGet, "/api/cart", nil, sessionHeaders("bad id!"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartFlow(t *testing.T) {
	s := newTestServer(t, testCatalog(), nil)
	h := sessionHeaders("s1")

	rec := s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "silk-dress", "variantId": "p1-s", "quantity": 1}, h)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[cartResponse](t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(2499), resp.Subtotal)
	assert.Equal(t, int64(199), resp.Shipping)
	assert.Equal(t, int64(500), resp.FreeShippingRemaining)
	assert.Equal(t, "₹2,698", resp.Formatted.Total)
	itemID := resp.Items[0].ID

	rec = s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "p1", "variantId": "p1-s", "quantity": 2}, h)
	require.Equal(t, http.StatusConflict, rec.Code)
	errResp := decode[errorResponse](t, rec)
	assert.Equal(t, 3, errResp.Requested)
	require.NotNil(t, errResp.Available)
	assert.Equal(t, 2, *errResp.Available)

	rec = s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "p1", "variantId": "nope"}, h)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "missing"}, h)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/cart/items/"+itemID, map[string]any{"quantity": 2}, h)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[cartResponse](t, rec)
	assert.Equal(t, int64(4998), resp.Subtotal)
	assert.Zero(t, resp.Shipping)
	assert.Zero(t, resp.FreeShippingRemaining)

	rec = s.do(t, http.MethodPatch, "/api/cart/items/"+itemID, map[string]any{"quantity": 0}, h)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/cart/items/unknown", map[string]any{"quantity": 1}, h)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/cart/promo", map[string]any{"code": "welcome10"}, h)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[cartResponse](t, rec)
	assert.Equal(t, "WELCOME10", resp.PromoCode)
	assert.Equal(t, int64(500), resp.Discount)

	rec = s.do(t, http.MethodPost, "/api/cart/promo", map[string]any{"code": "BOGUS"}, h)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/cart/promo", nil, h)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[cartResponse](t, rec).PromoCode)

	rec = s.do(t, http.MethodDelete, "/api/cart/items/"+itemID, nil, h)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[cartResponse](t, rec)
	assert.Empty(t, resp.Items)
	assert.Zero(t, resp.Total)

	rec = s.do(t, http.MethodDelete, "/api/cart/items/"+itemID, nil, h)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClearCart(t *testing.T) {
	s := newTestServer(t, testCatalog(), nil)
	h := sessionHeaders("s1")

	rec := s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "p2", "quantity": 3}, h)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/cart", nil, h)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decode[cartResponse](t, rec).ItemCount)
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t, testCatalog(), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader("{not json"))
	req.Header.Set(HeaderSessionID, "s1")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutRequiresUser(t *testing.T) {
	s := newTestServer(t, testCatalog(), nil)
	h := sessionHeaders("s1")

	rec := s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "p2"}, h)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/cart/checkout", nil, h)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, s.publisher.got)

	h[HeaderUserID] = "user-9"
	rec = s.do(t, http.MethodPost, "/api/cart/checkout", nil, h)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[checkoutResponse](t, rec)
	assert.Equal(t, "user-9", resp.UserID)
	assert.Equal(t, int64(499+199), resp.Total)
	require.Len(t, s.publisher.got, 1)
	assert.Equal(t, "s1", s.publisher.got[0].SessionID)

	rec = s.do(t, http.MethodGet, "/api/cart", nil, h)
	assert.Empty(t, decode[cartResponse](t, rec).Items)

	rec = s.do(t, http.MethodPost, "/api/cart/checkout", nil, h)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty cart")
}

func TestCheckoutKeepsCartWhenPublishFails(t *testing.T) {
	s := newTestServer(t, testCatalog(), nil)
	s.publisher.fail = errors.New("broker down")
	h := map[string]string{HeaderSessionID: "s1", HeaderUserID: "user-9"}

	rec := s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "p2"}, h)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/cart/checkout", nil, h)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode[errorResponse](t, rec).Error)

	rec = s.do(t, http.MethodGet, "/api/cart", nil, h)
	assert.Equal(t, 1, decode[cartResponse](t, rec).ItemCount)
}

func TestBearerTokenIdentity(t *testing.T) {
	verifier := identity.NewVerifier("s3cret", "")
	s := newTestServer(t, testCatalog(), verifier)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, identity.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-42", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	h := map[string]string{HeaderSessionID: "s1", "Authorization": "Bearer " + token}
	rec := s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "p2"}, h)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/cart/checkout", nil, h)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "user-42", decode[checkoutResponse](t, rec).UserID)

	rec = s.do(t, http.MethodGet, "/api/cart", nil, map[string]string{HeaderSessionID: "s1", "Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// a configured secret means X-User-Id is no longer trusted
	rec = s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "p2"}, sessionHeaders("s2"))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/cart/checkout", nil, map[string]string{HeaderSessionID: "s2", HeaderUserID: "spoofed"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWishlistFlow(t *testing.T) {
	s := newTestServer(t, testCatalog(), nil)
	h := sessionHeaders("s1")

	rec := s.do(t, http.MethodPost, "/api/wishlist/items", map[string]any{"productId": "p1"}, h)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[wishlistResponse](t, rec)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "₹2,499", resp.Items[0].FormattedPrice)
	assert.Equal(t, 29, resp.Items[0].DiscountPercent)

	rec = s.do(t, http.MethodPost, "/api/wishlist/items", map[string]any{"productId": "p1"}, h)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[wishlistResponse](t, rec).Count)

	rec = s.do(t, http.MethodPost, "/api/wishlist/items", map[string]any{"productId": "p2"}, h)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/wishlist/items/p2", nil, h)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[wishlistResponse](t, rec).Count)

	rec = s.do(t, http.MethodDelete, "/api/wishlist/items/p2", nil, h)
	assert.Equal(t, http.StatusOK, rec.Code, "removing an absent item is a no-op")

	rec = s.do(t, http.MethodDelete, "/api/wishlist", nil, h)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decode[wishlistResponse](t, rec).Count)
}

func TestMoveToCart(t *testing.T) {
	s := newTestServer(t, testCatalog(), nil)
	h := sessionHeaders("s1")

	rec := s.do(t, http.MethodPost, "/api/wishlist/items", map[string]any{"productId": "p1"}, h)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/wishlist/items/p1/move-to-cart", map[string]any{"variantId": "p1-s", "quantity": 5}, h)
	require.Equal(t, http.StatusConflict, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/wishlist", nil, h)
	assert.Equal(t, 1, decode[wishlistResponse](t, rec).Count, "rejected move keeps the wishlist entry")

	rec = s.do(t, http.MethodPost, "/api/wishlist/items/p1/move-to-cart", map[string]any{"variantId": "p1-m"}, h)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[moveToCartResponse](t, rec)
	assert.Equal(t, 1, resp.Cart.ItemCount)
	assert.Zero(t, resp.Wishlist.Count)

	rec = s.do(t, http.MethodPost, "/api/wishlist/items/p1/move-to-cart", nil, h)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testCatalog(), nil)
	s.do(t, http.MethodGet, "/api/products/silk-dress", nil, nil)
	s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "p2"}, sessionHeaders("s1"))

	rec := s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, `storefront_requests_total{method="GET",route="/api/products/{slug}",status="200"} 1`)
	assert.Contains(t, out, `storefront_store_mutations_total{operation="add_item",result="ok",store="cart"} 1`)
	assert.Contains(t, out, "storefront_active_sessions 1")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, testCatalog(), nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/cart", nil)
	req.Header.Set("Origin", "https://luxe.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovererReturnsJSON(t *testing.T) {
	h := recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(correlation.WithID(req.Context(), "corr-9"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "corr-9", resp.CorrelationID)
}
