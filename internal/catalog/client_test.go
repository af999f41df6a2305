package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/correlation"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/filter"
)

func newCatalogServer(t *testing.T, e *Engine) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(correlation.Header) == "" {
			http.Error(w, "missing correlation id", http.StatusBadRequest)
			return
		}
		page, err := e.Query(r.Context(), filter.FromValues(r.URL.Query()))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(page)
	})
	mux.HandleFunc("GET /api/products/{slug}", func(w http.ResponseWriter, r *http.Request) {
		p, err := e.Product(r.Context(), r.PathValue("slug"))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(p)
	})
	mux.HandleFunc("GET /api/collections/{slug}", func(w http.ResponseWriter, r *http.Request) {
		c, err := e.Collection(r.Context(), r.PathValue("slug"))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(c)
	})
	mux.HandleFunc("GET /broken/products", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClientMatchesEngine(t *testing.T) {
	products, collections := GenerateCatalog(3, 40)
	e := NewEngine(products, collections)
	srv := newCatalogServer(t, e)

	c, err := NewHTTPClient("catalog", srv.URL+"/api", srv.Client())
	require.NoError(t, err)

	ctx := correlation.WithID(context.Background(), "cid-1")
	f := filter.Filters{Category: "women", Sort: filter.SortPriceAsc, Limit: 5, Page: 2}

	remote, err := c.Query(ctx, f)
	require.NoError(t, err)
	local, err := e.Query(ctx, f)
	require.NoError(t, err)

	assert.Equal(t, local.Pagination, remote.Pagination)
	require.Len(t, remote.Data, len(local.Data))
	for i := range local.Data {
		assert.Equal(t, local.Data[i].ID, remote.Data[i].ID)
	}

	p, err := c.Product(ctx, products[0].Slug)
	require.NoError(t, err)
	assert.Equal(t, products[0].ID, p.ID)

	col, err := c.Collection(ctx, "essentials")
	require.NoError(t, err)
	assert.Equal(t, "Essentials", col.Name)

	_, err = c.Collection(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPClientUpstreamFailure(t *testing.T) {
	srv := newCatalogServer(t, NewEngine(nil, nil))

	c, err := NewHTTPClient("catalog", srv.URL+"/broken", srv.Client())
	require.NoError(t, err)

	_, err = c.Query(context.Background(), filter.Filters{})
	assert.ErrorIs(t, err, ErrQuery)

	page := QueryOrEmpty(context.Background(), c, filter.Filters{Page: 2}, zerolog.Nop())
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.Equal(t, 0, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.Page)
}

func TestHTTPClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient("catalog", url, nil)
	require.NoError(t, err)

	_, err = c.Query(context.Background(), filter.Filters{})
	assert.ErrorIs(t, err, ErrQuery)
}

func TestNewHTTPClientRejectsBadURL(t *testing.T) {
	_, err := NewHTTPClient("catalog", "://nope", nil)
	assert.Error(t, err)
}

func TestCopyHeadersSkipsHopByHop(t *testing.T) {
	src := http.Header{}
	src.Set("Connection", "keep-alive")
	src.Set("Authorization", "Bearer x")
	src.Set("Host", "example.com")

	dst := http.Header{}
	copyHeaders(dst, src)

	assert.Equal(t, "Bearer x", dst.Get("Authorization"))
	assert.Empty(t, dst.Get("Connection"))
	assert.Empty(t, dst.Get("Host"))
}
