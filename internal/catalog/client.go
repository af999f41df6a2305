package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/correlation"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/filter"
)

// HTTPClient is a Querier backed by a remote catalog service exposing
// GET products?<query>, GET products/{slug} and GET collections/{slug}.
type HTTPClient struct {
	Name    string
	BaseURL *url.URL
	HTTP    *http.Client
}

func NewHTTPClient(name, baseURL string, httpClient *http.Client) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid %s base url %q: %w", name, baseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{Name: name, BaseURL: u, HTTP: httpClient}, nil
}

// Do issues a request relative to BaseURL, forwarding end-to-end headers and
// the correlation id from ctx.
func (c *HTTPClient) Do(ctx context.Context, method, path, rawQuery string, body io.Reader, inHeaders http.Header) (*http.Response, error) {
	u := c.BaseURL.JoinPath(path)
	u.RawQuery = rawQuery

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}

	copyHeaders(req.Header, inHeaders)
	req.Header.Set("Accept", "application/json")
	if cid := correlation.ID(ctx); cid != "" {
		req.Header.Set(correlation.Header, cid)
	}

	return c.HTTP.Do(req)
}

func (c *HTTPClient) Query(ctx context.Context, f filter.Filters) (Page, error) {
	var page Page
	if err := c.getJSON(ctx, "products", filter.ToQuery(f), &page); err != nil {
		return Page{}, err
	}
	if page.Data == nil {
		page.Data = []Product{}
	}
	return page, nil
}

func (c *HTTPClient) Collection(ctx context.Context, slug string) (Collection, error) {
	var col Collection
	if err := c.getJSON(ctx, "collections/"+url.PathEscape(slug), "", &col); err != nil {
		return Collection{}, err
	}
	return col, nil
}

func (c *HTTPClient) Product(ctx context.Context, slugOrID string) (Product, error) {
	var p Product
	if err := c.getJSON(ctx, "products/"+url.PathEscape(slugOrID), "", &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path, rawQuery string, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, rawQuery, nil, nil)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrQuery, c.Name, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: %s %s: status %d", ErrQuery, c.Name, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: decode: %v", ErrQuery, c.Name, path, err)
	}
	return nil
}

func copyHeaders(dst, src http.Header) {
	for k, vv := range src {
		if isHopByHopHeader(k) || strings.EqualFold(k, "Host") {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

// Hop-by-hop headers (RFC 7230)
func isHopByHopHeader(k string) bool {
	switch http.CanonicalHeaderKey(k) {
	case "Connection", "Proxy-Connection", "Keep-Alive",
		"Proxy-Authenticate", "Proxy-Authorization",
		"Te", "Trailer", "Transfer-Encoding", "Upgrade":
		return true
	default:
		return false
	}
}
