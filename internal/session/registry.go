// Package session owns the per-client state: exactly one cart and one
// wishlist per session id, hydrated on first use and dropped once idle.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/store"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/wishlist"
)

var ErrInvalidID = errors.New("invalid session id")

const maxIDLength = 128

func CartKey(id string) string     { return "cart:" + id }
func WishlistKey(id string) string { return "wishlist:" + id }

// NewID returns a fresh session id for a client that has none.
func NewID() string { return uuid.NewString() }

// ValidID reports whether id is safe to use as a storage key suffix.
func ValidID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return id != "." && id != ".."
}

// Client is the state one session owns.
type Client struct {
	ID       string
	Cart     *cart.Store
	Wishlist *wishlist.Store

	lastSeen atomic.Int64
	cancels  []func()
}

func (c *Client) touch(now time.Time) { c.lastSeen.Store(now.UnixNano()) }

func (c *Client) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastSeen.Load()))
}

func (c *Client) busy() bool { return c.Cart.Loading() || c.Wishlist.Loading() }

func (c *Client) close() {
	for _, cancel := range c.cancels {
		cancel()
	}
	c.Cart.Close()
	c.Wishlist.Close()
}

type entry struct {
	once   sync.Once
	client atomic.Pointer[Client]
}

type Option func(*Registry)

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

type Registry struct {
	backend store.Backend
	pricing cart.Pricing
	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.Mutex
	clients map[string]*entry
}

func NewRegistry(backend store.Backend, pricing cart.Pricing, opts ...Option) *Registry {
	r := &Registry{
		backend: backend,
		pricing: pricing,
		logger:  zerolog.Nop(),
		now:     time.Now,
		clients: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open returns the client for id, creating and hydrating it on first use.
// Concurrent callers for the same id share one instance. A failed rehydration
// is logged and the client starts empty.
func (r *Registry) Open(ctx context.Context, id string) (*Client, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	// A known client is stamped under mu so Sweep cannot evict it between
	// lookup and hand-out. New clients are stamped by hydrate.
	r.mu.Lock()
	e, ok := r.clients[id]
	if !ok {
		e = &entry{}
		r.clients[id] = e
		r.setActive(len(r.clients))
	} else if c := e.client.Load(); c != nil {
		c.touch(r.now())
	}
	r.mu.Unlock()

	e.once.Do(func() { e.client.Store(r.hydrate(context.WithoutCancel(ctx), id)) })
	return e.client.Load(), nil
}

func (r *Registry) hydrate(ctx context.Context, id string) *Client {
	logger := r.logger.With().Str("session_id", id).Logger()
	c := &Client{
		ID:       id,
		Cart:     cart.NewStore(store.NewJSONAdapter[cart.Snapshot](r.backend, CartKey(id)), r.pricing, logger),
		Wishlist: wishlist.NewStore(store.NewJSONAdapter[wishlist.Snapshot](r.backend, WishlistKey(id)), logger),
	}

	if err := c.Cart.Hydrate(ctx); err != nil {
		logger.Warn().Err(err).Msg("cart rehydrate failed")
	}
	if err := c.Wishlist.Hydrate(ctx); err != nil {
		logger.Warn().Err(err).Msg("wishlist rehydrate failed")
	}

	if r.metrics != nil {
		failures := r.metrics.PersistFailures
		c.cancels = append(c.cancels,
			c.Cart.Subscribe(func(_ cart.Cart, err error) {
				if err != nil {
					failures.WithLabelValues("cart").Inc()
				}
			}),
			c.Wishlist.Subscribe(func(_ []wishlist.Item, err error) {
				if err != nil {
					failures.WithLabelValues("wishlist").Inc()
				}
			}),
		)
	}
	c.touch(r.now())
	return c
}

// Close drops the in-memory state of id. Persisted snapshots are kept.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	e, ok := r.clients[id]
	if ok {
		delete(r.clients, id)
		r.setActive(len(r.clients))
	}
	r.mu.Unlock()

	if ok {
		// waits for a hydration in progress
		e.once.Do(func() {})
		if c := e.client.Load(); c != nil {
			c.close()
		}
	}
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Close(id)
	}
}

// Sweep closes clients idle for longer than ttl and returns how many it
// closed. Clients with a mutation in flight are skipped.
func (r *Registry) Sweep(ttl time.Duration) int {
	r.mu.Lock()
	now := r.now()
	var idle []*Client
	for id, e := range r.clients {
		c := e.client.Load()
		if c == nil || c.busy() || c.idleSince(now) <= ttl {
			continue
		}
		delete(r.clients, id)
		idle = append(idle, c)
	}
	r.setActive(len(r.clients))
	r.mu.Unlock()

	for _, c := range idle {
		c.close()
	}
	return len(idle)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(ttl); n > 0 {
				r.logger.Debug().Int("closed", n).Msg("swept idle sessions")
			}
		}
	}
}

func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *Registry) setActive(n int) {
	if r.metrics != nil {
		r.metrics.ActiveSessions.Set(float64(n))
	}
}
