// Package validation derives, for the current delivery type, which cart
// lines are orderable. Product metadata enrichment is fail-open: when a
// product cannot be fetched or declares no restriction, its lines are
// treated as valid. A transient catalog outage must never block checkout
// for an otherwise-orderable item; the order service upstream re-validates.
package validation

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/xenking/pizza-storefront/internal/domain/cart"
	"github.com/xenking/pizza-storefront/internal/domain/catalog"
)

// ErrSuperseded is returned when a newer check started while this one was
// fetching metadata. The caller should discard the result; the newer check
// will deliver the current one (last-request-wins).
var ErrSuperseded = errors.New("check superseded by a newer one")

// MetadataSource fetches product metadata for enrichment.
type MetadataSource interface {
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
}

// Result partitions cart lines by orderability under a delivery type.
type Result struct {
	Valid   []cart.Item
	Invalid []cart.Item
}

// OK reports whether the whole cart is orderable.
func (r Result) OK() bool {
	return len(r.Invalid) == 0
}

// Checker validates cart lines against the selected delivery type.
//
// Product metadata is cached in a bounded TTL LRU shared by all consumers,
// and concurrent fetches of the same product are collapsed via
// singleflight. The generation token and the last-result memo are scoped
// per device key: a newer check supersedes an in-flight one only for the
// same device, never across unrelated carts.
type Checker struct {
	source MetadataSource
	cache  *expirable.LRU[string, *catalog.Product]
	group  singleflight.Group

	mu     sync.Mutex
	states *expirable.LRU[string, *checkState]
}

// checkState tracks one device's in-flight generation and last result.
type checkState struct {
	gen atomic.Uint64

	mu  sync.Mutex
	fp  string
	res Result
	has bool
}

// Option configures a Checker.
type Option func(*options)

type options struct {
	cacheSize int
	cacheTTL  time.Duration
}

// WithCacheSize bounds the metadata cache entry count.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithCacheTTL bounds the metadata cache entry lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) { o.cacheTTL = ttl }
}

// NewChecker creates a Checker over the given metadata source.
func NewChecker(source MetadataSource, opts ...Option) *Checker {
	o := options{cacheSize: 512, cacheTTL: 5 * time.Minute}
	for _, opt := range opts {
		opt(&o)
	}
	return &Checker{
		source: source,
		cache:  expirable.NewLRU[string, *catalog.Product](o.cacheSize, nil, o.cacheTTL),
		states: expirable.NewLRU[string, *checkState](o.cacheSize, nil, o.cacheTTL),
	}
}

// Fingerprint identifies a check's inputs: the sorted, joined line ids plus
// the delivery type. Sorting makes the fingerprint insensitive to cart
// order, so reorderings do not trigger refetches.
func Fingerprint(items []cart.Item, dt catalog.DeliveryType) string {
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	sort.Strings(ids)
	return strings.Join(ids, ",") + "|" + string(dt)
}

// Check partitions the given lines into valid and invalid under the given
// delivery type. The key scopes supersession and result caching to one
// cart, typically the device id. An unchanged fingerprint serves the
// previous result without refetching. Returns ErrSuperseded when a newer
// Check for the same key started while metadata was being fetched.
func (c *Checker) Check(ctx context.Context, key string, items []cart.Item, dt catalog.DeliveryType) (Result, error) {
	st := c.state(key)
	fp := Fingerprint(items, dt)

	st.mu.Lock()
	if st.has && st.fp == fp {
		res := st.res
		st.mu.Unlock()
		return res, nil
	}
	st.mu.Unlock()

	gen := st.gen.Add(1)

	res := Result{}
	for _, item := range items {
		p := c.product(ctx, item.ItemID)
		// Missing metadata or no declared restriction: valid by default.
		if p == nil || p.AllowsDelivery(dt) {
			res.Valid = append(res.Valid, item)
		} else {
			res.Invalid = append(res.Invalid, item)
		}
	}

	// A newer check for this key started while we were fetching; its inputs
	// are fresher, so this result must not be published.
	if st.gen.Load() != gen {
		return Result{}, ErrSuperseded
	}

	st.mu.Lock()
	st.fp = fp
	st.res = res
	st.has = true
	st.mu.Unlock()

	return res, nil
}

// state resolves the per-key check state, creating it on first use. An
// in-flight check keeps its state alive through its own pointer even if
// the registry evicts the entry meanwhile.
func (c *Checker) state(key string) *checkState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states.Get(key); ok {
		return st
	}
	st := &checkState{}
	c.states.Add(key, st)
	return st
}

// product returns metadata for the given product id, or nil when it cannot
// be determined. Fetch errors are swallowed deliberately (fail-open).
func (c *Checker) product(ctx context.Context, id string) *catalog.Product {
	if p, ok := c.cache.Get(id); ok {
		return p
	}

	v, err, _ := c.group.Do(id, func() (interface{}, error) {
		p, err := c.source.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		c.cache.Add(id, p)
		return p, nil
	})
	if err != nil {
		return nil
	}
	p, _ := v.(*catalog.Product)
	return p
}

// Invalidate drops a product from the metadata cache, forcing a refetch on
// the next check. Called when the catalog reports the product changed.
func (c *Checker) Invalidate(productID string) {
	c.cache.Remove(productID)
}
