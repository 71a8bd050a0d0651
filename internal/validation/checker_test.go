package validation

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pizza-storefront/internal/domain/cart"
	"github.com/xenking/pizza-storefront/internal/domain/catalog"
)

type mockSource struct {
	mu       sync.Mutex
	byID     map[string]*catalog.Product
	err      error
	fetches  int
	onFetch  func()
	fetchLog []string
}

func (m *mockSource) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	m.mu.Lock()
	m.fetches++
	m.fetchLog = append(m.fetchLog, id)
	onFetch := m.onFetch
	m.mu.Unlock()

	if onFetch != nil {
		onFetch()
	}
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func (m *mockSource) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

func restrictedProduct(id string, types ...catalog.DeliveryType) *catalog.Product {
	return &catalog.Product{ID: id, DeliveryTypes: types}
}

func testItems(productIDs ...string) []cart.Item {
	items := make([]cart.Item, len(productIDs))
	for i, id := range productIDs {
		items[i] = cart.Item{ID: "line-" + id, ItemID: id, Quantity: 1}
	}
	return items
}

func TestChecker_PartitionsByDeliveryType(t *testing.T) {
	src := &mockSource{byID: map[string]*catalog.Product{
		"dine-only": restrictedProduct("dine-only", catalog.DeliveryDineIn),
		"anywhere":  restrictedProduct("anywhere"),
	}}
	c := NewChecker(src)

	res, err := c.Check(context.Background(), "dev-1", testItems("dine-only", "anywhere"), catalog.DeliveryDelivery)
	require.NoError(t, err)

	assert.False(t, res.OK())
	require.Len(t, res.Valid, 1)
	assert.Equal(t, "anywhere", res.Valid[0].ItemID)
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, "dine-only", res.Invalid[0].ItemID)
}

func TestChecker_FailOpenOnFetchError(t *testing.T) {
	src := &mockSource{err: errors.New("catalog down")}
	c := NewChecker(src)

	res, err := c.Check(context.Background(), "dev-1", testItems("p1", "p2"), catalog.DeliveryDelivery)
	require.NoError(t, err)

	// Metadata gaps never block: everything is treated as valid.
	assert.True(t, res.OK())
	assert.Len(t, res.Valid, 2)
}

func TestChecker_FingerprintOrderInsensitive(t *testing.T) {
	items := testItems("a", "b")
	reversed := []cart.Item{items[1], items[0]}

	assert.Equal(t,
		Fingerprint(items, catalog.DeliveryPickup),
		Fingerprint(reversed, catalog.DeliveryPickup),
	)
	assert.NotEqual(t,
		Fingerprint(items, catalog.DeliveryPickup),
		Fingerprint(items, catalog.DeliveryDelivery),
	)
}

func TestChecker_UnchangedFingerprintServedFromCache(t *testing.T) {
	src := &mockSource{byID: map[string]*catalog.Product{
		"p1": restrictedProduct("p1", catalog.DeliveryPickup),
	}}
	c := NewChecker(src)
	items := testItems("p1")

	_, err := c.Check(context.Background(), "dev-1", items, catalog.DeliveryPickup)
	require.NoError(t, err)
	first := src.fetchCount()

	_, err = c.Check(context.Background(), "dev-1", items, catalog.DeliveryPickup)
	require.NoError(t, err)

	assert.Equal(t, first, src.fetchCount(), "second check must not refetch")
}

func TestChecker_DeliveryTypeChangeRechecks(t *testing.T) {
	src := &mockSource{byID: map[string]*catalog.Product{
		"p1": restrictedProduct("p1", catalog.DeliveryPickup),
	}}
	c := NewChecker(src)
	items := testItems("p1")

	res, err := c.Check(context.Background(), "dev-1", items, catalog.DeliveryPickup)
	require.NoError(t, err)
	assert.True(t, res.OK())

	res, err = c.Check(context.Background(), "dev-1", items, catalog.DeliveryDelivery)
	require.NoError(t, err)
	assert.False(t, res.OK())
}

func TestChecker_SupersededCheckDiscarded(t *testing.T) {
	src := &mockSource{byID: map[string]*catalog.Product{
		"p1": restrictedProduct("p1"),
		"p2": restrictedProduct("p2"),
	}}
	c := NewChecker(src)

	// While the first check fetches, a newer check for the same device bumps
	// the generation.
	var once sync.Once
	src.onFetch = func() {
		once.Do(func() {
			src.mu.Lock()
			src.onFetch = nil
			src.mu.Unlock()
			_, err := c.Check(context.Background(), "dev-1", testItems("p2"), catalog.DeliveryPickup)
			require.NoError(t, err)
		})
	}

	_, err := c.Check(context.Background(), "dev-1", testItems("p1"), catalog.DeliveryPickup)
	assert.ErrorIs(t, err, ErrSuperseded)
}

func TestChecker_ChecksIsolatedPerDevice(t *testing.T) {
	src := &mockSource{byID: map[string]*catalog.Product{
		"pickup-only": restrictedProduct("pickup-only", catalog.DeliveryPickup),
		"anywhere":    restrictedProduct("anywhere"),
	}}
	c := NewChecker(src)

	// While one device's check fetches, another device completes its own
	// check. That must not supersede the first one.
	var once sync.Once
	src.onFetch = func() {
		once.Do(func() {
			src.mu.Lock()
			src.onFetch = nil
			src.mu.Unlock()
			res, err := c.Check(context.Background(), "dev-b", testItems("anywhere"), catalog.DeliveryPickup)
			require.NoError(t, err)
			assert.True(t, res.OK())
		})
	}

	res, err := c.Check(context.Background(), "dev-a", testItems("pickup-only"), catalog.DeliveryDelivery)
	require.NoError(t, err, "another device's check must not supersede this one")
	assert.False(t, res.OK())
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, "pickup-only", res.Invalid[0].ItemID)
}

func TestChecker_InvalidateForcesRefetch(t *testing.T) {
	src := &mockSource{byID: map[string]*catalog.Product{
		"p1": restrictedProduct("p1"),
	}}
	c := NewChecker(src)

	_, err := c.Check(context.Background(), "dev-1", testItems("p1"), catalog.DeliveryPickup)
	require.NoError(t, err)
	first := src.fetchCount()

	c.Invalidate("p1")
	// Different delivery type so the result cache does not short-circuit.
	_, err = c.Check(context.Background(), "dev-1", testItems("p1"), catalog.DeliveryDelivery)
	require.NoError(t, err)

	assert.Greater(t, src.fetchCount(), first)
}
