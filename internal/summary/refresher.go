// Package summary keeps a cart store's billing snapshot in sync with the
// commerce API. Refreshes are debounced so bursts of cart mutations (rapid
// quantity clicks) collapse into a single priced-summary fetch, and a
// generation token makes superseded fetches discard their results instead
// of overwriting fresher state.
package summary

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/pizza-storefront/internal/domain/cart"
	"github.com/xenking/pizza-storefront/internal/upstream"
)

// DefaultDebounce is the delay between the last Request call and the fetch.
const DefaultDebounce = 300 * time.Millisecond

// Fetcher obtains the priced summary from the commerce API.
type Fetcher interface {
	GetSummary(ctx context.Context, req upstream.SummaryRequest) (*cart.Summary, error)
}

// Refresher owns summary refreshes for one device's store.
type Refresher struct {
	store    *cart.Store
	fetch    Fetcher
	storeID  string
	debounce time.Duration
	lg       *zap.Logger

	gen atomic.Uint64

	mu    sync.Mutex
	timer *time.Timer
}

// NewRefresher creates a Refresher. A non-positive debounce falls back to
// DefaultDebounce.
func NewRefresher(store *cart.Store, fetch Fetcher, storeID string, debounce time.Duration, lg *zap.Logger) *Refresher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Refresher{
		store:    store,
		fetch:    fetch,
		storeID:  storeID,
		debounce: debounce,
		lg:       lg,
	}
}

// Matches reports whether the refresher is bound to the given store
// instance and store id. Callers caching refreshers use it to detect a
// stale binding after the cart manager recreated a device's store or the
// client switched stores.
func (r *Refresher) Matches(store *cart.Store, storeID string) bool {
	return r.store == store && r.storeID == storeID
}

// Request schedules a background refresh. Calls within the debounce window
// coalesce; only the last one fires. Errors are logged and leave the
// previous summary in place; the HTTP surface exposes RefreshNow as the
// manual retry path.
func (r *Refresher) Request() {
	gen := r.gen.Add(1)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := r.refresh(ctx, gen); err != nil && !errors.Is(err, errStale) {
			r.lg.Warn("Summary refresh failed", zap.Error(err))
		}
	})
}

// RefreshNow fetches the summary synchronously, bypassing the debounce.
// Used for the explicit retry affordance.
func (r *Refresher) RefreshNow(ctx context.Context) (*cart.Summary, error) {
	return r.refresh(ctx, r.gen.Add(1))
}

var errStale = errors.New("summary refresh superseded")

// refresh snapshots the store, fetches the priced summary, and commits it
// only when no newer refresh has started since (last-request-wins).
func (r *Refresher) refresh(ctx context.Context, gen uint64) (*cart.Summary, error) {
	ids := r.store.ItemIDs()
	if len(ids) == 0 {
		if r.gen.Load() == gen {
			r.store.SetSummary(nil)
		}
		return nil, nil
	}

	req := upstream.SummaryRequest{
		CartIDs:      ids,
		DeliveryType: r.store.DeliveryType(),
		AddressID:    r.store.SelectedAddressID(),
		DiscountIDs:  r.store.DiscountIDs(),
		StoreID:      r.storeID,
	}

	sum, err := r.fetch.GetSummary(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch summary")
	}

	if r.gen.Load() != gen {
		return nil, errStale
	}

	r.store.SetSummary(sum)
	return sum, nil
}
