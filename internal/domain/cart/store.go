package cart

import (
	"sync"

	"github.com/xenking/pizza-storefront/internal/domain/catalog"
)

// Store is the single source of truth for one device's cart state: line
// items, delivery type, selected address, and applied discount ids. All
// mutation goes through its methods; there is no external access to the
// underlying slices.
//
// Concurrency model: a plain RWMutex. Handlers mutate from request
// goroutines, the summary refresher reads snapshots from its own.
type Store struct {
	mu sync.RWMutex

	items   []Item
	summary *Summary

	deliveryType      catalog.DeliveryType
	selectedAddressID string
	discountIDs       []string

	// version increments on every item mutation, including SetItems calls
	// that happen to carry a semantically identical list. Consumers compare
	// versions instead of item slices, so a refetch can never be silently
	// skipped by an equality short-circuit.
	version uint64
}

// NewStore creates a Store with pickup as the initial delivery type.
func NewStore() *Store {
	return &Store{deliveryType: catalog.DeliveryPickup}
}

// SetItems replaces the full item list after a refetch from the commerce API.
func (s *Store) SetItems(items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]Item(nil), items...)
	s.version++
}

// AddItem inserts a line, or replaces an existing line with the same
// product+variant combination. Replacement (not quantity summing) avoids
// double counting when the commerce API already merged quantities on its
// side.
func (s *Store) AddItem(item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ItemID == item.ItemID && s.items[i].VariantID == item.VariantID {
			s.items[i] = item
			s.version++
			return
		}
	}
	s.items = append(s.items, item)
	s.version++
}

// UpdateItem applies fn to the line with the given id. It reports whether
// the line was found.
func (s *Store) UpdateItem(id string, fn func(*Item)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			fn(&s.items[i])
			s.version++
			return true
		}
	}
	return false
}

// RemoveItem deletes the line with the given id. It reports whether the
// line was found.
func (s *Store) RemoveItem(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.version++
			return true
		}
	}
	return false
}

// Items returns a copy of the current line items.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Item(nil), s.items...)
}

// ItemIDs returns the ids of the current line items, in cart order. Used
// when requesting server-side pricing and discount recalculation.
func (s *Store) ItemIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.items))
	for i := range s.items {
		ids[i] = s.items[i].ID
	}
	return ids
}

// Version returns the item mutation counter.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// SetDeliveryType swaps the global delivery type. Switching away from
// delivery clears the selected address; items incompatible with the new
// type are NOT dropped here; availability is a derived concern handled by
// the validation checker.
func (s *Store) SetDeliveryType(dt catalog.DeliveryType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveryType = dt
	if dt != catalog.DeliveryDelivery {
		s.selectedAddressID = ""
	}
}

// DeliveryType returns the current delivery type.
func (s *Store) DeliveryType() catalog.DeliveryType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deliveryType
}

// SetSelectedAddress records the delivery address choice.
func (s *Store) SetSelectedAddress(addressID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedAddressID = addressID
}

// SelectedAddressID returns the selected address id, or "" when none.
func (s *Store) SelectedAddressID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedAddressID
}

// AddDiscount records an applied discount id. Duplicates are ignored; the
// discount amount itself is always re-derived by the commerce API.
func (s *Store) AddDiscount(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.discountIDs {
		if d == id {
			return
		}
	}
	s.discountIDs = append(s.discountIDs, id)
}

// RemoveDiscount drops an applied discount id.
func (s *Store) RemoveDiscount(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.discountIDs {
		if d == id {
			s.discountIDs = append(s.discountIDs[:i], s.discountIDs[i+1:]...)
			return
		}
	}
}

// DiscountIDs returns a copy of the applied discount ids.
func (s *Store) DiscountIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.discountIDs...)
}

// SetSummary stores the latest server-computed billing snapshot.
func (s *Store) SetSummary(sum *Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = sum
}

// Summary returns the latest billing snapshot, or nil when none has been
// fetched yet.
func (s *Store) Summary() *Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// ClearCart resets items, summary, and applied discounts. Delivery type and
// address selection survive; they are user preferences, not cart contents.
func (s *Store) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.summary = nil
	s.discountIDs = nil
	s.version++
}

// Prefs maps the store to its persisted-subset DTO. This is the explicit
// serialization boundary: only what Prefs carries survives a restart.
func (s *Store) Prefs() Prefs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Prefs{
		DeliveryType:      s.deliveryType,
		SelectedAddressID: s.selectedAddressID,
		DiscountIDs:       append([]string(nil), s.discountIDs...),
	}
}

// RestorePrefs applies a persisted preference DTO to the store. Items and
// summary are untouched; they are refetched from the commerce API.
func (s *Store) RestorePrefs(p Prefs) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.DeliveryType != "" {
		s.deliveryType = p.DeliveryType
	}
	s.selectedAddressID = p.SelectedAddressID
	s.discountIDs = append([]string(nil), p.DiscountIDs...)
}
