// Package session holds the transient configuration state for a single
// product while a customer customizes it, before the selection is committed
// to the cart.
//
// The session is an explicit finite state machine (closed, loading, open)
// so illegal states, like mutating a selection before the product data has
// arrived or after the session was closed, are rejected instead of
// silently writing into half-initialized state.
package session

import (
	"fmt"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/pizza-storefront/internal/domain/catalog"
	"github.com/xenking/pizza-storefront/internal/pricing"
)

// State enumerates the session lifecycle phases.
type State int

const (
	// StateClosed means no product is being configured.
	StateClosed State = iota
	// StateLoading means a product was opened but its data has not arrived.
	StateLoading
	// StateOpen means product data is loaded and the selection is mutable.
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateLoading:
		return "loading"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

var (
	// ErrNotOpen is returned by selection mutations outside the open state.
	ErrNotOpen = errors.New("session is not open")
	// ErrNotLoading is returned when product data arrives for a session that
	// did not ask for it.
	ErrNotLoading = errors.New("session is not loading")
	// ErrProductMismatch is returned when the supplied product data does not
	// match the product the session was opened for.
	ErrProductMismatch = errors.New("product does not match opened session")
	// ErrUnknownVariant is returned for a variant id the product does not declare.
	ErrUnknownVariant = errors.New("unknown variant")
	// ErrUnknownAddon is returned for an addon id the product does not declare.
	ErrUnknownAddon = errors.New("unknown addon")
)

// maxLineQuantity bounds a single cart line. Matches the commerce API's cap.
const maxLineQuantity = 50

// Session is the transient configuration state machine. The session owns no
// I/O: the caller fetches product data and supplies it via SetProduct, and
// Commit only packages state for the caller to submit.
type Session struct {
	mu sync.Mutex

	state     State
	productID string
	product   *catalog.Product

	variants map[string]string // variant group id -> chosen variant id
	addons   map[string]pricing.AddonChoice
	quantity int

	// rev increments on every selection change; memoRev/memoTotal cache the
	// advisory total so repeated reads between changes skip recomputation.
	rev       uint64
	memoRev   uint64
	memoTotal decimal.Decimal
}

// New returns a closed session.
func New() *Session {
	return &Session{}
}

// Open transitions closed -> loading for the given product. Opening while
// another configuration is in progress discards it first; there is no
// "resume" capability.
func (s *Session) Open(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.state = StateLoading
	s.productID = productID
}

// SetProduct supplies the fetched product data, transitioning loading ->
// open. When no variant is chosen yet, the first variant of the primary
// group is auto-selected so the configuration always starts priceable.
func (s *Session) SetProduct(p *catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoading {
		return ErrNotLoading
	}
	if p == nil || p.ID != s.productID {
		return ErrProductMismatch
	}

	s.product = p
	s.state = StateOpen
	s.quantity = 1
	s.rev++

	if g, ok := p.PrimaryVariantGroup(); ok && len(g.Variants) > 0 {
		if _, chosen := s.variants[g.ID]; !chosen {
			s.variants[g.ID] = g.Variants[0].ID
		}
	}
	return nil
}

// Close hard-resets the session back to closed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.state = StateClosed
	s.productID = ""
	s.product = nil
	s.variants = make(map[string]string)
	s.addons = make(map[string]pricing.AddonChoice)
	s.quantity = 1
	s.rev++
}

// SelectVariant chooses a variant within its group.
func (s *Session) SelectVariant(groupID, variantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return ErrNotOpen
	}
	v, ok := s.product.FindVariant(variantID)
	if !ok || v.GroupID != groupID {
		return ErrUnknownVariant
	}
	s.variants[groupID] = variantID
	s.rev++
	return nil
}

// ToggleAddon flips an addon's selected state. Newly selected addons start
// at quantity 1; deselecting resets the quantity to 0.
func (s *Session) ToggleAddon(addonID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return ErrNotOpen
	}
	if _, ok := s.product.FindAddon(addonID); !ok {
		return ErrUnknownAddon
	}
	choice := s.addons[addonID]
	if choice.Selected {
		s.addons[addonID] = pricing.AddonChoice{Selected: false, Quantity: 0}
	} else {
		s.addons[addonID] = pricing.AddonChoice{Selected: true, Quantity: 1}
	}
	s.rev++
	return nil
}

// SetAddonQuantity adjusts a selected addon's quantity within the addon's
// declared cap. Setting quantity to 0 deselects the addon.
func (s *Session) SetAddonQuantity(addonID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return ErrNotOpen
	}
	a, ok := s.product.FindAddon(addonID)
	if !ok {
		return ErrUnknownAddon
	}
	if qty < 0 {
		return errors.New("addon quantity must not be negative")
	}
	if a.MaxQuantity > 0 && qty > a.MaxQuantity {
		return errors.Errorf("addon %s quantity exceeds maximum of %d", addonID, a.MaxQuantity)
	}
	if qty == 0 {
		s.addons[addonID] = pricing.AddonChoice{Selected: false, Quantity: 0}
	} else {
		s.addons[addonID] = pricing.AddonChoice{Selected: true, Quantity: qty}
	}
	s.rev++
	return nil
}

// SetQuantity adjusts the line quantity.
func (s *Session) SetQuantity(qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return ErrNotOpen
	}
	if qty < 1 || qty > maxLineQuantity {
		return errors.Errorf("quantity must be between 1 and %d", maxLineQuantity)
	}
	s.quantity = qty
	s.rev++
	return nil
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ProductID returns the product being configured, or "" when closed.
func (s *Session) ProductID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.productID
}

// Quantity returns the current line quantity.
func (s *Session) Quantity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quantity
}

// SelectedVariant returns the chosen variant for a group, if any.
func (s *Session) SelectedVariant(groupID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.variants[groupID]
	return id, ok
}

// AddonChoice returns the selection state of an addon.
func (s *Session) AddonChoice(addonID string) pricing.AddonChoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addons[addonID]
}

// selectionLocked assembles the pricing.Selection for the current state.
// Caller must hold s.mu.
func (s *Session) selectionLocked() pricing.Selection {
	variantID := ""
	if s.product != nil {
		if g, ok := s.product.PrimaryVariantGroup(); ok {
			variantID = s.variants[g.ID]
		}
	}
	addons := make(map[string]pricing.AddonChoice, len(s.addons))
	for id, c := range s.addons {
		addons[id] = c
	}
	return pricing.Selection{VariantID: variantID, Addons: addons}
}

// Total returns the advisory line total for the current configuration,
// memoized by revision so unrelated reads do not recompute it.
func (s *Session) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return decimal.Zero
	}
	if s.memoRev == s.rev {
		return s.memoTotal
	}
	s.memoTotal = pricing.LineTotal(s.product, s.selectionLocked(), s.quantity)
	s.memoRev = s.rev
	return s.memoTotal
}

// Validate applies the product's group selection rules and quantity bounds,
// returning human-readable problems. An empty slice means the configuration
// is committable.
func (s *Session) Validate() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return []string{"no product is being configured"}
	}

	var errs []string
	for _, g := range s.product.VariantGroups {
		if _, ok := s.variants[g.ID]; !ok && (g.Required || g.Primary) {
			errs = append(errs, fmt.Sprintf("select an option for %s", g.Name))
		}
	}
	for _, g := range s.product.AddonGroups {
		selected := 0
		for _, a := range g.Addons {
			if s.addons[a.ID].Selected {
				selected++
			}
		}
		if selected < g.MinSelect {
			errs = append(errs, fmt.Sprintf("choose at least %d from %s", g.MinSelect, g.Name))
		}
		if g.MaxSelect > 0 && selected > g.MaxSelect {
			errs = append(errs, fmt.Sprintf("choose at most %d from %s", g.MaxSelect, g.Name))
		}
	}
	if s.quantity < 1 || s.quantity > maxLineQuantity {
		errs = append(errs, fmt.Sprintf("quantity must be between 1 and %d", maxLineQuantity))
	}
	return errs
}

// Payload packages the current configuration into the add-to-cart wire
// shape. The session performs no network I/O; submitting the payload is the
// caller's job.
func (s *Session) Payload(ids pricing.PayloadIDs) (pricing.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return pricing.Payload{}, ErrNotOpen
	}
	return pricing.BuildPayload(s.product, s.selectionLocked(), s.quantity, ids), nil
}
