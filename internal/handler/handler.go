// Package handler exposes the storefront HTTP surface. Responses use the
// same {statusCode, data, errorMessage} envelope the commerce API speaks,
// so web clients handle both with one decoder.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/xenking/pizza-storefront/internal/domain/address"
	"github.com/xenking/pizza-storefront/internal/domain/cart"
	"github.com/xenking/pizza-storefront/internal/domain/catalog"
	"github.com/xenking/pizza-storefront/internal/pricing"
	"github.com/xenking/pizza-storefront/internal/promo"
	"github.com/xenking/pizza-storefront/internal/session"
	"github.com/xenking/pizza-storefront/internal/summary"
	"github.com/xenking/pizza-storefront/internal/upstream"
	"github.com/xenking/pizza-storefront/internal/validation"
	"github.com/xenking/pizza-storefront/pkg/httpmiddleware"
)

// Commerce is the slice of the upstream client the handler needs.
type Commerce interface {
	ListProducts(ctx context.Context, storeID string) ([]*catalog.Product, error)
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
	GetCart(ctx context.Context, deviceID string) ([]cart.Item, error)
	AddCartItem(ctx context.Context, pl pricing.Payload) (*cart.Item, error)
	UpdateCartItem(ctx context.Context, id string, quantity int) (*cart.Item, error)
	RemoveCartItem(ctx context.Context, id string) error
	GetSummary(ctx context.Context, req upstream.SummaryRequest) (*cart.Summary, error)
	ListDiscounts(ctx context.Context, storeID string) ([]upstream.Discount, error)
	FindDiscountByCode(ctx context.Context, storeID, code string) (*upstream.Discount, error)
	CreateOrder(ctx context.Context, req upstream.OrderRequest) (*upstream.Order, error)
	ListStores(ctx context.Context) ([]upstream.StoreLocation, error)
}

// Registry bounds applied when Config leaves them zero.
const (
	DefaultRegistrySize = 4096
	DefaultRegistryTTL  = 30 * time.Minute
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// DefaultStoreID is used when a request carries no X-Store-ID header.
	DefaultStoreID string
	// SummaryDebounce is the delay applied to background summary refreshes.
	SummaryDebounce time.Duration
	// RegistrySize bounds the per-device session and refresher registries.
	// Zero means DefaultRegistrySize.
	RegistrySize int
	// RegistryTTL is the idle lifetime of a registry entry. Zero means
	// DefaultRegistryTTL.
	RegistryTTL time.Duration
}

// Handler wires the storefront routes to the domain components.
type Handler struct {
	cfg       Config
	commerce  Commerce
	carts     *cart.Manager
	checker   *validation.Checker
	addresses address.Repository
	prefilter *promo.Prefilter
	lg        *zap.Logger

	sessions   *expirable.LRU[string, *session.Session]
	refreshers *expirable.LRU[string, *summary.Refresher]
}

// New constructs a Handler with the required dependencies. prefilter may be
// nil; apply-discount then skips the local prefilter step.
func New(
	cfg Config,
	commerce Commerce,
	carts *cart.Manager,
	checker *validation.Checker,
	addresses address.Repository,
	prefilter *promo.Prefilter,
	lg *zap.Logger,
) *Handler {
	if cfg.RegistrySize <= 0 {
		cfg.RegistrySize = DefaultRegistrySize
	}
	if cfg.RegistryTTL <= 0 {
		cfg.RegistryTTL = DefaultRegistryTTL
	}
	return &Handler{
		cfg:        cfg,
		commerce:   commerce,
		carts:      carts,
		checker:    checker,
		addresses:  addresses,
		prefilter:  prefilter,
		lg:         lg,
		sessions:   expirable.NewLRU[string, *session.Session](cfg.RegistrySize, nil, cfg.RegistryTTL),
		refreshers: expirable.NewLRU[string, *summary.Refresher](cfg.RegistrySize, nil, cfg.RegistryTTL),
	}
}

// Routes returns the chi router for the API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)
	r.Get("/stores", h.listStores)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Delete("/", h.clearCart)
		r.Patch("/items/{lineID}", h.updateCartItem)
		r.Delete("/items/{lineID}", h.removeCartItem)
		r.Put("/delivery-type", h.setDeliveryType)
		r.Get("/validate", h.validateCart)
		r.Get("/summary", h.getSummary)
		r.Post("/summary/refresh", h.refreshSummary)
		r.Post("/discounts", h.applyDiscount)
		r.Delete("/discounts/{discountID}", h.removeDiscount)
	})

	r.Route("/configure", func(r chi.Router) {
		r.Get("/", h.getConfiguration)
		r.Post("/open", h.openConfiguration)
		r.Post("/variant", h.selectVariant)
		r.Post("/addon/toggle", h.toggleAddon)
		r.Post("/addon/quantity", h.setAddonQuantity)
		r.Post("/quantity", h.setQuantity)
		r.Post("/commit", h.commitConfiguration)
		r.Delete("/", h.closeConfiguration)
	})

	r.Route("/addresses", func(r chi.Router) {
		r.Get("/", h.listAddresses)
		r.Post("/", h.createAddress)
		r.Put("/{addressID}", h.updateAddress)
		r.Delete("/{addressID}", h.deleteAddress)
		r.Post("/{addressID}/default", h.setDefaultAddress)
		r.Put("/select", h.selectAddress)
	})

	r.Post("/checkout", h.checkout)

	return r
}

// --- request identity helpers ---

func deviceID(r *http.Request) string {
	return r.Header.Get(httpmiddleware.DeviceIDHeader)
}

func (h *Handler) storeID(r *http.Request) string {
	if id := r.Header.Get("X-Store-ID"); id != "" {
		return id
	}
	return h.cfg.DefaultStoreID
}

func sessionID(r *http.Request) string {
	return r.Header.Get("X-Session-ID")
}

// store resolves the device's cart store, writing a 400 when the device
// header is missing. The bool reports whether the caller may proceed.
func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*cart.Store, string, bool) {
	id := deviceID(r)
	if id == "" {
		respondErr(w, http.StatusBadRequest, "device id header is required")
		return nil, "", false
	}
	s, err := h.carts.ForDevice(r.Context(), id)
	if err != nil {
		h.internalError(w, r, err)
		return nil, "", false
	}
	return s, id, true
}

// configSession resolves the device's product configuration session,
// creating a closed one on first use.
func (h *Handler) configSession(deviceID string) *session.Session {
	if s, ok := h.sessions.Get(deviceID); ok {
		return s
	}
	s := session.New()
	h.sessions.Add(deviceID, s)
	return s
}

// refresher resolves the device's summary refresher. A cached refresher
// bound to a replaced store instance or a different store id is discarded
// and rebuilt, so it can never commit summaries to an orphaned store.
func (h *Handler) refresher(deviceID, storeID string, s *cart.Store) *summary.Refresher {
	if r, ok := h.refreshers.Get(deviceID); ok && r.Matches(s, storeID) {
		return r
	}
	r := summary.NewRefresher(s, h.commerce, storeID, h.cfg.SummaryDebounce, h.lg)
	h.refreshers.Add(deviceID, r)
	return r
}

// savePrefs persists the device's preference subset, logging instead of
// failing the request: preference persistence is best-effort.
func (h *Handler) savePrefs(ctx context.Context, deviceID string) {
	if err := h.carts.SavePrefs(ctx, deviceID); err != nil {
		zctx.From(ctx).Warn("Failed to save preferences",
			zap.String("device_id", deviceID), zap.Error(err))
	}
}

// --- envelope helpers ---

type envelope struct {
	StatusCode   int    `json:"statusCode"`
	Data         any    `json:"data,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

func respond(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(envelope{StatusCode: code, Data: data})
}

func respondErr(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(envelope{StatusCode: code, ErrorMessage: msg})
}

// internalError logs the cause and responds with the generic message;
// internal details never leak to clients.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed",
		zap.String("path", r.URL.Path), zap.Error(err))
	respondErr(w, http.StatusInternalServerError, upstream.GenericErrorMessage)
}

// upstreamError maps a commerce API failure: envelope errors keep their
// message and status, anything else becomes a 502 with the generic message.
func (h *Handler) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		respondErr(w, apiErr.StatusCode, apiErr.Error())
		return
	}
	zctx.From(r.Context()).Error("Upstream call failed",
		zap.String("path", r.URL.Path), zap.Error(err))
	respondErr(w, http.StatusBadGateway, upstream.GenericErrorMessage)
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
