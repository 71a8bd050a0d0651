package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pizza-storefront/internal/domain/cart"
	"github.com/xenking/pizza-storefront/internal/domain/catalog"
)

const (
	getPrefsSQL = `SELECT delivery_type, selected_address_id, discount_ids
		FROM device_prefs WHERE device_id = $1`

	upsertPrefsSQL = `INSERT INTO device_prefs (device_id, delivery_type, selected_address_id, discount_ids, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (device_id) DO UPDATE
		SET delivery_type = EXCLUDED.delivery_type,
		    selected_address_id = EXCLUDED.selected_address_id,
		    discount_ids = EXCLUDED.discount_ids,
		    updated_at = now()`
)

var _ cart.PrefsRepository = (*PrefsRepository)(nil)

// PrefsRepository implements cart.PrefsRepository backed by PostgreSQL.
type PrefsRepository struct {
	pool *pgxpool.Pool
}

// NewPrefsRepository returns a PrefsRepository that uses the given pool.
func NewPrefsRepository(pool *pgxpool.Pool) *PrefsRepository {
	return &PrefsRepository{pool: pool}
}

// Load returns the persisted preferences for a device.
// Returns cart.ErrPrefsNotFound when the device has none saved.
func (r *PrefsRepository) Load(ctx context.Context, deviceID string) (*cart.Prefs, error) {
	var (
		deliveryType string
		addressID    *string
		discountIDs  []string
	)
	err := r.pool.QueryRow(ctx, getPrefsSQL, deviceID).Scan(&deliveryType, &addressID, &discountIDs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrPrefsNotFound
		}
		return nil, errors.Wrapf(err, "load prefs for device %s", deviceID)
	}

	p := &cart.Prefs{
		DeliveryType: catalog.DeliveryType(deliveryType),
		DiscountIDs:  discountIDs,
	}
	if addressID != nil {
		p.SelectedAddressID = *addressID
	}
	return p, nil
}

// Save upserts the preference subset for a device.
func (r *PrefsRepository) Save(ctx context.Context, deviceID string, p cart.Prefs) error {
	var addressID *string
	if p.SelectedAddressID != "" {
		addressID = &p.SelectedAddressID
	}
	_, err := r.pool.Exec(ctx, upsertPrefsSQL, deviceID, string(p.DeliveryType), addressID, p.DiscountIDs)
	if err != nil {
		return errors.Wrapf(err, "save prefs for device %s", deviceID)
	}
	return nil
}
