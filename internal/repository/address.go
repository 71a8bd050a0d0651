package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pizza-storefront/internal/domain/address"
)

const (
	listAddressesSQL = `SELECT id, device_id, name, phone, line1, line2, city, pincode,
		latitude, longitude, label, is_default, created_at, updated_at
		FROM addresses WHERE device_id = $1 ORDER BY created_at`

	getAddressSQL = `SELECT id, device_id, name, phone, line1, line2, city, pincode,
		latitude, longitude, label, is_default, created_at, updated_at
		FROM addresses WHERE device_id = $1 AND id = $2`

	insertAddressSQL = `INSERT INTO addresses
		(id, device_id, name, phone, line1, line2, city, pincode, latitude, longitude, label, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	updateAddressSQL = `UPDATE addresses
		SET name = $3, phone = $4, line1 = $5, line2 = $6, city = $7, pincode = $8,
		    latitude = $9, longitude = $10, label = $11, updated_at = now()
		WHERE device_id = $1 AND id = $2`

	deleteAddressSQL = `DELETE FROM addresses WHERE device_id = $1 AND id = $2`

	// Single statement, so "exactly one default" holds atomically.
	setDefaultSQL = `UPDATE addresses SET is_default = (id = $2), updated_at = now()
		WHERE device_id = $1`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// List returns all addresses saved by a device, oldest first.
func (r *AddressRepository) List(ctx context.Context, deviceID string) ([]address.Address, error) {
	rows, err := r.pool.Query(ctx, listAddressesSQL, deviceID)
	if err != nil {
		return nil, errors.Wrap(err, "list addresses")
	}
	return pgx.CollectRows(rows, scanAddress)
}

// Get returns a single address by id.
func (r *AddressRepository) Get(ctx context.Context, deviceID, id string) (*address.Address, error) {
	rows, err := r.pool.Query(ctx, getAddressSQL, deviceID, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get address %s", id)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get address %s", id)
	}
	return &a, nil
}

// Create persists a new address.
func (r *AddressRepository) Create(ctx context.Context, a *address.Address) error {
	_, err := r.pool.Exec(ctx, insertAddressSQL,
		a.ID, a.DeviceID, a.Name, a.Phone, a.Line1, a.Line2, a.City, a.Pincode,
		a.Latitude, a.Longitude, string(a.Label), a.IsDefault,
	)
	if err != nil {
		return errors.Wrapf(err, "create address %s", a.ID)
	}
	return nil
}

// Update rewrites an address's mutable fields. The default flag is managed
// only through SetDefault.
func (r *AddressRepository) Update(ctx context.Context, a *address.Address) error {
	tag, err := r.pool.Exec(ctx, updateAddressSQL,
		a.DeviceID, a.ID, a.Name, a.Phone, a.Line1, a.Line2, a.City, a.Pincode,
		a.Latitude, a.Longitude, string(a.Label),
	)
	if err != nil {
		return errors.Wrapf(err, "update address %s", a.ID)
	}
	if tag.RowsAffected() == 0 {
		return address.ErrNotFound
	}
	return nil
}

// Delete removes an address.
func (r *AddressRepository) Delete(ctx context.Context, deviceID, id string) error {
	tag, err := r.pool.Exec(ctx, deleteAddressSQL, deviceID, id)
	if err != nil {
		return errors.Wrapf(err, "delete address %s", id)
	}
	if tag.RowsAffected() == 0 {
		return address.ErrNotFound
	}
	return nil
}

// SetDefault marks the given address as the device's default and clears the
// flag on every other address in one atomic statement.
func (r *AddressRepository) SetDefault(ctx context.Context, deviceID, id string) error {
	if _, err := r.Get(ctx, deviceID, id); err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, setDefaultSQL, deviceID, id); err != nil {
		return errors.Wrapf(err, "set default address %s", id)
	}
	return nil
}

func scanAddress(row pgx.CollectableRow) (address.Address, error) {
	var (
		a     address.Address
		line2 *string
		label string
	)
	err := row.Scan(
		&a.ID, &a.DeviceID, &a.Name, &a.Phone, &a.Line1, &line2, &a.City, &a.Pincode,
		&a.Latitude, &a.Longitude, &label, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt,
	)
	if line2 != nil {
		a.Line2 = *line2
	}
	a.Label = address.Label(label)
	return a, err
}
