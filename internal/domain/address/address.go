package address

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested address does not exist.
var ErrNotFound = errors.New("address not found")

// Label classifies a saved address.
type Label string

const (
	LabelHome  Label = "home"
	LabelWork  Label = "work"
	LabelOther Label = "other"
)

// Address is a saved delivery location belonging to a device.
type Address struct {
	ID        string
	DeviceID  string
	Name      string
	Phone     string
	Line1     string
	Line2     string
	City      string
	Pincode   string
	Latitude  float64
	Longitude float64
	Label     Label
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines persistence operations for the address book.
// SetDefault must be atomic: after it returns, exactly one of the device's
// addresses carries the default flag.
type Repository interface {
	List(ctx context.Context, deviceID string) ([]Address, error)
	Get(ctx context.Context, deviceID, id string) (*Address, error)
	Create(ctx context.Context, a *Address) error
	Update(ctx context.Context, a *Address) error
	Delete(ctx context.Context, deviceID, id string) error
	SetDefault(ctx context.Context, deviceID, id string) error
}
