// Command seed-db prepares a database for local development: it runs the
// migrations and seeds a demo device with preferences and a small address
// book so the API has data to serve immediately.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/pizza-storefront/internal/domain/address"
	"github.com/xenking/pizza-storefront/internal/domain/cart"
	"github.com/xenking/pizza-storefront/internal/domain/catalog"
	"github.com/xenking/pizza-storefront/internal/repository"
)

func main() {
	var (
		databaseURL string
		deviceID    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&deviceID, "device-id", "demo-device", "device id to seed")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, deviceID); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, deviceID string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedAddresses(ctx, repository.NewAddressRepository(pool), deviceID); err != nil {
		return errors.Wrap(err, "seed addresses")
	}

	if err := seedPrefs(ctx, repository.NewPrefsRepository(pool), deviceID); err != nil {
		return errors.Wrap(err, "seed prefs")
	}

	return nil
}

func seedAddresses(ctx context.Context, repo *repository.AddressRepository, deviceID string) error {
	slog.Info("seeding addresses", slog.String("device_id", deviceID))

	existing, err := repo.List(ctx, deviceID)
	if err != nil {
		return errors.Wrap(err, "list addresses")
	}
	if len(existing) > 0 {
		slog.Info("addresses already seeded", slog.Int("count", len(existing)))
		return nil
	}

	seeds := []address.Address{
		{
			ID:       uuid.NewString(),
			DeviceID: deviceID,
			Name:     "Alex Demo",
			Phone:    "+1-555-0101",
			Line1:    "42 Elm Street",
			City:     "Springfield",
			Pincode:  "62701",
			Label:    address.LabelHome,
		},
		{
			ID:       uuid.NewString(),
			DeviceID: deviceID,
			Name:     "Alex Demo",
			Phone:    "+1-555-0101",
			Line1:    "100 Market Plaza",
			Line2:    "Suite 400",
			City:     "Springfield",
			Pincode:  "62702",
			Label:    address.LabelWork,
		},
	}

	for _, a := range seeds {
		if err := repo.Create(ctx, &a); err != nil {
			return errors.Wrapf(err, "create address %s", a.Label)
		}
		slog.Info("created address", slog.String("id", a.ID), slog.String("label", string(a.Label)))
	}

	return repo.SetDefault(ctx, deviceID, seeds[0].ID)
}

func seedPrefs(ctx context.Context, repo *repository.PrefsRepository, deviceID string) error {
	slog.Info("seeding preferences", slog.String("device_id", deviceID))

	return repo.Save(ctx, deviceID, cart.Prefs{
		DeliveryType: catalog.DeliveryPickup,
	})
}
