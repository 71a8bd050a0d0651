package cart

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrPrefsNotFound is returned by PrefsRepository implementations when a
// device has no saved preferences yet.
var ErrPrefsNotFound = errors.New("preferences not found")

// PrefsRepository persists the Prefs DTO per device.
type PrefsRepository interface {
	Load(ctx context.Context, deviceID string) (*Prefs, error)
	Save(ctx context.Context, deviceID string, p Prefs) error
}

// Manager resolves per-device Stores. Stores live in a bounded expirable
// registry; an evicted store only loses in-memory state that is either
// persisted (preferences) or refetchable (items, summary).
type Manager struct {
	repo PrefsRepository

	// mu serializes store creation so two concurrent requests for the same
	// new device cannot race two stores into existence.
	mu     sync.Mutex
	stores *expirable.LRU[string, *Store]
}

// NewManager creates a Manager holding at most size stores, each expiring
// after ttl of inactivity.
func NewManager(repo PrefsRepository, size int, ttl time.Duration) *Manager {
	return &Manager{
		repo:   repo,
		stores: expirable.NewLRU[string, *Store](size, nil, ttl),
	}
}

// ForDevice returns the store for the given device, creating it and
// restoring persisted preferences on first access.
func (m *Manager) ForDevice(ctx context.Context, deviceID string) (*Store, error) {
	if s, ok := m.stores.Get(deviceID); ok {
		return s, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores.Get(deviceID); ok {
		return s, nil
	}

	s := NewStore()
	prefs, err := m.repo.Load(ctx, deviceID)
	switch {
	case err == nil && prefs != nil:
		s.RestorePrefs(*prefs)
	case errors.Is(err, ErrPrefsNotFound):
		// first visit, defaults apply
	case err != nil:
		return nil, errors.Wrap(err, "load preferences")
	}

	m.stores.Add(deviceID, s)
	return s, nil
}

// SavePrefs persists the current preference subset of the device's store.
func (m *Manager) SavePrefs(ctx context.Context, deviceID string) error {
	s, ok := m.stores.Get(deviceID)
	if !ok {
		return nil
	}
	if err := m.repo.Save(ctx, deviceID, s.Prefs()); err != nil {
		return errors.Wrap(err, "save preferences")
	}
	return nil
}
