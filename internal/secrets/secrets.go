// Package secrets keeps provider API keys in the OS credential store so they
// need not live in the environment or config file.
package secrets

import (
	"errors"
	"runtime"
	"slices"
	"sync"

	"github.com/99designs/keyring"
	"github.com/rotisserie/eris"

	"github.com/sells-group/warehouse-agent/internal/config"
)

// ServiceName namespaces every stored item.
const ServiceName = "warehouse-agent"

// ErrNotFound is returned by Delete when nothing is stored for a provider.
var ErrNotFound = errors.New("secrets: no key stored")

// Store reads and writes provider API keys. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// New wraps an already opened keyring.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open opens the native credential store of the current OS. File-based
// backends are never used because they prompt for a password.
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              ServiceName,
		AllowedBackends:          backends(),
		PassPrefix:               ServiceName,
		WinCredPrefix:            ServiceName,
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "secrets: open keyring")
	}
	return New(ring), nil
}

func backends() []keyring.BackendType {
	switch runtime.GOOS {
	case "darwin":
		return []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		return []keyring.BackendType{keyring.WinCredBackend}
	default:
		return []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	}
}

func itemKey(provider string) string {
	return provider + "_api_key"
}

func checkProvider(provider string) error {
	if !slices.Contains(config.Providers, provider) {
		return eris.Errorf("secrets: unknown provider %q", provider)
	}
	return nil
}

// Get returns the stored key for provider, or "" when none is stored.
func (s *Store) Get(provider string) (string, error) {
	if err := checkProvider(provider); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, err := s.ring.Get(itemKey(provider))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "secrets: get %s key", provider)
	}
	return string(item.Data), nil
}

// Set stores key for provider, replacing any previous value.
func (s *Store) Set(provider, key string) error {
	if err := checkProvider(provider); err != nil {
		return err
	}
	if key == "" {
		return eris.New("secrets: key is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.ring.Set(keyring.Item{
		Key:   itemKey(provider),
		Data:  []byte(key),
		Label: ServiceName + " " + provider + " API key",
	})
	if err != nil {
		return eris.Wrapf(err, "secrets: set %s key", provider)
	}
	return nil
}

// Delete removes the stored key for provider.
func (s *Store) Delete(provider string) error {
	if err := checkProvider(provider); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Some backends remove missing keys without complaint.
	if _, err := s.ring.Get(itemKey(provider)); errors.Is(err, keyring.ErrKeyNotFound) {
		return ErrNotFound
	}
	err := s.ring.Remove(itemKey(provider))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrapf(err, "secrets: delete %s key", provider)
	}
	return nil
}

// Lookup adapts the store to config.ResolveAPIKey.
func (s *Store) Lookup() config.KeyLookup {
	return s.Get
}
