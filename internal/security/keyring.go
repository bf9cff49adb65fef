// Package security provides credential handling for remote entropy hosts.
package security

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/acolita/truerand/internal/ports"
	"github.com/zalando/go-keyring"
)

// KeyringService is the service name used for keyring entries.
const KeyringService = "truerand"

// availabilityKey is written and removed once to see whether a keyring backend
// answers at all.
const availabilityKey = "__truerand_availability__"

// ErrKeyringUnavailable is returned when no OS keyring backend answered.
var ErrKeyringUnavailable = errors.New("keyring not available")

// KeyringStore keeps remote entropy host passwords in the OS keyring
// (macOS Keychain, Linux Secret Service, Windows Credential Manager).
//
// Entries live under service "truerand" with account "remote:user@host" and
// hold the password as-is, so they can also be written with the platform
// tools, for example:
//
//	secret-tool store --label=truerand service truerand username remote:rng@rng.example.com
type KeyringStore struct {
	enabled bool
}

// NewKeyringStore creates a new keyring store.
// If the system keyring is not available, the store is disabled.
func NewKeyringStore() *KeyringStore {
	if err := keyring.Set(KeyringService, availabilityKey, "ok"); err != nil {
		slog.Debug("keyring not available",
			slog.String("error", err.Error()),
		)
		return &KeyringStore{}
	}
	_ = keyring.Delete(KeyringService, availabilityKey)

	slog.Debug("keyring storage enabled")
	return &KeyringStore{enabled: true}
}

// IsEnabled returns true if the keyring is available.
func (ks *KeyringStore) IsEnabled() bool {
	return ks.enabled
}

// RemoteAccount returns the keyring account name for user@host.
func RemoteAccount(host, user string) string {
	return fmt.Sprintf("remote:%s@%s", user, host)
}

// StoreRemotePassword stores the SSH password for user@host, replacing any
// earlier entry.
func (ks *KeyringStore) StoreRemotePassword(host, user string, password []byte) error {
	if !ks.enabled {
		return ErrKeyringUnavailable
	}
	if len(password) == 0 {
		return fmt.Errorf("refusing to store an empty password for %s@%s", user, host)
	}

	if err := keyring.Set(KeyringService, RemoteAccount(host, user), string(password)); err != nil {
		return fmt.Errorf("store password for %s@%s: %w", user, host, err)
	}

	slog.Debug("stored remote password in keyring",
		slog.String("user", user),
		slog.String("host", host),
	)
	return nil
}

// RemotePassword returns the stored SSH password for user@host, or nil if
// none is stored.
func (ks *KeyringStore) RemotePassword(host, user string) ([]byte, error) {
	if !ks.enabled {
		return nil, ErrKeyringUnavailable
	}

	secret, err := keyring.Get(KeyringService, RemoteAccount(host, user))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get password for %s@%s: %w", user, host, err)
	}
	return []byte(secret), nil
}

// DeleteRemotePassword removes the stored password for user@host. It reports
// whether an entry existed.
func (ks *KeyringStore) DeleteRemotePassword(host, user string) (bool, error) {
	if !ks.enabled {
		return false, ErrKeyringUnavailable
	}

	if err := keyring.Delete(KeyringService, RemoteAccount(host, user)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("delete password for %s@%s: %w", user, host, err)
	}

	slog.Debug("deleted remote password from keyring",
		slog.String("user", user),
		slog.String("host", host),
	)
	return true, nil
}

var _ ports.CredentialStore = (*KeyringStore)(nil)
