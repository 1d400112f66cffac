package config

import (
	"errors"
	"fmt"

	"github.com/joacominatel/dashtools/internal/database"
	"github.com/zalando/go-keyring"
)

// KeyringService is the service name passwords are stored under.
const KeyringService = "dashtools"

// LookupPassword reads the PostgreSQL password for user from the OS keyring.
func LookupPassword(user string) (string, error) {
	password, err := keyring.Get(KeyringService, user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("no password for %q in keyring", user)
		}
		return "", fmt.Errorf("keyring: %w", err)
	}
	return password, nil
}

// StorePassword saves the PostgreSQL password for user in the OS keyring.
func StorePassword(user, password string) error {
	if user == "" || password == "" {
		return fmt.Errorf("user and password are required")
	}
	if err := keyring.Set(KeyringService, user, password); err != nil {
		return fmt.Errorf("keyring: %w", err)
	}
	return nil
}

// ResolvePassword replaces the PostgreSQL password with the one kept in the
// OS keyring. It does nothing unless postgres is the selected backend and
// postgres.keyring is set.
func (c *Config) ResolvePassword() error {
	backend, err := c.Backend()
	if err != nil {
		return err
	}
	if backend != database.BackendPostgres || !c.Postgres.Keyring {
		return nil
	}
	password, err := LookupPassword(c.Postgres.User)
	if err != nil {
		return err
	}
	c.Postgres.Password = password
	return nil
}
