package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the OS keychain service entries are filed under.
const DefaultKeyringService = "vistara-dashboard"

// Keyring stores namespaces in the OS keychain, one entry per key. Suited to
// single-operator desktop deployments.
type Keyring struct {
	service string
}

func NewKeyring(service string) *Keyring {
	if service == "" {
		service = DefaultKeyringService
	}
	return &Keyring{service: service}
}

func (k *Keyring) Namespace(name string) Store {
	return &keyringStore{service: k.service, ns: name}
}

func (k *Keyring) Close() error {
	return nil
}

type keyringStore struct {
	service string
	ns      string
}

func (s *keyringStore) user(key string) string {
	return s.ns + "/" + key
}

func (s *keyringStore) Get(_ context.Context, key string) (string, bool, error) {
	v, err := keyring.Get(s.service, s.user(key))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read from keychain: %w", err)
	}
	return v, true, nil
}

func (s *keyringStore) Set(_ context.Context, key, value string) error {
	if err := keyring.Set(s.service, s.user(key), value); err != nil {
		return fmt.Errorf("failed to store in keychain: %w", err)
	}
	return nil
}

func (s *keyringStore) Delete(_ context.Context, key string) error {
	err := keyring.Delete(s.service, s.user(key))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keychain: %w", err)
	}
	return nil
}
