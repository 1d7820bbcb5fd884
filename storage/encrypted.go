package storage

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	apperrors "github.com/jrsteele09/vistara-dashboard/internal/errors"
)

const (
	metaNamespace = "_meta"
	saltKey       = "kdf_salt"
	saltSize      = 16
)

// Encrypted seals every value of an inner backend with XChaCha20-Poly1305
// under a key derived from a secret. The namespace and key are bound as
// associated data, so values cannot be moved between entries.
type Encrypted struct {
	inner Backend
	key   []byte
}

// NewEncrypted derives the key from secret and a salt persisted in the inner
// backend, generating the salt on first use.
func NewEncrypted(ctx context.Context, inner Backend, secret string) (*Encrypted, error) {
	if secret == "" {
		return nil, fmt.Errorf("[NewEncrypted] secret must not be empty: %w", apperrors.ErrInvalidInput)
	}

	meta := inner.Namespace(metaNamespace)
	encoded, ok, err := meta.Get(ctx, saltKey)
	if err != nil {
		return nil, fmt.Errorf("[NewEncrypted] read salt: %w", err)
	}
	var salt []byte
	if ok {
		if salt, err = base64.StdEncoding.DecodeString(encoded); err != nil || len(salt) != saltSize {
			return nil, fmt.Errorf("[NewEncrypted] salt: %w", apperrors.ErrCorruptedState)
		}
	} else {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("[NewEncrypted] generate salt: %w", err)
		}
		if err := meta.Set(ctx, saltKey, base64.StdEncoding.EncodeToString(salt)); err != nil {
			return nil, fmt.Errorf("[NewEncrypted] persist salt: %w", err)
		}
	}

	return &Encrypted{
		inner: inner,
		key:   argon2.IDKey([]byte(secret), salt, 1, 64*1024, 4, chacha20poly1305.KeySize),
	}, nil
}

func (e *Encrypted) Namespace(name string) Store {
	return &encryptedStore{inner: e.inner.Namespace(name), ns: name, key: e.key}
}

func (e *Encrypted) Close() error {
	return e.inner.Close()
}

type encryptedStore struct {
	inner Store
	ns    string
	key   []byte
}

func (s *encryptedStore) aad(key string) []byte {
	return []byte(s.ns + "/" + key)
}

func (s *encryptedStore) Get(ctx context.Context, key string) (string, bool, error) {
	sealed, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < chacha20poly1305.NonceSizeX {
		return "", false, fmt.Errorf("[encryptedStore.Get] %s: %w", key, apperrors.ErrCorruptedState)
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", false, fmt.Errorf("[encryptedStore.Get] cipher: %w", err)
	}
	nonce, ct := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plain, err := aead.Open(nil, nonce, ct, s.aad(key))
	if err != nil {
		return "", false, fmt.Errorf("[encryptedStore.Get] open %s: %w", key, apperrors.ErrCorruptedState)
	}
	return string(plain), true, nil
}

func (s *encryptedStore) Set(ctx context.Context, key, value string) error {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return fmt.Errorf("[encryptedStore.Set] cipher: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX, chacha20poly1305.NonceSizeX+len(value)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("[encryptedStore.Set] nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(value), s.aad(key))
	return s.inner.Set(ctx, key, base64.StdEncoding.EncodeToString(sealed))
}

func (s *encryptedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
