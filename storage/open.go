package storage

import (
	"context"
	"fmt"

	apperrors "github.com/jrsteele09/vistara-dashboard/internal/errors"
)

// Open builds the backend named by kind. A non-empty secret wraps it in
// Encrypted.
func Open(ctx context.Context, kind, path, secret string) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch kind {
	case KindMemory:
		b = NewMemory()
	case KindSQLite:
		b, err = OpenSQLite(ctx, path)
	case KindKeyring:
		b = NewKeyring(DefaultKeyringService)
	default:
		return nil, fmt.Errorf("[storage.Open] backend %q: %w", kind, apperrors.ErrUnsupported)
	}
	if err != nil {
		return nil, err
	}
	if secret == "" {
		return b, nil
	}
	enc, err := NewEncrypted(ctx, b, secret)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return enc, nil
}
