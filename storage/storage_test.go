package storage_test

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	apperrors "github.com/jrsteele09/vistara-dashboard/internal/errors"
	"github.com/jrsteele09/vistara-dashboard/storage"
)

func openSQLite(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func backends(t *testing.T) map[string]storage.Backend {
	keyring.MockInit()
	enc, err := storage.NewEncrypted(context.Background(), storage.NewMemory(), "s3cret")
	require.NoError(t, err)
	return map[string]storage.Backend{
		"memory":    storage.NewMemory(),
		"sqlite":    openSQLite(t),
		"keyring":   storage.NewKeyring("vistara-dashboard-test"),
		"encrypted": enc,
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := b.Namespace("browser-1")

			_, ok, err := s.Get(ctx, "auth_token")
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, s.Set(ctx, "auth_token", "old"))
			require.NoError(t, s.Set(ctx, "auth_token", "new"))
			v, ok, err := s.Get(ctx, "auth_token")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "new", v)

			other := b.Namespace("browser-2")
			_, ok, err = other.Get(ctx, "auth_token")
			require.NoError(t, err)
			require.False(t, ok, "namespaces are isolated")

			require.NoError(t, s.Delete(ctx, "auth_token"))
			require.NoError(t, s.Delete(ctx, "auth_token"))
			_, ok, err = s.Get(ctx, "auth_token")
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestSQLiteErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("schema failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS browser_state").WillReturnError(errors.New("read-only database"))

		_, err = storage.NewSQLite(ctx, db)
		require.ErrorContains(t, err, "read-only database")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query and exec failures are wrapped", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS browser_state").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT value FROM browser_state").WithArgs("ns", "user").WillReturnError(errors.New("disk I/O error"))
		mock.ExpectExec("INSERT INTO browser_state").WithArgs("ns", "user", "{}", sqlmock.AnyArg()).WillReturnError(errors.New("database is locked"))
		mock.ExpectExec("DELETE FROM browser_state").WithArgs("ns", "user").WillReturnError(errors.New("database is locked"))

		s, err := storage.NewSQLite(ctx, db)
		require.NoError(t, err)
		ns := s.Namespace("ns")

		_, ok, err := ns.Get(ctx, "user")
		require.False(t, ok)
		require.ErrorContains(t, err, "failed to get state[ns/user]")
		require.ErrorContains(t, ns.Set(ctx, "user", "{}"), "database is locked")
		require.ErrorContains(t, ns.Delete(ctx, "user"), "failed to delete state[ns/user]")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLitePrune(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)
	require.NoError(t, s.Namespace("a").Set(ctx, "theme", "dark"))

	n, err := s.Prune(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = s.Prune(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	_, ok, err := s.Namespace("a").Get(ctx, "theme")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEncrypted(t *testing.T) {
	ctx := context.Background()
	inner := storage.NewMemory()
	enc, err := storage.NewEncrypted(ctx, inner, "s3cret")
	require.NoError(t, err)

	require.NoError(t, enc.Namespace("b1").Set(ctx, "auth_token", "eyJ.token"))

	t.Run("values are sealed at rest", func(t *testing.T) {
		raw, ok, err := inner.Namespace("b1").Get(ctx, "auth_token")
		require.NoError(t, err)
		require.True(t, ok)
		require.NotContains(t, raw, "eyJ.token")
	})

	t.Run("salt is reused across instances", func(t *testing.T) {
		again, err := storage.NewEncrypted(ctx, inner, "s3cret")
		require.NoError(t, err)
		v, ok, err := again.Namespace("b1").Get(ctx, "auth_token")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "eyJ.token", v)
	})

	t.Run("wrong secret reads as corrupted", func(t *testing.T) {
		wrong, err := storage.NewEncrypted(ctx, inner, "other")
		require.NoError(t, err)
		_, _, err = wrong.Namespace("b1").Get(ctx, "auth_token")
		require.ErrorIs(t, err, apperrors.ErrCorruptedState)
	})

	t.Run("values cannot be moved between keys", func(t *testing.T) {
		raw, _, err := inner.Namespace("b1").Get(ctx, "auth_token")
		require.NoError(t, err)
		require.NoError(t, inner.Namespace("b1").Set(ctx, "user", raw))
		_, _, err = enc.Namespace("b1").Get(ctx, "user")
		require.ErrorIs(t, err, apperrors.ErrCorruptedState)
	})

	t.Run("garbage reads as corrupted", func(t *testing.T) {
		require.NoError(t, inner.Namespace("b1").Set(ctx, "theme", base64.StdEncoding.EncodeToString([]byte("short"))))
		_, _, err := enc.Namespace("b1").Get(ctx, "theme")
		require.ErrorIs(t, err, apperrors.ErrCorruptedState)
	})

	t.Run("empty secret is rejected", func(t *testing.T) {
		_, err := storage.NewEncrypted(ctx, inner, "")
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := storage.Open(ctx, storage.KindMemory, "", "")
	require.NoError(t, err)
	require.IsType(t, &storage.Memory{}, b)

	b, err = storage.Open(ctx, storage.KindSQLite, ":memory:", "key")
	require.NoError(t, err)
	require.IsType(t, &storage.Encrypted{}, b)
	require.NoError(t, b.Close())

	_, err = storage.Open(ctx, "redis", "", "")
	require.ErrorIs(t, err, apperrors.ErrUnsupported)
}
