package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T, path, name string) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLiteRepo(context.Background(), path, name)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepo_ReadWrite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "library.db")
	repo := openTestSQLite(t, path, "default")

	_, err := repo.Read(ctx)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	require.NoError(t, repo.Write(ctx, []byte(`[1]`)))
	require.NoError(t, repo.Write(ctx, []byte(`[2]`)))

	data, err := repo.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[2]", string(data))
}

func TestSQLiteRepo_CatalogsAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "library.db")
	home := openTestSQLite(t, path, "home")
	office := openTestSQLite(t, path, "office")

	require.NoError(t, home.Write(ctx, []byte(`[]`)))

	_, err := office.Read(ctx)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestSQLiteRepo_StoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTestSQLite(t, filepath.Join(t.TempDir(), "library.db"), "default")

	s := NewStore()
	require.NoError(t, s.Insert(goodOmens))
	require.NoError(t, s.Insert(orwell))
	require.NoError(t, s.Persist(ctx, repo))

	loaded := NewStore()
	require.NoError(t, loaded.Load(ctx, repo))
	assert.Equal(t, []Book{goodOmens, orwell}, loaded.List())
}
