package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ButyrinIA/postboard/internal/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStorage(t *testing.T) {
	store, err := New(context.Background(), filepath.Join(t.TempDir(), "posts.db"))
	require.NoError(t, err, "Не удалось инициализировать SQLiteStorage")
	defer store.Close()

	storagetest.Run(t, store)
}
