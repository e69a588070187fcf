package filestore_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/filegpt/filegpt/internal/config"
	"github.com/filegpt/filegpt/internal/filestore"
)

func newLocalStore(t *testing.T) filestore.Store {
	t.Helper()
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{
			"dir":        t.TempDir(),
			"public_url": "http://localhost:8080/api/v1/files/blob/",
		},
	})
	require.NoError(t, err)
	return store
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "report.csv", strings.NewReader("a,b\nc,d"), 7))

	blob, err := store.Open(ctx, "report.csv")
	require.NoError(t, err)
	defer blob.Close()
	data, err := io.ReadAll(blob)
	require.NoError(t, err)
	require.Equal(t, "a,b\nc,d", string(data))

	require.Equal(t, "http://localhost:8080/api/v1/files/blob/report.csv", store.URL("report.csv"))

	require.NoError(t, store.Delete(ctx, "report.csv"))
	_, err = store.Open(ctx, "report.csv")
	require.Error(t, err)
}

func TestLocalStoreRejectsPathTraversal(t *testing.T) {
	store := newLocalStore(t)
	ctx := context.Background()

	require.Error(t, store.Save(ctx, "../escape.csv", strings.NewReader("x"), 1))
	_, err := store.Open(ctx, "a/b.csv")
	require.Error(t, err)
	require.Error(t, store.Delete(ctx, `a\b.csv`))
	require.Error(t, store.Save(ctx, "", strings.NewReader("x"), 1))
}

func TestStoreFactoryUnknownType(t *testing.T) {
	_, err := filestore.New(config.FileStoreConfig{Type: "ftp"})
	require.Error(t, err)
}

func TestLocalStoreRequiresDir(t *testing.T) {
	_, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"public_url": "http://localhost/"},
	})
	require.Error(t, err)
}
