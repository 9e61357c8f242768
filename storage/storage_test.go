package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"globfam/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "imports/7/abc/statement.csv", ObjectKey(7, "abc", "statement.csv"))
	assert.Equal(t, "imports/7/abc/statement.csv", ObjectKey(7, "abc", "../../etc/statement.csv"))
	assert.Equal(t, "imports/7/abc/bank.xlsx", ObjectKey(7, "abc", `C:\Users\ana\bank.xlsx`))
	assert.Equal(t, "imports/7/abc/upload", ObjectKey(7, "abc", ""))
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	a, err := New(ctx, config.StorageConfig{Driver: "none"})
	require.NoError(t, err)
	uri, err := a.Put(ctx, "k", []byte("x"))
	require.NoError(t, err)
	assert.Empty(t, uri)

	_, err = New(ctx, config.StorageConfig{Driver: "s3"})
	assert.Error(t, err)

	_, err = New(ctx, config.StorageConfig{Driver: "local"})
	assert.Error(t, err)

	_, err = New(ctx, config.StorageConfig{Driver: "gcs"})
	assert.Error(t, err)
}

func TestLocal_Put(t *testing.T) {
	dir := t.TempDir()
	a, err := New(context.Background(), config.StorageConfig{Driver: "local", LocalDir: dir})
	require.NoError(t, err)
	defer a.Close()

	key := ObjectKey(3, "batch-1", "bank.csv")
	uri, err := a.Put(context.Background(), key, []byte("date,amount\n"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "file://"))

	data, err := os.ReadFile(filepath.Join(dir, "imports", "3", "batch-1", "bank.csv"))
	require.NoError(t, err)
	assert.Equal(t, "date,amount\n", string(data))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Put(ctx, key, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
