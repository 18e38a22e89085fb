package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	name := "trial/clone3.0-4.png"
	data := []byte("not really a png, but close enough")

	w, err := store.Create(ctx, name)
	require.NoError(t, err)
	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	// Not visible before Close.
	_, err = os.Stat(filepath.Join(tmpDir, "trial", "clone3.0-4.png"))
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, w.Close())

	b, err := store.Open(ctx, name)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()
	require.Equal(t, int64(len(data)), b.Size())

	buf := make([]byte, 6)
	n, err = b.ReadAt(ctx, buf, 4)
	require.NoError(t, err)
	require.Equal(t, "really", string(buf[:n]))

	rc, err := b.ReadRange(ctx, 0, 3)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "not", string(got))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{name}, names)

	require.NoError(t, store.Delete(ctx, name))
	_, err = store.Open(ctx, name)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Delete(ctx, name))
}

func TestLocalStore_List(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"result/a.txt", "trial/clone2.0-1.png", "trial/clone2.0-0.png"} {
		require.NoError(t, store.Put(ctx, name, []byte(name)))
	}

	names, err := store.List(ctx, "trial/")
	require.NoError(t, err)
	assert.Equal(t, []string{"trial/clone2.0-0.png", "trial/clone2.0-1.png"}, names)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "missing"))

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalStore_ReadAtPastEnd(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "x", []byte("abc")))

	b, err := store.Open(ctx, "x")
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	_, err = b.ReadAt(ctx, make([]byte, 1), 3)
	assert.ErrorIs(t, err, io.EOF)

	buf := make([]byte, 4)
	n, err := b.ReadAt(ctx, buf, 1)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)
}
