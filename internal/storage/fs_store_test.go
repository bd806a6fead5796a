package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_PutGetDelete(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := NewKey("submissions/7", "essay.txt")
	assert.True(t, strings.HasPrefix(key, "submissions/7/"))
	assert.True(t, strings.HasSuffix(key, "/essay.txt"))

	_, err = store.Put(ctx, key, strings.NewReader("hello"), 5, "text/plain")
	require.NoError(t, err)

	data, err := ReadAll(ctx, store, key)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)

	// deleting twice is fine
	assert.NoError(t, store.Delete(ctx, key))
}

func TestFSStore_RejectsEmptyKey(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "", strings.NewReader("x"), 1, "")
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("a/b/report.PDF"))
	assert.Equal(t, "application/octet-stream", ContentType("a/b/noext"))
}
