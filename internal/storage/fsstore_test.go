package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "brokerflow/internal/errors"
	"brokerflow/internal/storage"
)

func TestFSStoreRoundTrip(t *testing.T) {
	store, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := "broker_transaction/broker_transaction_20240115/AB.csv"
	require.NoError(t, store.PutText(ctx, key, "hello"))

	content, err := store.GetText(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFSStoreMissingObjectIsNotFound(t *testing.T) {
	store, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.GetText(context.Background(), "nope/missing.csv")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	exists, err := store.Exists(context.Background(), "nope/missing.csv")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFSStoreListKeys(t *testing.T) {
	store, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	folder := "broker_transaction/broker_transaction_20240115"
	require.NoError(t, store.PutText(ctx, folder+"/CD.csv", "x"))
	require.NoError(t, store.PutText(ctx, folder+"/AB.csv", "x"))
	require.NoError(t, store.PutText(ctx, "broker_transaction/broker_transaction_20240116/EF.csv", "x"))

	keys, err := store.ListKeys(ctx, folder)
	require.NoError(t, err)
	assert.Equal(t, []string{folder + "/AB.csv", folder + "/CD.csv"}, keys)

	// Missing folder is empty, not an error.
	keys, err = store.ListKeys(ctx, "broker_transaction/broker_transaction_19990101")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFSStoreListPrefixes(t *testing.T) {
	store, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.PutText(ctx, "broker_transaction/broker_transaction_20240116/AB.csv", "x"))
	require.NoError(t, store.PutText(ctx, "broker_transaction/broker_transaction_20240115/AB.csv", "x"))

	names, err := store.ListPrefixes(ctx, "broker_transaction")
	require.NoError(t, err)
	assert.Equal(t, []string{"broker_transaction_20240115", "broker_transaction_20240116"}, names)

	names, err = store.ListPrefixes(ctx, "does_not_exist")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFSStoreRejectsTraversal(t *testing.T) {
	store, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.GetText(context.Background(), "../outside.txt")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestFSStoreEmptyRoot(t *testing.T) {
	_, err := storage.NewFSStore("")
	assert.Error(t, err)
}

func TestFSStoreCancelledContext(t *testing.T) {
	store, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.GetText(ctx, "a/b.csv")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemStoreOpCounting(t *testing.T) {
	store := storage.NewMemStore()
	ctx := context.Background()

	require.NoError(t, store.PutText(ctx, "a/b/c.csv", "x"))
	_, _ = store.GetText(ctx, "a/b/c.csv")
	_, _ = store.ListKeys(ctx, "a")
	_, _ = store.ListPrefixes(ctx, "a")
	_, _ = store.Exists(ctx, "a/b/c.csv")

	assert.Equal(t, 1, store.OpCount("put"))
	assert.Equal(t, 1, store.OpCount("get"))
	assert.Equal(t, 1, store.OpCount("list"))
	assert.Equal(t, 1, store.OpCount("list_prefixes"))
	assert.Equal(t, 1, store.OpCount("exists"))
}

func TestMemStoreListSemantics(t *testing.T) {
	store := storage.NewMemStore()
	ctx := context.Background()

	require.NoError(t, store.PutText(ctx, "top/sub_a/x.csv", "1"))
	require.NoError(t, store.PutText(ctx, "top/sub_b/y.csv", "2"))
	require.NoError(t, store.PutText(ctx, "top_other/sub_c/z.csv", "3"))

	keys, err := store.ListKeys(ctx, "top")
	require.NoError(t, err)
	assert.Equal(t, []string{"top/sub_a/x.csv", "top/sub_b/y.csv"}, keys)

	names, err := store.ListPrefixes(ctx, "top")
	require.NoError(t, err)
	assert.Equal(t, []string{"sub_a", "sub_b"}, names)
}
