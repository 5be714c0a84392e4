package dates_test

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerflow/internal/dates"
	apperrors "brokerflow/internal/errors"
	"brokerflow/internal/storage"
)

func testDiscoveryConfig() dates.DiscoveryConfig {
	return dates.DiscoveryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestDiscoveryDedupsAcrossVariantsAndEncodings(t *testing.T) {
	store := storage.NewMemStore()
	ctx := context.Background()

	// The same date appears under the unfiltered folder, a filtered
	// variant, and in the short-year encoding; one more date appears
	// only in a filtered variant.
	require.NoError(t, store.PutText(ctx, "broker_transaction/broker_transaction_20240115/AB.csv", "x"))
	require.NoError(t, store.PutText(ctx, "broker_transaction_rg/broker_transaction_rg_240115/AB.csv", "x"))
	require.NoError(t, store.PutText(ctx, "broker_transaction_tn_f/broker_transaction_tn_f_20240115/CD.csv", "x"))
	require.NoError(t, store.PutText(ctx, "broker_transaction_ng/broker_transaction_ng_20240220/EF.csv", "x"))

	d := dates.NewDiscovery(store, testDiscoveryConfig(), slog.Default())

	got := d.Ascending(ctx)
	assert.Equal(t, []string{"20240115", "20240220"}, got)
}

func TestDiscoveryMostRecent(t *testing.T) {
	store := storage.NewMemStore()
	ctx := context.Background()

	for _, date := range []string{"20240110", "20240111", "20240112"} {
		require.NoError(t, store.PutText(ctx, "broker_transaction/broker_transaction_"+date+"/AB.csv", "x"))
	}

	d := dates.NewDiscovery(store, testDiscoveryConfig(), slog.Default())

	got := d.MostRecent(ctx, 2)
	assert.Equal(t, []string{"20240112", "20240111"}, got)
}

func TestDiscoveryEmptyStoreMeansNothingToDo(t *testing.T) {
	store := storage.NewMemStore()
	d := dates.NewDiscovery(store, testDiscoveryConfig(), slog.Default())

	assert.Empty(t, d.Ascending(context.Background()))
}

// flakyStore fails ListPrefixes a fixed number of times before
// delegating to the inner store.
type flakyStore struct {
	storage.ObjectStore
	failures  int32
	attempts  int32
	transient bool
}

func (s *flakyStore) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	n := atomic.AddInt32(&s.attempts, 1)
	if n <= atomic.LoadInt32(&s.failures) {
		if s.transient {
			return nil, apperrors.NewTransientError("listing blip", nil)
		}
		return nil, apperrors.NewValidationError("bad prefix", nil)
	}
	return s.ObjectStore.ListPrefixes(ctx, prefix)
}

func TestDiscoveryRetriesTransientListingFailures(t *testing.T) {
	inner := storage.NewMemStore()
	ctx := context.Background()
	require.NoError(t, inner.PutText(ctx, "broker_transaction/broker_transaction_20240115/AB.csv", "x"))

	store := &flakyStore{ObjectStore: inner, failures: 2, transient: true}
	d := dates.NewDiscovery(store, testDiscoveryConfig(), slog.Default())

	got := d.Ascending(ctx)
	assert.Equal(t, []string{"20240115"}, got)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&store.attempts), int32(3))
}

func TestDiscoveryExhaustedRetriesYieldEmptySet(t *testing.T) {
	inner := storage.NewMemStore()
	// Every attempt for every folder fails.
	store := &flakyStore{ObjectStore: inner, failures: 1 << 20, transient: true}
	d := dates.NewDiscovery(store, testDiscoveryConfig(), slog.Default())

	assert.Empty(t, d.Ascending(context.Background()))
}

func TestDiscoveryValidationErrorNotRetried(t *testing.T) {
	inner := storage.NewMemStore()
	store := &flakyStore{ObjectStore: inner, failures: 1 << 20, transient: false}
	d := dates.NewDiscovery(store, testDiscoveryConfig(), slog.Default())

	d.Ascending(context.Background())
	// One attempt per filter combination folder, no retries.
	assert.Equal(t, int32(12), atomic.LoadInt32(&store.attempts))
}
