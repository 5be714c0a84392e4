package aggregation_test

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerflow/internal/aggregation"
	"brokerflow/internal/cache"
	"brokerflow/internal/dates"
	"brokerflow/internal/filters"
	"brokerflow/internal/storage"
)

type countingProgress struct {
	n int64
}

func (p *countingProgress) Increment(string) {
	atomic.AddInt64(&p.n, 1)
}

func newInventoryFixture(store *storage.MemStore) *aggregation.InventoryAggregator {
	fileCache := cache.New(store, 1<<20, time.Hour)
	discovery := dates.NewDiscovery(store, dates.DiscoveryConfig{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
	}, slog.Default())
	return aggregation.NewInventoryAggregator(store, fileCache, discovery, testPipelineConfig(), nil)
}

func inventoryLines(t *testing.T, store *storage.MemStore, stock, broker string) []string {
	t.Helper()
	content, err := store.GetText(context.Background(), filters.InventoryKey(stock, broker))
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(content), "\n")
}

func TestInventoryRunBuildsCumulativeSeries(t *testing.T) {
	store := storage.NewMemStore()
	ctx := context.Background()
	combo := filters.Combination{}

	// AB trades BBCA on the 15th and 17th; CD's file on the 16th keeps
	// that date in the discovered universe, so the pair's series gets a
	// legitimate zero row for it.
	require.NoError(t, store.PutText(ctx, combo.TransactionKey("20240115", "AB"),
		txFile("BBCA,1000,1,0,1,1,200,1,0,1,1")))
	require.NoError(t, store.PutText(ctx, combo.TransactionKey("20240116", "CD"),
		txFile("ADRO,50,1,0,1,1,0,0,0,0,0")))
	require.NoError(t, store.PutText(ctx, combo.TransactionKey("20240117", "AB"),
		txFile("BBCA,0,0,0,0,0,300,1,0,1,1")))

	agg := newInventoryFixture(store)
	progress := &countingProgress{}

	summary, err := agg.Run(ctx, progress)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Dates)
	assert.Equal(t, 2, summary.Pairs)
	assert.Equal(t, 2, summary.Written)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, int64(2), atomic.LoadInt64(&progress.n))

	lines := inventoryLines(t, store, "BBCA", "AB")
	require.Len(t, lines, 5, "header, three dates, baseline")

	// Newest first, synthetic baseline last.
	assert.Equal(t, "20240117,0,300,-300,1000,500,500", lines[1])
	assert.Equal(t, "20240116,0,0,0,1000,200,800", lines[2], "missing date is a legitimate zero")
	assert.Equal(t, "20240115,1000,200,800,1000,200,800", lines[3])
	assert.Equal(t, "20240114,0,0,0,0,0,0", lines[4], "baseline dated one day before the first date")
}

func TestInventoryCumulativeInvariant(t *testing.T) {
	store := storage.NewMemStore()
	ctx := context.Background()
	combo := filters.Combination{}

	volumes := []struct {
		date string
		buy  string
		sell string
	}{
		{date: "20240110", buy: "100", sell: "30"},
		{date: "20240111", buy: "0", sell: "250"},
		{date: "20240112", buy: "70", sell: "70"},
	}
	for _, v := range volumes {
		require.NoError(t, store.PutText(ctx, combo.TransactionKey(v.date, "AB"),
			txFile("BBCA,"+v.buy+",1,0,1,1,"+v.sell+",1,0,1,1")))
	}

	agg := newInventoryFixture(store)
	_, err := agg.Run(ctx, nil)
	require.NoError(t, err)

	lines := inventoryLines(t, store, "BBCA", "AB")
	require.Len(t, lines, 5)

	// Walking oldest to newest, each row's cumulative fields equal the
	// previous row's plus the daily values, starting from the baseline.
	type row struct{ buy, sell, net, cumBuy, cumSell, cumNet float64 }
	parse := func(line string) row {
		f := strings.Split(line, ",")
		require.Len(t, f, 7)
		var r row
		for i, dst := range []*float64{&r.buy, &r.sell, &r.net, &r.cumBuy, &r.cumSell, &r.cumNet} {
			v, err := strconv.ParseFloat(f[i+1], 64)
			require.NoError(t, err)
			*dst = v
		}
		return r
	}

	prev := parse(lines[4]) // baseline
	assert.Zero(t, prev.cumNet)
	for i := 3; i >= 1; i-- {
		cur := parse(lines[i])
		assert.Equal(t, cur.buy-cur.sell, cur.net)
		assert.Equal(t, prev.cumBuy+cur.buy, cur.cumBuy)
		assert.Equal(t, prev.cumSell+cur.sell, cur.cumSell)
		assert.Equal(t, prev.cumNet+cur.net, cur.cumNet)
		prev = cur
	}
	assert.Equal(t, -180.0, prev.cumNet, "net position can go negative")
}

func TestInventoryRunAlwaysRewrites(t *testing.T) {
	store := storage.NewMemStore()
	ctx := context.Background()
	combo := filters.Combination{}
	require.NoError(t, store.PutText(ctx, combo.TransactionKey("20240115", "AB"),
		txFile("BBCA,100,1,0,1,1,0,0,0,0,0")))

	agg := newInventoryFixture(store)
	_, err := agg.Run(ctx, nil)
	require.NoError(t, err)
	puts := store.OpCount("put")

	// Unlike sector cells, inventory artifacts are rebuilt every run.
	_, err = agg.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, puts+1, store.OpCount("put"))
}

func TestInventoryRunDegradesBadFileToZeros(t *testing.T) {
	store := storage.NewMemStore()
	ctx := context.Background()
	combo := filters.Combination{}

	require.NoError(t, store.PutText(ctx, combo.TransactionKey("20240115", "AB"),
		txFile("BBCA,100,1,0,1,1,0,0,0,0,0")))
	// The same broker's next-day file is unreadable.
	require.NoError(t, store.PutText(ctx, combo.TransactionKey("20240116", "AB"),
		txHeader+"\n\"BBCA,broken"))

	agg := newInventoryFixture(store)
	summary, err := agg.Run(ctx, nil)
	require.NoError(t, err, "a bad file degrades, never aborts")
	assert.Equal(t, 1, summary.Written)

	lines := inventoryLines(t, store, "BBCA", "AB")
	require.Len(t, lines, 4)
	assert.Equal(t, "20240116,0,0,0,100,0,100", lines[1], "failed date carries zero volumes")
}

func TestInventoryRunReadsAlternateEncodedFolder(t *testing.T) {
	store := storage.NewMemStore()
	ctx := context.Background()
	combo := filters.Combination{}

	// One day under the canonical folder, the next under the
	// 2-digit-year folder; both encodings resolve to one date universe
	// and both must contribute real volumes.
	require.NoError(t, store.PutText(ctx, combo.TransactionKey("20240115", "AB"),
		txFile("BBCA,100,1,0,1,1,0,0,0,0,0")))
	require.NoError(t, store.PutText(ctx, combo.TransactionKey("240116", "AB"),
		txFile("BBCA,0,0,0,0,0,40,1,0,1,1")))

	agg := newInventoryFixture(store)
	summary, err := agg.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Dates)
	assert.Equal(t, 1, summary.Written)

	lines := inventoryLines(t, store, "BBCA", "AB")
	require.Len(t, lines, 4)
	assert.Equal(t, "20240116,0,40,-40,100,40,60", lines[1], "alternate-encoded date carries its real volumes")
	assert.Equal(t, "20240115,100,0,100,100,0,100", lines[2])
}

func TestInventoryRunNoDates(t *testing.T) {
	store := storage.NewMemStore()
	agg := newInventoryFixture(store)

	summary, err := agg.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, summary.Dates)
	assert.Zero(t, summary.Written)
}

func TestInventoryRunHonorsCancellation(t *testing.T) {
	store := storage.NewMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	combo := filters.Combination{}
	require.NoError(t, store.PutText(ctx, combo.TransactionKey("20240115", "AB"),
		txFile("BBCA,100,1,0,1,1,0,0,0,0,0")))

	cancel()
	agg := newInventoryFixture(store)
	_, err := agg.Run(ctx, nil)
	assert.Error(t, err)
}
