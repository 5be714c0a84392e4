package aggregation

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"brokerflow/internal/cache"
	"brokerflow/internal/config"
	"brokerflow/internal/dataprocessing"
	"brokerflow/internal/dates"
	"brokerflow/internal/filters"
	"brokerflow/internal/storage"
	"brokerflow/pkg/contracts/domain"
)

// Progress receives one increment per persisted artifact. The counter
// total is owned by the caller, which may supply an approximate
// estimate of total combinations.
type Progress interface {
	Increment(message string)
}

// pairKey identifies one (broker, stock) inventory series.
type pairKey struct {
	Broker string
	Stock  string
}

// dayVolumes is the observed activity of one pair on one date.
type dayVolumes struct {
	BuyVol  float64
	SellVol float64
}

// InventorySummary reports the outcome of one inventory run.
type InventorySummary struct {
	Dates    int
	Pairs    int
	Written  int
	Failed   int
	Duration time.Duration
}

// InventoryAggregator builds cumulative per-(broker,stock) inventory
// series across every discovered date. Artifacts are unconditionally
// rewritten on every run because historical data can be corrected.
type InventoryAggregator struct {
	store     storage.ObjectStore
	cache     *cache.RawFileCache
	discovery *dates.Discovery
	cfg       config.PipelineConfig
	logger    *slog.Logger
}

// NewInventoryAggregator wires an aggregator over the given store,
// cache, and date discovery service.
func NewInventoryAggregator(store storage.ObjectStore, fileCache *cache.RawFileCache, discovery *dates.Discovery, cfg config.PipelineConfig, logger *slog.Logger) *InventoryAggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &InventoryAggregator{
		store:     store,
		cache:     fileCache,
		discovery: discovery,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run rebuilds every (broker, stock) series over the full ascending
// date range. A fetch or parse failure for one file degrades the
// affected observations to zeros and is logged, never aborting the
// run. Only context cancellation returns an error.
func (a *InventoryAggregator) Run(ctx context.Context, progress Progress) (InventorySummary, error) {
	start := time.Now()
	summary := InventorySummary{}

	dateList := a.discovery.Ascending(ctx)
	summary.Dates = len(dateList)
	if len(dateList) == 0 {
		a.logger.InfoContext(ctx, "inventory run has no dates to process")
		summary.Duration = time.Since(start)
		return summary, ctx.Err()
	}

	observations, err := a.loadObservations(ctx, dateList)
	if err != nil {
		summary.Duration = time.Since(start)
		return summary, err
	}
	summary.Pairs = len(observations)

	pairs := make([]pairKey, 0, len(observations))
	for pair := range observations {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Stock != pairs[j].Stock {
			return pairs[i].Stock < pairs[j].Stock
		}
		return pairs[i].Broker < pairs[j].Broker
	})

	// Per-pair state is one small series, so writes need no outer
	// chunking; only the concurrency cap applies.
	var mu sync.Mutex
	err = RunAll(ctx, pairs, a.cfg.Concurrency,
		func(ctx context.Context, pair pairKey) error {
			rows := buildSeries(dateList, observations[pair])
			content, err := dataprocessing.WriteInventoryCSV(rows)
			if err != nil {
				return err
			}
			if err := a.store.PutText(ctx, filters.InventoryKey(pair.Stock, pair.Broker), content); err != nil {
				return err
			}
			mu.Lock()
			summary.Written++
			mu.Unlock()
			if progress != nil {
				progress.Increment("inventory " + pair.Stock + "/" + pair.Broker)
			}
			return nil
		},
		func(pair pairKey, err error) {
			summary.Failed++
			a.logger.WarnContext(ctx, "inventory artifact failed",
				slog.String("stock", pair.Stock),
				slog.String("broker", pair.Broker),
				slog.String("error", err.Error()))
		})

	summary.Duration = time.Since(start)
	a.logger.InfoContext(ctx, "inventory run complete",
		slog.Int("dates", summary.Dates),
		slog.Int("pairs", summary.Pairs),
		slog.Int("written", summary.Written),
		slog.Int("failed", summary.Failed),
		slog.Duration("duration", summary.Duration))
	return summary, err
}

// loadObservations walks the date range in outer chunks of BatchSize
// dates, listing and fetching each chunk's broker files under the
// concurrency cap. The cache is cleared per date once its chunk
// completes to bound peak memory, and a GC hint fires when the heap
// exceeds the threshold.
func (a *InventoryAggregator) loadObservations(ctx context.Context, dateList []string) (map[pairKey]map[string]dayVolumes, error) {
	combo := filters.Combination{}
	observations := make(map[pairKey]map[string]dayVolumes)
	var mu sync.Mutex

	type fetchItem struct {
		Date   string
		Broker string
	}

	for start := 0; start < len(dateList); start += a.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + a.cfg.BatchSize
		if end > len(dateList) {
			end = len(dateList)
		}
		chunk := dateList[start:end]

		var items []fetchItem
		err := RunAll(ctx, chunk, a.cfg.Concurrency,
			func(ctx context.Context, date string) error {
				brokers, err := listBrokerCodes(ctx, a.store, combo, date)
				if err != nil {
					return err
				}
				mu.Lock()
				for _, broker := range brokers {
					items = append(items, fetchItem{Date: date, Broker: broker})
				}
				mu.Unlock()
				return nil
			},
			func(date string, err error) {
				a.logger.WarnContext(ctx, "listing failed for date, treating as empty",
					slog.String("date", date),
					slog.String("error", err.Error()))
			})
		if err != nil {
			return nil, err
		}

		err = RunAll(ctx, items, a.cfg.Concurrency,
			func(ctx context.Context, item fetchItem) error {
				content, err := a.cache.Get(ctx, combo, item.Broker, item.Date)
				if err != nil {
					return err
				}
				records, err := dataprocessing.ParseTransactions(content, a.logger)
				if err != nil {
					return err
				}
				mu.Lock()
				for _, record := range records {
					pair := pairKey{Broker: item.Broker, Stock: record.StockCode}
					if observations[pair] == nil {
						observations[pair] = make(map[string]dayVolumes)
					}
					vols := observations[pair][item.Date]
					vols.BuyVol += record.BuyVol
					vols.SellVol += record.SellVol
					observations[pair][item.Date] = vols
				}
				mu.Unlock()
				return nil
			},
			func(item fetchItem, err error) {
				a.logger.WarnContext(ctx, "broker file failed, degrading to zero volumes",
					slog.String("date", item.Date),
					slog.String("broker", item.Broker),
					slog.String("error", err.Error()))
			})
		if err != nil {
			return nil, err
		}

		for _, date := range chunk {
			a.cache.ClearDate(date)
		}
		a.maybeGC(ctx)
	}

	return observations, nil
}

// maybeGC signals a collection when heap allocation exceeds the
// configured threshold between chunks.
func (a *InventoryAggregator) maybeGC(ctx context.Context) {
	if a.cfg.MemoryThresholdBytes == 0 {
		return
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	if stats.HeapAlloc > a.cfg.MemoryThresholdBytes {
		a.logger.DebugContext(ctx, "heap above threshold, requesting GC",
			slog.Uint64("heap_alloc", stats.HeapAlloc),
			slog.Uint64("threshold", a.cfg.MemoryThresholdBytes))
		runtime.GC()
	}
}

// buildSeries derives the cumulative series for one pair: a synthetic
// all-zero baseline row dated one day before the first real date, one
// row per date with signed NetBuyVol, and running cumulative totals.
// Missing dates are legitimate zeros. Output is sorted date
// descending.
func buildSeries(dateList []string, byDate map[string]dayVolumes) []domain.InventoryRow {
	rows := make([]domain.InventoryRow, 0, len(dateList)+1)
	rows = append(rows, domain.BaselineRow(previousDay(dateList[0])))

	var cumBuy, cumSell, cumNet float64
	for _, date := range dateList {
		vols := byDate[date]
		net := vols.BuyVol - vols.SellVol
		cumBuy += vols.BuyVol
		cumSell += vols.SellVol
		cumNet += net
		rows = append(rows, domain.InventoryRow{
			Date:         date,
			BuyVol:       vols.BuyVol,
			SellVol:      vols.SellVol,
			NetBuyVol:    net,
			CumBuyVol:    cumBuy,
			CumSellVol:   cumSell,
			CumNetBuyVol: cumNet,
		})
	}

	// Persisted newest first.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows
}

// previousDay returns the calendar day before a canonical date.
func previousDay(date string) string {
	t, err := time.Parse("20060102", date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, -1).Format("20060102")
}
