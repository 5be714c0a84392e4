package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"brokerflow/internal/cache"
	"brokerflow/internal/config"
	"brokerflow/internal/dataprocessing"
	"brokerflow/internal/filters"
	"brokerflow/internal/sectors"
	"brokerflow/internal/storage"
	"brokerflow/pkg/contracts/domain"
)

// CellStatus distinguishes the outcomes of one aggregation cell.
type CellStatus string

const (
	CellCreated       CellStatus = "created"
	CellAlreadyExists CellStatus = "already existed"
	CellNoData        CellStatus = "no data found"
	CellFailed        CellStatus = "failed"
)

// CellResult reports one (date, sector, filter) cell.
type CellResult struct {
	Status      CellStatus
	Message     string
	BrokerFiles int
}

// OK reports whether the cell ended in a non-failure state.
func (r CellResult) OK() bool {
	return r.Status != CellFailed
}

// SectorAggregator folds every broker's data for one (date, sector,
// filter) cell into per-stock aggregate rows. A cell whose artifact
// already exists is never recomputed: a closed trading day's aggregate
// is treated as immutable once written.
type SectorAggregator struct {
	store  storage.ObjectStore
	cache  *cache.RawFileCache
	cfg    config.PipelineConfig
	logger *slog.Logger
}

// NewSectorAggregator wires a sector aggregator over the given store
// and cache.
func NewSectorAggregator(store storage.ObjectStore, fileCache *cache.RawFileCache, cfg config.PipelineConfig, logger *slog.Logger) *SectorAggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SectorAggregator{
		store:  store,
		cache:  fileCache,
		cfg:    cfg,
		logger: logger,
	}
}

// Aggregate computes one cell. sector is a mapped sector name or
// sectors.AllSector for the sector-agnostic aggregate.
func (s *SectorAggregator) Aggregate(ctx context.Context, date, sector string, combo filters.Combination, mapping *sectors.Mapping) CellResult {
	artifactKey := combo.SectorKey(date, sector)

	exists, err := s.store.Exists(ctx, artifactKey)
	if err != nil {
		return CellResult{Status: CellFailed, Message: fmt.Sprintf("existence check failed: %v", err)}
	}
	if exists {
		return CellResult{Status: CellAlreadyExists, Message: "already existed"}
	}

	brokers, err := listBrokerCodes(ctx, s.store, combo, date)
	if err != nil {
		return CellResult{Status: CellFailed, Message: fmt.Sprintf("listing failed: %v", err)}
	}
	if len(brokers) == 0 {
		return CellResult{Status: CellNoData, Message: "no data found"}
	}

	totals := make(map[string]*domain.SectorAggregateRow)
	var mu sync.Mutex
	var folded int

	err = RunAll(ctx, brokers, s.cfg.Concurrency,
		func(ctx context.Context, broker string) error {
			content, err := s.cache.Get(ctx, combo, broker, date)
			if err != nil {
				return err
			}
			records, err := dataprocessing.ParseTransactions(content, s.logger)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			for _, record := range records {
				if !mapping.Contains(sector, record.StockCode) {
					continue
				}
				row, ok := totals[record.StockCode]
				if !ok {
					row = &domain.SectorAggregateRow{StockCode: record.StockCode}
					totals[record.StockCode] = row
				}
				row.Accumulate(record)
			}
			folded++
			return nil
		},
		func(broker string, err error) {
			// One bad file is excluded, never fatal for the cell.
			s.logger.WarnContext(ctx, "broker file excluded from sector aggregate",
				slog.String("date", date),
				slog.String("sector", sector),
				slog.String("broker", broker),
				slog.String("error", err.Error()))
		})
	if err != nil {
		return CellResult{Status: CellFailed, Message: fmt.Sprintf("aggregation cancelled: %v", err), BrokerFiles: folded}
	}

	if len(totals) == 0 {
		return CellResult{Status: CellNoData, Message: "no data found", BrokerFiles: folded}
	}

	rows := make([]domain.SectorAggregateRow, 0, len(totals))
	for _, row := range totals {
		row.Finalize()
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].NetBuyValue != rows[j].NetBuyValue {
			return rows[i].NetBuyValue > rows[j].NetBuyValue
		}
		return rows[i].StockCode < rows[j].StockCode
	})

	content, err := dataprocessing.WriteSectorCSV(rows)
	if err != nil {
		return CellResult{Status: CellFailed, Message: fmt.Sprintf("serialization failed: %v", err), BrokerFiles: folded}
	}
	if err := s.store.PutText(ctx, artifactKey, content); err != nil {
		return CellResult{Status: CellFailed, Message: fmt.Sprintf("write failed: %v", err), BrokerFiles: folded}
	}

	return CellResult{Status: CellCreated, Message: "created", BrokerFiles: folded}
}
