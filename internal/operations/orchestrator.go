// Package operations drives full aggregation runs: the date ×
// investor × board × sector cross-product for sector aggregates, and
// the cumulative inventory rebuild, with progress reporting and
// per-cell failure isolation.
package operations

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"brokerflow/internal/aggregation"
	"brokerflow/internal/cache"
	"brokerflow/internal/config"
	"brokerflow/internal/dates"
	apperrors "brokerflow/internal/errors"
	"brokerflow/internal/filters"
	"brokerflow/internal/sectors"
	"brokerflow/internal/storage"
)

// CellRecord captures one failed aggregation cell.
type CellRecord struct {
	Date        string `json:"date"`
	Sector      string `json:"sector"`
	Combination string `json:"combination"`
	Message     string `json:"message"`
}

// RunSummary is the structured outcome handed back to callers: counts
// and a message, never a raw stack trace.
type RunSummary struct {
	RunID         string       `json:"run_id"`
	Created       int          `json:"created"`
	AlreadyExists int          `json:"already_exists"`
	NoData        int          `json:"no_data"`
	Failed        int          `json:"failed"`
	DatesTotal    int          `json:"dates_total"`
	DatesExcluded int          `json:"dates_excluded"`
	FailedCells   []CellRecord `json:"failed_cells,omitempty"`
	Success       bool         `json:"success"`
	Message       string       `json:"message"`
	Duration      time.Duration `json:"duration"`
}

// Orchestrator composes the aggregators into complete runs.
type Orchestrator struct {
	store     storage.ObjectStore
	sector    *aggregation.SectorAggregator
	inventory *aggregation.InventoryAggregator
	discovery *dates.Discovery
	fileCache *cache.RawFileCache
	cfg       config.PipelineConfig
	sink      ProgressSink
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewOrchestrator wires an orchestrator. sink and tracer may be nil.
func NewOrchestrator(
	store storage.ObjectStore,
	sector *aggregation.SectorAggregator,
	inventory *aggregation.InventoryAggregator,
	discovery *dates.Discovery,
	fileCache *cache.RawFileCache,
	cfg config.PipelineConfig,
	sink ProgressSink,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Orchestrator {
	if sink == nil {
		sink = NopSink{}
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("brokerflow")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:     store,
		sector:    sector,
		inventory: inventory,
		discovery: discovery,
		fileCache: fileCache,
		cfg:       cfg,
		sink:      sink,
		tracer:    tracer,
		logger:    logger,
	}
}

// RunSectorBatch drives every (date, investor, board, sector) cell
// plus the sector-agnostic ALL cell per (date, investor, board)
// triple. Dates whose artifacts are all present are excluded before
// the main loop, collapsing repeat-run cost to newly arrived dates.
// A nil dateList means "every discovered date".
func (o *Orchestrator) RunSectorBatch(ctx context.Context, runID string, mapping *sectors.Mapping, dateList []string) (RunSummary, error) {
	start := time.Now()
	summary := RunSummary{RunID: runID}

	ctx, span := o.tracer.Start(ctx, "run.sector_batch",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.sectors", len(mapping.Sectors())),
		))
	defer span.End()

	if dateList == nil {
		dateList = o.discovery.Ascending(ctx)
	}
	summary.DatesTotal = len(dateList)

	if len(dateList) == 0 {
		summary.Success = true
		summary.Message = "no dates to process"
		summary.Duration = time.Since(start)
		o.sink.Publish(runID, 100, summary.Message)
		return summary, nil
	}

	// Sector names in loop order; the ALL cell runs after the mapped
	// sectors within each (date, investor, board) triple.
	sectorNames := append(append([]string{}, mapping.Sectors()...), sectors.AllSector)

	pending, excluded, err := o.probeCompleteDates(ctx, dateList, sectorNames)
	if err != nil {
		summary.Message = "run aborted during completeness probe"
		summary.Duration = time.Since(start)
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}
	summary.DatesExcluded = excluded

	investors := filters.Investors()
	boards := filters.Boards()

	for di, date := range pending {
		if err := ctx.Err(); err != nil {
			summary.Message = "run cancelled"
			summary.Duration = time.Since(start)
			span.SetStatus(codes.Error, err.Error())
			return summary, err
		}

		dateCtx, dateSpan := o.tracer.Start(ctx, "run.date",
			trace.WithAttributes(attribute.String("date", date)))

		for ii, inv := range investors {
			for bi, board := range boards {
				combo := filters.Combination{Board: board, Investor: inv}
				for si, sectorName := range sectorNames {
					if err := dateCtx.Err(); err != nil {
						dateSpan.End()
						summary.Message = "run cancelled"
						summary.Duration = time.Since(start)
						span.SetStatus(codes.Error, err.Error())
						return summary, err
					}

					result := o.sector.Aggregate(dateCtx, date, sectorName, combo, mapping)
					o.recordCell(&summary, date, sectorName, combo, result)

					percent := weightedPercent(di, len(pending), ii, len(investors), bi, len(boards), si, len(sectorNames))
					o.sink.Publish(runID, percent, fmt.Sprintf("%s %s %s: %s", date, sectorName, combo, result.Status))
				}
			}
		}

		// Bound peak memory once this date's processing completes.
		o.fileCache.ClearDate(date)
		dateSpan.End()
	}

	summary.Duration = time.Since(start)

	attempted := summary.Created + summary.AlreadyExists + summary.NoData + summary.Failed
	switch {
	case attempted == 0:
		summary.Success = true
		summary.Message = fmt.Sprintf("all %d dates already complete", summary.DatesExcluded)
	case summary.Failed == attempted:
		summary.Success = false
		summary.Message = fmt.Sprintf("every cell failed (%d failures)", summary.Failed)
		err := apperrors.NewExhaustionError(summary.Message, nil)
		span.SetStatus(codes.Error, summary.Message)
		o.sink.Publish(runID, 100, summary.Message)
		return summary, err
	default:
		summary.Success = true
		summary.Message = fmt.Sprintf("created %d, already existed %d, no data %d, failed %d",
			summary.Created, summary.AlreadyExists, summary.NoData, summary.Failed)
	}

	o.sink.Publish(runID, 100, summary.Message)
	o.logger.InfoContext(ctx, "sector batch complete",
		slog.String("run_id", runID),
		slog.Int("created", summary.Created),
		slog.Int("already_exists", summary.AlreadyExists),
		slog.Int("no_data", summary.NoData),
		slog.Int("failed", summary.Failed),
		slog.Int("dates_excluded", summary.DatesExcluded),
		slog.Duration("duration", summary.Duration))
	return summary, nil
}

// recordCell folds one cell result into the run counters; failures are
// additionally recorded per cell.
func (o *Orchestrator) recordCell(summary *RunSummary, date, sectorName string, combo filters.Combination, result aggregation.CellResult) {
	switch result.Status {
	case aggregation.CellCreated:
		summary.Created++
	case aggregation.CellAlreadyExists:
		summary.AlreadyExists++
	case aggregation.CellNoData:
		summary.NoData++
	case aggregation.CellFailed:
		summary.Failed++
		summary.FailedCells = append(summary.FailedCells, CellRecord{
			Date:        date,
			Sector:      sectorName,
			Combination: combo.String(),
			Message:     result.Message,
		})
	}
}

// probeCompleteDates checks, with batched bounded-concurrency existence
// checks, which dates already have every cell's artifact and excludes
// them entirely.
func (o *Orchestrator) probeCompleteDates(ctx context.Context, dateList, sectorNames []string) (pending []string, excluded int, err error) {
	complete := make(map[string]bool)
	var mu sync.Mutex

	err = aggregation.RunBatches(ctx, dateList, o.cfg.BatchSize, o.cfg.Concurrency,
		func(ctx context.Context, date string) error {
			for _, combo := range filters.Combinations() {
				for _, sectorName := range sectorNames {
					exists, err := o.store.Exists(ctx, combo.SectorKey(date, sectorName))
					if err != nil || !exists {
						return err
					}
				}
			}
			mu.Lock()
			complete[date] = true
			mu.Unlock()
			return nil
		},
		func(date string, err error) {
			// Probe failure just means the date is not excluded.
			o.logger.WarnContext(ctx, "completeness probe failed, date stays pending",
				slog.String("date", date),
				slog.String("error", err.Error()))
		})
	if err != nil {
		return nil, 0, err
	}

	for _, date := range dateList {
		if complete[date] {
			excluded++
		} else {
			pending = append(pending, date)
		}
	}
	return pending, excluded, nil
}

// RunInventory rebuilds every cumulative inventory artifact.
// estimatedTotal is the caller-supplied (possibly approximate)
// total-combinations estimate used only to shape the percentage.
func (o *Orchestrator) RunInventory(ctx context.Context, runID string, estimatedTotal int) (aggregation.InventorySummary, error) {
	ctx, span := o.tracer.Start(ctx, "run.inventory",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	tracker := NewProgressTracker("inventory", estimatedTotal)
	progress := &sinkProgress{tracker: tracker, sink: o.sink, runID: runID}

	summary, err := o.inventory.Run(ctx, progress)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}

	o.sink.Publish(runID, 100, fmt.Sprintf("inventory complete: %d artifacts written, %d failed", summary.Written, summary.Failed))
	return summary, nil
}

// sinkProgress adapts a ProgressTracker to the aggregation.Progress
// interface, publishing each increment to the run's sink.
type sinkProgress struct {
	tracker *ProgressTracker
	sink    ProgressSink
	runID   string
}

func (p *sinkProgress) Increment(message string) {
	snap := p.tracker.Increment(message)
	p.sink.Publish(p.runID, snap.Percent, snap.Status())
}

// weightedPercent maps the four nested loop indices onto one 0-100
// percentage: each inner axis contributes fractionally to its parent.
func weightedPercent(di, nd, ii, ni, bi, nb, si, ns int) float64 {
	if nd == 0 || ni == 0 || nb == 0 || ns == 0 {
		return 0
	}
	sectorFrac := float64(si+1) / float64(ns)
	boardFrac := (float64(bi) + sectorFrac) / float64(nb)
	investorFrac := (float64(ii) + boardFrac) / float64(ni)
	return (float64(di) + investorFrac) / float64(nd) * 100
}
