// Package aggregation derives the two analytic artifacts of the
// pipeline: per-(broker,stock) cumulative inventory series and
// per-sector aggregate tables.
package aggregation

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"brokerflow/internal/dates"
	"brokerflow/internal/filters"
	"brokerflow/internal/storage"
)

// brokerFilePattern accepts only short uppercase-letter broker-code
// filenames; index, sector, and prior-aggregate artifacts sharing the
// folder never match.
var brokerFilePattern = regexp.MustCompile(`^[A-Z]{2,3}\.csv$`)

// IsBrokerFile reports whether the final key segment names a broker
// transaction file.
func IsBrokerFile(key string) bool {
	name := key
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		name = key[idx+1:]
	}
	return brokerFilePattern.MatchString(name)
}

// BrokerCode extracts the broker code from a broker file key.
func BrokerCode(key string) string {
	name := key
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		name = key[idx+1:]
	}
	return strings.TrimSuffix(name, ".csv")
}

// listBrokerCodes enumerates the broker transaction files for one
// combination and date. When the canonical dated folder holds no
// broker files, the 2-digit-year encoded folder is consulted next,
// the same canonical-then-alternate resolution the raw file cache
// applies per file. Discovery normalizes both encodings into one
// date, so both folders must be reachable from the canonical form.
func listBrokerCodes(ctx context.Context, store storage.ObjectStore, combo filters.Combination, date string) ([]string, error) {
	keys, err := store.ListKeys(ctx, combo.DatedFolder(date))
	if err != nil {
		return nil, err
	}
	brokers := brokerCodes(keys)
	if len(brokers) > 0 {
		return brokers, nil
	}

	alt := dates.Alternate(date)
	if alt == "" {
		return brokers, nil
	}
	keys, err = store.ListKeys(ctx, combo.DatedFolder(alt))
	if err != nil {
		return nil, err
	}
	return brokerCodes(keys), nil
}

func brokerCodes(keys []string) []string {
	var brokers []string
	for _, key := range keys {
		if IsBrokerFile(key) {
			brokers = append(brokers, BrokerCode(key))
		}
	}
	return brokers
}

// RunAll processes items as one batch under the concurrency cap: the
// degenerate form of RunBatches for work whose outer chunking, if any,
// is owned by the caller. The pipeline's convention is that BatchSize
// chunks dates only; every other axis runs through RunAll.
func RunAll[T any](ctx context.Context, items []T, concurrency int,
	work func(ctx context.Context, item T) error,
	onError func(item T, err error)) error {
	return RunBatches(ctx, items, len(items), concurrency, work, onError)
}

// RunBatches processes items in fixed-size batches. Batches run
// strictly sequentially: batch N+1 does not start until batch N's
// results are fully collected. Within a batch at most concurrency
// items are in flight; one item's failure is handed to onError and
// never cancels its siblings. Cancellation is observed between items
// and between batches.
func RunBatches[T any](ctx context.Context, items []T, batchSize, concurrency int,
	work func(ctx context.Context, item T) error,
	onError func(item T, err error)) error {

	if batchSize <= 0 {
		batchSize = 1
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var mu sync.Mutex

	for start := 0; start < len(items); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}

		g := new(errgroup.Group)
		g.SetLimit(concurrency)

		for _, item := range items[start:end] {
			item := item
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return nil
				}
				if err := work(ctx, item); err != nil && onError != nil {
					mu.Lock()
					onError(item, err)
					mu.Unlock()
				}
				return nil
			})
		}

		// Errors are captured per item; Wait only synchronizes.
		_ = g.Wait()
	}

	return ctx.Err()
}
