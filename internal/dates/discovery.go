// Package dates enumerates the universe of processing dates from
// folder-level object store listings and normalizes date encodings.
package dates

import (
	"context"
	"log/slog"
	"sort"
	"time"

	apperrors "brokerflow/internal/errors"
	"brokerflow/internal/filters"
	"brokerflow/internal/storage"
)

// DiscoveryConfig bounds the retry policy for transient listing
// failures.
type DiscoveryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultDiscoveryConfig returns the standard retry bounds.
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Discovery enumerates available processing dates using cheap
// folder-level prefix listings, never recursive file listings.
type Discovery struct {
	store  storage.ObjectStore
	config DiscoveryConfig
	logger *slog.Logger
}

// NewDiscovery creates a date discovery service over the given store.
func NewDiscovery(store storage.ObjectStore, config DiscoveryConfig, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxAttempts <= 0 {
		config = DefaultDiscoveryConfig()
	}
	return &Discovery{store: store, config: config, logger: logger}
}

// Ascending returns every discovered date in canonical YYYYMMDD form,
// oldest first. After retries are exhausted it returns an empty set:
// callers treat "no dates" as "nothing to do".
func (d *Discovery) Ascending(ctx context.Context) []string {
	dates := d.discover(ctx)
	sort.Strings(dates)
	return dates
}

// MostRecent returns up to n discovered dates, newest first.
func (d *Discovery) MostRecent(ctx context.Context, n int) []string {
	dates := d.discover(ctx)
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if n > 0 && len(dates) > n {
		dates = dates[:n]
	}
	return dates
}

// discover lists the dated folders of every filter combination and
// deduplicates the embedded date tokens across variants.
func (d *Discovery) discover(ctx context.Context) []string {
	seen := make(map[string]bool)

	for _, combo := range filters.Combinations() {
		folders, err := d.listWithRetry(ctx, combo.Folder())
		if err != nil {
			d.logger.WarnContext(ctx, "date discovery listing failed, skipping folder",
				slog.String("folder", combo.Folder()),
				slog.String("error", err.Error()))
			continue
		}
		for _, name := range folders {
			if date := ExtractToken(name); date != "" {
				seen[date] = true
			}
		}
	}

	dates := make([]string, 0, len(seen))
	for date := range seen {
		dates = append(dates, date)
	}
	return dates
}

// listWithRetry lists immediate child folders with bounded exponential
// backoff on transient failure.
func (d *Discovery) listWithRetry(ctx context.Context, folder string) ([]string, error) {
	var lastErr error

	for attempt := 1; attempt <= d.config.MaxAttempts; attempt++ {
		names, err := d.store.ListPrefixes(ctx, folder)
		if err == nil {
			return names, nil
		}
		if apperrors.IsValidation(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err

		if attempt >= d.config.MaxAttempts {
			break
		}

		delay := d.config.BaseDelay << (attempt - 1)
		if delay > d.config.MaxDelay {
			delay = d.config.MaxDelay
		}
		d.logger.WarnContext(ctx, "listing retry",
			slog.String("folder", folder),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, apperrors.NewTransientError("listing retries exhausted for "+folder, lastErr)
}
