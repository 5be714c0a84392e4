// Package operations orchestrates complete aggregation runs over the
// (date, investor, board, sector) cell space.
//
// The Orchestrator composes the sector and inventory aggregators into
// two run shapes:
//
//   - RunSectorBatch walks every filter combination and sector for
//     every pending date, skipping dates whose artifacts are already
//     fully materialized so repeat runs cost only newly arrived data.
//   - RunInventory rebuilds every cumulative (broker, stock) series
//     from scratch.
//
// Both publish progress through a ProgressSink, which fans out to
// structured logs and websocket subscribers. A run in which every
// attempted cell fails surfaces an exhaustion error; partial failure
// is reported per cell and never aborts the run.
package operations
