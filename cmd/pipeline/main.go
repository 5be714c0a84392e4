package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"brokerflow/internal/app"
	"brokerflow/internal/config"
	"brokerflow/internal/dates"
	"brokerflow/internal/infrastructure"
	"brokerflow/internal/operations"
)

func main() {
	mode := flag.String("mode", "all", "what to run: sector, inventory, or all")
	dateList := flag.String("dates", "", "comma-separated trading dates (YYYYMMDD or YYMMDD); empty means every discovered date")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)
	defer infrastructure.CloseLogFile()

	requested, err := parseDates(*dateList)
	if err != nil {
		logger.Error("Invalid -dates value", "error", err)
		os.Exit(1)
	}

	pipeline, err := app.NewPipeline(cfg, operations.SlogSink{Logger: logger}, nil, logger)
	if err != nil {
		logger.Error("Failed to build pipeline", "error", err)
		os.Exit(1)
	}

	runID := uuid.NewString()
	ctx := infrastructure.WithRunID(context.Background(), runID)

	exitCode := 0
	if *mode == "sector" || *mode == "all" {
		summary, err := pipeline.Orchestrator.RunSectorBatch(ctx, runID, pipeline.Mapping, requested)
		if err != nil {
			logger.Error("Sector batch failed", "run_id", runID, "error", err)
			exitCode = 1
		} else {
			logger.Info("Sector batch finished",
				"run_id", runID,
				"created", summary.Created,
				"already_exists", summary.AlreadyExists,
				"no_data", summary.NoData,
				"failed", summary.Failed,
				"message", summary.Message)
		}
	}
	if *mode == "inventory" || *mode == "all" {
		summary, err := pipeline.Orchestrator.RunInventory(ctx, runID, 0)
		if err != nil {
			logger.Error("Inventory run failed", "run_id", runID, "error", err)
			exitCode = 1
		} else {
			logger.Info("Inventory run finished",
				"run_id", runID,
				"written", summary.Written,
				"failed", summary.Failed)
		}
	}
	if *mode != "sector" && *mode != "inventory" && *mode != "all" {
		logger.Error("Unknown mode", "mode", *mode)
		exitCode = 2
	}
	os.Exit(exitCode)
}

// parseDates normalizes a comma-separated date list; an empty input
// yields nil, meaning "discover everything".
func parseDates(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		canonical, err := dates.Normalize(p)
		if err != nil {
			return nil, fmt.Errorf("date %q: %w", p, err)
		}
		out = append(out, canonical)
	}
	return out, nil
}
