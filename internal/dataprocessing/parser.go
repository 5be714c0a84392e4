// Package dataprocessing reads and writes the pipeline's CSV artifact
// formats: raw per-broker transaction files, cumulative inventory
// series, and per-sector aggregate tables.
package dataprocessing

import (
	"encoding/csv"
	"log/slog"
	"strconv"
	"strings"

	apperrors "brokerflow/internal/errors"
	"brokerflow/pkg/contracts/domain"
)

// transactionColumns is the expected shape of a raw broker file row:
// StockCode followed by the five buy columns and five sell columns.
const transactionColumns = 11

// ParseTransactions reads one raw broker transaction file. Rows with
// the wrong column count are skipped and logged; numeric fields fall
// back to 0 on empty or unparseable input. Derived fields are
// recomputed, never trusted from disk.
func ParseTransactions(content string, logger *slog.Logger) ([]domain.TransactionRecord, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read transaction CSV", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	records := make([]domain.TransactionRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < transactionColumns {
			logger.Warn("skipping malformed transaction row",
				slog.Int("row", i+2),
				slog.Int("columns", len(row)))
			continue
		}

		stockCode := strings.ToUpper(strings.TrimSpace(row[0]))
		if stockCode == "" {
			continue
		}

		record := domain.TransactionRecord{
			StockCode:    stockCode,
			BuyVol:       parseNumber(row[1]),
			BuyValue:     parseNumber(row[2]),
			BuyAvg:       parseNumber(row[3]),
			BuyFreq:      parseNumber(row[4]),
			BuyOrderNum:  parseNumber(row[5]),
			SellVol:      parseNumber(row[6]),
			SellValue:    parseNumber(row[7]),
			SellAvg:      parseNumber(row[8]),
			SellFreq:     parseNumber(row[9]),
			SellOrderNum: parseNumber(row[10]),
		}
		record.Derive()
		records = append(records, record)
	}

	return records, nil
}

// parseNumber parses a numeric field with thousands separators
// tolerated, falling back to 0 on empty or unparseable input.
func parseNumber(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return val
}
