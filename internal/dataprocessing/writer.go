package dataprocessing

import (
	"encoding/csv"
	"strconv"
	"strings"

	apperrors "brokerflow/internal/errors"
	"brokerflow/pkg/contracts/domain"
)

// WriteInventoryCSV renders one (stock, broker) cumulative series.
// Rows are expected pre-sorted by date descending.
func WriteInventoryCSV(rows []domain.InventoryRow) (string, error) {
	var sb strings.Builder
	writer := csv.NewWriter(&sb)

	header := []string{"Date", "BuyVol", "SellVol", "NetBuyVol", "CumBuyVol", "CumSellVol", "CumNetBuyVol"}
	if err := writer.Write(header); err != nil {
		return "", apperrors.NewStorageError("failed to write inventory CSV header", err)
	}

	for _, row := range rows {
		record := []string{
			row.Date,
			formatNumber(row.BuyVol),
			formatNumber(row.SellVol),
			formatNumber(row.NetBuyVol),
			formatNumber(row.CumBuyVol),
			formatNumber(row.CumSellVol),
			formatNumber(row.CumNetBuyVol),
		}
		if err := writer.Write(record); err != nil {
			return "", apperrors.NewStorageError("failed to write inventory CSV row", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", apperrors.NewStorageError("failed to flush inventory CSV", err)
	}
	return sb.String(), nil
}

// WriteSectorCSV renders one sector aggregate cell. Rows are expected
// pre-sorted by NetBuyValue descending.
func WriteSectorCSV(rows []domain.SectorAggregateRow) (string, error) {
	var sb strings.Builder
	writer := csv.NewWriter(&sb)

	header := []string{
		"StockCode",
		"BuyVol", "BuyValue", "BuyAvg", "BuyFreq", "BuyOrderNum",
		"BuyLot", "BuyLotPerFreq", "BuyLotPerOrderNum",
		"SellVol", "SellValue", "SellAvg", "SellFreq", "SellOrderNum",
		"SellLot", "SellLotPerFreq", "SellLotPerOrderNum",
		"NetBuyVol", "NetBuyValue", "NetSellVol", "NetSellValue",
	}
	if err := writer.Write(header); err != nil {
		return "", apperrors.NewStorageError("failed to write sector CSV header", err)
	}

	for _, row := range rows {
		record := []string{
			row.StockCode,
			formatNumber(row.BuyVol),
			formatNumber(row.BuyValue),
			formatNumber(row.BuyAvg),
			formatNumber(row.BuyFreq),
			formatNumber(row.BuyOrderNum),
			formatNumber(row.BuyLot),
			formatNumber(row.BuyLotPerFreq),
			formatNumber(row.BuyLotPerOrderNum),
			formatNumber(row.SellVol),
			formatNumber(row.SellValue),
			formatNumber(row.SellAvg),
			formatNumber(row.SellFreq),
			formatNumber(row.SellOrderNum),
			formatNumber(row.SellLot),
			formatNumber(row.SellLotPerFreq),
			formatNumber(row.SellLotPerOrderNum),
			formatNumber(row.NetBuyVol),
			formatNumber(row.NetBuyValue),
			formatNumber(row.NetSellVol),
			formatNumber(row.NetSellValue),
		}
		if err := writer.Write(record); err != nil {
			return "", apperrors.NewStorageError("failed to write sector CSV row", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", apperrors.NewStorageError("failed to flush sector CSV", err)
	}
	return sb.String(), nil
}

// formatNumber renders a numeric field without trailing zero noise.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
