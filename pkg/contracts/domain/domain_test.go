package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"brokerflow/pkg/contracts/domain"
)

func TestSafeDiv(t *testing.T) {
	assert.Equal(t, 2.5, domain.SafeDiv(5, 2))
	assert.Equal(t, 0.0, domain.SafeDiv(5, 0))
	assert.Equal(t, 0.0, domain.SafeDiv(0, 0))
}

func TestTransactionRecordDerive(t *testing.T) {
	r := domain.TransactionRecord{
		StockCode:    "BBCA",
		BuyVol:       1000,
		BuyValue:     5000000,
		BuyFreq:      10,
		BuyOrderNum:  4,
		SellVol:      200,
		SellValue:    1000000,
		SellFreq:     2,
		SellOrderNum: 1,
	}
	r.Derive()

	assert.Equal(t, 10.0, r.BuyLot)
	assert.Equal(t, 2.0, r.SellLot)
	assert.Equal(t, 5000.0, r.BuyAvg)
	assert.Equal(t, 5000.0, r.SellAvg)
	assert.Equal(t, 1.0, r.BuyLotPerFreq)
	assert.Equal(t, 2.5, r.BuyLotPerOrderNum)
	assert.Equal(t, 1.0, r.SellLotPerFreq)
	assert.Equal(t, 2.0, r.SellLotPerOrderNum)
}

func TestDeriveZeroDenominators(t *testing.T) {
	r := domain.TransactionRecord{StockCode: "BBCA", BuyValue: 100}
	r.Derive()

	assert.Equal(t, 0.0, r.BuyAvg, "zero volume gives zero average, not Inf")
	assert.Equal(t, 0.0, r.BuyLotPerFreq)
	assert.Equal(t, 0.0, r.BuyLotPerOrderNum)
}

func TestDeriveOverwritesStoredValues(t *testing.T) {
	r := domain.TransactionRecord{BuyVol: 1000, BuyValue: 5000000, BuyAvg: 999999}
	r.Derive()
	assert.Equal(t, 5000.0, r.BuyAvg, "stored derived values are never trusted")
}

func TestSectorAggregateRowAccumulateAndFinalize(t *testing.T) {
	row := domain.SectorAggregateRow{StockCode: "ADRO"}
	row.Accumulate(domain.TransactionRecord{BuyVol: 100, BuyValue: 1000000, BuyFreq: 1, BuyOrderNum: 1})
	row.Accumulate(domain.TransactionRecord{SellVol: 240, SellValue: 2400000, SellFreq: 2, SellOrderNum: 1})
	row.Finalize()

	assert.Equal(t, 100.0, row.BuyVol)
	assert.Equal(t, 240.0, row.SellVol)
	assert.Equal(t, 1.0, row.BuyLot)
	assert.Equal(t, 2.4, row.SellLot)
	assert.Equal(t, 10000.0, row.BuyAvg)
	assert.Equal(t, 10000.0, row.SellAvg)

	// Sign exclusivity: nets come from the clamped difference of the
	// totals, so only the dominant side is non-zero.
	assert.Equal(t, 0.0, row.NetBuyVol)
	assert.Equal(t, 140.0, row.NetSellVol)
	assert.Equal(t, 0.0, row.NetBuyValue)
	assert.Equal(t, 1400000.0, row.NetSellValue)
}

func TestBaselineRow(t *testing.T) {
	row := domain.BaselineRow("20240114")
	assert.Equal(t, "20240114", row.Date)
	assert.Zero(t, row.BuyVol)
	assert.Zero(t, row.CumNetBuyVol)
}
