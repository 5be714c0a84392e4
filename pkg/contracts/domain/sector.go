package domain

// SectorAggregateRow is the per-stock total across every broker folded
// into one (date, sector, filter) cell. Net fields are recomputed from
// the aggregate buy/sell totals, never summed from per-broker nets, so
// at most one of the NetBuy/NetSell pairs is non-zero.
type SectorAggregateRow struct {
	StockCode string `json:"stock_code" csv:"StockCode"`

	BuyVol             float64 `json:"buy_vol" csv:"BuyVol"`
	BuyValue           float64 `json:"buy_value" csv:"BuyValue"`
	BuyAvg             float64 `json:"buy_avg" csv:"BuyAvg"`
	BuyFreq            float64 `json:"buy_freq" csv:"BuyFreq"`
	BuyOrderNum        float64 `json:"buy_order_num" csv:"BuyOrderNum"`
	BuyLot             float64 `json:"buy_lot" csv:"BuyLot"`
	BuyLotPerFreq      float64 `json:"buy_lot_per_freq" csv:"BuyLotPerFreq"`
	BuyLotPerOrderNum  float64 `json:"buy_lot_per_order_num" csv:"BuyLotPerOrderNum"`
	SellVol            float64 `json:"sell_vol" csv:"SellVol"`
	SellValue          float64 `json:"sell_value" csv:"SellValue"`
	SellAvg            float64 `json:"sell_avg" csv:"SellAvg"`
	SellFreq           float64 `json:"sell_freq" csv:"SellFreq"`
	SellOrderNum       float64 `json:"sell_order_num" csv:"SellOrderNum"`
	SellLot            float64 `json:"sell_lot" csv:"SellLot"`
	SellLotPerFreq     float64 `json:"sell_lot_per_freq" csv:"SellLotPerFreq"`
	SellLotPerOrderNum float64 `json:"sell_lot_per_order_num" csv:"SellLotPerOrderNum"`

	NetBuyVol    float64 `json:"net_buy_vol" csv:"NetBuyVol"`
	NetBuyValue  float64 `json:"net_buy_value" csv:"NetBuyValue"`
	NetSellVol   float64 `json:"net_sell_vol" csv:"NetSellVol"`
	NetSellValue float64 `json:"net_sell_value" csv:"NetSellValue"`
}

// Accumulate adds one broker's record into the aggregate totals.
// Derived fields are not touched here; call Finalize once every broker
// has been folded in.
func (a *SectorAggregateRow) Accumulate(r TransactionRecord) {
	a.BuyVol += r.BuyVol
	a.BuyValue += r.BuyValue
	a.BuyFreq += r.BuyFreq
	a.BuyOrderNum += r.BuyOrderNum
	a.SellVol += r.SellVol
	a.SellValue += r.SellValue
	a.SellFreq += r.SellFreq
	a.SellOrderNum += r.SellOrderNum
}

// Finalize recomputes every derived field from the summed totals and
// enforces net sign-exclusivity.
func (a *SectorAggregateRow) Finalize() {
	a.BuyLot = a.BuyVol / SharesPerLot
	a.SellLot = a.SellVol / SharesPerLot
	a.BuyAvg = SafeDiv(a.BuyValue, a.BuyVol)
	a.SellAvg = SafeDiv(a.SellValue, a.SellVol)
	a.BuyLotPerFreq = SafeDiv(a.BuyLot, a.BuyFreq)
	a.BuyLotPerOrderNum = SafeDiv(a.BuyLot, a.BuyOrderNum)
	a.SellLotPerFreq = SafeDiv(a.SellLot, a.SellFreq)
	a.SellLotPerOrderNum = SafeDiv(a.SellLot, a.SellOrderNum)

	a.NetBuyVol = max(a.BuyVol-a.SellVol, 0)
	a.NetSellVol = max(a.SellVol-a.BuyVol, 0)
	a.NetBuyValue = max(a.BuyValue-a.SellValue, 0)
	a.NetSellValue = max(a.SellValue-a.BuyValue, 0)
}
