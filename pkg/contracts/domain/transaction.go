package domain

// TransactionRecord represents one broker's daily activity in a single
// stock, as read from a per-broker transaction file.
type TransactionRecord struct {
	StockCode string `json:"stock_code" csv:"StockCode"`

	BuyVol      float64 `json:"buy_vol" csv:"BuyVol"`
	BuyValue    float64 `json:"buy_value" csv:"BuyValue"`
	BuyAvg      float64 `json:"buy_avg" csv:"BuyAvg"`
	BuyFreq     float64 `json:"buy_freq" csv:"BuyFreq"`
	BuyOrderNum float64 `json:"buy_order_num" csv:"BuyOrderNum"`

	SellVol      float64 `json:"sell_vol" csv:"SellVol"`
	SellValue    float64 `json:"sell_value" csv:"SellValue"`
	SellAvg      float64 `json:"sell_avg" csv:"SellAvg"`
	SellFreq     float64 `json:"sell_freq" csv:"SellFreq"`
	SellOrderNum float64 `json:"sell_order_num" csv:"SellOrderNum"`

	// Derived fields, recomputed on load rather than trusted from disk.
	BuyLot             float64 `json:"buy_lot" csv:"BuyLot"`
	BuyLotPerFreq      float64 `json:"buy_lot_per_freq" csv:"BuyLotPerFreq"`
	BuyLotPerOrderNum  float64 `json:"buy_lot_per_order_num" csv:"BuyLotPerOrderNum"`
	SellLot            float64 `json:"sell_lot" csv:"SellLot"`
	SellLotPerFreq     float64 `json:"sell_lot_per_freq" csv:"SellLotPerFreq"`
	SellLotPerOrderNum float64 `json:"sell_lot_per_order_num" csv:"SellLotPerOrderNum"`
}

// SharesPerLot is the exchange convention of 100 shares per lot.
const SharesPerLot = 100

// Derive recomputes all derived fields from the raw buy/sell columns.
// Averages and ratios fall back to 0 when the denominator is 0.
func (r *TransactionRecord) Derive() {
	r.BuyLot = r.BuyVol / SharesPerLot
	r.SellLot = r.SellVol / SharesPerLot
	r.BuyAvg = SafeDiv(r.BuyValue, r.BuyVol)
	r.SellAvg = SafeDiv(r.SellValue, r.SellVol)
	r.BuyLotPerFreq = SafeDiv(r.BuyLot, r.BuyFreq)
	r.BuyLotPerOrderNum = SafeDiv(r.BuyLot, r.BuyOrderNum)
	r.SellLotPerFreq = SafeDiv(r.SellLot, r.SellFreq)
	r.SellLotPerOrderNum = SafeDiv(r.SellLot, r.SellOrderNum)
}

// SafeDiv returns num/den, or 0 when den is 0.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
