package domain

// InventoryRow is one (broker, stock, date) observation in a cumulative
// inventory time series. Date is always the canonical YYYYMMDD form.
type InventoryRow struct {
	Date         string  `json:"date" csv:"Date"`
	BuyVol       float64 `json:"buy_vol" csv:"BuyVol"`
	SellVol      float64 `json:"sell_vol" csv:"SellVol"`
	NetBuyVol    float64 `json:"net_buy_vol" csv:"NetBuyVol"`
	CumBuyVol    float64 `json:"cum_buy_vol" csv:"CumBuyVol"`
	CumSellVol   float64 `json:"cum_sell_vol" csv:"CumSellVol"`
	CumNetBuyVol float64 `json:"cum_net_buy_vol" csv:"CumNetBuyVol"`
}

// BaselineRow returns the synthetic all-zero row that precedes the
// first real trading date of a series.
func BaselineRow(date string) InventoryRow {
	return InventoryRow{Date: date}
}
