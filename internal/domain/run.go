package domain

// RunSummary is the result of one monitor run. It is returned by the manual
// trigger endpoint as-is, so field names follow the public API contract.
type RunSummary struct {
	RunID              string  `json:"run_id"`
	Success            bool    `json:"success"`
	TradesProcessed    int     `json:"tradesProcessed"`
	TradesSkipped      int     `json:"tradesSkipped"`
	TradesMalformed    int     `json:"tradesMalformed"`
	TotalTradesFetched int     `json:"totalTradesFetched"`
	UniqueAddresses    int     `json:"uniqueAddresses"`
	AlertsCreated      int     `json:"alertsCreated"`
	Alerts             []Alert `json:"alerts"`
}
