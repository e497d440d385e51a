package price

// Symbol is tradable-instrument metadata, keyed by ticker.
type Symbol struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Sector     string  `json:"sector"`
	Industry   string  `json:"industry"`
	MarketCap  float64 `json:"market_cap"`
	Country    string  `json:"country"`
	Exchange   string  `json:"exchange"`
	Currency   string  `json:"currency"`
	AssetClass string  `json:"asset_class"`
}
