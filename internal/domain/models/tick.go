package models

// MarketTick is one inbound market update from the ingestion feed: a trade
// print plus whatever book/profile context and upstream analysis arrived
// with it. Optional parts are nil when the feed did not include them.
type MarketTick struct {
	Entry      TapeEntry
	Book       *OrderBookSnapshot
	Profile    []VolumeProfileBucket
	AvgVolume  float64
	Spread     float64
	Volatility float64
	Liquidity  LiquidityLevel
	Phase      MarketPhase
	Decision   *DecisionAnalysis
	Flow       *LiquidityAnalysis
}
