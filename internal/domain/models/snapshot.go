package models

import "time"

// SignalSnapshot is a consolidated view of everything known about one
// symbol right now. Note: no transport (json/http) concerns here.
type SignalSnapshot struct {
	Symbol      string
	Timestamp   time.Time
	Confidence  *ConfidenceResult
	Patterns    []PatternMatch
	Regime      *MarketRegime
	Performance *PerformanceSnapshot
	Errors      map[string]string
}
