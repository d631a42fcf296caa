package service

import (
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
)

// FeatureExtractor converts raw market inputs into grouped feature vectors.
type FeatureExtractor interface {
	Extract(reading models.MarketReading, tape []models.TapeEntry, book *models.OrderBookSnapshot, profile []models.VolumeProfileBucket) models.FeatureSet
}

// PatternMatcher scores current market state against the template catalog
// and the structural detectors.
type PatternMatcher interface {
	Match(features models.FeatureSet, tape []models.TapeEntry, book, prevBook *models.OrderBookSnapshot, profile []models.VolumeProfileBucket, now time.Time) []models.PatternMatch
}

// RegimeDetector classifies the short-term market state.
type RegimeDetector interface {
	Detect(prices []float64, reading models.MarketReading) models.MarketRegime
}

// ConfidenceScorer fuses pattern matches with market, risk and liquidity
// signals into one calibrated confidence.
type ConfidenceScorer interface {
	Score(reading models.MarketReading, tape []models.TapeEntry, matches []models.PatternMatch, decision models.DecisionAnalysis, liquidity models.LiquidityAnalysis) (*models.ConfidenceResult, error)
}
