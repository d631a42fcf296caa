package confidence

import (
	"math"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/util"
)

// Each factor is a dedicated pure function over the scoring inputs,
// returning a value in [0,1].

// patternStrength is the evidence-weighted average of match probabilities
// plus a small multi-pattern confirmation bonus capped at +0.2.
func patternStrength(matches []models.PatternMatch) float64 {
	if len(matches) == 0 {
		return 0
	}
	var sum, wsum float64
	for _, m := range matches {
		sum += m.Probability * m.Confidence
		wsum += m.Confidence
	}
	if wsum == 0 {
		return 0
	}
	avg := sum / wsum
	bonus := 0.05 * float64(len(matches)-1)
	if bonus > 0.2 {
		bonus = 0.2
	}
	return util.Clamp01(avg + bonus)
}

// volumeConfidence scores current volume against the trailing average:
// 2x the average maps to full confidence.
func volumeConfidence(reading models.MarketReading, tape []models.TapeEntry) float64 {
	avg := reading.AvgVolume
	if avg <= 0 && len(tape) > 0 {
		for _, t := range tape {
			avg += t.Volume
		}
		avg /= float64(len(tape))
	}
	if avg <= 0 {
		return 0.5
	}
	return util.Clamp01(reading.Volume / avg / 2)
}

// liquidityScore blends the coarse liquidity level with the liquidity
// module's absorption estimate.
func liquidityScore(reading models.MarketReading, liq models.LiquidityAnalysis) float64 {
	level := 0.6
	switch reading.Liquidity {
	case models.LiquidityHigh:
		level = 1.0
	case models.LiquidityMedium:
		level = 0.6
	case models.LiquidityLow:
		level = 0.2
	}
	return util.Clamp01(0.6*level + 0.4*util.Clamp01(liq.AbsorptionLevel))
}

// marketConditions rewards tight spreads, good liquidity and contained
// volatility.
func marketConditions(reading models.MarketReading) float64 {
	spread := 0.0
	if reading.Price > 0 {
		spread = util.Clamp01(reading.Spread / reading.Price * 100)
	}
	liq := 0.6
	switch reading.Liquidity {
	case models.LiquidityHigh:
		liq = 1.0
	case models.LiquidityLow:
		liq = 0.2
	}
	volPenalty := util.Clamp01(reading.Volatility * 20)
	return util.Clamp01(0.4*(1-spread) + 0.3*liq + 0.3*(1-volPenalty))
}

// riskAssessment blends inverse risk level, stop-loss proximity, and a
// risk/reward-ratio bucket score.
func riskAssessment(decision models.DecisionAnalysis) float64 {
	inverse := util.Clamp01(1 - decision.RiskLevel)

	proximity := 0.5
	if decision.EntryPrice > 0 && decision.StopLoss > 0 {
		dist := math.Abs(decision.EntryPrice-decision.StopLoss) / decision.EntryPrice
		proximity = util.Clamp01(1 - dist*50)
	}

	var rr float64
	switch {
	case decision.RiskRewardRatio >= 3:
		rr = 1.0
	case decision.RiskRewardRatio >= 2:
		rr = 0.8
	case decision.RiskRewardRatio >= 1.5:
		rr = 0.6
	case decision.RiskRewardRatio >= 1:
		rr = 0.4
	default:
		rr = 0.2
	}

	return util.Clamp01(0.4*inverse + 0.3*proximity + 0.3*rr)
}

// historicalAccuracy averages the historical success of the current matches,
// defaulting to 0.5 with no matches.
func historicalAccuracy(matches []models.PatternMatch) float64 {
	if len(matches) == 0 {
		return 0.5
	}
	sum := 0.0
	for _, m := range matches {
		sum += m.HistoricalSuccess
	}
	return util.Clamp01(sum / float64(len(matches)))
}

// timeFactors scores session timing from the market phase.
func timeFactors(reading models.MarketReading) float64 {
	switch reading.Phase {
	case models.PhaseOpen:
		return 1.0
	case models.PhaseClose:
		return 0.7
	case models.PhasePreMarket:
		return 0.3
	case models.PhaseAfterHours:
		return 0.1
	}
	return 0.5
}

// orderFlowStrength combines absolute signed imbalance with the dominant
// print fraction.
func orderFlowStrength(tape []models.TapeEntry) float64 {
	if len(tape) == 0 {
		return 0
	}
	var buyVol, sellVol float64
	dominant := 0
	for _, t := range tape {
		switch t.Aggressor {
		case models.AggressorBuyer:
			buyVol += t.Volume
		case models.AggressorSeller:
			sellVol += t.Volume
		}
		if t.IsDominant {
			dominant++
		}
	}
	imbalance := 0.0
	if buyVol+sellVol > 0 {
		imbalance = math.Abs(buyVol-sellVol) / (buyVol + sellVol)
	}
	return util.Clamp01(0.6*imbalance + 0.4*float64(dominant)/float64(len(tape)))
}

// volatilityStability rewards contained volatility.
func volatilityStability(reading models.MarketReading) float64 {
	return util.Clamp01(1 - reading.Volatility*20)
}

// momentumAlignment scores agreement between tape flow direction and the
// decision recommendation. Neutral (0.5) when the recommendation is to wait.
func momentumAlignment(tape []models.TapeEntry, decision models.DecisionAnalysis) float64 {
	var dir float64
	switch decision.Recommendation {
	case "buy":
		dir = 1
	case "sell":
		dir = -1
	default:
		return 0.5
	}
	var buyVol, sellVol float64
	for _, t := range tape {
		switch t.Aggressor {
		case models.AggressorBuyer:
			buyVol += t.Volume
		case models.AggressorSeller:
			sellVol += t.Volume
		}
	}
	if buyVol+sellVol == 0 {
		return 0.5
	}
	imbalance := (buyVol - sellVol) / (buyVol + sellVol)
	return util.Clamp01(0.5 + 0.5*imbalance*dir)
}

// computeFactors evaluates all ten factors for one scoring call.
func computeFactors(reading models.MarketReading, tape []models.TapeEntry, matches []models.PatternMatch, decision models.DecisionAnalysis, liq models.LiquidityAnalysis) models.ConfidenceFactors {
	return models.ConfidenceFactors{
		PatternStrength:     patternStrength(matches),
		VolumeConfidence:    volumeConfidence(reading, tape),
		LiquidityScore:      liquidityScore(reading, liq),
		MarketConditions:    marketConditions(reading),
		RiskAssessment:      riskAssessment(decision),
		HistoricalAccuracy:  historicalAccuracy(matches),
		TimeFactors:         timeFactors(reading),
		OrderFlowStrength:   orderFlowStrength(tape),
		VolatilityStability: volatilityStability(reading),
		MomentumAlignment:   momentumAlignment(tape, decision),
	}
}
