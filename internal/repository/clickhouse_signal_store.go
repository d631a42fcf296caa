package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/models"
	domrepo "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/repository"
	pkgch "github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/clickhouse"
	applogger "github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/logger"
)

// CHSignalStore implements SignalStore backed by ClickHouse. Nested parts of
// a result (factors, matches, advice) are stored as JSON columns; the scalar
// columns carry everything the history API filters and sorts on.
type CHSignalStore struct {
	client *pkgch.Client
	db     *sql.DB
	l      *applogger.Logger
}

func NewCHSignalStore(ch *pkgch.Client) *CHSignalStore {
	return &CHSignalStore{client: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHSignalStore) SetLogger(l *applogger.Logger) { s.l = l }

func schemaStatements() []string {
	return []string{
		`CREATE DATABASE IF NOT EXISTS tapevision`,
		`CREATE TABLE IF NOT EXISTS tapevision.signals (
            ts DateTime64(3),
            symbol String,
            final_confidence Float64,
            bayesian_confidence Float64,
            uncertainty_lower Float64,
            uncertainty_upper Float64,
            regime String,
            regime_confidence Float64,
            quality Float64,
            calc_time_us Int64,
            factors String,
            weights String,
            matches String,
            advice String
        ) ENGINE = MergeTree()
        PARTITION BY toYYYYMMDD(ts)
        ORDER BY (symbol, ts)`,
		`CREATE TABLE IF NOT EXISTS tapevision.outcomes (
            ts DateTime64(3),
            symbol String,
            confidence Float64,
            outcome String
        ) ENGINE = MergeTree()
        PARTITION BY toYYYYMMDD(ts)
        ORDER BY (symbol, ts)`,
	}
}

func (s *CHSignalStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, schemaStatements())
}

// advice bundles the two string lists into one JSON column.
type advice struct {
	Recommendations []string `json:"recommendations"`
	Warnings        []string `json:"warnings"`
}

func (s *CHSignalStore) StoreResult(ctx context.Context, r *models.ConfidenceResult) error {
	if r == nil {
		return fmt.Errorf("result is nil")
	}
	start := time.Now()

	factors, err := json.Marshal(r.Factors.Map())
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}
	weights, err := json.Marshal(r.Weights)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}
	matches, err := json.Marshal(r.Matches)
	if err != nil {
		return fmt.Errorf("marshal matches: %w", err)
	}
	adv, err := json.Marshal(advice{Recommendations: r.Recommendations, Warnings: r.Warnings})
	if err != nil {
		return fmt.Errorf("marshal advice: %w", err)
	}

	const q = `INSERT INTO tapevision.signals
        (ts, symbol, final_confidence, bayesian_confidence, uncertainty_lower, uncertainty_upper,
         regime, regime_confidence, quality, calc_time_us, factors, weights, matches, advice)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		r.Timestamp,
		r.Symbol,
		r.FinalConfidence,
		r.BayesianConfidence,
		r.UncertaintyLower,
		r.UncertaintyUpper,
		string(r.Regime.Type),
		r.Regime.Confidence,
		r.Quality.WeightedScore(),
		r.CalculationTime.Microseconds(),
		string(factors),
		string(weights),
		string(matches),
		string(adv),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse store_signal error",
				applogger.String("symbol", r.Symbol),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store signal: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse store_signal ok",
			applogger.String("symbol", r.Symbol),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHSignalStore) StoreOutcome(ctx context.Context, o *models.SignalOutcome) error {
	if o == nil {
		return fmt.Errorf("outcome is nil")
	}
	const q = `INSERT INTO tapevision.outcomes (ts, symbol, confidence, outcome) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, o.RecordedAt, o.Symbol, o.Confidence, string(o.Outcome)); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse store_outcome error",
				applogger.String("symbol", o.Symbol),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store outcome: %w", err)
	}
	return nil
}

func (s *CHSignalStore) QueryResults(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.ConfidenceResult, error) {
	start := time.Now()
	const q = `
        SELECT ts, symbol, final_confidence, bayesian_confidence, uncertainty_lower, uncertainty_upper,
               regime, regime_confidence, calc_time_us, factors, weights, matches, advice
        FROM tapevision.signals
        WHERE symbol = ? AND ts >= ? AND ts <= ?
        ORDER BY ts DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse query_signals error",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	out := make([]*models.ConfidenceResult, 0, limit)
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse query_signals ok",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func scanResult(rows *sql.Rows) (*models.ConfidenceResult, error) {
	var (
		r           models.ConfidenceResult
		regimeType  string
		calcUs      int64
		factorsJSON string
		weightsJSON string
		matchesJSON string
		adviceJSON  string
	)
	if err := rows.Scan(
		&r.Timestamp, &r.Symbol,
		&r.FinalConfidence, &r.BayesianConfidence,
		&r.UncertaintyLower, &r.UncertaintyUpper,
		&regimeType, &r.Regime.Confidence,
		&calcUs, &factorsJSON, &weightsJSON, &matchesJSON, &adviceJSON,
	); err != nil {
		return nil, fmt.Errorf("scan signal: %w", err)
	}
	r.Regime.Type = models.RegimeType(regimeType)
	r.CalculationTime = time.Duration(calcUs) * time.Microsecond

	var factorMap map[string]float64
	if err := json.Unmarshal([]byte(factorsJSON), &factorMap); err == nil {
		r.Factors = factorsFromMap(factorMap)
	}
	_ = json.Unmarshal([]byte(weightsJSON), &r.Weights)
	_ = json.Unmarshal([]byte(matchesJSON), &r.Matches)
	var adv advice
	if err := json.Unmarshal([]byte(adviceJSON), &adv); err == nil {
		r.Recommendations = adv.Recommendations
		r.Warnings = adv.Warnings
	}
	return &r, nil
}

func factorsFromMap(m map[string]float64) models.ConfidenceFactors {
	return models.ConfidenceFactors{
		PatternStrength:     m[models.FactorPatternStrength],
		VolumeConfidence:    m[models.FactorVolumeConfidence],
		LiquidityScore:      m[models.FactorLiquidityScore],
		MarketConditions:    m[models.FactorMarketConditions],
		RiskAssessment:      m[models.FactorRiskAssessment],
		HistoricalAccuracy:  m[models.FactorHistoricalAccuracy],
		TimeFactors:         m[models.FactorTimeFactors],
		OrderFlowStrength:   m[models.FactorOrderFlowStrength],
		VolatilityStability: m[models.FactorVolatilityStability],
		MomentumAlignment:   m[models.FactorMomentumAlignment],
	}
}

func (s *CHSignalStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHSignalStore) Close() error {
	return nil // Managed by pkg
}

var _ domrepo.SignalStore = (*CHSignalStore)(nil)
