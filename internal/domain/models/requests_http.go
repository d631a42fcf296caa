package models

// Requests for the confidence HTTP endpoints. Defined in domain for consistency and reuse.

type ConfidenceRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type PatternsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type RegimeRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type HistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=5000"`
}

type OutcomeRequest struct {
	Symbol     string  `json:"symbol" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	Outcome    string  `json:"outcome" validate:"oneof=win loss breakeven"`
}
