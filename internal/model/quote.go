package model

import "time"

// EquipmentType is the trailer type requested for a shipment.
type EquipmentType string

// Equipment types covered by the rate table.
const (
	EquipmentDryVan   EquipmentType = "dry_van"
	EquipmentReefer   EquipmentType = "reefer"
	EquipmentFlatbed  EquipmentType = "flatbed"
	EquipmentStepDeck EquipmentType = "step_deck"
	EquipmentTanker   EquipmentType = "tanker"
)

// QuoteRequest describes one shipment to be priced.
type QuoteRequest struct {
	Origin              string        `json:"origin"`
	Destination         string        `json:"destination"`
	WeightLbs           float64       `json:"weight_lbs"`
	Equipment           EquipmentType `json:"equipment"`
	CommodityClass      string        `json:"commodity_class"`
	PickupDate          time.Time     `json:"pickup_date"`
	SpecialRequirements []string      `json:"special_requirements,omitempty"`

	// StrictFreshness makes a stale market snapshot a hard failure instead
	// of pricing with capped confidence.
	StrictFreshness bool `json:"strict_freshness,omitempty"`
}

// Lane returns the canonical lane for the request.
func (r QuoteRequest) Lane() Lane {
	return NewLane(r.Origin, r.Destination)
}

// RiskLevel classifies overall quote risk.
type RiskLevel string

// Risk levels.
const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskAssessment is the deterministic, rule-driven risk verdict for a quote.
type RiskAssessment struct {
	Level       RiskLevel `json:"level"`
	Factors     []string  `json:"factors,omitempty"`
	Mitigations []string  `json:"mitigations,omitempty"`
}

// QuoteBreakdown is the itemized output of the pricing engine. It is
// immutable once created and expires at ValidUntil; callers must regenerate
// rather than reuse an expired quote.
type QuoteBreakdown struct {
	ID   string `json:"id"`
	Lane Lane   `json:"lane"`

	DistanceMiles float64 `json:"distance_miles"`

	BaseRate               float64 `json:"base_rate"`
	FuelSurcharge          float64 `json:"fuel_surcharge"`
	MarketAdjustment       float64 `json:"market_adjustment"`
	SeasonalAdjustment     float64 `json:"seasonal_adjustment"`
	CompetitivePositioning float64 `json:"competitive_positioning"`
	AccessorialCharges     float64 `json:"accessorial_charges"`
	Total                  float64 `json:"total"`

	ConfidenceScore float64        `json:"confidence_score"`
	EstimatedCost   float64        `json:"estimated_cost"`
	ProfitMargin    float64        `json:"profit_margin"`
	WinProbability  float64        `json:"win_probability"`
	Risk            RiskAssessment `json:"risk"`
	Recommendations []string       `json:"recommendations,omitempty"`

	SnapshotAge time.Duration `json:"snapshot_age"`
	CreatedAt   time.Time     `json:"created_at"`
	ValidUntil  time.Time     `json:"valid_until"`
}

// Components returns the six priced components in presentation order.
func (q *QuoteBreakdown) Components() []float64 {
	return []float64{
		q.BaseRate,
		q.FuelSurcharge,
		q.MarketAdjustment,
		q.SeasonalAdjustment,
		q.CompetitivePositioning,
		q.AccessorialCharges,
	}
}

// Expired reports whether the quote has passed its validity window.
func (q *QuoteBreakdown) Expired(now time.Time) bool {
	return now.After(q.ValidUntil)
}
