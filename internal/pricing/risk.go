package pricing

import (
	"github.com/fleetflow/leadflow/internal/model"
)

// assessRisk evaluates the rule table against the observed risk factors for
// this request: lane volatility, commodity hazard signals, and market
// pressure. Purely table-driven; the same inputs always produce the same
// verdict.
func (e *Engine) assessRisk(lane model.Lane, snap model.MarketSnapshot, req model.QuoteRequest) model.RiskAssessment {
	volatility := e.tables.laneVolatility(lane)

	points := 0
	var factors []string
	var mitigations []string
	seenMitigation := make(map[string]bool)

	for _, rule := range e.tables.RiskRules {
		if !ruleMatches(rule, volatility, snap, req) {
			continue
		}
		points += rule.Points
		if rule.Factor != "" {
			factors = append(factors, rule.Factor)
		}
		for _, m := range rule.Mitigations {
			if !seenMitigation[m] {
				seenMitigation[m] = true
				mitigations = append(mitigations, m)
			}
		}
	}

	level := model.RiskLow
	switch {
	case points >= e.tables.RiskHighThreshold:
		level = model.RiskHigh
	case points >= e.tables.RiskMediumThreshold:
		level = model.RiskMedium
	}

	return model.RiskAssessment{
		Level:       level,
		Factors:     factors,
		Mitigations: mitigations,
	}
}

// ruleMatches checks every set condition of a rule; unset conditions are
// ignored.
func ruleMatches(rule RiskRule, volatility float64, snap model.MarketSnapshot, req model.QuoteRequest) bool {
	if rule.LaneVolatilityAtLeast != nil && volatility < *rule.LaneVolatilityAtLeast {
		return false
	}
	if rule.DemandIndexAtLeast != nil && snap.DemandIndex < *rule.DemandIndexAtLeast {
		return false
	}
	if rule.CapacityIndexAtLeast != nil && snap.CapacityIndex < *rule.CapacityIndexAtLeast {
		return false
	}
	if rule.RequiresAccessorial != "" && !containsString(req.SpecialRequirements, rule.RequiresAccessorial) {
		return false
	}
	if len(rule.CommodityClassIn) > 0 && !containsString(rule.CommodityClassIn, req.CommodityClass) {
		return false
	}
	return true
}

// recommendations emits the deterministic rule-driven pricing advisories.
// Every threshold is named configuration; nothing is inferred at runtime.
func (e *Engine) recommendations(snap model.MarketSnapshot, winProb float64, stale bool, risk model.RiskAssessment) []string {
	var recs []string

	if snap.DemandIndex > e.cfg.PremiumDemandThreshold {
		recs = append(recs, "demand index above premium threshold: quote premium pricing")
	}
	if winProb > e.cfg.MaintainWinProbThreshold {
		recs = append(recs, "win probability above maintain threshold: hold current pricing")
	}
	if snap.CapacityIndex < e.cfg.DiscountCapacityThreshold {
		recs = append(recs, "loose capacity market: consider discounting to win volume")
	}
	if stale {
		recs = append(recs, "market snapshot is stale: refresh market data before committing")
	}
	if risk.Level == model.RiskHigh {
		recs = append(recs, "high risk lane: add contingency margin or decline")
	}

	return recs
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
