package scoring

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/fleetflow/leadflow/internal/config"
	"github.com/fleetflow/leadflow/internal/model"
)

// Components holds the per-component values (each 0..100) behind a score.
type Components struct {
	IndustryFit       float64 `json:"industry_fit"`
	Volume            float64 `json:"volume"`
	Verification      float64 `json:"verification"`
	Recency           float64 `json:"recency"`
	SourceReliability float64 `json:"source_reliability"`
}

// Engine scores unified leads.
type Engine struct {
	cfg config.ScoringConfig
}

// NewEngine creates a scoring engine. The config should be validated first.
func NewEngine(cfg config.ScoringConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Score computes the composite 0..100 score for a lead as of now.
// Identical inputs and configuration always yield an identical score.
func (e *Engine) Score(lead *model.UnifiedLead, now time.Time) (float64, Components) {
	c := Components{
		IndustryFit:       e.industryFit(lead),
		Volume:            e.volumeSignal(lead),
		Verification:      e.verificationBonus(lead),
		Recency:           e.recencyDecay(lead, now),
		SourceReliability: e.sourceReliability(lead),
	}

	score := e.cfg.IndustryFitWeight*c.IndustryFit +
		e.cfg.VolumeWeight*c.Volume +
		e.cfg.VerificationWeight*c.Verification +
		e.cfg.RecencyWeight*c.Recency +
		e.cfg.SourceReliabilityWeight*c.SourceReliability

	return clamp(score, 0, 100), c
}

// Apply scores the lead in place: score, tier, conversion probability, and
// estimated monthly revenue.
func (e *Engine) Apply(lead *model.UnifiedLead, now time.Time) {
	score, components := e.Score(lead, now)
	lead.Score = score
	lead.Tier = e.Tier(score)
	lead.ConversionProbability = e.ConversionProbability(score, lead.Registry.Verified)
	lead.EstimatedMonthlyRevenue = e.EstimatedMonthlyRevenue(lead)

	zap.L().Debug("scoring: lead scored",
		zap.String("key", lead.Key),
		zap.Float64("score", score),
		zap.String("tier", string(lead.Tier)),
		zap.Float64("conversion_probability", lead.ConversionProbability),
		zap.Float64("industry_fit", components.IndustryFit),
		zap.Float64("recency", components.Recency),
	)
}

// Tier maps a score to its priority tier. Assignment is monotonic in score.
func (e *Engine) Tier(score float64) model.PriorityTier {
	switch {
	case score >= e.cfg.HighTierThreshold:
		return model.TierHigh
	case score >= e.cfg.MediumTierThreshold:
		return model.TierMedium
	default:
		return model.TierLow
	}
}

// ConversionProbability is a logistic transform of the score, shifted up
// slightly for verified leads. The result is strictly inside (0,1).
func (e *Engine) ConversionProbability(score float64, verified bool) float64 {
	x := score
	if verified {
		x += e.cfg.VerifiedLogisticBump
	}
	return 1 / (1 + math.Exp(-e.cfg.LogisticSteepness*(x-e.cfg.LogisticMidpoint)))
}

// EstimatedMonthlyRevenue is the expected-value revenue estimate:
// monthly shipments x average load value x conversion probability.
func (e *Engine) EstimatedMonthlyRevenue(lead *model.UnifiedLead) float64 {
	return lead.MonthlyVolume * e.cfg.AverageLoadValueUSD * lead.ConversionProbability
}

func (e *Engine) industryFit(lead *model.UnifiedLead) float64 {
	if len(lead.Industries) == 0 {
		return e.cfg.DefaultIndustryFit
	}
	// Best-fit industry wins.
	best := 0.0
	for _, ind := range lead.Industries {
		fit, ok := e.cfg.IndustryFit[ind]
		if !ok {
			fit = e.cfg.DefaultIndustryFit
		}
		if fit > best {
			best = fit
		}
	}
	return clamp(best, 0, 100)
}

// volumeSignal normalizes the provider-estimated shipment volume against the
// configured cap: a lead at or above VolumeCap shipments/month scores 100.
func (e *Engine) volumeSignal(lead *model.UnifiedLead) float64 {
	if lead.MonthlyVolume <= 0 {
		return 0
	}
	return clamp(lead.MonthlyVolume/e.cfg.VolumeCap*100, 0, 100)
}

func (e *Engine) verificationBonus(lead *model.UnifiedLead) float64 {
	if !lead.Registry.Verified {
		return 0
	}
	return clamp(e.cfg.VerificationBonus, 0, 100)
}

// recencyDecay is exponential with a configurable half-life: a lead last
// observed exactly one half-life ago contributes half the full value.
func (e *Engine) recencyDecay(lead *model.UnifiedLead, now time.Time) float64 {
	if lead.LastObservedAt.IsZero() {
		return 0
	}
	ageDays := now.Sub(lead.LastObservedAt).Hours() / 24
	if ageDays <= 0 {
		return 100
	}
	halfLife := float64(e.cfg.RecencyHalfLifeDays)
	return clamp(100*math.Pow(2, -ageDays/halfLife), 0, 100)
}

func (e *Engine) sourceReliability(lead *model.UnifiedLead) float64 {
	sources := lead.Sources()
	if len(sources) == 0 {
		return e.cfg.DefaultSourceReliability
	}
	sum := 0.0
	for _, src := range sources {
		rel, ok := e.cfg.SourceReliability[src]
		if !ok {
			rel = e.cfg.DefaultSourceReliability
		}
		sum += rel
	}
	return clamp(sum/float64(len(sources)), 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
