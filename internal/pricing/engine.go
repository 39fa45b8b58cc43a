// Package pricing computes itemized freight quotes with confidence scores
// and risk assessments. A quote is a single linear pipeline per request: any
// missing input is a hard failure and no partial quote is ever returned.
package pricing

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fleetflow/leadflow/internal/config"
	"github.com/fleetflow/leadflow/internal/errs"
	"github.com/fleetflow/leadflow/internal/market"
	"github.com/fleetflow/leadflow/internal/model"
)

// Engine generates quotes. It holds no mutable state shared between
// concurrent requests; everything per-request lives on the stack.
type Engine struct {
	cfg       config.PricingConfig
	marketCfg config.MarketConfig
	tables    *Tables
	resolver  DistanceResolver
	snapshots market.SnapshotProvider
	now       func() time.Time // injectable for testing
}

// NewEngine creates a pricing engine.
func NewEngine(
	cfg config.PricingConfig,
	marketCfg config.MarketConfig,
	tables *Tables,
	resolver DistanceResolver,
	snapshots market.SnapshotProvider,
) *Engine {
	return &Engine{
		cfg:       cfg,
		marketCfg: marketCfg,
		tables:    tables,
		resolver:  resolver,
		snapshots: snapshots,
		now:       time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.now = now
	return e
}

// GenerateQuote prices one shipment request. Errors are returned whole; the
// caller never sees a partially priced quote.
func (e *Engine) GenerateQuote(ctx context.Context, req model.QuoteRequest) (*model.QuoteBreakdown, error) {
	now := e.now()
	lane := req.Lane()

	if req.Origin == "" || req.Destination == "" {
		return nil, errs.NewValidation("lane", "origin and destination are required")
	}
	if req.WeightLbs <= 0 {
		return nil, errs.NewValidation("weight_lbs", "must be > 0")
	}
	if req.PickupDate.IsZero() {
		return nil, errs.NewValidation("pickup_date", "required")
	}

	// Step 1: lane distance.
	dist, err := e.resolver.ResolveDistance(ctx, req.Origin, req.Destination)
	if err != nil {
		return nil, eris.Wrapf(err, "pricing: resolve distance %s", lane)
	}
	if dist.Miles <= 0 {
		return nil, errs.NewNotFound("lane", lane.String())
	}

	// Step 2: base rate from the rate table.
	perMile, exactClass, ok := e.tables.perMileRate(req.Equipment, req.CommodityClass)
	if !ok {
		return nil, errs.NewNotFound("rate", string(req.Equipment)+"/"+req.CommodityClass)
	}
	baseRate := dist.Miles * perMile

	// Market snapshot: never block on a refresh; a stale snapshot caps
	// confidence instead of failing, unless strict freshness was requested.
	// A lane the feed has never seen is priced on neutral defaults with the
	// same confidence cap.
	snap, ok := e.snapshots.Snapshot(lane)
	if !ok {
		snap = market.DefaultSnapshot(lane, now)
	}
	snapshotAge := snap.Age(now)
	stale := !ok || snapshotAge > e.marketCfg.MaxAge()
	if stale && req.StrictFreshness {
		return nil, &errs.StaleDataError{Age: snapshotAge, MaxAge: e.marketCfg.MaxAge()}
	}

	// Steps 3-5: fuel, market, and seasonal components.
	fuelSurcharge := baseRate * e.fuelIndexFraction(snap)
	marketAdjustment := baseRate * e.demandCapacityDelta(snap)
	seasonalAdjustment := baseRate * (e.tables.seasonalFactor(lane, int(req.PickupDate.Month())) - 1)

	// Step 7 first: accessorials are needed for the risk rules too.
	accessorials, err := e.accessorialCharges(req.SpecialRequirements)
	if err != nil {
		return nil, err
	}

	// Step 10 input: the cost model does not depend on positioning, so it
	// can feed the margin floor inside step 6.
	estimatedCost := baseRate*e.tables.costFraction(req.CommodityClass) + fuelSurcharge

	// Step 6: competitive positioning against the market average rate.
	linehaul := baseRate + fuelSurcharge + marketAdjustment + seasonalAdjustment
	marketRate := e.marketAverageRate(lane, snap, perMile)
	marketTotal := marketRate * dist.Miles
	positioning := e.competitivePositioning(baseRate, linehaul, marketTotal, estimatedCost)

	// Step 8: total.
	total := linehaul + positioning + accessorials

	// Steps 9-10: confidence and margin.
	confidence := e.confidenceScore(dist, snapshotAge, exactClass, stale)
	profitMargin := 0.0
	if total > 0 {
		profitMargin = (total - estimatedCost) / total
	}
	winProb := e.winProbability(linehaul+positioning, marketTotal)

	// Steps 11-12: risk assessment and recommendations.
	risk := e.assessRisk(lane, snap, req)
	recs := e.recommendations(snap, winProb, stale, risk)

	quote := &model.QuoteBreakdown{
		ID:   uuid.New().String(),
		Lane: lane,

		DistanceMiles: dist.Miles,

		BaseRate:               round2(baseRate),
		FuelSurcharge:          round2(fuelSurcharge),
		MarketAdjustment:       round2(marketAdjustment),
		SeasonalAdjustment:     round2(seasonalAdjustment),
		CompetitivePositioning: round2(positioning),
		AccessorialCharges:     round2(accessorials),

		ConfidenceScore: confidence,
		EstimatedCost:   round2(estimatedCost),
		ProfitMargin:    profitMargin,
		WinProbability:  winProb,
		Risk:            risk,
		Recommendations: recs,

		SnapshotAge: snapshotAge,
		CreatedAt:   now,
		ValidUntil:  now.Add(e.cfg.QuoteValidity()),
	}
	// Total is the exact sum of the six rounded components.
	quote.Total = round2(quote.BaseRate + quote.FuelSurcharge + quote.MarketAdjustment +
		quote.SeasonalAdjustment + quote.CompetitivePositioning + quote.AccessorialCharges)

	zap.L().Info("pricing: quote generated",
		zap.String("quote_id", quote.ID),
		zap.String("lane", lane.String()),
		zap.Float64("miles", dist.Miles),
		zap.Float64("total", quote.Total),
		zap.Float64("confidence", confidence),
		zap.Float64("win_probability", winProb),
		zap.String("risk_level", string(risk.Level)),
		zap.Bool("stale_snapshot", stale),
	)

	return quote, nil
}

// fuelIndexFraction converts the snapshot fuel price into a fraction of the
// base rate: the relative excess over the peg price, scaled, never negative.
func (e *Engine) fuelIndexFraction(snap model.MarketSnapshot) float64 {
	peg := e.tables.FuelPegPricePerGallon
	if peg <= 0 || snap.FuelPricePerGallon <= peg {
		return 0
	}
	excess := (snap.FuelPricePerGallon - peg) / peg
	return excess * e.tables.FuelSurchargeScale
}

// demandCapacityDelta maps the demand and capacity-utilization indices onto a
// signed fraction of base rate: a hot market (high demand, tight capacity)
// prices up, a loose market prices down.
func (e *Engine) demandCapacityDelta(snap model.MarketSnapshot) float64 {
	pressure := (snap.DemandIndex+snap.CapacityIndex)/2 - 0.5
	return pressure * e.tables.MarketSensitivity
}

// accessorialCharges sums the flat charges for each declared special
// requirement. An unknown requirement code is a ValidationError.
func (e *Engine) accessorialCharges(requirements []string) (float64, error) {
	total := 0.0
	for _, code := range requirements {
		charge, ok := e.tables.Accessorials[code]
		if !ok {
			return 0, errs.NewValidation("special_requirements", "unknown accessorial code: "+code)
		}
		total += charge
	}
	return total, nil
}

// marketAverageRate picks the competing per-mile rate: lane table first, then
// the snapshot's observed average, then our own rate as a last resort.
func (e *Engine) marketAverageRate(lane model.Lane, snap model.MarketSnapshot, ownRate float64) float64 {
	if r, ok := e.tables.MarketAverageRates[lane.String()]; ok {
		return r
	}
	if snap.AverageRatePerMile > 0 {
		return snap.AverageRatePerMile
	}
	return ownRate
}

// competitivePositioning nudges the linehaul price toward the rate that
// historically achieves the target win probability, bounded by the maximum
// positioning swing and floored so the target margin is preserved.
func (e *Engine) competitivePositioning(baseRate, linehaul, marketTotal, estimatedCost float64) float64 {
	if marketTotal <= 0 || baseRate <= 0 {
		return 0
	}

	w := e.cfg.WinProbabilityTarget
	if w <= 0 || w >= 1 {
		w = 0.5
	}
	// Invert the win curve: the price ratio at which it crosses the target.
	targetRatio := 1 + e.tables.WinCurveSpread*math.Log((1-w)/w)
	targetPrice := marketTotal * targetRatio

	adjustment := targetPrice - linehaul
	swing := e.cfg.MaxPositioningSwing * baseRate
	adjustment = clampAbs(adjustment, swing)

	// Never position below the price that preserves the target margin.
	if margin := e.cfg.TargetMargin; margin > 0 && margin < 1 {
		minPrice := estimatedCost / (1 - margin)
		if linehaul+adjustment < minPrice {
			adjustment = clampAbs(minPrice-linehaul, swing)
		}
	}
	return adjustment
}

// winProbability evaluates the logistic win curve at a price: priced at the
// market average it is 0.5, and it decays as the ratio climbs.
func (e *Engine) winProbability(price, marketTotal float64) float64 {
	if marketTotal <= 0 {
		return 0.5
	}
	ratio := price / marketTotal
	return 1 / (1 + math.Exp((ratio-1)/e.tables.WinCurveSpread))
}

// confidenceScore weighs distance-resolution certainty, snapshot freshness,
// and rate-table coverage. Freshness is non-increasing in snapshot age past
// the freshness threshold, and a snapshot past the max age caps the whole
// score at the stale ceiling.
func (e *Engine) confidenceScore(dist Distance, age time.Duration, exactClass, stale bool) float64 {
	distCert := clamp01(dist.Certainty)

	freshness := 1.0
	if threshold := e.marketCfg.FreshnessThreshold(); threshold > 0 && age > threshold {
		// Linear decay: zero once the snapshot is four thresholds old.
		freshness = clamp01(1 - float64(age-threshold)/float64(3*threshold))
	}

	coverage := 1.0
	if !exactClass {
		coverage = 0.7
	}

	wd := e.cfg.DistanceConfidenceWeight
	wf := e.cfg.FreshnessConfidenceWeight
	wc := e.cfg.CoverageConfidenceWeight
	sum := wd + wf + wc
	if sum <= 0 {
		wd, wf, wc, sum = 1, 1, 1, 3
	}
	score := (wd*distCert + wf*freshness + wc*coverage) / sum

	if stale && score > e.cfg.StaleConfidenceCeiling {
		score = e.cfg.StaleConfidenceCeiling
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampAbs(v, bound float64) float64 {
	if bound < 0 {
		bound = 0
	}
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
