package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetflow/leadflow/internal/config"
	"github.com/fleetflow/leadflow/internal/errs"
	"github.com/fleetflow/leadflow/internal/market"
	"github.com/fleetflow/leadflow/internal/model"
)

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func testPricingConfig() config.PricingConfig {
	return config.PricingConfig{
		TargetMargin:              0.18,
		WinProbabilityTarget:      0.65,
		MaxPositioningSwing:       0.10,
		QuoteValidityHours:        48,
		DistanceConfidenceWeight:  0.3,
		FreshnessConfidenceWeight: 0.4,
		CoverageConfidenceWeight:  0.3,
		StaleConfidenceCeiling:    0.5,
		PremiumDemandThreshold:    0.8,
		MaintainWinProbThreshold:  0.85,
		DiscountCapacityThreshold: 0.35,
	}
}

func testMarketConfig() config.MarketConfig {
	return config.MarketConfig{
		RefreshIntervalMins:    15,
		FreshnessThresholdMins: 30,
		MaxAgeMins:             120,
	}
}

// testEngine wires an engine over one known lane with an adjustable snapshot.
func testEngine(snap model.MarketSnapshot) *Engine {
	tables := DefaultTables()
	tables.DistanceMiles["dallas->atlanta"] = 780

	feed := market.NewStaticFeed()
	feed.Set(snap)

	resolver := NewMatrixResolver(tables.DistanceMiles, 1.0)
	return NewEngine(testPricingConfig(), testMarketConfig(), tables, resolver, feed).
		WithNow(func() time.Time { return testNow })
}

func freshSnapshot() model.MarketSnapshot {
	return model.MarketSnapshot{
		Lane:               model.NewLane("dallas", "atlanta"),
		FuelPricePerGallon: 3.00,
		DemandIndex:        0.6,
		CapacityIndex:      0.5,
		AverageRatePerMile: 2.40,
		CapturedAt:         testNow.Add(-5 * time.Minute),
	}
}

func testRequest() model.QuoteRequest {
	return model.QuoteRequest{
		Origin:         "dallas",
		Destination:    "atlanta",
		WeightLbs:      24000,
		Equipment:      model.EquipmentDryVan,
		CommodityClass: "100",
		PickupDate:     testNow.Add(72 * time.Hour),
	}
}

func TestGenerateQuote_TotalIsComponentSum(t *testing.T) {
	engine := testEngine(freshSnapshot())

	quote, err := engine.GenerateQuote(context.Background(), testRequest())
	require.NoError(t, err)

	sum := 0.0
	for _, c := range quote.Components() {
		sum += c
	}
	assert.InDelta(t, sum, quote.Total, 0.001)

	assert.Greater(t, quote.BaseRate, 0.0)
	assert.Equal(t, 780.0, quote.DistanceMiles)
	assert.NotEmpty(t, quote.ID)
	assert.Equal(t, testNow, quote.CreatedAt)
	assert.Equal(t, testNow.Add(48*time.Hour), quote.ValidUntil)
	assert.False(t, quote.Expired(testNow.Add(47*time.Hour)))
	assert.True(t, quote.Expired(testNow.Add(49*time.Hour)))

	// Fresh snapshot, exact rate entry, certain distance.
	assert.GreaterOrEqual(t, quote.ConfidenceScore, 0.9)
}

func TestGenerateQuote_Deterministic(t *testing.T) {
	engine := testEngine(freshSnapshot())

	a, err := engine.GenerateQuote(context.Background(), testRequest())
	require.NoError(t, err)
	b, err := engine.GenerateQuote(context.Background(), testRequest())
	require.NoError(t, err)

	// Everything except the quote ID is a pure function of the inputs.
	assert.Equal(t, a.Total, b.Total)
	assert.Equal(t, a.Components(), b.Components())
	assert.Equal(t, a.ConfidenceScore, b.ConfidenceScore)
	assert.Equal(t, a.WinProbability, b.WinProbability)
	assert.Equal(t, a.Risk, b.Risk)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestGenerateQuote_ValidatesRequest(t *testing.T) {
	engine := testEngine(freshSnapshot())

	tests := []struct {
		name   string
		mutate func(*model.QuoteRequest)
	}{
		{"missing origin", func(r *model.QuoteRequest) { r.Origin = "" }},
		{"missing destination", func(r *model.QuoteRequest) { r.Destination = "" }},
		{"zero weight", func(r *model.QuoteRequest) { r.WeightLbs = 0 }},
		{"negative weight", func(r *model.QuoteRequest) { r.WeightLbs = -100 }},
		{"zero pickup", func(r *model.QuoteRequest) { r.PickupDate = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest()
			tt.mutate(&req)
			_, err := engine.GenerateQuote(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errs.IsValidation(err))
		})
	}
}

func TestGenerateQuote_UnknownLane(t *testing.T) {
	engine := testEngine(freshSnapshot())

	req := testRequest()
	req.Origin = "tulsa"
	_, err := engine.GenerateQuote(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestGenerateQuote_RateUnavailable(t *testing.T) {
	engine := testEngine(freshSnapshot())

	req := testRequest()
	req.Equipment = model.EquipmentType("hotshot")
	_, err := engine.GenerateQuote(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestGenerateQuote_UnknownAccessorial(t *testing.T) {
	engine := testEngine(freshSnapshot())

	req := testRequest()
	req.SpecialRequirements = []string{"liftgate", "helicopter_delivery"}
	_, err := engine.GenerateQuote(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}

func TestGenerateQuote_AccessorialCharges(t *testing.T) {
	engine := testEngine(freshSnapshot())

	req := testRequest()
	req.SpecialRequirements = []string{"liftgate", "residential"}
	quote, err := engine.GenerateQuote(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 215.0, quote.AccessorialCharges) // 125 + 90
}

func TestGenerateQuote_StaleSnapshotCapsConfidence(t *testing.T) {
	snap := freshSnapshot()
	snap.CapturedAt = testNow.Add(-3 * time.Hour) // past the 120m max age
	engine := testEngine(snap)

	quote, err := engine.GenerateQuote(context.Background(), testRequest())
	require.NoError(t, err)

	assert.LessOrEqual(t, quote.ConfidenceScore, 0.5)
	assert.Contains(t, quote.Recommendations,
		"market snapshot is stale: refresh market data before committing")
}

func TestGenerateQuote_StrictFreshnessFails(t *testing.T) {
	snap := freshSnapshot()
	snap.CapturedAt = testNow.Add(-3 * time.Hour)
	engine := testEngine(snap)

	req := testRequest()
	req.StrictFreshness = true
	_, err := engine.GenerateQuote(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errs.IsStaleData(err))
}

func TestGenerateQuote_MissingSnapshotQuotesOnDefaults(t *testing.T) {
	tables := DefaultTables()
	tables.DistanceMiles["dallas->atlanta"] = 780
	resolver := NewMatrixResolver(tables.DistanceMiles, 1.0)
	engine := NewEngine(testPricingConfig(), testMarketConfig(), tables, resolver, market.NewStaticFeed()).
		WithNow(func() time.Time { return testNow })

	quote, err := engine.GenerateQuote(context.Background(), testRequest())
	require.NoError(t, err)

	// Priced on the neutral defaults, with confidence treated like stale data.
	assert.Greater(t, quote.Total, 0.0)
	assert.LessOrEqual(t, quote.ConfidenceScore, 0.5)

	req := testRequest()
	req.StrictFreshness = true
	_, err = engine.GenerateQuote(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errs.IsStaleData(err))
}

func TestGenerateQuote_ConfidenceMonotoneInAge(t *testing.T) {
	ages := []time.Duration{
		5 * time.Minute,
		45 * time.Minute,
		90 * time.Minute,
		110 * time.Minute,
	}

	prev := 1.1
	for _, age := range ages {
		snap := freshSnapshot()
		snap.CapturedAt = testNow.Add(-age)
		quote, err := testEngine(snap).GenerateQuote(context.Background(), testRequest())
		require.NoError(t, err)
		assert.LessOrEqual(t, quote.ConfidenceScore, prev, "age %s", age)
		prev = quote.ConfidenceScore
	}
}

func TestGenerateQuote_FallbackClassLowersConfidence(t *testing.T) {
	exact, err := testEngine(freshSnapshot()).GenerateQuote(context.Background(), testRequest())
	require.NoError(t, err)

	req := testRequest()
	req.CommodityClass = "999" // no table entry, priced off the default
	fallback, err := testEngine(freshSnapshot()).GenerateQuote(context.Background(), req)
	require.NoError(t, err)

	assert.Less(t, fallback.ConfidenceScore, exact.ConfidenceScore)
}

func TestGenerateQuote_FuelSurchargeNeverNegative(t *testing.T) {
	snap := freshSnapshot()
	snap.FuelPricePerGallon = 2.00 // below the peg
	engine := testEngine(snap)

	quote, err := engine.GenerateQuote(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, 0.0, quote.FuelSurcharge)
}

func TestGenerateQuote_HotMarketPricesUp(t *testing.T) {
	hot := freshSnapshot()
	hot.DemandIndex = 0.9
	hot.CapacityIndex = 0.9
	loose := freshSnapshot()
	loose.DemandIndex = 0.2
	loose.CapacityIndex = 0.2

	hotQuote, err := testEngine(hot).GenerateQuote(context.Background(), testRequest())
	require.NoError(t, err)
	looseQuote, err := testEngine(loose).GenerateQuote(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Greater(t, hotQuote.MarketAdjustment, 0.0)
	assert.Less(t, looseQuote.MarketAdjustment, 0.0)
}

func TestGenerateQuote_HighRiskLane(t *testing.T) {
	snap := freshSnapshot()
	snap.DemandIndex = 0.95
	snap.CapacityIndex = 0.9
	engine := testEngine(snap)

	req := testRequest()
	req.CommodityClass = "175"
	req.SpecialRequirements = []string{"hazmat"}

	quote, err := engine.GenerateQuote(context.Background(), req)
	require.NoError(t, err)

	// hazmat(2) + capacity(2) + demand(1) + high class(1) crosses the high
	// threshold.
	assert.Equal(t, model.RiskHigh, quote.Risk.Level)
	assert.NotEmpty(t, quote.Risk.Factors)
	assert.NotEmpty(t, quote.Risk.Mitigations)
	assert.Contains(t, quote.Recommendations, "high risk lane: add contingency margin or decline")
}

func TestGenerateQuote_LowRiskByDefault(t *testing.T) {
	quote, err := testEngine(freshSnapshot()).GenerateQuote(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, model.RiskLow, quote.Risk.Level)
}

func TestWinProbability_ParityIsHalf(t *testing.T) {
	engine := testEngine(freshSnapshot())
	assert.InDelta(t, 0.5, engine.winProbability(1000, 1000), 1e-9)
	assert.Less(t, engine.winProbability(1200, 1000), 0.5)
	assert.Greater(t, engine.winProbability(800, 1000), 0.5)
}

func TestCompetitivePositioning_BoundedBySwing(t *testing.T) {
	engine := testEngine(freshSnapshot())

	baseRate := 1000.0
	swing := testPricingConfig().MaxPositioningSwing * baseRate
	// A market total far from the linehaul forces the clamp.
	adj := engine.competitivePositioning(baseRate, 1000, 5000, 700)
	assert.LessOrEqual(t, adj, swing)
	assert.GreaterOrEqual(t, adj, -swing)

	adj = engine.competitivePositioning(baseRate, 1000, 200, 700)
	assert.LessOrEqual(t, adj, swing)
	assert.GreaterOrEqual(t, adj, -swing)
}
