// Package scoring computes the composite quality score, priority tier,
// conversion probability, and revenue estimate for unified leads. All
// computation is a deterministic function of the lead, the clock, and
// configuration.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/fleetflow/leadflow/internal/config"
)

// DefaultConfig returns a config.ScoringConfig with documented defaults.
// The five component weights sum to 1.0.
func DefaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		IndustryFitWeight:       0.25,
		VolumeWeight:            0.25,
		VerificationWeight:      0.20,
		RecencyWeight:           0.15,
		SourceReliabilityWeight: 0.15,

		IndustryFit: map[string]float64{
			"manufacturing":  90,
			"automotive":     85,
			"food_beverage":  80,
			"retail":         70,
			"construction":   65,
			"agriculture":    60,
			"pharmaceutical": 75,
		},
		DefaultIndustryFit: 40,

		VolumeCap:         200,
		VerificationBonus: 100,

		RecencyHalfLifeDays: 30,

		SourceReliability: map[string]float64{
			"fmcsa":       95,
			"thomas_net":  75,
			"trucking_db": 60,
		},
		DefaultSourceReliability: 50,

		HighTierThreshold:   85,
		MediumTierThreshold: 70,

		LogisticMidpoint:     55,
		LogisticSteepness:    0.08,
		VerifiedLogisticBump: 5,

		AverageLoadValueUSD: 1850,
	}
}

// WeightSum returns the sum of the five component weights.
func WeightSum(c config.ScoringConfig) float64 {
	return c.IndustryFitWeight + c.VolumeWeight + c.VerificationWeight +
		c.RecencyWeight + c.SourceReliabilityWeight
}

// Validate checks that a ScoringConfig is internally consistent.
func Validate(c config.ScoringConfig) error {
	var errs []string

	weights := map[string]float64{
		"industry_fit_weight":       c.IndustryFitWeight,
		"volume_weight":             c.VolumeWeight,
		"verification_weight":       c.VerificationWeight,
		"recency_weight":            c.RecencyWeight,
		"source_reliability_weight": c.SourceReliabilityWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	// Weights must sum to 1 (allow tolerance for floating-point).
	if sum := WeightSum(c); math.Abs(sum-1) > 0.01 {
		errs = append(errs, fmt.Sprintf("weights should sum to 1.0, got %.3f", sum))
	}

	if c.VolumeCap <= 0 {
		errs = append(errs, "volume_cap must be > 0")
	}
	if c.RecencyHalfLifeDays <= 0 {
		errs = append(errs, "recency_half_life_days must be > 0")
	}
	if c.HighTierThreshold < c.MediumTierThreshold {
		errs = append(errs, "high_tier_threshold must be >= medium_tier_threshold")
	}
	if c.LogisticSteepness <= 0 {
		errs = append(errs, "logistic_steepness must be > 0")
	}
	if c.AverageLoadValueUSD < 0 {
		errs = append(errs, "average_load_value_usd must be >= 0")
	}

	if len(errs) > 0 {
		return eris.New("scoring config: " + strings.Join(errs, "; "))
	}
	return nil
}
