package pricing

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/fleetflow/leadflow/internal/model"
)

// Tables holds the rate, seasonality, accessorial, cost-benchmark, and risk
// rule data behind the pricing engine. All pricing is a deterministic
// function of these tables, the request, and the market snapshot.
type Tables struct {
	// Rates maps equipment type to commodity class to a per-mile linehaul
	// rate in USD. The "default" class is the fallback for classes without
	// an explicit entry; quotes priced off the fallback carry reduced
	// rate-coverage confidence.
	Rates map[model.EquipmentType]map[string]float64 `yaml:"rates"`

	// FuelPegPricePerGallon is the diesel price already baked into the base
	// rates; the surcharge covers the excess above it.
	FuelPegPricePerGallon float64 `yaml:"fuel_peg_price_per_gallon"`
	// FuelSurchargeScale converts relative fuel-price excess into a fraction
	// of the base rate.
	FuelSurchargeScale float64 `yaml:"fuel_surcharge_scale"`

	// MarketSensitivity converts the demand/capacity delta into a fraction
	// of the base rate.
	MarketSensitivity float64 `yaml:"market_sensitivity"`

	// Seasonality maps month (1-12) to a rate multiplier; DefaultSeasonality
	// applies to lanes without their own curve.
	DefaultSeasonality map[int]float64            `yaml:"default_seasonality"`
	LaneSeasonality    map[string]map[int]float64 `yaml:"lane_seasonality"`

	// Accessorials maps special-requirement codes to flat charges in USD.
	Accessorials map[string]float64 `yaml:"accessorials"`

	// CostFractions maps commodity class to the carrier-cost fraction of the
	// base rate used for margin estimation.
	CostFractions       map[string]float64 `yaml:"cost_fractions"`
	DefaultCostFraction float64            `yaml:"default_cost_fraction"`

	// MarketAverageRates maps lane string to the competing per-mile market
	// rate. Lanes without an entry fall back to the snapshot's average rate,
	// then to the rate table itself.
	MarketAverageRates map[string]float64 `yaml:"market_average_rates"`

	// DistanceMiles maps lane string to road miles, feeding the matrix
	// distance resolver.
	DistanceMiles map[string]float64 `yaml:"distance_miles"`

	// WinCurveSpread controls how fast win probability falls off as price
	// moves above the market average (logistic spread on the price ratio).
	WinCurveSpread float64 `yaml:"win_curve_spread"`

	// LaneVolatility maps lane string to a 0..1 historical rate-volatility
	// signal consumed by the risk rules.
	LaneVolatility        map[string]float64 `yaml:"lane_volatility"`
	DefaultLaneVolatility float64            `yaml:"default_lane_volatility"`

	// RiskRules is the ordered rule table behind the risk assessment.
	RiskRules []RiskRule `yaml:"risk_rules"`

	// RiskMediumThreshold and RiskHighThreshold convert accumulated rule
	// points into a risk level.
	RiskMediumThreshold int `yaml:"risk_medium_threshold"`
	RiskHighThreshold   int `yaml:"risk_high_threshold"`
}

// RiskRule is one row of the risk rule table. All set conditions must hold
// for the rule to fire; zero-valued conditions are ignored.
type RiskRule struct {
	Name string `yaml:"name"`

	LaneVolatilityAtLeast *float64 `yaml:"lane_volatility_at_least,omitempty"`
	DemandIndexAtLeast    *float64 `yaml:"demand_index_at_least,omitempty"`
	CapacityIndexAtLeast  *float64 `yaml:"capacity_index_at_least,omitempty"`
	RequiresAccessorial   string   `yaml:"requires_accessorial,omitempty"`
	CommodityClassIn      []string `yaml:"commodity_class_in,omitempty"`

	Points      int      `yaml:"points"`
	Factor      string   `yaml:"factor"`
	Mitigations []string `yaml:"mitigations,omitempty"`
}

// DefaultTables returns the compiled-in pricing tables.
func DefaultTables() *Tables {
	return &Tables{
		Rates: map[model.EquipmentType]map[string]float64{
			model.EquipmentDryVan: {
				"default": 2.10,
				"50":      1.95,
				"70":      2.10,
				"100":     2.35,
				"175":     2.60,
			},
			model.EquipmentReefer: {
				"default": 2.55,
				"70":      2.45,
				"100":     2.70,
			},
			model.EquipmentFlatbed: {
				"default": 2.45,
				"100":     2.55,
				"175":     2.80,
			},
			model.EquipmentStepDeck: {
				"default": 2.65,
			},
			model.EquipmentTanker: {
				"default": 2.90,
			},
		},

		FuelPegPricePerGallon: 2.50,
		FuelSurchargeScale:    0.35,

		MarketSensitivity: 0.30,

		DefaultSeasonality: map[int]float64{
			1: 0.96, 2: 0.95, 3: 0.98, 4: 1.00, 5: 1.02, 6: 1.04,
			7: 1.03, 8: 1.02, 9: 1.01, 10: 1.03, 11: 1.05, 12: 1.08,
		},
		LaneSeasonality: map[string]map[int]float64{},

		Accessorials: map[string]float64{
			"hazmat":              350,
			"temperature_control": 275,
			"liftgate":            125,
			"inside_delivery":     150,
			"residential":         90,
			"team_drivers":        500,
			"tarping":             110,
			"detention_guard":     175,
		},

		CostFractions: map[string]float64{
			"50":  0.70,
			"70":  0.72,
			"100": 0.74,
			"175": 0.76,
		},
		DefaultCostFraction: 0.72,

		MarketAverageRates: map[string]float64{},
		DistanceMiles:      map[string]float64{},
		WinCurveSpread:     0.08,

		LaneVolatility:        map[string]float64{},
		DefaultLaneVolatility: 0.30,

		RiskRules: []RiskRule{
			{
				Name:                  "volatile_lane",
				LaneVolatilityAtLeast: floatPtr(0.6),
				Points:                2,
				Factor:                "lane rate volatility above historical norm",
				Mitigations:           []string{"shorten quote validity window", "add fuel and rate escalation clause"},
			},
			{
				Name:                 "capacity_shortage",
				CapacityIndexAtLeast: floatPtr(0.85),
				Points:               2,
				Factor:               "capacity utilization signals a shortage",
				Mitigations:          []string{"secure carrier commitment before confirming pickup"},
			},
			{
				Name:               "demand_surge",
				DemandIndexAtLeast: floatPtr(0.9),
				Points:             1,
				Factor:             "demand index at surge level",
				Mitigations:        []string{"re-price if pickup slips beyond the validity window"},
			},
			{
				Name:                "hazmat_commodity",
				RequiresAccessorial: "hazmat",
				Points:              2,
				Factor:              "hazardous materials handling",
				Mitigations:         []string{"verify carrier hazmat certification", "confirm insurance coverage limits"},
			},
			{
				Name:             "high_class_commodity",
				CommodityClassIn: []string{"175", "250", "300", "400", "500"},
				Points:           1,
				Factor:           "high freight class increases claim exposure",
				Mitigations:      []string{"document condition at pickup", "consider added cargo insurance"},
			},
		},
		RiskMediumThreshold: 2,
		RiskHighThreshold:   4,
	}
}

// LoadTables reads a YAML tables file, overlaying the compiled-in defaults.
func LoadTables(path string) (*Tables, error) {
	t := DefaultTables()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pricing: read tables %s", path)
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, eris.Wrapf(err, "pricing: parse tables %s", path)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the tables for internal consistency.
func (t *Tables) Validate() error {
	var errs []string

	if len(t.Rates) == 0 {
		errs = append(errs, "rates table is empty")
	}
	for equip, classes := range t.Rates {
		for class, rate := range classes {
			if rate <= 0 {
				errs = append(errs, fmt.Sprintf("rate for %s/%s must be > 0", equip, class))
			}
		}
	}
	if t.FuelPegPricePerGallon <= 0 {
		errs = append(errs, "fuel_peg_price_per_gallon must be > 0")
	}
	if t.FuelSurchargeScale < 0 {
		errs = append(errs, "fuel_surcharge_scale must be >= 0")
	}
	if t.WinCurveSpread <= 0 {
		errs = append(errs, "win_curve_spread must be > 0")
	}
	for code, charge := range t.Accessorials {
		if charge < 0 {
			errs = append(errs, fmt.Sprintf("accessorial %s must be >= 0", code))
		}
	}
	if t.DefaultCostFraction <= 0 || t.DefaultCostFraction >= 1 {
		errs = append(errs, "default_cost_fraction must be in (0,1)")
	}
	if t.RiskHighThreshold < t.RiskMediumThreshold {
		errs = append(errs, "risk_high_threshold must be >= risk_medium_threshold")
	}

	if len(errs) > 0 {
		return eris.New("pricing tables: " + strings.Join(errs, "; "))
	}
	return nil
}

// perMileRate looks up the linehaul rate. The boolean reports whether the
// exact commodity class was covered (false means the default class was used).
func (t *Tables) perMileRate(equipment model.EquipmentType, class string) (float64, bool, bool) {
	classes, ok := t.Rates[equipment]
	if !ok {
		return 0, false, false
	}
	if rate, ok := classes[class]; ok {
		return rate, true, true
	}
	if rate, ok := classes["default"]; ok {
		return rate, false, true
	}
	return 0, false, false
}

// seasonalFactor returns the multiplier for a pickup month on a lane,
// preferring the lane-specific curve.
func (t *Tables) seasonalFactor(lane model.Lane, month int) float64 {
	if curve, ok := t.LaneSeasonality[lane.String()]; ok {
		if f, ok := curve[month]; ok {
			return f
		}
	}
	if f, ok := t.DefaultSeasonality[month]; ok {
		return f
	}
	return 1.0
}

// laneVolatility returns the historical volatility signal for a lane.
func (t *Tables) laneVolatility(lane model.Lane) float64 {
	if v, ok := t.LaneVolatility[lane.String()]; ok {
		return v
	}
	return t.DefaultLaneVolatility
}

// costFraction returns the carrier-cost fraction of base rate for a class.
func (t *Tables) costFraction(class string) float64 {
	if f, ok := t.CostFractions[class]; ok {
		return f
	}
	return t.DefaultCostFraction
}

func floatPtr(f float64) *float64 { return &f }
