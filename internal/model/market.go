package model

import (
	"fmt"
	"strings"
	"time"
)

// Lane identifies an origin-destination pair. String form is
// "origin->destination" with both sides folded to lower case.
type Lane struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// NewLane builds a canonical lane from raw origin/destination strings.
func NewLane(origin, destination string) Lane {
	return Lane{
		Origin:      strings.ToLower(strings.TrimSpace(origin)),
		Destination: strings.ToLower(strings.TrimSpace(destination)),
	}
}

func (l Lane) String() string {
	return fmt.Sprintf("%s->%s", l.Origin, l.Destination)
}

// MarketSnapshot is an immutable, timestamped capture of market conditions
// for one lane. Readers never block on a refresh; they consume the most
// recent snapshot available, stale or not.
type MarketSnapshot struct {
	Lane               Lane      `json:"lane"`
	FuelPricePerGallon float64   `json:"fuel_price_per_gallon"`
	DemandIndex        float64   `json:"demand_index"`    // 0..1, 1 = peak demand
	CapacityIndex      float64   `json:"capacity_index"`  // 0..1, 1 = fully utilized
	AverageRatePerMile float64   `json:"average_rate_per_mile,omitempty"`
	CapturedAt         time.Time `json:"captured_at"`
}

// Age returns how old the snapshot is as of now.
func (s MarketSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.CapturedAt)
}

// Fresh reports whether the snapshot is younger than maxAge.
func (s MarketSnapshot) Fresh(now time.Time, maxAge time.Duration) bool {
	return s.Age(now) <= maxAge
}
