package market

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/fleetflow/leadflow/internal/model"
)

type seedFile struct {
	Snapshots []seedSnapshot `yaml:"snapshots"`
}

type seedSnapshot struct {
	Origin             string     `yaml:"origin"`
	Destination        string     `yaml:"destination"`
	FuelPricePerGallon float64    `yaml:"fuel_price_per_gallon"`
	DemandIndex        float64    `yaml:"demand_index"`
	CapacityIndex      float64    `yaml:"capacity_index"`
	AverageRatePerMile float64    `yaml:"average_rate_per_mile"`
	CapturedAt         *time.Time `yaml:"captured_at"`
}

// LoadSeed builds a static feed from a YAML snapshot file. Snapshots without
// a captured_at are stamped with now.
func LoadSeed(path string, now time.Time) (*StaticFeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "market: read seed %s", path)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "market: parse seed %s", path)
	}

	feed := NewStaticFeed()
	for i, s := range file.Snapshots {
		if s.Origin == "" || s.Destination == "" {
			return nil, eris.Errorf("market: seed snapshot %d missing lane", i)
		}
		capturedAt := now
		if s.CapturedAt != nil {
			capturedAt = *s.CapturedAt
		}
		feed.Set(model.MarketSnapshot{
			Lane:               model.NewLane(s.Origin, s.Destination),
			FuelPricePerGallon: s.FuelPricePerGallon,
			DemandIndex:        s.DemandIndex,
			CapacityIndex:      s.CapacityIndex,
			AverageRatePerMile: s.AverageRatePerMile,
			CapturedAt:         capturedAt,
		})
	}
	return feed, nil
}
