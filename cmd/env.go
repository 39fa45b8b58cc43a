package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fleetflow/leadflow/internal/enrich"
	"github.com/fleetflow/leadflow/internal/market"
	"github.com/fleetflow/leadflow/internal/model"
	"github.com/fleetflow/leadflow/internal/pipeline"
	"github.com/fleetflow/leadflow/internal/pricing"
	"github.com/fleetflow/leadflow/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initEnricher builds the registry enricher, or nil when no web key is
// configured.
func initEnricher() *enrich.Enricher {
	if cfg.Enrich.FMCSAWebKey == "" {
		zap.L().Info("no FMCSA web key configured, skipping registry enrichment")
		return nil
	}
	var opts []enrich.FMCSAOption
	if cfg.Enrich.FMCSABaseURL != "" {
		opts = append(opts, enrich.WithBaseURL(cfg.Enrich.FMCSABaseURL))
	}
	client := enrich.NewFMCSAClient(cfg.Enrich.FMCSAWebKey, opts...)
	return enrich.New(client, cfg.Enrich)
}

func loadTables() (*pricing.Tables, error) {
	if cfg.Pricing.TablesPath != "" {
		return pricing.LoadTables(cfg.Pricing.TablesPath)
	}
	return pricing.DefaultTables(), nil
}

func loadFeed(now time.Time) (*market.StaticFeed, error) {
	if cfg.Market.SeedPath != "" {
		return market.LoadSeed(cfg.Market.SeedPath, now)
	}
	return market.NewStaticFeed(), nil
}

// initQuoter assembles the pricing engine over the given snapshot provider.
func initQuoter(tables *pricing.Tables, snapshots market.SnapshotProvider) *pricing.Engine {
	resolver := pricing.NewMatrixResolver(tables.DistanceMiles, 1.0)
	return pricing.NewEngine(cfg.Pricing, cfg.Market, tables, resolver, snapshots)
}

// loadSources reads raw lead records from JSON files, one source per file.
// The file name (sans extension) becomes the source ID unless the records
// carry their own.
func loadSources(paths []string) ([]pipeline.LeadSource, error) {
	var sources []pipeline.LeadSource
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "read source file %s", path)
		}
		var records []model.RawLeadRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, eris.Wrapf(err, "parse source file %s", path)
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		for i := range records {
			if records[i].SourceID == "" {
				records[i].SourceID = name
			}
			if records[i].ObservedAt.IsZero() {
				records[i].ObservedAt = time.Now().UTC()
			}
		}
		sources = append(sources, &pipeline.StaticSource{SourceName: name, Records: records})
	}
	return sources, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
