package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetflow/leadflow/internal/config"
	"github.com/fleetflow/leadflow/internal/errs"
	"github.com/fleetflow/leadflow/internal/model"
	"github.com/fleetflow/leadflow/internal/store"
)

func pipelineConfig() config.Config {
	return config.Config{
		Pipeline: config.PipelineConfig{
			QueueSize:           32,
			LeadTTLDays:         180,
			SimilarityThreshold: 0.8,
			SourcePriority:      []string{"fmcsa", "thomas_net", "trucking_db"},
		},
		Scoring: config.ScoringConfig{
			IndustryFitWeight:        0.25,
			VolumeWeight:             0.25,
			VerificationWeight:       0.20,
			RecencyWeight:            0.15,
			SourceReliabilityWeight:  0.15,
			DefaultIndustryFit:       40,
			VolumeCap:                200,
			VerificationBonus:        100,
			RecencyHalfLifeDays:      30,
			DefaultSourceReliability: 50,
			HighTierThreshold:        85,
			MediumTierThreshold:      70,
			LogisticMidpoint:         55,
			LogisticSteepness:        0.08,
			VerifiedLogisticBump:     5,
			AverageLoadValueUSD:      1850,
		},
	}
}

func pipelineStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// failingSource always errors; the batch must continue without it.
type failingSource struct{}

func (failingSource) Name() string { return "broken_feed" }
func (failingSource) FetchLeads(context.Context, Filter) ([]model.RawLeadRecord, error) {
	return nil, errs.NewExternal("broken_feed", context.DeadlineExceeded)
}

func rawRecord(source, name, state, zip string, observed time.Time) model.RawLeadRecord {
	return model.RawLeadRecord{
		SourceID:    source,
		CompanyName: name,
		State:       state,
		ZipCode:     zip,
		Industries:  []string{"manufacturing"},
		ObservedAt:  observed,
	}
}

func TestPipeline_EndToEnd(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	observed := now.Add(-time.Hour)

	sources := []LeadSource{
		&StaticSource{SourceName: "trucking_db", Records: []model.RawLeadRecord{
			rawRecord("trucking_db", "Acme Manufacturing Inc", "TX", "75201", observed),
			rawRecord("trucking_db", "Lone Star Freight LLC", "TX", "75001", observed),
		}},
		&StaticSource{SourceName: "thomas_net", Records: []model.RawLeadRecord{
			// Same company as Acme above, under an abbreviated name.
			rawRecord("thomas_net", "ACME MFG", "TX", "75201-1234", observed),
			rawRecord("thomas_net", "", "TX", "75002", observed), // unnormalizable
		}},
	}

	st := pipelineStore(t)
	p := New(sources, pipelineConfig(), st, nil).WithNow(func() time.Time { return now })

	res, err := p.GenerateUnifiedLeads(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Stats.Fetched)
	assert.Equal(t, 1, res.Stats.Dropped)
	assert.Equal(t, 2, res.Stats.Created)
	assert.Equal(t, 1, res.Stats.Merged)
	require.Len(t, res.Leads, 2)

	// The merged lead carries both sources.
	var acme *model.UnifiedLead
	for i := range res.Leads {
		if res.Leads[i].HasSource("thomas_net") {
			acme = &res.Leads[i]
		}
	}
	require.NotNil(t, acme)
	assert.Equal(t, model.SourceCombined, acme.Source())
	assert.Len(t, acme.Provenance, 2)

	// Every surviving lead is scored and tiered.
	for _, lead := range res.Leads {
		assert.Greater(t, lead.Score, 0.0)
		assert.NotEmpty(t, lead.Tier)
	}
}

func TestPipeline_NormalizeOverflowsQueueDeterministically(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	observed := now.Add(-time.Hour)

	// More records than the configured queue so the workers have to block on
	// the collector, plus scattered unnormalizable records.
	var records []model.RawLeadRecord
	for i := 0; i < 100; i++ {
		name := "Carrier " + string(rune('A'+i%26)) + " " + string(rune('A'+i/26))
		if i%10 == 9 {
			name = ""
		}
		records = append(records, rawRecord("trucking_db", name, "TX", "75201", observed))
	}
	sources := []LeadSource{&StaticSource{SourceName: "trucking_db", Records: records}}

	st := pipelineStore(t)
	p := New(sources, pipelineConfig(), st, nil).WithNow(func() time.Time { return now })

	res, err := p.GenerateUnifiedLeads(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Stats.Fetched)
	assert.Equal(t, 10, res.Stats.Dropped)

	// A repeat run sees the same companies and creates nothing new.
	res2, err := p.GenerateUnifiedLeads(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0, res2.Stats.Created)
	assert.Len(t, res2.Leads, len(res.Leads))
}

func TestPipeline_FailedSourceIsSkipped(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	sources := []LeadSource{
		failingSource{},
		&StaticSource{SourceName: "trucking_db", Records: []model.RawLeadRecord{
			rawRecord("trucking_db", "Acme Freight", "TX", "75201", now.Add(-time.Hour)),
		}},
	}

	st := pipelineStore(t)
	p := New(sources, pipelineConfig(), st, nil).WithNow(func() time.Time { return now })

	res, err := p.GenerateUnifiedLeads(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Fetched)
	assert.Len(t, res.Leads, 1)
}

func TestPipeline_SecondRunMergesIntoExisting(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	st := pipelineStore(t)
	cfg := pipelineConfig()

	first := []LeadSource{&StaticSource{SourceName: "trucking_db", Records: []model.RawLeadRecord{
		rawRecord("trucking_db", "Acme Freight", "TX", "75201", now.Add(-time.Hour)),
	}}}
	p1 := New(first, cfg, st, nil).WithNow(func() time.Time { return now })
	res1, err := p1.GenerateUnifiedLeads(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, res1.Stats.Created)

	later := now.Add(24 * time.Hour)
	second := []LeadSource{&StaticSource{SourceName: "thomas_net", Records: []model.RawLeadRecord{
		rawRecord("thomas_net", "Acme Freight LLC", "TX", "75201", later.Add(-time.Minute)),
	}}}
	p2 := New(second, cfg, st, nil).WithNow(func() time.Time { return later })
	res2, err := p2.GenerateUnifiedLeads(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Equal(t, 0, res2.Stats.Created)
	assert.Equal(t, 1, res2.Stats.Merged)
	require.Len(t, res2.Leads, 1)
	assert.Equal(t, model.SourceCombined, res2.Leads[0].Source())
}

func TestPipeline_StateFilterCanonicalizes(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	st := pipelineStore(t)

	sources := []LeadSource{&StaticSource{SourceName: "trucking_db", Records: []model.RawLeadRecord{
		rawRecord("trucking_db", "Acme Freight", "TX", "75201", now.Add(-time.Hour)),
		rawRecord("trucking_db", "Peach Carriers", "GA", "30301", now.Add(-time.Hour)),
	}}}
	p := New(sources, pipelineConfig(), st, nil).WithNow(func() time.Time { return now })

	// Prime the store with both states, then filter by full state name.
	_, err := p.GenerateUnifiedLeads(context.Background(), Filter{})
	require.NoError(t, err)

	res, err := p.GenerateUnifiedLeads(context.Background(), Filter{States: []string{"Texas"}})
	require.NoError(t, err)
	require.Len(t, res.Leads, 1)
	assert.Equal(t, "tx", res.Leads[0].State)
}
