package pipeline

import (
	"context"

	"github.com/fleetflow/leadflow/internal/model"
)

// Filter narrows which raw records a source should fetch and which unified
// leads the final result includes.
type Filter struct {
	States     []string
	Industries []string
	Tier       model.PriorityTier
	MinScore   float64
	Limit      int
}

// MatchesState reports whether the given state passes the filter.
func (f Filter) MatchesState(state string) bool {
	if len(f.States) == 0 {
		return true
	}
	for _, s := range f.States {
		if s == state {
			return true
		}
	}
	return false
}

// LeadSource produces raw records from one upstream system. Implementations
// are fanned out concurrently, so they must be safe to call alongside each
// other.
type LeadSource interface {
	// Name identifies the source in logs and provenance.
	Name() string
	// FetchLeads returns the raw records matching the filter.
	FetchLeads(ctx context.Context, filter Filter) ([]model.RawLeadRecord, error)
}

// StaticSource serves a fixed record set; used in tests and seed imports.
type StaticSource struct {
	SourceName string
	Records    []model.RawLeadRecord
}

func (s *StaticSource) Name() string { return s.SourceName }

func (s *StaticSource) FetchLeads(_ context.Context, filter Filter) ([]model.RawLeadRecord, error) {
	var out []model.RawLeadRecord
	for _, rec := range s.Records {
		if !filter.MatchesState(rec.State) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
