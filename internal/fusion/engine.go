// Package fusion merges normalized lead records that refer to the same
// company into unified leads. Fusion is a pure, single-pass transform: it
// never mutates its inputs and re-running it on unchanged input yields an
// identical output.
package fusion

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/fleetflow/leadflow/internal/config"
	"github.com/fleetflow/leadflow/internal/model"
	"github.com/fleetflow/leadflow/internal/normalize"
)

// SourceRegistry is the synthetic source rank for registry-verified data.
// It outranks every configured lead source.
const SourceRegistry = "registry"

// Engine performs deduplication and field fusion for one ingestion cycle.
type Engine struct {
	similarityThreshold float64
	rank                map[string]int
	unknownRank         int
}

// Stats summarizes one fusion pass.
type Stats struct {
	Ingested int `json:"ingested"`
	Created  int `json:"created"`
	Merged   int `json:"merged"`
}

// NewEngine creates a fusion engine from pipeline configuration.
func NewEngine(cfg config.PipelineConfig) *Engine {
	rank := make(map[string]int, len(cfg.SourcePriority)+1)
	rank[SourceRegistry] = -1
	for i, src := range cfg.SourcePriority {
		rank[src] = i
	}
	threshold := cfg.SimilarityThreshold
	if threshold <= 0 {
		threshold = 0.8
	}
	return &Engine{
		similarityThreshold: threshold,
		rank:                rank,
		unknownRank:         len(cfg.SourcePriority),
	}
}

// Fuse merges the cycle's normalized records into the existing lead set and
// returns the updated set keyed by identity key. The caller retains the only
// writable reference; inputs are copied, not aliased.
func (e *Engine) Fuse(records []normalize.Record, existing []model.UnifiedLead, now time.Time) (map[string]*model.UnifiedLead, Stats) {
	leads := make(map[string]*model.UnifiedLead, len(existing)+len(records))
	for _, l := range existing {
		cp := cloneLead(l)
		leads[cp.Key] = cp
	}

	// Deterministic processing order regardless of source fan-out ordering.
	sorted := make([]normalize.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		ki, kj := sorted[i].Identity.Key(), sorted[j].Identity.Key()
		if ki != kj {
			return ki < kj
		}
		if !sorted[i].Raw.ObservedAt.Equal(sorted[j].Raw.ObservedAt) {
			return sorted[i].Raw.ObservedAt.Before(sorted[j].Raw.ObservedAt)
		}
		return sorted[i].Raw.SourceID < sorted[j].Raw.SourceID
	})

	var stats Stats
	stats.Ingested = len(sorted)

	for _, rec := range sorted {
		key := rec.Identity.Key()

		target := leads[key]
		if target == nil {
			target = e.fuzzyMatch(leads, rec)
		}

		if target == nil {
			lead := newLead(key, rec, now)
			leads[lead.Key] = lead
			stats.Created++
			continue
		}

		e.merge(target, rec, now)
		stats.Merged++
	}

	zap.L().Info("fusion: cycle complete",
		zap.Int("ingested", stats.Ingested),
		zap.Int("created", stats.Created),
		zap.Int("merged", stats.Merged),
		zap.Int("leads", len(leads)),
	)

	return leads, stats
}

// fuzzyMatch scans for a near-miss: name token-set similarity at or above the
// threshold AND a corroborating phone or address match. Candidates are
// visited in sorted key order so ties resolve deterministically.
func (e *Engine) fuzzyMatch(leads map[string]*model.UnifiedLead, rec normalize.Record) *model.UnifiedLead {
	keys := make([]string, 0, len(leads))
	for k := range leads {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		lead := leads[k]
		sim := TokenSetSimilarity(lead.Identity.Name, rec.Identity.Name)
		if sim < e.similarityThreshold {
			continue
		}

		phoneMatch := rec.Identity.Phone != "" && rec.Identity.Phone == lead.Identity.Phone
		addressMatch := rec.Identity.Street != "" && rec.Identity.Zip != "" &&
			rec.Identity.Street == lead.Identity.Street && rec.Identity.Zip == lead.Identity.Zip

		if phoneMatch || addressMatch {
			zap.L().Debug("fusion: fuzzy merge",
				zap.String("lead_key", lead.Key),
				zap.String("record_name", rec.Identity.Name),
				zap.Float64("similarity", sim),
				zap.Bool("phone_match", phoneMatch),
			)
			return lead
		}
	}
	return nil
}

func newLead(key string, rec normalize.Record, now time.Time) *model.UnifiedLead {
	lead := &model.UnifiedLead{
		Key:            key,
		Identity:       rec.Identity,
		Registry:       model.RegistryBlock{SafetyRating: model.SafetyUnknown},
		FieldSources:   make(map[string]string),
		LastObservedAt: rec.Raw.ObservedAt,
		UpdatedAt:      now,
	}
	applyFields(lead, rec)
	lead.Provenance = append(lead.Provenance, observation(rec))
	return lead
}

// merge folds one record into an existing lead: provenance is append-only
// and field conflicts resolve by source priority with most-recent as the
// final tie-break.
func (e *Engine) merge(lead *model.UnifiedLead, rec normalize.Record, now time.Time) {
	obs := observation(rec)
	if !hasObservation(lead, obs) {
		lead.Provenance = append(lead.Provenance, obs)
	}

	newRank := e.rankOf(rec.Raw.SourceID)
	for _, f := range leadFields(rec) {
		if f.value == "" && f.fvalue == 0 {
			continue
		}
		curSource, set := lead.FieldSources[f.name]
		replace := !set
		if set {
			curRank := e.rankOf(curSource)
			switch {
			case newRank < curRank:
				replace = true
			case newRank == curRank && rec.Raw.ObservedAt.After(lead.LastObservedAt):
				replace = true
			}
		}
		if replace {
			f.apply(lead)
			lead.FieldSources[f.name] = rec.Raw.SourceID
		}
	}

	// Registry identifiers are additive regardless of priority.
	if rec.Raw.MCNumber != "" && lead.Registry.MCNumber == "" {
		lead.Registry.MCNumber = rec.Raw.MCNumber
	}
	if rec.Raw.DOTNumber != "" && lead.Registry.DOTNumber == "" {
		lead.Registry.DOTNumber = rec.Raw.DOTNumber
	}

	for _, ind := range rec.Raw.Industries {
		if !containsString(lead.Industries, ind) {
			lead.Industries = append(lead.Industries, ind)
		}
	}

	if rec.Raw.ObservedAt.After(lead.LastObservedAt) {
		lead.LastObservedAt = rec.Raw.ObservedAt
	}
	lead.UpdatedAt = now
	lead.ExpiresAt = nil // activity cancels a pending soft-expiry
}

func (e *Engine) rankOf(sourceID string) int {
	if r, ok := e.rank[sourceID]; ok {
		return r
	}
	return e.unknownRank
}

// field is one mergeable lead attribute.
type field struct {
	name   string
	value  string
	fvalue float64
	apply  func(*model.UnifiedLead)
}

func leadFields(rec normalize.Record) []field {
	raw := rec.Raw
	return []field{
		{name: "company_name", value: raw.CompanyName, apply: func(l *model.UnifiedLead) {
			l.CompanyName = raw.CompanyName
			l.Identity.Name = rec.Identity.Name
		}},
		{name: "phone", value: rec.Identity.Phone, apply: func(l *model.UnifiedLead) {
			l.Phone = rec.Identity.Phone
			l.Identity.Phone = rec.Identity.Phone
		}},
		{name: "email", value: raw.Email, apply: func(l *model.UnifiedLead) { l.Email = raw.Email }},
		{name: "website", value: raw.Website, apply: func(l *model.UnifiedLead) { l.Website = raw.Website }},
		{name: "street", value: rec.Identity.Street, apply: func(l *model.UnifiedLead) {
			l.Street = raw.Street
			l.Identity.Street = rec.Identity.Street
		}},
		{name: "city", value: rec.Identity.City, apply: func(l *model.UnifiedLead) {
			l.City = raw.City
			l.Identity.City = rec.Identity.City
		}},
		{name: "state", value: rec.Identity.State, apply: func(l *model.UnifiedLead) {
			l.State = rec.Identity.State
			l.Identity.State = rec.Identity.State
		}},
		{name: "zip_code", value: rec.Identity.Zip, apply: func(l *model.UnifiedLead) {
			l.ZipCode = rec.Identity.Zip
		}},
		{name: "monthly_volume", fvalue: raw.MonthlyVolume, apply: func(l *model.UnifiedLead) {
			l.MonthlyVolume = raw.MonthlyVolume
		}},
	}
}

// applyFields takes every non-empty field unconditionally; used only for
// newly created leads.
func applyFields(lead *model.UnifiedLead, rec normalize.Record) {
	for _, f := range leadFields(rec) {
		if f.value == "" && f.fvalue == 0 {
			continue
		}
		f.apply(lead)
		lead.FieldSources[f.name] = rec.Raw.SourceID
	}
	// Registry identifiers ride along from any source.
	if rec.Raw.MCNumber != "" {
		lead.Registry.MCNumber = rec.Raw.MCNumber
	}
	if rec.Raw.DOTNumber != "" {
		lead.Registry.DOTNumber = rec.Raw.DOTNumber
	}
	for _, ind := range rec.Raw.Industries {
		if !containsString(lead.Industries, ind) {
			lead.Industries = append(lead.Industries, ind)
		}
	}
}

func observation(rec normalize.Record) model.SourceObservation {
	return model.SourceObservation{
		SourceID:       rec.Raw.SourceID,
		SourceRecordID: rec.Raw.SourceRecordID,
		ObservedAt:     rec.Raw.ObservedAt,
	}
}

func hasObservation(lead *model.UnifiedLead, obs model.SourceObservation) bool {
	for _, o := range lead.Provenance {
		if o.SourceID == obs.SourceID && o.SourceRecordID == obs.SourceRecordID && o.ObservedAt.Equal(obs.ObservedAt) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func cloneLead(l model.UnifiedLead) *model.UnifiedLead {
	cp := l
	cp.Provenance = append([]model.SourceObservation(nil), l.Provenance...)
	cp.Industries = append([]string(nil), l.Industries...)
	cp.FieldSources = make(map[string]string, len(l.FieldSources))
	for k, v := range l.FieldSources {
		cp.FieldSources[k] = v
	}
	return &cp
}
