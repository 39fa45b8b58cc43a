package pipeline

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fleetflow/leadflow/internal/config"
	"github.com/fleetflow/leadflow/internal/enrich"
	"github.com/fleetflow/leadflow/internal/fusion"
	"github.com/fleetflow/leadflow/internal/model"
	"github.com/fleetflow/leadflow/internal/normalize"
	"github.com/fleetflow/leadflow/internal/scoring"
	"github.com/fleetflow/leadflow/internal/store"
)

// Stats summarizes one pipeline run.
type Stats struct {
	Fetched      int           `json:"fetched"`
	Dropped      int           `json:"dropped"`
	Created      int           `json:"created"`
	Merged       int           `json:"merged"`
	Enriched     int           `json:"enriched"`
	EnrichFailed int           `json:"enrich_failed"`
	Expired      int           `json:"expired"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Result is the output of GenerateUnifiedLeads: the qualifying leads plus run
// statistics.
type Result struct {
	Leads []model.UnifiedLead `json:"leads"`
	Stats Stats               `json:"stats"`
}

// Pipeline runs the full lead flow: fetch from every source, normalize, fuse,
// enrich against the carrier registry, score, and persist.
type Pipeline struct {
	sources  []LeadSource
	fuser    *fusion.Engine
	enricher *enrich.Enricher
	scorer   *scoring.Engine
	store    store.Store
	cfg      config.PipelineConfig
	now      func() time.Time
}

// New assembles a pipeline. The enricher may be nil, in which case the
// enrichment stage is skipped and leads stay unverified.
func New(sources []LeadSource, cfg config.Config, st store.Store, enricher *enrich.Enricher) *Pipeline {
	return &Pipeline{
		sources:  sources,
		fuser:    fusion.NewEngine(cfg.Pipeline),
		enricher: enricher,
		scorer:   scoring.NewEngine(cfg.Scoring),
		store:    st,
		cfg:      cfg.Pipeline,
		now:      time.Now,
	}
}

// WithNow overrides the clock; used in tests.
func (p *Pipeline) WithNow(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// GenerateUnifiedLeads runs the pipeline end to end and returns the leads
// matching the filter, highest score first.
func (p *Pipeline) GenerateUnifiedLeads(ctx context.Context, filter Filter) (*Result, error) {
	start := p.now()
	stats := Stats{}

	raw, err := p.fetchAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	stats.Fetched = len(raw)

	records := p.normalizeAll(raw, &stats)

	existing, err := p.store.ListLeads(ctx, store.LeadFilter{IncludeExpired: true})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load existing leads")
	}

	now := p.now()
	leads, fuseStats := p.fuser.Fuse(records, existing, now)
	stats.Created = fuseStats.Created
	stats.Merged = fuseStats.Merged

	if p.enricher != nil {
		enrichStats := p.enricher.EnrichAll(ctx, leads, now)
		stats.Enriched = enrichStats.Verified
		stats.EnrichFailed = enrichStats.Deferred + enrichStats.Exhausted
	}

	for _, lead := range leads {
		p.scorer.Apply(lead, now)
	}

	if err := p.persist(ctx, leads); err != nil {
		return nil, err
	}

	if p.cfg.LeadTTLDays > 0 {
		ttl := time.Duration(p.cfg.LeadTTLDays) * 24 * time.Hour
		expired, err := p.store.ExpireInactive(ctx, now, ttl)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: expire inactive leads")
		}
		stats.Expired = expired
	}

	out, err := p.store.ListLeads(ctx, store.LeadFilter{
		Tier:     filter.Tier,
		MinScore: filter.MinScore,
		Limit:    filter.Limit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list leads")
	}
	out = filterLeads(out, filter)

	stats.Elapsed = p.now().Sub(start)
	zap.L().Info("pipeline run complete",
		zap.Int("fetched", stats.Fetched),
		zap.Int("dropped", stats.Dropped),
		zap.Int("created", stats.Created),
		zap.Int("merged", stats.Merged),
		zap.Int("enriched", stats.Enriched),
		zap.Int("expired", stats.Expired),
		zap.Duration("elapsed", stats.Elapsed))

	return &Result{Leads: out, Stats: stats}, nil
}

// fetchAll fans the filter out to every source concurrently. A failed source
// is logged and skipped; the batch continues with whatever the rest returned.
func (p *Pipeline) fetchAll(ctx context.Context, filter Filter) ([]model.RawLeadRecord, error) {
	g, gctx := errgroup.WithContext(ctx)
	results := make([][]model.RawLeadRecord, len(p.sources))

	for i, src := range p.sources {
		g.Go(func() error {
			recs, err := src.FetchLeads(gctx, filter)
			if err != nil {
				zap.L().Warn("source fetch failed",
					zap.String("source", src.Name()),
					zap.Error(err))
				return nil
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.RawLeadRecord
	for _, recs := range results {
		all = append(all, recs...)
	}
	return all, nil
}

const normalizeWorkers = 4

// normalizeAll cleans every raw record on a small worker pool, dropping the
// ones with no usable identity. Drops are counted, not fatal. Output order is
// whatever the workers produce; fusion sorts by identity key before merging.
func (p *Pipeline) normalizeAll(raw []model.RawLeadRecord, stats *Stats) []normalize.Record {
	queue := p.cfg.QueueSize
	if queue <= 0 {
		queue = 256
	}
	in := make(chan model.RawLeadRecord, queue)
	out := make(chan normalize.Record, queue)

	var dropped atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < normalizeWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range in {
				rec, err := normalize.Normalize(r)
				if err != nil {
					dropped.Add(1)
					zap.L().Debug("dropped record",
						zap.String("source", r.SourceID),
						zap.String("record", r.SourceRecordID),
						zap.Error(err))
					continue
				}
				out <- rec
			}
		}()
	}

	go func() {
		for _, r := range raw {
			in <- r
		}
		close(in)
		wg.Wait()
		close(out)
	}()

	records := make([]normalize.Record, 0, len(raw))
	for rec := range out {
		records = append(records, rec)
	}
	stats.Dropped = int(dropped.Load())
	return records
}

func (p *Pipeline) persist(ctx context.Context, leads map[string]*model.UnifiedLead) error {
	keys := make([]string, 0, len(leads))
	for k := range leads {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := p.store.UpsertLead(ctx, leads[k]); err != nil {
			return eris.Wrapf(err, "pipeline: persist lead %s", k)
		}
	}
	return nil
}

// filterLeads applies the filter terms the store does not index. States are
// canonicalized before comparison so "TX" and "Texas" both match.
func filterLeads(leads []model.UnifiedLead, filter Filter) []model.UnifiedLead {
	if len(filter.States) == 0 && len(filter.Industries) == 0 {
		return leads
	}
	states := make([]string, len(filter.States))
	for i, s := range filter.States {
		states[i] = normalize.State(s)
	}
	stateFilter := Filter{States: states}

	out := leads[:0]
	for _, lead := range leads {
		if !stateFilter.MatchesState(lead.State) {
			continue
		}
		if len(filter.Industries) > 0 && !matchesIndustry(lead, filter.Industries) {
			continue
		}
		out = append(out, lead)
	}
	return out
}

func matchesIndustry(lead model.UnifiedLead, industries []string) bool {
	for _, want := range industries {
		for _, have := range lead.Industries {
			if have == want {
				return true
			}
		}
	}
	return false
}
