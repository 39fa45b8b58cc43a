package enrich

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/fleetflow/leadflow/internal/config"
	"github.com/fleetflow/leadflow/internal/errs"
	"github.com/fleetflow/leadflow/internal/fusion"
	"github.com/fleetflow/leadflow/internal/model"
	"github.com/fleetflow/leadflow/internal/resilience"
)

// Stats summarizes one enrichment pass.
type Stats struct {
	Attempted int `json:"attempted"`
	Verified  int `json:"verified"`
	NotFound  int `json:"not_found"`
	Deferred  int `json:"deferred"` // lookup failed, retry scheduled
	Exhausted int `json:"exhausted"`
	Skipped   int `json:"skipped"` // already checked or backoff not elapsed
}

// Enricher runs bounded-parallel registry lookups over a lead set.
type Enricher struct {
	client  RegistryClient
	cfg     config.EnrichConfig
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// New creates an Enricher over the given registry client.
func New(client RegistryClient, cfg config.EnrichConfig) *Enricher {
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 5
	}
	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("registry", "lookup")
	return &Enricher{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		retry:   retryCfg,
	}
}

// EnrichAll runs registry enrichment over every eligible lead in the set,
// mutating leads in place. Individual failures never abort the pass.
func (e *Enricher) EnrichAll(ctx context.Context, leads map[string]*model.UnifiedLead, now time.Time) Stats {
	keys := make([]string, 0, len(leads))
	for k := range leads {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var stats Stats
	statsCh := make(chan outcome, len(keys)+1)

	g, gctx := errgroup.WithContext(ctx)
	concurrency := e.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	g.SetLimit(concurrency)

	for _, k := range keys {
		lead := leads[k]
		if !e.eligible(lead, now) {
			statsCh <- outcomeSkipped
			continue
		}
		g.Go(func() error {
			statsCh <- e.enrichOne(gctx, lead, now)
			return nil
		})
	}

	_ = g.Wait() // workers never return errors; failures degrade the lead
	close(statsCh)

	for o := range statsCh {
		switch o {
		case outcomeVerified:
			stats.Verified++
			stats.Attempted++
		case outcomeNotFound:
			stats.NotFound++
			stats.Attempted++
		case outcomeDeferred:
			stats.Deferred++
			stats.Attempted++
		case outcomeExhausted:
			stats.Exhausted++
			stats.Attempted++
		case outcomeSkipped:
			stats.Skipped++
		}
	}

	zap.L().Info("enrich: pass complete",
		zap.Int("attempted", stats.Attempted),
		zap.Int("verified", stats.Verified),
		zap.Int("not_found", stats.NotFound),
		zap.Int("deferred", stats.Deferred),
		zap.Int("exhausted", stats.Exhausted),
		zap.Int("skipped", stats.Skipped),
	)

	return stats
}

type outcome int

const (
	outcomeVerified outcome = iota
	outcomeNotFound
	outcomeDeferred
	outcomeExhausted
	outcomeSkipped
)

// eligible reports whether a lead needs a registry check this cycle:
// never checked, or a deferred retry whose backoff has elapsed.
func (e *Enricher) eligible(lead *model.UnifiedLead, now time.Time) bool {
	if lead.Registry.Checked {
		return false
	}
	if lead.Registry.NextRetryAt != nil && now.Before(*lead.Registry.NextRetryAt) {
		return false
	}
	return true
}

func (e *Enricher) enrichOne(ctx context.Context, lead *model.UnifiedLead, now time.Time) outcome {
	if err := e.limiter.Wait(ctx); err != nil {
		return e.deferRetry(lead, now, err)
	}

	profile, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (model.RegistryProfile, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.LookupTimeout())
		defer cancel()
		return e.lookup(callCtx, lead)
	})

	switch {
	case err == nil:
		lead.Registry.Verified = profile.Verified
		lead.Registry.Checked = true
		lead.Registry.SafetyRating = profile.SafetyRating
		if profile.MCNumber != "" {
			lead.Registry.MCNumber = profile.MCNumber
		}
		if profile.DOTNumber != "" {
			lead.Registry.DOTNumber = profile.DOTNumber
		}
		lead.Registry.NextRetryAt = nil
		// Registry legal name outranks every lead source.
		if profile.LegalName != "" {
			lead.CompanyName = profile.LegalName
			if lead.FieldSources == nil {
				lead.FieldSources = make(map[string]string)
			}
			lead.FieldSources["company_name"] = fusion.SourceRegistry
		}
		zap.L().Debug("enrich: lead verified",
			zap.String("key", lead.Key),
			zap.String("safety_rating", string(profile.SafetyRating)),
		)
		return outcomeVerified

	case errs.IsNotFound(err):
		// A definitive miss: unverified, no retry.
		lead.Registry.Verified = false
		lead.Registry.Checked = true
		lead.Registry.SafetyRating = model.SafetyUnknown
		lead.Registry.NextRetryAt = nil
		return outcomeNotFound

	default:
		return e.deferRetry(lead, now, err)
	}
}

// deferRetry records a failed lookup: the lead proceeds unverified and a retry is
// scheduled with exponential cycle backoff, bounded by MaxRetries. Exceeding
// the bound permanently marks the lead checked-but-unverified.
func (e *Enricher) deferRetry(lead *model.UnifiedLead, now time.Time, err error) outcome {
	lead.Registry.Verified = false
	lead.Registry.RetryCount++

	if lead.Registry.RetryCount > e.cfg.MaxRetries {
		lead.Registry.Checked = true
		lead.Registry.NextRetryAt = nil
		zap.L().Warn("enrich: retries exhausted, lead stays unverified",
			zap.String("key", lead.Key),
			zap.Int("retry_count", lead.Registry.RetryCount),
			zap.Error(err),
		)
		return outcomeExhausted
	}

	backoff := resilience.CycleBackoff(time.Duration(e.cfg.RetryBaseSecs)*time.Second, lead.Registry.RetryCount-1)
	next := now.Add(backoff)
	lead.Registry.NextRetryAt = &next

	zap.L().Warn("enrich: lookup failed, retry scheduled",
		zap.String("key", lead.Key),
		zap.Int("retry_count", lead.Registry.RetryCount),
		zap.Time("next_retry_at", next),
		zap.Error(err),
	)
	return outcomeDeferred
}

// lookup prefers identifier lookup when the lead carries an MC or DOT number,
// falling back to normalized name and address.
func (e *Enricher) lookup(ctx context.Context, lead *model.UnifiedLead) (model.RegistryProfile, error) {
	if lead.Registry.MCNumber != "" || lead.Registry.DOTNumber != "" {
		return e.client.LookupByIdentifier(ctx, lead.Registry.MCNumber, lead.Registry.DOTNumber)
	}
	return e.client.LookupByNameAddress(ctx, lead.Identity.Name, lead.Identity.City, lead.Identity.State)
}
