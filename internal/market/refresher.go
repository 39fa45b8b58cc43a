package market

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/fleetflow/leadflow/internal/config"
	"github.com/fleetflow/leadflow/internal/model"
)

// Refresher keeps per-lane snapshots warm in a local cache, refreshing each
// tracked lane on a fixed cadence. Entries never expire out of the cache:
// a stale snapshot is still served (pricing caps its confidence instead of
// blocking or refusing).
type Refresher struct {
	feed     Feed
	cfg      config.MarketConfig
	cache    *gocache.Cache
	mu       sync.Mutex
	tracked  map[string]model.Lane
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewRefresher creates a refresher over the given feed.
func NewRefresher(feed Feed, cfg config.MarketConfig) *Refresher {
	return &Refresher{
		feed:    feed,
		cfg:     cfg,
		cache:   gocache.New(gocache.NoExpiration, 0),
		tracked: make(map[string]model.Lane),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Track registers a lane for background refresh and primes it immediately.
func (r *Refresher) Track(ctx context.Context, lane model.Lane) {
	r.mu.Lock()
	r.tracked[lane.String()] = lane
	r.mu.Unlock()
	r.refreshOne(ctx, lane)
}

// Snapshot returns the last known snapshot for a lane. The boolean is false
// when the lane has never been fetched successfully.
func (r *Refresher) Snapshot(lane model.Lane) (model.MarketSnapshot, bool) {
	v, ok := r.cache.Get(lane.String())
	if !ok {
		return model.MarketSnapshot{}, false
	}
	return v.(model.MarketSnapshot), true
}

// Run refreshes all tracked lanes on the configured cadence until Stop is
// called or ctx is cancelled. Run blocks; start it in its own goroutine.
func (r *Refresher) Run(ctx context.Context) {
	defer close(r.done)

	interval := r.cfg.RefreshInterval()
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			r.refreshAll(ctx)
		}
	}
}

// Stop shuts the refresh loop down and waits for it to exit.
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

func (r *Refresher) refreshAll(ctx context.Context) {
	r.mu.Lock()
	lanes := make([]model.Lane, 0, len(r.tracked))
	for _, lane := range r.tracked {
		lanes = append(lanes, lane)
	}
	r.mu.Unlock()

	for _, lane := range lanes {
		r.refreshOne(ctx, lane)
	}
}

func (r *Refresher) refreshOne(ctx context.Context, lane model.Lane) {
	snap, err := r.feed.CurrentSnapshot(ctx, lane)
	if err != nil {
		// Keep serving the previous snapshot; staleness is handled by readers.
		zap.L().Warn("market: refresh failed",
			zap.String("lane", lane.String()),
			zap.Error(err),
		)
		return
	}
	r.cache.Set(lane.String(), snap, gocache.NoExpiration)
	zap.L().Debug("market: snapshot refreshed",
		zap.String("lane", lane.String()),
		zap.Float64("demand_index", snap.DemandIndex),
		zap.Float64("capacity_index", snap.CapacityIndex),
		zap.Time("captured_at", snap.CapturedAt),
	)
}
