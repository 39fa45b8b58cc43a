// Package market provides lane market-condition snapshots to the pricing and
// scoring engines. Snapshots are refreshed by a background task on its own
// cadence; readers always get the most recent immutable snapshot without
// blocking on a refresh.
package market

import (
	"context"
	"sync"
	"time"

	"github.com/fleetflow/leadflow/internal/errs"
	"github.com/fleetflow/leadflow/internal/model"
)

// Feed is the market-data collaborator: it produces a current snapshot for a
// lane. Implementations are external and treated as black boxes.
type Feed interface {
	CurrentSnapshot(ctx context.Context, lane model.Lane) (model.MarketSnapshot, error)
}

// SnapshotProvider is what snapshot readers (pricing, scoring) consume: the
// last known snapshot for a lane, possibly stale.
type SnapshotProvider interface {
	Snapshot(lane model.Lane) (model.MarketSnapshot, bool)
}

// StaticFeed serves fixed snapshots from memory. Used by the CLI demo feed
// and as the test double for the refresher.
type StaticFeed struct {
	mu        sync.RWMutex
	snapshots map[string]model.MarketSnapshot
}

// NewStaticFeed creates an empty static feed.
func NewStaticFeed() *StaticFeed {
	return &StaticFeed{snapshots: make(map[string]model.MarketSnapshot)}
}

// Set stores a snapshot for its lane.
func (f *StaticFeed) Set(snap model.MarketSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[snap.Lane.String()] = snap
}

// CurrentSnapshot implements Feed.
func (f *StaticFeed) CurrentSnapshot(_ context.Context, lane model.Lane) (model.MarketSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	snap, ok := f.snapshots[lane.String()]
	if !ok {
		return model.MarketSnapshot{}, errs.NewNotFound("market snapshot", lane.String())
	}
	return snap, nil
}

// Snapshot implements SnapshotProvider, letting the static feed stand in for
// the refresher when no background refresh is running.
func (f *StaticFeed) Snapshot(lane model.Lane) (model.MarketSnapshot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	snap, ok := f.snapshots[lane.String()]
	return snap, ok
}

// Lanes returns the lanes the feed has snapshots for, in map order.
func (f *StaticFeed) Lanes() []model.Lane {
	f.mu.RLock()
	defer f.mu.RUnlock()
	lanes := make([]model.Lane, 0, len(f.snapshots))
	for _, snap := range f.snapshots {
		lanes = append(lanes, snap.Lane)
	}
	return lanes
}

// DefaultSnapshot returns a neutral snapshot for a lane captured at now.
// Used when no feed data exists yet so quoting degrades instead of failing.
func DefaultSnapshot(lane model.Lane, now time.Time) model.MarketSnapshot {
	return model.MarketSnapshot{
		Lane:               lane,
		FuelPricePerGallon: 3.80,
		DemandIndex:        0.5,
		CapacityIndex:      0.5,
		CapturedAt:         now,
	}
}
