package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetflow/leadflow/internal/config"
	"github.com/fleetflow/leadflow/internal/errs"
	"github.com/fleetflow/leadflow/internal/model"
)

// failingFeed errors on every lookup.
type failingFeed struct{}

func (failingFeed) CurrentSnapshot(context.Context, model.Lane) (model.MarketSnapshot, error) {
	return model.MarketSnapshot{}, errs.NewExternal("market-feed", context.DeadlineExceeded)
}

func TestRefresher_TrackPrimesSnapshot(t *testing.T) {
	lane := model.NewLane("dallas", "atlanta")
	feed := NewStaticFeed()
	feed.Set(model.MarketSnapshot{Lane: lane, DemandIndex: 0.7, CapturedAt: time.Now()})

	r := NewRefresher(feed, config.MarketConfig{RefreshIntervalMins: 15})
	r.Track(context.Background(), lane)

	snap, ok := r.Snapshot(lane)
	require.True(t, ok)
	assert.Equal(t, 0.7, snap.DemandIndex)
}

func TestRefresher_MissBeforeTrack(t *testing.T) {
	r := NewRefresher(NewStaticFeed(), config.MarketConfig{})
	_, ok := r.Snapshot(model.NewLane("dallas", "atlanta"))
	assert.False(t, ok)
}

func TestRefresher_FailedRefreshKeepsPrevious(t *testing.T) {
	lane := model.NewLane("dallas", "atlanta")
	feed := NewStaticFeed()
	feed.Set(model.MarketSnapshot{Lane: lane, DemandIndex: 0.7, CapturedAt: time.Now()})

	r := NewRefresher(feed, config.MarketConfig{})
	r.Track(context.Background(), lane)

	// Swap in a broken feed and refresh again: the cached snapshot survives.
	r.feed = failingFeed{}
	r.refreshAll(context.Background())

	snap, ok := r.Snapshot(lane)
	require.True(t, ok)
	assert.Equal(t, 0.7, snap.DemandIndex)
}

func TestRefresher_StopTerminatesRun(t *testing.T) {
	r := NewRefresher(NewStaticFeed(), config.MarketConfig{RefreshIntervalMins: 1})

	go r.Run(context.Background())
	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresher did not stop")
	}
}

func TestStaticFeed_MissIsNotFound(t *testing.T) {
	feed := NewStaticFeed()
	_, err := feed.CurrentSnapshot(context.Background(), model.NewLane("a", "b"))
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestDefaultSnapshot_Neutral(t *testing.T) {
	now := time.Now()
	snap := DefaultSnapshot(model.NewLane("a", "b"), now)
	assert.Equal(t, 0.5, snap.DemandIndex)
	assert.Equal(t, 0.5, snap.CapacityIndex)
	assert.Equal(t, now, snap.CapturedAt)
}
