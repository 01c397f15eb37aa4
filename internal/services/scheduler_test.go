package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSyncer struct {
	calls int64
	ran   chan struct{}
}

func newFakeSyncer() *fakeSyncer {
	return &fakeSyncer{ran: make(chan struct{}, 16)}
}

func (f *fakeSyncer) SyncAllInstallations(ctx context.Context) *SyncResult {
	atomic.AddInt64(&f.calls, 1)
	f.ran <- struct{}{}
	return NewSyncResult()
}

func (f *fakeSyncer) waitForSweep(t *testing.T) {
	t.Helper()
	select {
	case <-f.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a sweep")
	}
}

func TestSchedulerRunsFirstSweepImmediately(t *testing.T) {
	syncer := newFakeSyncer()
	scheduler := NewSyncScheduler(syncer)

	scheduler.Start(60)
	syncer.waitForSweep(t)
	scheduler.Stop()

	assert.EqualValues(t, 1, atomic.LoadInt64(&syncer.calls))
	assert.False(t, scheduler.Running())

	status := scheduler.Status()
	require.NotNil(t, status.LastRunAt)
	assert.EqualValues(t, 1, status.RunsTotal)
	assert.Equal(t, 0, status.LastErrors)
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	syncer := newFakeSyncer()
	scheduler := NewSyncScheduler(syncer)

	scheduler.Start(60)
	scheduler.Start(60)
	syncer.waitForSweep(t)
	scheduler.Stop()

	assert.EqualValues(t, 1, atomic.LoadInt64(&syncer.calls))
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	syncer := newFakeSyncer()
	scheduler := NewSyncScheduler(syncer)

	scheduler.Stop()

	scheduler.Start(60)
	syncer.waitForSweep(t)
	scheduler.Stop()
	scheduler.Stop()

	assert.False(t, scheduler.Running())
}

func TestSchedulerRestarts(t *testing.T) {
	syncer := newFakeSyncer()
	scheduler := NewSyncScheduler(syncer)

	scheduler.Start(60)
	syncer.waitForSweep(t)
	scheduler.Stop()

	scheduler.Start(60)
	syncer.waitForSweep(t)
	scheduler.Stop()

	assert.EqualValues(t, 2, atomic.LoadInt64(&syncer.calls))
	assert.EqualValues(t, 2, scheduler.Status().RunsTotal)
}

// slowSyncer sleeps past the tick interval and records the highest number of
// sweeps it ever saw in flight at once.
type slowSyncer struct {
	active  int32
	maxSeen int32
	calls   int32
}

func (f *slowSyncer) SyncAllInstallations(ctx context.Context) *SyncResult {
	cur := atomic.AddInt32(&f.active, 1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if cur <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, cur) {
			break
		}
	}
	time.Sleep(40 * time.Millisecond)
	atomic.AddInt32(&f.active, -1)
	atomic.AddInt32(&f.calls, 1)
	return NewSyncResult()
}

func TestSchedulerSweepsNeverOverlap(t *testing.T) {
	syncer := &slowSyncer{}
	scheduler := NewSyncScheduler(syncer)

	// every sweep outlasts the interval several times over, so pending ticks
	// pile up while one is still running
	scheduler.start(5 * time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&syncer.calls) < 4 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	scheduler.Stop()

	require.GreaterOrEqual(t, atomic.LoadInt32(&syncer.calls), int32(4))
	assert.EqualValues(t, 1, atomic.LoadInt32(&syncer.maxSeen))
}

func TestSchedulerSurvivesPanickingSweep(t *testing.T) {
	panicky := &panickingSyncer{ran: make(chan struct{}, 1)}
	scheduler := NewSyncScheduler(panicky)

	scheduler.Start(60)
	select {
	case <-panicky.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the sweep")
	}
	scheduler.Stop()

	assert.False(t, scheduler.Running())
}

type panickingSyncer struct {
	ran chan struct{}
}

func (p *panickingSyncer) SyncAllInstallations(ctx context.Context) *SyncResult {
	defer func() { p.ran <- struct{}{} }()
	panic("installation listing blew up")
}
