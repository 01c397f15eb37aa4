package services

import (
	"context"
	"sync"
	"time"

	"github.com/GrowlyX/refactorproject-web/pkg/utils"
)

// Syncer is the sweep entry point the scheduler drives.
type Syncer interface {
	SyncAllInstallations(ctx context.Context) *SyncResult
}

// SchedulerStatus is a snapshot of the scheduler's state for the health and
// admin endpoints.
type SchedulerStatus struct {
	Running      bool       `json:"running"`
	Interval     string     `json:"interval,omitempty"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`
	LastDuration string     `json:"last_duration,omitempty"`
	LastErrors   int        `json:"last_errors"`
	RunsTotal    int64      `json:"runs_total"`
}

// SyncScheduler periodically sweeps all installations. Sweeps run on a
// single goroutine, so they never overlap; a sweep that outlasts the
// interval simply delays the next one.
type SyncScheduler struct {
	syncer Syncer
	logger utils.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	statsMu      sync.Mutex
	lastRunAt    *time.Time
	lastDuration time.Duration
	lastErrors   int
	runsTotal    int64
	interval     time.Duration
}

func NewSyncScheduler(syncer Syncer) *SyncScheduler {
	return &SyncScheduler{
		syncer: syncer,
		logger: utils.GetLogger(),
	}
}

// Start launches the periodic sweep, running the first one immediately.
// Calling Start on a running scheduler is a no-op.
func (s *SyncScheduler) Start(intervalMinutes int) {
	if intervalMinutes <= 0 {
		intervalMinutes = 60
	}
	s.start(time.Duration(intervalMinutes) * time.Minute)
}

func (s *SyncScheduler) start(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.logger.Warn("sync scheduler already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	s.statsMu.Lock()
	s.interval = interval
	s.statsMu.Unlock()

	s.logger.Info("sync scheduler started", utils.LogFields{
		"interval": interval.String(),
	})

	go s.run(ctx, interval)
}

func (s *SyncScheduler) run(ctx context.Context, interval time.Duration) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *SyncScheduler) sweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sync sweep panicked", nil, utils.LogFields{
				"panic": r,
			})
		}
	}()

	start := time.Now()
	result := s.syncer.SyncAllInstallations(ctx)
	duration := time.Since(start)

	s.statsMu.Lock()
	s.lastRunAt = &start
	s.lastDuration = duration
	s.lastErrors = len(result.Errors)
	s.runsTotal++
	s.statsMu.Unlock()

	fields := utils.LogFields{
		"organizations": result.OrganizationsSynced,
		"repositories":  result.RepositoriesSynced,
		"members":       result.MembersSynced,
		"duration":      duration.String(),
	}
	if len(result.Errors) > 0 {
		fields["errors"] = result.Errors
		s.logger.Warn("scheduled sync completed with errors", fields)
		return
	}
	s.logger.Info("scheduled sync completed", fields)
}

// Stop halts the scheduler and waits for an in-flight sweep to finish.
// Stopping a stopped scheduler is a no-op.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	<-done

	s.logger.Info("sync scheduler stopped")
}

// Running reports whether the scheduler has been started and not yet stopped.
func (s *SyncScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Status snapshots scheduler state and last-sweep statistics.
func (s *SyncScheduler) Status() SchedulerStatus {
	running := s.Running()

	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	status := SchedulerStatus{
		Running:    running,
		LastRunAt:  s.lastRunAt,
		LastErrors: s.lastErrors,
		RunsTotal:  s.runsTotal,
	}
	if s.interval > 0 {
		status.Interval = s.interval.String()
	}
	if s.lastDuration > 0 {
		status.LastDuration = s.lastDuration.String()
	}
	return status
}
