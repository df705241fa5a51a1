package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"gridbrief/internal/logger"
)

// ErrRunInProgress is returned by TriggerAsync when a run is already active.
var ErrRunInProgress = errors.New("ingestion run already in progress")

// Scheduler runs the pipeline on a fixed interval. Only one run is ever
// active: a tick that fires while the previous run is still going is
// skipped with a warning.
type Scheduler struct {
	pipeline *Pipeline
	interval time.Duration
	cron     *cron.Cron
	running  atomic.Bool
	wg       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler builds a scheduler around the pipeline.
func NewScheduler(pipeline *Pipeline, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		pipeline: pipeline,
		interval: interval,
		cron:     cron.New(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start schedules periodic runs and kicks off an immediate first run in the
// background.
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("schedule ingestion every %s: %w", s.interval, err)
	}
	s.cron.Start()
	logger.Info("ingestion scheduler started", "interval", s.interval.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.tick()
	}()
	return nil
}

// Stop cancels the active run, stops the cron and waits for the in-flight
// jobs to drain.
func (s *Scheduler) Stop() {
	s.cancel()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.wg.Wait()
	logger.Info("ingestion scheduler stopped")
}

// Running reports whether a run is currently active.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// TriggerAsync starts a run in the background, or reports that one is
// already going. Used by the manual-trigger API.
func (s *Scheduler) TriggerAsync() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.run()
	}()
	return nil
}

func (s *Scheduler) tick() {
	if !s.running.CompareAndSwap(false, true) {
		logger.Warn("skipping scheduled ingestion, previous run still active")
		return
	}
	defer s.running.Store(false)
	s.run()
}

func (s *Scheduler) run() {
	if s.ctx.Err() != nil {
		return
	}
	if _, err := s.pipeline.Run(s.ctx); err != nil {
		logger.Error("scheduled ingestion run failed", err)
	}
}
