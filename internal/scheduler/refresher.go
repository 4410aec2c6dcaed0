// Package scheduler periodically refreshes farm analyses so the snapshot
// cache stays warm for when the classification service is unavailable.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/satfarm/farmcarbon/internal/analysis"
	"github.com/satfarm/farmcarbon/internal/logging"
)

// DefaultSpec refreshes every farm four times a day.
const DefaultSpec = "@every 6h"

// Analyzer runs one farm analysis.
type Analyzer interface {
	Analyze(ctx context.Context, farmerID string, refresh bool) (*analysis.Report, error)
}

// Refresher runs a live analysis for each configured farm on a cron schedule.
type Refresher struct {
	cron     *cron.Cron
	analyzer Analyzer
	farmers  []string
	logger   zerolog.Logger

	// ctx is the parent of scheduled runs; cancel aborts them on Stop.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
}

// New validates spec and schedules a refresh of farmers. An empty spec
// selects DefaultSpec. Overlapping runs are skipped.
func New(spec string, farmers []string, analyzer Analyzer, logger zerolog.Logger) (*Refresher, error) {
	if strings.TrimSpace(spec) == "" {
		spec = DefaultSpec
	}
	if analyzer == nil {
		return nil, errors.New("scheduler: analyzer is required")
	}

	logger = logger.With().Str(logging.FieldComponent, "scheduler").Logger()
	cl := cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Refresher{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		analyzer: analyzer,
		farmers:  append([]string(nil), farmers...),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	if _, err := r.cron.AddFunc(spec, func() { r.RunOnce(r.ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return r, nil
}

// Start begins running the schedule in the background.
func (r *Refresher) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.cron.Start()
	r.running = true

	r.logger.Info().Int("farmers", len(r.farmers)).Msg("snapshot refresher started")
}

// Stop halts the schedule and waits for a running refresh to finish. If ctx
// ends first, the running refresh is cancelled and ctx.Err() is returned.
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	wasRunning := r.running
	r.running = false
	r.mu.Unlock()

	if !wasRunning {
		r.cancel()
		return nil
	}

	done := r.cron.Stop()
	select {
	case <-done.Done():
		r.cancel()
		r.logger.Info().Msg("snapshot refresher stopped")
		return nil
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	}
}

// RunOnce analyses every configured farm with a live fetch and returns the
// number that succeeded. Failures are logged. It stops early when ctx ends.
func (r *Refresher) RunOnce(ctx context.Context) int {
	start := time.Now()
	ok := 0
	for _, id := range r.farmers {
		if ctx.Err() != nil {
			break
		}
		if _, err := r.analyzer.Analyze(ctx, id, true); err != nil {
			r.logger.Warn().Str(logging.FieldFarmerID, id).Err(err).Msg("snapshot refresh failed")
			continue
		}
		ok++
	}

	r.logger.Info().
		Int("succeeded", ok).
		Int("farmers", len(r.farmers)).
		Int64(logging.FieldDurationMs, time.Since(start).Milliseconds()).
		Msg("snapshot refresh completed")
	return ok
}

// Next returns the next scheduled run, or the zero time when stopped.
func (r *Refresher) Next() time.Time {
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
