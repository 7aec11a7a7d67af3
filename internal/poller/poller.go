// Package poller owns the read-side lifecycle of one uploaded video: it
// refreshes the job snapshot at a fixed cadence until a terminal status is
// observed or the caller cancels.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aura-video/client/internal/api"
	"github.com/aura-video/client/internal/models"
)

// DefaultInterval is the cadence between poll ticks.
const DefaultInterval = 5 * time.Second

// NotFoundPolicy decides what a session does when the backend reports the
// job as missing (HTTP 404 or a null body).
type NotFoundPolicy int

const (
	// StopWhenMissing ends the session: a deleted or unknown id will not
	// self-resolve.
	StopWhenMissing NotFoundPolicy = iota
	// KeepWaiting keeps polling, for jobs that may not be visible yet.
	KeepWaiting
)

// ErrJobNotFound marks a session that stopped because the job was missing.
var ErrJobNotFound = errors.New("job not found")

// Fetcher reads one job snapshot. *api.Client satisfies it.
type Fetcher interface {
	GetVideo(ctx context.Context, videoID string) (*models.VideoJob, error)
}

// Snapshot is the displayed state of a watched job. Job is nil until the
// first successful fetch; Missing is set when the backend reported the job
// absent; LastError holds the most recent recoverable fetch failure.
type Snapshot struct {
	Job       *models.VideoJob
	Missing   bool
	LastError error
}

// Options configures a poll session.
type Options struct {
	Interval time.Duration  // tick cadence; DefaultInterval when zero
	NotFound NotFoundPolicy // missing-job policy
	OnUpdate func(Snapshot) // invoked after every applied tick
}

// Session polls one video job. All fetches run on a single goroutine, so at
// most one is ever in flight and the next tick is armed only after the
// previous fetch resolves.
type Session struct {
	videoID  string
	fetcher  Fetcher
	interval time.Duration
	policy   NotFoundPolicy
	onUpdate func(Snapshot)
	logger   *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	snapshot Snapshot
}

// Start begins polling videoID immediately and then at the configured
// interval. The session ends when a terminal status is observed, the missing
// policy fires, ctx is cancelled, or Stop is called.
func Start(ctx context.Context, fetcher Fetcher, videoID string, opts Options, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		videoID:  videoID,
		fetcher:  fetcher,
		interval: opts.Interval,
		policy:   opts.NotFound,
		onUpdate: opts.OnUpdate,
		logger:   logger.With(zap.String("video_id", videoID)),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// Stop cancels the session. Any armed timer is cleared and a fetch already
// in flight is discarded when it resolves. Safe to call more than once.
func (s *Session) Stop() { s.cancel() }

// Done is closed when the session has fully stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Snapshot returns the last displayed state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.cancel()

	timer := time.NewTimer(0) // first tick fires immediately
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("poll session cancelled")
			return
		case <-timer.C:
		}

		job, err := s.fetcher.GetVideo(ctx, s.videoID)
		if ctx.Err() != nil {
			// Cancelled mid-flight; the response is stale, drop it.
			return
		}
		if terminal := s.apply(job, err); terminal {
			return
		}
		timer.Reset(s.interval)
	}
}

// apply folds one fetch result into the snapshot and reports whether the
// session should stop.
func (s *Session) apply(job *models.VideoJob, err error) bool {
	s.mu.Lock()
	prev := s.snapshot.Job

	switch {
	case errors.Is(err, api.ErrVideoNotFound):
		s.snapshot.Missing = true
		s.snapshot.LastError = ErrJobNotFound
	case err != nil:
		// Transient transport or server failure; keep the last good job
		// and keep polling.
		s.snapshot.LastError = err
	case job == nil:
		// Valid null body: the backend does not know the job yet.
		s.snapshot.Missing = true
		s.snapshot.LastError = nil
	default:
		s.snapshot.Job = job
		s.snapshot.Missing = false
		s.snapshot.LastError = nil
	}
	snap := s.snapshot
	s.mu.Unlock()

	if s.onUpdate != nil {
		s.onUpdate(snap)
	}

	switch {
	case err != nil && !errors.Is(err, api.ErrVideoNotFound):
		s.logger.Warn("poll fetch failed", zap.Error(err))
		return false
	case snap.Missing:
		if s.policy == StopWhenMissing {
			s.logger.Info("job missing, stopping")
			return true
		}
		s.logger.Debug("job missing, waiting")
		return false
	}

	if prev != nil && prev.Status.Terminal() && !job.Status.Terminal() {
		// The server owns the state machine; mirror the regression but
		// make it visible.
		s.logger.Warn("status moved backwards",
			zap.String("from", string(prev.Status)),
			zap.String("to", string(job.Status)),
		)
	}
	if job.Status.Terminal() {
		s.logger.Info("job reached terminal status",
			zap.String("status", string(job.Status)),
			zap.Int("progress", job.Progress),
		)
		return true
	}
	return false
}
