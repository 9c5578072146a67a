// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/mystenlabs/objectpool/client"
	"github.com/mystenlabs/objectpool/pool"
	"github.com/mystenlabs/objectpool/signer"
	"github.com/mystenlabs/objectpool/txbuilder"
	"github.com/mystenlabs/objectpool/types"
)

var (
	workersGauge       = metrics.NewRegisteredGauge("executor/workers", nil)
	executeTimer       = metrics.NewRegisteredTimer("executor/execute", nil)
	retriesCounter     = metrics.NewRegisteredCounter("executor/retries", nil)
	acquireMissCounter = metrics.NewRegisteredCounter("executor/acquire/miss", nil)
)

const (
	statusAvailable int32 = iota
	statusBusy
)

// worker is one pool tagged with an availability status. The status is
// claimed with a compare-and-swap so two Execute calls can never share a
// pool.
type worker struct {
	pool   *pool.Pool
	status atomic.Int32
}

func (w *worker) tryAcquire() bool {
	return w.status.CompareAndSwap(statusAvailable, statusBusy)
}

func (w *worker) release() {
	w.status.Store(statusAvailable)
}

// StrategyFactory produces a fresh split strategy per split. Strategies are
// single-use, so the service cannot hold one instance.
type StrategyFactory func() pool.SplitStrategy

type executeOpts struct {
	retries  int
	strategy StrategyFactory
}

// ExecuteOption configures one Execute call.
type ExecuteOption func(*executeOpts)

// WithRetries overrides the retry budget for one call. Zero disables
// retries.
func WithRetries(n int) ExecuteOption {
	return func(o *executeOpts) { o.retries = n }
}

// WithStrategy sets the split strategy used when the call has to grow the
// worker set.
func WithStrategy(f StrategyFactory) ExecuteOption {
	return func(o *executeOpts) { o.strategy = f }
}

// Service dispatches transactions from one signer onto a set of
// ownership-disjoint worker pools so they can run in parallel without
// equivocation. Workers are split off a main reservoir pool on demand and
// merged back when they fail.
type Service struct {
	cfg     Config
	backend client.Backend

	// mu guards the worker list; the main pool serializes itself.
	mu      sync.RWMutex
	main    *pool.Pool
	workers []*worker

	// wake is signalled whenever a worker may have become available.
	wake     chan struct{}
	inflight *semaphore.Weighted
	closed   atomic.Bool
}

// New constructs a service with a freshly fetched main pool and no workers.
func New(ctx context.Context, s *signer.Signer, backend client.Backend, cfg Config) (*Service, error) {
	cfg = (&cfg).sanitize()
	main, err := pool.Full(ctx, s, backend)
	if err != nil {
		return nil, fmt.Errorf("initializing main pool: %w", err)
	}
	log.Info("Executor service initialized", "address", s.Address(), "mainPool", main.ID())
	return &Service{
		cfg:      cfg,
		backend:  backend,
		main:     main,
		wake:     make(chan struct{}, 1),
		inflight: semaphore.NewWeighted(cfg.MaxInFlight),
	}, nil
}

// Main returns the reservoir pool.
func (s *Service) Main() *pool.Pool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.main
}

// NumWorkers returns the current worker count.
func (s *Service) NumWorkers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.workers)
}

// Execute runs one transaction on an available worker pool, growing the
// worker set when none frees up within the acquire timeout. The retry
// budget is shared between "no worker available" and execution failures;
// once it is spent the last underlying error is wrapped in
// RetriesExhaustedError. Validation failures (ownership, missing gas coin)
// surface immediately without consuming retries.
func (s *Service) Execute(ctx context.Context, tx *txbuilder.Transaction, opts ...ExecuteOption) (*types.TransactionResult, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	conf := executeOpts{
		retries:  s.cfg.DefaultRetries,
		strategy: func() pool.SplitStrategy { return pool.NewDefaultStrategy() },
	}
	for _, opt := range opts {
		opt(&conf)
	}

	if err := s.inflight.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.inflight.Release(1)

	reqID := uuid.New().String()[:8]
	start := time.Now()
	defer executeTimer.UpdateSince(start)

	var lastErr error
	for attempts := conf.retries + 1; attempts > 0; attempts-- {
		w, err := s.acquireWorker(ctx, s.cfg.WorkerAcquireTimeout)
		if err != nil {
			return nil, err
		}
		if w == nil {
			acquireMissCounter.Inc(1)
			log.Debug("no worker available, splitting a new one", "req", reqID)
			if err := s.AddWorker(ctx, conf.strategy()); err != nil {
				// A split the strategy cannot satisfy will not succeed on
				// a retry either.
				return nil, err
			}
			continue
		}

		res, err := w.pool.SignAndExecute(ctx, tx)
		switch {
		case err == nil && res.Effects != nil && res.Effects.Status.IsSuccess():
			s.releaseWorker(w)
			log.Debug("transaction executed", "req", reqID, "worker", w.pool.ID(), "digest", res.Digest)
			return res, nil

		case err == nil:
			// Submission went through but the chain reports failure. The
			// worker's registry may no longer match reality; recycle it.
			if res.Effects != nil {
				lastErr = fmt.Errorf("%w: %s", ErrEffectsFailed, res.Effects.Status.Error)
			} else {
				lastErr = ErrEffectsFailed
			}
			s.recycleWorker(reqID, w)

		case errors.Is(err, pool.ErrOwnershipViolation), errors.Is(err, pool.ErrNoGasCoin):
			// The transaction itself is rejected; the worker is fine.
			s.releaseWorker(w)
			return nil, err

		case ctx.Err() != nil:
			// Cancelled mid-execution: effects are unknown, recycle the
			// worker and hand the cancellation to the caller.
			s.recycleWorker(reqID, w)
			return nil, err

		default:
			lastErr = err
			s.recycleWorker(reqID, w)
		}
		retriesCounter.Inc(1)
	}
	log.Warn("retries exhausted", "req", reqID, "err", lastErr)
	return nil, &RetriesExhaustedError{Cause: lastErr}
}

// recycleWorker removes a failed worker and folds its objects back into the
// main pool.
func (s *Service) recycleWorker(reqID string, w *worker) {
	log.Debug("recycling worker", "req", reqID, "worker", w.pool.ID())
	if err := s.removeWorker(w); err != nil {
		log.Error("failed to recycle worker", "req", reqID, "worker", w.pool.ID(), "err", err)
	}
}

// acquireWorker claims an available worker, waiting up to timeout for one
// to free up. It returns nil when the timeout elapses, immediately when no
// workers exist at all (none can free up), and an error only when ctx is
// done.
func (s *Service) acquireWorker(ctx context.Context, timeout time.Duration) (*worker, error) {
	if w := s.scanWorkers(); w != nil {
		return w, nil
	}
	if timeout <= 0 || s.NumWorkers() == 0 {
		return nil, nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-s.wake:
			if w := s.scanWorkers(); w != nil {
				return w, nil
			}
		}
	}
}

// scanWorkers test-and-sets the first available worker.
func (s *Service) scanWorkers() *worker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.workers {
		if w.tryAcquire() {
			return w
		}
	}
	return nil
}

// signal wakes one worker waiter, if any.
func (s *Service) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Service) releaseWorker(w *worker) {
	w.release()
	s.signal()
}

// AddWorker splits a new worker pool off the main pool and appends it as
// available.
func (s *Service) AddWorker(ctx context.Context, strategy pool.SplitStrategy) error {
	if strategy == nil {
		strategy = pool.NewDefaultStrategy()
	}
	s.mu.RLock()
	main := s.main
	s.mu.RUnlock()

	child, err := main.Split(ctx, strategy)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.workers = append(s.workers, &worker{pool: child})
	workersGauge.Update(int64(len(s.workers)))
	s.mu.Unlock()

	s.signal()
	log.Debug("added worker", "worker", child.ID(), "workers", s.NumWorkers())
	return nil
}

// removeWorker drops w from the worker list and merges its pool back into
// the main pool.
func (s *Service) removeWorker(w *worker) error {
	s.mu.Lock()
	idx := -1
	for i, cand := range s.workers {
		if cand == w {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrWorkerNotFound
	}
	s.workers = append(s.workers[:idx], s.workers[idx+1:]...)
	workersGauge.Update(int64(len(s.workers)))
	main := s.main
	s.mu.Unlock()

	return main.Merge(w.pool)
}

// Close marks the service closed and merges every idle worker back into
// the main pool. Busy workers finish their in-flight transaction; their
// objects stay on their pools.
func (s *Service) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	for {
		w := s.scanWorkers()
		if w == nil {
			break
		}
		if err := s.removeWorker(w); err != nil {
			log.Error("failed to remove worker during shutdown", "worker", w.pool.ID(), "err", err)
		}
	}
	log.Info("Executor service stopped", "workers", s.NumWorkers())
}
