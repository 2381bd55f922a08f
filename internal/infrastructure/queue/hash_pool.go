package queue

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/ports"
)

const channelBuffer = 64

// ErrPoolStopped is returned when work is submitted after the pool shut down.
var ErrPoolStopped = errors.New("hash pool stopped")

type job struct {
	fn   func()
	done chan struct{}
}

// HashPool runs password derivations on a fixed set of workers so that the
// memory-hard hashing never runs with more concurrency than configured.
type HashPool struct {
	workers int
	jobs    chan job
	stopped chan struct{}
	log     zerolog.Logger
}

// NewHashPool creates a pool with numWorkers workers.
// If numWorkers <= 0, runtime.NumCPU() is used.
func NewHashPool(numWorkers int, log zerolog.Logger) *HashPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &HashPool{
		workers: numWorkers,
		jobs:    make(chan job, channelBuffer),
		stopped: make(chan struct{}),
		log:     log,
	}
}

// Start launches the workers. They stop when ctx is cancelled.
func (p *HashPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		go p.runWorker(ctx)
	}
	go func() {
		<-ctx.Done()
		close(p.stopped)
	}()
	p.log.Info().Int("workers", p.workers).Msg("hash pool started")
}

// Do runs fn on a worker and waits for it. It returns early with ctx.Err()
// if the caller gives up first; fn may still run in that case.
func (p *HashPool) Do(ctx context.Context, fn func()) error {
	j := job{fn: fn, done: make(chan struct{}, 1)}

	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopped:
		return ErrPoolStopped
	}

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopped:
		return ErrPoolStopped
	}
}

func (p *HashPool) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			j.fn()
			j.done <- struct{}{}
		}
	}
}

// PooledHasher runs another PasswordHasher on a HashPool.
type PooledHasher struct {
	pool  *HashPool
	inner ports.PasswordHasher

	// OnDuration, when set, receives the wall time of every derivation.
	OnDuration func(op string, d time.Duration)
}

func NewPooledHasher(pool *HashPool, inner ports.PasswordHasher) *PooledHasher {
	return &PooledHasher{pool: pool, inner: inner}
}

func (h *PooledHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	var (
		digest  string
		hashErr error
	)
	err := h.pool.Do(ctx, func() {
		start := time.Now()
		digest, hashErr = h.inner.Hash(ctx, plaintext)
		h.observe("hash", time.Since(start))
	})
	if err != nil {
		return "", err
	}
	return digest, hashErr
}

func (h *PooledHasher) Verify(ctx context.Context, digest, candidate string) (bool, error) {
	var (
		ok        bool
		verifyErr error
	)
	err := h.pool.Do(ctx, func() {
		start := time.Now()
		ok, verifyErr = h.inner.Verify(ctx, digest, candidate)
		h.observe("verify", time.Since(start))
	})
	if err != nil {
		return false, err
	}
	return ok, verifyErr
}

func (h *PooledHasher) observe(op string, d time.Duration) {
	if h.OnDuration != nil {
		h.OnDuration(op, d)
	}
}
