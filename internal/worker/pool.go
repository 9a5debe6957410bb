// Package worker runs archive submissions on a fixed pool of goroutines so
// that a burst of questions cannot open an unbounded number of model calls.
// Callers block until their own submission finishes; the pool only bounds
// how many run at once.
package worker

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/inu9431/qna-archiver/internal/archive"
)

const DefaultWorkerCount = 4

// ErrPoolClosed is returned for submissions after Stop
var ErrPoolClosed = errors.New("worker pool is closed")

// Processor handles a single submission end to end
type Processor interface {
	Process(ctx context.Context, sub archive.Submission) (*archive.Outcome, error)
}

type job struct {
	id         string
	ctx        context.Context
	submission archive.Submission
	resultCh   chan result
}

type result struct {
	outcome *archive.Outcome
	err     error
}

// Pool distributes submissions across a fixed number of workers
type Pool struct {
	processor Processor
	jobs      chan *job

	// Concurrency
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates and starts a pool with the given number of workers
func NewPool(processor Processor, count int) *Pool {
	if count <= 0 {
		count = DefaultWorkerCount
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		processor: processor,
		jobs:      make(chan *job, count*2), // Buffered channel
		ctx:       ctx,
		cancel:    cancel,
	}

	for i := 0; i < count; i++ {
		p.wg.Add(1)
		go p.run(i)
	}

	return p
}

// Submit queues a submission and blocks until a worker has processed it or
// the caller's context ends
func (p *Pool) Submit(ctx context.Context, sub archive.Submission) (*archive.Outcome, error) {
	j := &job{
		id:         uuid.NewString(),
		ctx:        ctx,
		submission: sub,
		resultCh:   make(chan result, 1),
	}

	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.ctx.Done():
		return nil, ErrPoolClosed
	}

	select {
	case res := <-j.resultCh:
		return res.outcome, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.ctx.Done():
		return nil, ErrPoolClosed
	}
}

// Stop drains the pool and waits for in-flight submissions to finish
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
}

// run is a single worker loop
func (p *Pool) run(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return

		case j := <-p.jobs:
			outcome, err := p.processor.Process(j.ctx, j.submission)
			if err != nil {
				log.Printf("[WORKER]: worker %d failed job %s: %v", id, j.id, err)
			}

			// The result channel is buffered, so a caller that already
			// gave up does not block the worker
			j.resultCh <- result{outcome: outcome, err: err}
		}
	}
}
