package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

type ticket struct {
	index int
	job   Job
}

type outcome struct {
	index  int
	result Result
}

// Pool runs jobs on a fixed number of workers and returns their results in
// submission order, independent of completion order.
type Pool struct {
	workers    int
	jobQueue   chan ticket
	results    chan outcome
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once

	submitted int
	collected []Result
	collectWG sync.WaitGroup
}

// NewPool creates a pool bound to ctx; cancelling ctx stops the workers
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan ticket, workers*2),
		results:    make(chan outcome, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the workers and the result collector
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	p.collectWG.Add(1)
	go p.collect()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-p.jobQueue:
			if !ok {
				return
			}
			// Results are always delivered; the collector drains until close
			p.results <- outcome{index: t.index, result: t.job.Execute(p.ctx)}
		}
	}
}

// collect stores results by submission index as they arrive
func (p *Pool) collect() {
	defer p.collectWG.Done()

	var byIndex []Result
	for o := range p.results {
		for len(byIndex) <= o.index {
			byIndex = append(byIndex, nil)
		}
		byIndex[o.index] = o.result
	}
	p.collected = byIndex
}

// Submit queues a job. Submit must be called from a single goroutine.
// It returns false when the pool has been cancelled.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}

	t := ticket{index: p.submitted, job: job}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- t:
		p.submitted++
		return true
	}
}

// Wait blocks until every submitted job finished and returns one slot per
// submitted job, in submission order. Slots of jobs that never ran (pool
// cancelled) are nil.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	p.collectWG.Wait()

	out := make([]Result, p.submitted)
	copy(out, p.collected)
	p.cancelFunc()
	return out
}

// Shutdown cancels outstanding work and waits for the workers to exit
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
	p.collectWG.Wait()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
