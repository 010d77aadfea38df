// Package workerpool runs independent jobs on a bounded set of goroutines.
package workerpool

import (
	"context"
	"runtime"
	"sync"
)

// maxWorkers is the pool size used when none is given.
var maxWorkers = runtime.NumCPU()

// WorkerPool distributes jobs across workers and collects their results.
type WorkerPool[Job any, Result any] struct {
	numWorkers int
	jobs       chan Job
	results    chan Result
	wg         sync.WaitGroup
}

// New creates a worker pool with the specified number of workers.
// If numWorkers is 0 or negative, it defaults to the CPU count.
// If numJobs is less than numWorkers, the pool is sized to match numJobs.
func New[Job any, Result any](numWorkers, numJobs int) *WorkerPool[Job, Result] {
	if numWorkers <= 0 {
		numWorkers = maxWorkers
	}
	if numJobs > 0 {
		numWorkers = min(numWorkers, numJobs)
	}

	return &WorkerPool[Job, Result]{
		numWorkers: numWorkers,
		jobs:       make(chan Job, numJobs),
		results:    make(chan Result, numJobs),
	}
}

// Workers returns the number of goroutines the pool starts.
func (p *WorkerPool[Job, Result]) Workers() int {
	return p.numWorkers
}

// Start begins the worker pool with the provided worker function.
func (p *WorkerPool[Job, Result]) Start(workerFn func(Job) Result) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.results <- workerFn(job)
			}
		}()
	}
}

// Submit adds a job to the worker pool's job queue.
func (p *WorkerPool[Job, Result]) Submit(job Job) {
	p.jobs <- job
}

// Close closes the job channel. The results channel is closed once every
// worker has finished.
func (p *WorkerPool[Job, Result]) Close() {
	close(p.jobs)
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

// Results returns the results channel for collecting worker outputs.
func (p *WorkerPool[Job, Result]) Results() <-chan Result {
	return p.results
}

type indexed[T any] struct {
	i int
	v T
}

// Map applies fn to every job on up to numWorkers goroutines and returns the
// results in job order. Jobs not yet started when ctx is cancelled are
// skipped and their results left as the zero value; the context error is
// returned.
func Map[Job any, Result any](ctx context.Context, numWorkers int, jobs []Job, fn func(context.Context, Job) Result) ([]Result, error) {
	out := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return out, nil
	}

	pool := New[indexed[Job], indexed[Result]](numWorkers, len(jobs))
	pool.Start(func(j indexed[Job]) indexed[Result] {
		if ctx.Err() != nil {
			var zero Result
			return indexed[Result]{i: j.i, v: zero}
		}
		return indexed[Result]{i: j.i, v: fn(ctx, j.v)}
	})
	for i, j := range jobs {
		pool.Submit(indexed[Job]{i: i, v: j})
	}
	pool.Close()

	for r := range pool.Results() {
		out[r.i] = r.v
	}
	return out, ctx.Err()
}
