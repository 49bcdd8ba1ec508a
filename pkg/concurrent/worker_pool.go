package concurrent

import (
	"context"
	"sync"
)

type Job[T any] struct {
	ID      int
	JobItem T
}

type Result[G any] struct {
	JobID  int
	Result G
	Err    error
}

type JobFunc[T any, G any] func(ctx context.Context, job T) (G, error)

// WorkerPool fixed number of goroutines draining a buffered job queue.
// Jobs still queued when ctx is cancelled are skipped, no result is emitted for them.
type WorkerPool[T any, G any] struct {
	numWorkers int
	jobQueue   chan Job[T]
	results    chan Result[G]
	wg         sync.WaitGroup
}

func NewWorkerPool[T any, G any](numWorkers, jobQueueSize int) *WorkerPool[T, G] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T, G]{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job[T], jobQueueSize),
		results:    make(chan Result[G], jobQueueSize),
	}
}

func (wp *WorkerPool[T, G]) worker(ctx context.Context, jobFunc JobFunc[T, G]) {
	defer wp.wg.Done()
	for job := range wp.jobQueue {
		if ctx.Err() != nil {
			continue
		}
		res, err := jobFunc(ctx, job.JobItem)
		wp.results <- Result[G]{JobID: job.ID, Result: res, Err: err}
	}
}

func (wp *WorkerPool[T, G]) Start(ctx context.Context, jobFunc JobFunc[T, G]) {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, jobFunc)
	}
}

func (wp *WorkerPool[T, G]) Wait() {
	wp.wg.Wait()
	close(wp.results)
}

func (wp *WorkerPool[T, G]) AddJob(id int, job T) {
	wp.jobQueue <- Job[T]{ID: id, JobItem: job}
}

func (wp *WorkerPool[T, G]) Close() {
	close(wp.jobQueue)
}

func (wp *WorkerPool[T, G]) CollectResults() <-chan Result[G] {
	return wp.results
}

// RunOrdered submit semua job, tunggu selesai, lalu kembalikan hasil urut sesuai index job.
// Slot job yang di-skip karena ctx cancelled tetap zero value dengan done[i] == false.
func RunOrdered[T any, G any](ctx context.Context, numWorkers int, jobs []T, jobFunc JobFunc[T, G]) ([]G, []bool, error) {
	wp := NewWorkerPool[T, G](numWorkers, len(jobs))
	for i, job := range jobs {
		wp.AddJob(i, job)
	}
	wp.Close()

	wp.Start(ctx, jobFunc)
	wp.Wait()

	out := make([]G, len(jobs))
	done := make([]bool, len(jobs))
	var firstErr error
	for res := range wp.CollectResults() {
		if res.Err != nil {
			if firstErr == nil {
				firstErr = res.Err
			}
			continue
		}
		out[res.JobID] = res.Result
		done[res.JobID] = true
	}
	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}
	return out, done, firstErr
}
