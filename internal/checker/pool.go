// Package checker runs profile checks across a pool of workers so a long
// username list finishes within one scheduled run.
package checker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"igwatcher/pkg/logger"
	"igwatcher/pkg/profile"
	"igwatcher/pkg/ratelimit"
)

// CheckJob is a single profile check task.
type CheckJob struct {
	Username string
}

// CheckResult is the outcome of a profile check.
type CheckResult struct {
	Job         CheckJob
	Observation *profile.Observation
	Err         error
	Duration    time.Duration
}

// Checker performs one full profile check: fetch, compare against the last
// seen picture URL, and download when it changed.
type Checker interface {
	CheckProfile(ctx context.Context, username string) (*profile.Observation, error)
}

// WorkerPool fans profile checks out over concurrent workers. Checks share
// one rate limiter so concurrency never multiplies the request rate.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan CheckJob
	resultQueue chan CheckResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	checker     Checker
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

// NewWorkerPool creates a pool of numWorkers check workers.
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	checker Checker,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	poolCtx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan CheckJob, numWorkers*2),
		resultQueue: make(chan CheckResult, numWorkers),
		ctx:         poolCtx,
		cancel:      cancel,
		checker:     checker,
		rateLimiter: rateLimiter,
		logger:      log,
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("starting check workers", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop signals that no more jobs will arrive, waits for in-flight checks
// to finish, then closes the result channel.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Submit queues a profile check.
func (wp *WorkerPool) Submit(job CheckJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the channel check outcomes arrive on.
func (wp *WorkerPool) Results() <-chan CheckResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			return
		default:
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job CheckJob, workerID int) CheckResult {
	start := time.Now()
	result := CheckResult{Job: job}

	wp.logger.DebugWithFields("worker checking profile", map[string]interface{}{
		"worker_id": workerID,
		"username":  job.Username,
	})

	if wp.rateLimiter != nil {
		if err := wp.rateLimiter.Wait(wp.ctx); err != nil {
			result.Err = fmt.Errorf("rate limit wait cancelled: %w", err)
			result.Duration = time.Since(start)
			return result
		}
	}

	observation, err := wp.checker.CheckProfile(wp.ctx, job.Username)
	result.Duration = time.Since(start)

	if err != nil {
		result.Err = err
		wp.logger.ErrorWithFields("profile check failed", map[string]interface{}{
			"worker_id": workerID,
			"username":  job.Username,
			"error":     err.Error(),
			"duration":  result.Duration,
		})
		return result
	}

	result.Observation = observation

	wp.logger.DebugWithFields("profile check completed", map[string]interface{}{
		"worker_id":       workerID,
		"username":        job.Username,
		"picture_updated": observation.PictureUpdated,
		"duration":        result.Duration,
	})

	return result
}

// QueueSize returns the number of queued jobs.
func (wp *WorkerPool) QueueSize() int {
	return len(wp.jobQueue)
}

// Workers returns the worker count.
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}
