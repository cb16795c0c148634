// Package services holds the supporting services of the bot: command
// throttling, the command worker pool and health reporting.
package services

import (
	"context"
	"sync"
	"time"

	"github.com/NomadCrew/oweather-bot/config"
	"github.com/NomadCrew/oweather-bot/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Job is a unit of work for the worker pool.
type Job struct {
	// Name is used in logs only.
	Name    string
	Execute func(ctx context.Context) error
}

// CommandWorkerPool runs chat commands received over long-lived
// connections on a bounded set of workers, so a slow provider cannot
// tie up the connection readers.
type CommandWorkerPool struct {
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger
	metrics  *workerPoolMetrics
	config   config.WorkerPoolConfig

	// mu guards running and the send side of jobQueue.
	mu      sync.RWMutex
	running bool
	closed  bool
}

type workerPoolMetrics struct {
	queueDepth    prometheus.Gauge
	activeWorkers prometheus.Gauge
	completedJobs prometheus.Counter
	droppedJobs   prometheus.Counter
	errorCount    prometheus.Counter
	jobDuration   prometheus.Histogram
}

// Registered once per process; tests swap the registry.
var (
	wpMetricsInstance *workerPoolMetrics
	wpMetricsOnce     sync.Once
	wpDefaultRegistry = prometheus.DefaultRegisterer
)

func newWorkerPoolMetrics() *workerPoolMetrics {
	wpMetricsOnce.Do(func() {
		wpMetricsInstance = &workerPoolMetrics{
			queueDepth: promauto.With(wpDefaultRegistry).NewGauge(prometheus.GaugeOpts{
				Name: "command_worker_pool_queue_depth",
				Help: "Current number of commands waiting in queue",
			}),
			activeWorkers: promauto.With(wpDefaultRegistry).NewGauge(prometheus.GaugeOpts{
				Name: "command_worker_pool_active_workers",
				Help: "Current number of workers running a command",
			}),
			completedJobs: promauto.With(wpDefaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "command_worker_pool_completed_jobs_total",
				Help: "Total number of finished commands",
			}),
			droppedJobs: promauto.With(wpDefaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "command_worker_pool_dropped_jobs_total",
				Help: "Total number of commands rejected because the queue was full or closed",
			}),
			errorCount: promauto.With(wpDefaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "command_worker_pool_errors_total",
				Help: "Total number of commands that returned an error",
			}),
			jobDuration: promauto.With(wpDefaultRegistry).NewHistogram(prometheus.HistogramOpts{
				Name:    "command_worker_pool_job_duration_seconds",
				Help:    "Time taken to run a command",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			}),
		}
	})
	return wpMetricsInstance
}

// resetWorkerPoolMetricsForTesting installs a fresh registry and returns it.
func resetWorkerPoolMetricsForTesting() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	wpDefaultRegistry = reg
	wpMetricsInstance = nil
	wpMetricsOnce = sync.Once{}
	return reg
}

// NewCommandWorkerPool creates a pool. Call Start before submitting.
func NewCommandWorkerPool(cfg config.WorkerPoolConfig) *CommandWorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &CommandWorkerPool{
		jobQueue: make(chan Job, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.GetLogger().Named("worker-pool"),
		metrics:  newWorkerPoolMetrics(),
		config:   cfg,
	}
}

// Start launches the workers. Later calls are no-ops.
func (wp *CommandWorkerPool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.running || wp.closed {
		wp.logger.Warn("Worker pool already started")
		return
	}
	wp.running = true

	wp.logger.Infow("Starting worker pool",
		"maxWorkers", wp.config.MaxWorkers,
		"queueSize", wp.config.QueueSize,
		"jobTimeout", wp.jobTimeout())

	for i := 0; i < wp.config.MaxWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *CommandWorkerPool) jobTimeout() time.Duration {
	if wp.config.JobTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(wp.config.JobTimeoutSeconds) * time.Second
}

func (wp *CommandWorkerPool) worker(id int) {
	defer wp.wg.Done()
	wp.logger.Debugw("Worker started", "workerId", id)

	// Drain the queue until Shutdown closes it; a cancelled pool context
	// only shortens the jobs still running.
	for job := range wp.jobQueue {
		wp.executeJob(id, job)
	}
	wp.logger.Debugw("Worker stopped", "workerId", id)
}

func (wp *CommandWorkerPool) executeJob(workerID int, job Job) {
	wp.metrics.activeWorkers.Inc()
	wp.metrics.queueDepth.Dec()
	defer wp.metrics.activeWorkers.Dec()

	start := time.Now()
	jobCtx, cancel := context.WithTimeout(wp.ctx, wp.jobTimeout())
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			wp.logger.Errorw("Job panicked", "job", job.Name, "workerId", workerID, "panic", r)
			wp.metrics.errorCount.Inc()
			wp.metrics.completedJobs.Inc()
		}
	}()

	if err := job.Execute(jobCtx); err != nil {
		wp.logger.Errorw("Job execution failed",
			"job", job.Name,
			"workerId", workerID,
			"error", err,
			"duration", time.Since(start))
		wp.metrics.errorCount.Inc()
	} else {
		wp.logger.Debugw("Job completed",
			"job", job.Name,
			"workerId", workerID,
			"duration", time.Since(start))
	}

	wp.metrics.jobDuration.Observe(time.Since(start).Seconds())
	wp.metrics.completedJobs.Inc()
}

// Submit queues a job without blocking. It returns false when the pool is
// not running or the queue is full.
func (wp *CommandWorkerPool) Submit(job Job) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if !wp.running {
		wp.metrics.droppedJobs.Inc()
		wp.logger.Warnw("Job dropped - pool not running", "job", job.Name)
		return false
	}

	select {
	case wp.jobQueue <- job:
		wp.metrics.queueDepth.Inc()
		wp.logger.Debugw("Job submitted", "job", job.Name)
		return true
	default:
		wp.metrics.droppedJobs.Inc()
		wp.logger.Warnw("Job dropped - queue full",
			"job", job.Name,
			"queueSize", wp.config.QueueSize)
		return false
	}
}

// Shutdown stops accepting jobs and waits for queued and running jobs to
// finish. When ctx expires first, running jobs are cancelled and ctx.Err()
// is returned.
func (wp *CommandWorkerPool) Shutdown(ctx context.Context) error {
	wp.mu.Lock()
	if !wp.running {
		wp.mu.Unlock()
		return nil
	}
	wp.running = false
	wp.closed = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.logger.Info("Initiating worker pool shutdown...")

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.cancel()
		wp.logger.Info("Worker pool shutdown complete - all workers finished")
		return nil
	case <-ctx.Done():
		wp.cancel()
		wp.logger.Warn("Worker pool shutdown timed out - cancelling running jobs")
		return ctx.Err()
	}
}

// QueueDepth returns the number of jobs waiting in the queue.
func (wp *CommandWorkerPool) QueueDepth() int {
	return len(wp.jobQueue)
}

func (wp *CommandWorkerPool) IsRunning() bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	return wp.running
}
