package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
)

// TaskHandler processes one claimed message. A nil return acknowledges the
// message; an error triggers the pool's retry policy.
type TaskHandler func(ctx context.Context, msg *interfaces.ReceivedMessage) error

// ExhaustedHandler runs when a message's retries are spent, before the
// message is acknowledged away. Used to mark the underlying job failed.
type ExhaustedHandler func(ctx context.Context, msg *interfaces.ReceivedMessage, cause error)

// retryable is satisfied by errors that may succeed on redelivery
type retryable interface {
	Retryable() bool
}

// WorkerPoolConfig tunes one named queue's worker pool
type WorkerPoolConfig struct {
	Queue        string
	Concurrency  int
	PollInterval time.Duration
	// BackoffBase is the first retry delay; each further retry doubles it
	BackoffBase time.Duration
	MaxReceive  int
}

// WorkerPool polls one queue with a fixed number of workers. Failed messages
// with retryable errors are released with exponential backoff; exhausted or
// non-retryable ones are handed to the exhausted handler and acknowledged.
type WorkerPool struct {
	queueMgr    interfaces.QueueManager
	config      WorkerPoolConfig
	handler     TaskHandler
	onExhausted ExhaustedHandler
	logger      arbor.ILogger
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewWorkerPool creates a worker pool for one queue
func NewWorkerPool(queueMgr interfaces.QueueManager, config WorkerPoolConfig, handler TaskHandler, onExhausted ExhaustedHandler, logger arbor.ILogger) *WorkerPool {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = 30 * time.Second
	}
	if config.MaxReceive <= 0 {
		config.MaxReceive = 3
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		queueMgr:    queueMgr,
		config:      config,
		handler:     handler,
		onExhausted: onExhausted,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Start launches the worker goroutines
func (wp *WorkerPool) Start() {
	wp.logger.Info().
		Str("queue", wp.config.Queue).
		Int("concurrency", wp.config.Concurrency).
		Msg("Starting worker pool")

	for i := 0; i < wp.config.Concurrency; i++ {
		go wp.worker(i)
	}
}

// Stop signals all workers to exit after their current message
func (wp *WorkerPool) Stop() {
	wp.logger.Info().Str("queue", wp.config.Queue).Msg("Stopping worker pool")
	wp.cancel()
}

func (wp *WorkerPool) worker(workerID int) {
	// Stagger worker starts to spread polls across the interval
	staggerDelay := (wp.config.PollInterval / time.Duration(wp.config.Concurrency)) * time.Duration(workerID)
	if staggerDelay > 0 {
		select {
		case <-time.After(staggerDelay):
		case <-wp.ctx.Done():
			return
		}
	}

	wp.logger.Debug().
		Str("queue", wp.config.Queue).
		Int("worker_id", workerID).
		Msg("Worker started")

	ticker := time.NewTicker(wp.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug().
				Str("queue", wp.config.Queue).
				Int("worker_id", workerID).
				Msg("Worker stopped")
			return

		case <-ticker.C:
			// Drain all visible messages before going back to sleep
			for {
				if err := wp.processMessage(workerID); err != nil {
					if err != models.ErrNoMessage {
						wp.logger.Warn().
							Err(err).
							Str("queue", wp.config.Queue).
							Int("worker_id", workerID).
							Msg("Error processing message")
					}
					break
				}
				if wp.ctx.Err() != nil {
					return
				}
			}
		}
	}
}

// processMessage receives and processes a single message
func (wp *WorkerPool) processMessage(workerID int) error {
	msg, err := wp.queueMgr.Receive(wp.ctx, wp.config.Queue)
	if err != nil {
		return err
	}

	start := time.Now()
	handlerErr := wp.runHandler(msg)
	duration := time.Since(start)

	if handlerErr == nil {
		if err := wp.queueMgr.Delete(wp.ctx, wp.config.Queue, msg.ID); err != nil {
			wp.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Failed to acknowledge message")
			return err
		}
		wp.logger.Debug().
			Str("queue", wp.config.Queue).
			Str("message_id", msg.ID).
			Dur("duration", duration).
			Int("worker_id", workerID).
			Msg("Message processed")
		return nil
	}

	wp.logger.Error().
		Err(handlerErr).
		Str("queue", wp.config.Queue).
		Str("message_id", msg.ID).
		Int("receive_count", msg.ReceiveCount).
		Dur("duration", duration).
		Int("worker_id", workerID).
		Msg("Task handler failed")

	if wp.shouldRetry(handlerErr, msg.ReceiveCount) {
		delay := wp.backoff(msg.ReceiveCount)
		if err := wp.queueMgr.Release(wp.ctx, wp.config.Queue, msg.ID, delay); err != nil {
			wp.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Failed to release message for retry")
			return err
		}
		wp.logger.Info().
			Str("queue", wp.config.Queue).
			Str("message_id", msg.ID).
			Dur("retry_delay", delay).
			Msg("Message released for retry")
		return nil
	}

	// Retries spent or error not retryable
	if wp.onExhausted != nil {
		wp.onExhausted(wp.ctx, msg, handlerErr)
	}
	if err := wp.queueMgr.Delete(wp.ctx, wp.config.Queue, msg.ID); err != nil {
		wp.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Failed to delete exhausted message")
		return err
	}
	return nil
}

// runHandler executes the handler, converting panics into errors so one bad
// message cannot kill a worker.
func (wp *WorkerPool) runHandler(msg *interfaces.ReceivedMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task handler panicked: %v", r)
		}
	}()
	return wp.handler(wp.ctx, msg)
}

func (wp *WorkerPool) shouldRetry(err error, receiveCount int) bool {
	if receiveCount >= wp.config.MaxReceive {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	// Unknown failures get retried until receives are spent
	return true
}

// backoff doubles the base delay per prior attempt: base, 2*base, 4*base...
func (wp *WorkerPool) backoff(receiveCount int) time.Duration {
	delay := wp.config.BackoffBase
	for i := 1; i < receiveCount; i++ {
		delay *= 2
	}
	return delay
}
