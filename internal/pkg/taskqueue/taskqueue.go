package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scanledger/waitlist/internal/pkg/metrics"
	"go.uber.org/zap"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

var (
	ErrQueueFull   = errors.New("task queue is full")
	ErrQueueClosed = errors.New("task queue is closed")
)

// Func is the body of a background task.
type Func func(ctx context.Context) error

// Task is a unit of background work held in memory.
type Task struct {
	ID        string
	Type      string
	Status    TaskStatus
	CreatedAt time.Time
	fn        Func
}

// Queue runs submitted tasks on a fixed pool of workers. Submit never blocks;
// tasks are dropped with ErrQueueFull when the buffer is exhausted. Failures
// are logged and counted, never returned to the submitter.
type Queue struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
	workers int

	mu     sync.RWMutex
	closed bool
	tasks  chan *Task

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func New(logger *zap.Logger, workers, size int, m *metrics.Metrics) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		logger:  logger.Named("taskqueue"),
		metrics: m,
		workers: workers,
		tasks:   make(chan *Task, size),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (q *Queue) Start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.worker()
		}
		q.logger.Info("task queue started", zap.Int("workers", q.workers), zap.Int("size", cap(q.tasks)))
	})
}

// Submit enqueues fn and returns the new task ID.
func (q *Queue) Submit(taskType string, fn Func) (string, error) {
	if fn == nil {
		return "", fmt.Errorf("taskqueue: nil task func")
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return "", ErrQueueClosed
	}

	task := &Task{
		ID:        uuid.New().String(),
		Type:      taskType,
		Status:    TaskPending,
		CreatedAt: time.Now(),
		fn:        fn,
	}
	select {
	case q.tasks <- task:
		q.metrics.SetQueueDepth(len(q.tasks))
		return task.ID, nil
	default:
		q.metrics.ObserveTask(taskType, "rejected")
		return "", ErrQueueFull
	}
}

// Len returns the number of tasks waiting for a worker.
func (q *Queue) Len() int { return len(q.tasks) }

// Shutdown stops accepting tasks and waits for queued ones to finish.
// When ctx expires first, running tasks see their context cancelled and
// Shutdown returns without waiting for tasks that ignore it.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	// Workers that were never started still have to drain the buffer.
	q.Start()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for task := range q.tasks {
		q.metrics.SetQueueDepth(len(q.tasks))
		q.run(task)
	}
}

func (q *Queue) run(task *Task) {
	task.Status = TaskRunning
	started := time.Now()
	log := q.logger.With(zap.String("task_id", task.ID), zap.String("task_type", task.Type))

	err := q.invoke(task)
	if err != nil {
		task.Status = TaskFailed
		log.Warn("task failed", zap.Error(err), zap.Duration("elapsed", time.Since(started)))
	} else {
		task.Status = TaskCompleted
		log.Debug("task completed", zap.Duration("elapsed", time.Since(started)))
	}
	q.metrics.ObserveTask(task.Type, string(task.Status))
}

func (q *Queue) invoke(task *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			q.logger.Error("task panicked",
				zap.String("task_id", task.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	return task.fn(q.ctx)
}
