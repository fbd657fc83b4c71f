package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LastCoderBoy/finice-auth/pkg/logger"
)

// Task is a unit of fire-and-forget background work
type Task struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Config contains worker pool configuration
type Config struct {
	// Workers is the number of concurrent workers
	Workers int
	// QueueSize is the depth of the task queue
	QueueSize int
	// TaskTimeout bounds the execution time of a single task
	TaskTimeout time.Duration
}

// DefaultConfig returns default worker pool configuration
func DefaultConfig() *Config {
	return &Config{
		Workers:     5,
		QueueSize:   25,
		TaskTimeout: 30 * time.Second,
	}
}

// Pool runs background tasks decoupled from the request path. Submission
// is synchronous and fast; when the queue is full the task runs inline on
// the caller so work is never dropped. Task failures are logged, never
// surfaced, since no caller is waiting.
type Pool struct {
	tasks   chan Task
	config  *Config
	log     *logger.Logger
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
}

// NewPool creates a new Pool
func NewPool(config *Config) *Pool {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers <= 0 {
		config.Workers = 5
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 25
	}
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = 30 * time.Second
	}

	return &Pool{
		tasks:  make(chan Task, config.QueueSize),
		config: config,
		log:    logger.Get(),
	}
}

// Start launches the workers
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return fmt.Errorf("worker pool already started")
	}
	p.started = true

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	p.log.Info("Worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Int("queue_size", p.config.QueueSize),
	)
	return nil
}

// Submit enqueues a task. If the queue is full the task runs inline so
// the work still happens, at the cost of blocking the caller.
// The channel send happens under the mutex so that Stop cannot close
// the channel between the stopped-check and the send.
func (p *Pool) Submit(name string, fn func(ctx context.Context) error) {
	task := Task{Name: name, Fn: fn}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.log.Warn("Worker pool stopped, running task inline", zap.String("task", name))
		p.run(task)
		return
	}

	select {
	case p.tasks <- task:
		p.mu.Unlock()
	default:
		p.mu.Unlock()
		p.log.Warn("Worker queue full, running task inline", zap.String("task", name))
		p.run(task)
	}
}

// Stop drains the queue and waits for in-flight tasks to finish. The
// channel is closed under the same mutex Submit holds while sending.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Info("Worker pool stopped")
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Background task panicked",
				zap.String("task", task.Name),
				zap.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), p.config.TaskTimeout)
	defer cancel()

	if err := task.Fn(ctx); err != nil {
		p.log.Error("Background task failed",
			zap.String("task", task.Name),
			zap.Error(err),
		)
	}
}
