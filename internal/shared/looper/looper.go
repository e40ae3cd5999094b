// Package looper runs posted tasks one at a time on a dedicated goroutine.
//
// Everything posted to one Looper executes strictly in submission order, so
// state touched only from looper tasks needs no further locking. Tasks still
// queued when Stop is called are dropped.
package looper

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eapache/queue"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/future"
)

var (
	ErrStopped = errors.New("looper is stopped")
)

// Task is a unit of work
type Task func()

type namedTask struct {
	name   string
	run    Task
	queued time.Time
}

// Observer receives queue statistics
type Observer interface {
	ObserveLooperDepth(looper string, depth int)
	ObserveLooperTask(looper string, wait, run time.Duration)
}

// Looper owns one worker goroutine draining a FIFO queue
type Looper struct {
	name     string
	logger   *zap.Logger
	observer Observer

	mu       sync.Mutex
	cond     *sync.Cond
	tasks    *queue.Queue
	started  bool
	stopped  bool
	executed uint64
	done     chan struct{}
}

// Option configures a Looper
type Option func(*Looper)

// WithLogger sets the logger used for task panics
func WithLogger(logger *zap.Logger) Option {
	return func(l *Looper) { l.logger = logger }
}

// WithObserver attaches a statistics observer
func WithObserver(o Observer) Option {
	return func(l *Looper) { l.observer = o }
}

// New creates a looper. Tasks may be posted before Start and run once it is called.
func New(name string, opts ...Option) *Looper {
	l := &Looper{
		name:   name,
		logger: zap.NewNop(),
		tasks:  queue.New(),
		done:   make(chan struct{}),
	}
	l.cond = sync.NewCond(&l.mu)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the looper name
func (l *Looper) Name() string {
	return l.name
}

// Start launches the worker. Calling it again while running is a no-op;
// a stopped looper cannot be restarted.
func (l *Looper) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return ErrStopped
	}
	if l.started {
		return nil
	}
	l.started = true
	go l.loop()
	return nil
}

// PostTask enqueues task without blocking. It returns false once the looper is stopped.
func (l *Looper) PostTask(task Task, name string) bool {
	if task == nil {
		return false
	}

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.tasks.Add(namedTask{name: name, run: task, queued: time.Now()})
	depth := l.tasks.Length()
	l.cond.Signal()
	l.mu.Unlock()

	if l.observer != nil {
		l.observer.ObserveLooperDepth(l.name, depth)
	}
	return true
}

// ScheduleTask posts fn and returns a bridge that receives its result.
// If the task never runs, waiting on the bridge yields the zero value on timeout.
func ScheduleTask[T any](l *Looper, fn func() T, name string) *future.Bridge[T] {
	var zero T
	result := future.New(zero)
	l.PostTask(func() {
		result.SetValue(fn())
	}, name)
	return result
}

// WakeUp wakes the worker without enqueuing anything
func (l *Looper) WakeUp() {
	l.mu.Lock()
	l.cond.Broadcast()
	l.mu.Unlock()
}

// Stop ends the worker and discards queued tasks. It waits for a running task
// to return, so it must not be called from inside a task.
func (l *Looper) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	dropped := l.tasks.Length()
	l.tasks = queue.New()
	started := l.started
	l.cond.Broadcast()
	l.mu.Unlock()

	if dropped > 0 {
		l.logger.Debug("looper stopped with pending tasks",
			zap.String("looper", l.name),
			zap.Int("dropped", dropped),
		)
	}
	if started {
		<-l.done
	}
}

// Running reports whether the worker has started and not been stopped
func (l *Looper) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started && !l.stopped
}

// Pending returns the number of queued tasks
func (l *Looper) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tasks.Length()
}

// Executed returns the number of tasks run so far
func (l *Looper) Executed() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.executed
}

func (l *Looper) loop() {
	defer close(l.done)

	for {
		l.mu.Lock()
		for l.tasks.Length() == 0 && !l.stopped {
			l.cond.Wait()
		}
		if l.stopped {
			l.mu.Unlock()
			return
		}
		task := l.tasks.Remove().(namedTask)
		depth := l.tasks.Length()
		l.mu.Unlock()

		start := time.Now()
		l.run(task)

		l.mu.Lock()
		l.executed++
		l.mu.Unlock()

		if l.observer != nil {
			l.observer.ObserveLooperDepth(l.name, depth)
			l.observer.ObserveLooperTask(l.name, start.Sub(task.queued), time.Since(start))
		}
	}
}

func (l *Looper) run(task namedTask) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("looper task panicked",
				zap.String("looper", l.name),
				zap.String("task", task.name),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	task.run()
}
