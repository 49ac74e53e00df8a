// Package workqueue runs CPU-heavy jobs one slot at a time in submission
// order, with an optional pause after every job.
package workqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultConcurrency = 1
	DefaultDelay       = time.Second
)

// ErrClosed is returned by Submit and Do once Close has been called.
var ErrClosed = errors.New("workqueue: queue is closed")

type Task func() ([]byte, error)

type Result struct {
	Value []byte
	Err   error
}

type Options struct {
	// Concurrency is the number of tasks allowed to run at once. Values
	// below 1 mean DefaultConcurrency.
	Concurrency int
	// Delay is slept by a slot after each task before it takes the next one.
	// Zero means DefaultDelay; negative means no pause.
	Delay time.Duration
}

type job struct {
	task Task
	done chan Result
}

type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []job
	closed  bool
	running int

	delay  time.Duration
	wg     sync.WaitGroup
	logger *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := opts.Concurrency
	if n < 1 {
		n = DefaultConcurrency
	}
	delay := opts.Delay
	switch {
	case delay == 0:
		delay = DefaultDelay
	case delay < 0:
		delay = 0
	}

	q := &Queue{delay: delay, logger: logger}
	q.cond = sync.NewCond(&q.mu)
	q.wg.Add(n)
	for i := 0; i < n; i++ {
		go q.worker(i)
	}
	return q
}

// Submit enqueues task. The returned channel receives exactly one Result.
func (q *Queue) Submit(task Task) (<-chan Result, error) {
	if task == nil {
		return nil, errors.New("workqueue: nil task")
	}
	done := make(chan Result, 1)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrClosed
	}
	q.pending = append(q.pending, job{task: task, done: done})
	q.cond.Signal()
	return done, nil
}

// Do submits task and waits for its result. Cancelling ctx stops the wait
// only; the task still runs when its turn comes.
func (q *Queue) Do(ctx context.Context, task Task) ([]byte, error) {
	done, err := q.Submit(task)
	if err != nil {
		return nil, err
	}
	select {
	case r := <-done:
		return r.Value, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len reports how many tasks are waiting to start.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Running reports how many tasks are executing right now.
func (q *Queue) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Close stops accepting tasks and waits for queued and running ones to
// finish, or for ctx to expire.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.cond.Broadcast()
	}
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) worker(slot int) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		j := q.pending[0]
		q.pending[0] = job{}
		q.pending = q.pending[1:]
		q.running++
		q.mu.Unlock()

		start := time.Now()
		value, err := run(j.task)
		j.done <- Result{Value: value, Err: err}

		q.mu.Lock()
		q.running--
		q.mu.Unlock()

		if err != nil {
			q.logger.Warn("task failed",
				zap.Int("slot", slot),
				zap.Duration("took", time.Since(start)),
				zap.Error(err),
			)
		} else {
			q.logger.Debug("task completed",
				zap.Int("slot", slot),
				zap.Duration("took", time.Since(start)),
			)
		}

		if q.delay > 0 {
			time.Sleep(q.delay)
		}
	}
}

func run(task Task) (value []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("workqueue: task panicked: %v", r)
		}
	}()
	return task()
}
