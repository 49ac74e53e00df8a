package workqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFIFOOrder(t *testing.T) {
	q := New(Options{Concurrency: 1, Delay: -1}, nil)
	defer q.Close(context.Background())

	var (
		mu    sync.Mutex
		order []int
	)
	gate := make(chan struct{})
	started := make(chan struct{})
	first, err := q.Submit(func() ([]byte, error) {
		close(started)
		<-gate
		return nil, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	<-started

	var results []<-chan Result
	for i := 0; i < 5; i++ {
		i := i
		ch, err := q.Submit(func() ([]byte, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return []byte{byte(i)}, nil
		})
		if err != nil {
			t.Fatal(err)
		}
		results = append(results, ch)
	}
	if got := q.Len(); got != 5 {
		t.Errorf("Len() = %d while first task is blocked, want 5", got)
	}
	if got := q.Running(); got != 1 {
		t.Errorf("Running() = %d while first task is blocked, want 1", got)
	}
	close(gate)
	<-first

	for i, ch := range results {
		r := <-ch
		if r.Err != nil || len(r.Value) != 1 || r.Value[0] != byte(i) {
			t.Errorf("result %d = %+v", i, r)
		}
	}
	if diff := cmp.Diff([]int{0, 1, 2, 3, 4}, order); diff != "" {
		t.Errorf("start order mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrencyLimit(t *testing.T) {
	const limit = 2
	q := New(Options{Concurrency: limit, Delay: -1}, nil)
	defer q.Close(context.Background())

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Do(context.Background(), func() ([]byte, error) {
				n := atomic.AddInt32(&active, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil, nil
			})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if peak > limit {
		t.Errorf("peak concurrency = %d, want <= %d", peak, limit)
	}
}

func TestFailuresStayWithSubmitter(t *testing.T) {
	q := New(Options{Delay: -1}, nil)
	defer q.Close(context.Background())

	boom := errors.New("boom")
	ctx := context.Background()

	if _, err := q.Do(ctx, func() ([]byte, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Errorf("failing task: got %v, want boom", err)
	}
	if _, err := q.Do(ctx, func() ([]byte, error) { panic("kaboom") }); err == nil {
		t.Error("panicking task returned no error")
	}
	got, err := q.Do(ctx, func() ([]byte, error) { return []byte("ok"), nil })
	if err != nil || string(got) != "ok" {
		t.Errorf("task after failures = %q, %v", got, err)
	}
}

func TestDelayBetweenTasks(t *testing.T) {
	const delay = 50 * time.Millisecond
	q := New(Options{Concurrency: 1, Delay: delay}, nil)
	defer q.Close(context.Background())

	var starts []time.Time
	var mu sync.Mutex
	record := func() ([]byte, error) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		return nil, nil
	}
	a, _ := q.Submit(record)
	b, _ := q.Submit(record)
	<-a
	<-b

	if gap := starts[1].Sub(starts[0]); gap < delay {
		t.Errorf("gap between tasks = %v, want >= %v", gap, delay)
	}
}

func TestDoContextBoundsWaitOnly(t *testing.T) {
	q := New(Options{Delay: -1}, nil)
	defer q.Close(context.Background())

	release := make(chan struct{})
	var ran atomic.Bool
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Do(ctx, func() ([]byte, error) {
		<-release
		ran.Store(true)
		return nil, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Do = %v, want deadline exceeded", err)
	}
	close(release)

	if err := q.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !ran.Load() {
		t.Error("task was abandoned after the caller stopped waiting")
	}
}

func TestCloseDrainsAndRejects(t *testing.T) {
	q := New(Options{Delay: -1}, nil)

	var count int32
	for i := 0; i < 3; i++ {
		if _, err := q.Submit(func() ([]byte, error) {
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&count, 1)
			return nil, nil
		}); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("completed %d tasks before Close returned, want 3", count)
	}
	if _, err := q.Submit(func() ([]byte, error) { return nil, nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit after Close = %v, want ErrClosed", err)
	}
	if _, err := q.Do(context.Background(), func() ([]byte, error) { return nil, nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("Do after Close = %v, want ErrClosed", err)
	}
	if err := q.Close(context.Background()); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestCloseHonoursContext(t *testing.T) {
	q := New(Options{Delay: -1}, nil)
	release := make(chan struct{})
	defer close(release)
	if _, err := q.Submit(func() ([]byte, error) {
		<-release
		return nil, nil
	}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Close = %v, want deadline exceeded", err)
	}
}

func TestZeroOptionsUseDefaults(t *testing.T) {
	q := New(Options{}, nil)
	defer q.Close(context.Background())
	if q.delay != DefaultDelay {
		t.Errorf("delay = %v, want %v", q.delay, DefaultDelay)
	}

	var starts []time.Time
	var mu sync.Mutex
	record := func() ([]byte, error) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		return nil, nil
	}
	a, _ := q.Submit(record)
	b, _ := q.Submit(record)
	<-a
	<-b
	if gap := starts[1].Sub(starts[0]); gap < DefaultDelay {
		t.Errorf("gap between tasks = %v, want >= %v", gap, DefaultDelay)
	}

	off := New(Options{Delay: -1}, nil)
	defer off.Close(context.Background())
	if off.delay != 0 {
		t.Errorf("negative Delay: delay = %v, want 0", off.delay)
	}
}
