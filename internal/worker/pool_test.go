package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	pool := NewPool(&Config{Workers: 2, QueueSize: 10})
	if err := pool.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var count int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		pool.Submit("count", func(ctx context.Context) error {
			defer wg.Done()
			atomic.AddInt64(&count, 1)
			return nil
		})
	}

	wg.Wait()
	pool.Stop()

	if got := atomic.LoadInt64(&count); got != 10 {
		t.Errorf("executed %d tasks, want 10", got)
	}
}

func TestPool_StartTwiceFails(t *testing.T) {
	pool := NewPool(nil)
	if err := pool.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer pool.Stop()

	if err := pool.Start(); err == nil {
		t.Error("second Start should fail")
	}
}

func TestPool_FullQueueRunsInline(t *testing.T) {
	// one worker, tiny queue, worker blocked: the overflow submission
	// must still execute, inline on the caller
	pool := NewPool(&Config{Workers: 1, QueueSize: 1})
	if err := pool.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	release := make(chan struct{})
	pool.Submit("blocker", func(ctx context.Context) error {
		<-release
		return nil
	})
	pool.Submit("queued", func(ctx context.Context) error { return nil })

	done := make(chan struct{})
	go func() {
		pool.Submit("overflow", func(ctx context.Context) error {
			close(done)
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("overflow task did not run inline")
	}

	close(release)
	pool.Stop()
}

func TestPool_StopDrainsQueue(t *testing.T) {
	pool := NewPool(&Config{Workers: 1, QueueSize: 10})
	if err := pool.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var count int64
	for i := 0; i < 5; i++ {
		pool.Submit("slow", func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&count, 1)
			return nil
		})
	}

	pool.Stop()

	if got := atomic.LoadInt64(&count); got != 5 {
		t.Errorf("executed %d tasks before stop returned, want 5", got)
	}
}

func TestPool_TaskErrorsAndPanicsAreContained(t *testing.T) {
	pool := NewPool(&Config{Workers: 1, QueueSize: 5})
	if err := pool.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var ran int64
	pool.Submit("fails", func(ctx context.Context) error {
		return errors.New("boom")
	})
	pool.Submit("panics", func(ctx context.Context) error {
		panic("boom")
	})
	pool.Submit("after", func(ctx context.Context) error {
		atomic.AddInt64(&ran, 1)
		return nil
	})

	pool.Stop()

	if atomic.LoadInt64(&ran) != 1 {
		t.Error("pool should keep running after a failed or panicking task")
	}
}

func TestPool_SubmitAfterStopRunsInline(t *testing.T) {
	pool := NewPool(&Config{Workers: 1, QueueSize: 1})
	if err := pool.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	pool.Stop()

	var ran bool
	pool.Submit("late", func(ctx context.Context) error {
		ran = true
		return nil
	})
	if !ran {
		t.Error("task submitted after Stop should run inline")
	}
}

func TestPool_SubmitRacingStop(t *testing.T) {
	for i := 0; i < 200; i++ {
		pool := NewPool(&Config{Workers: 2, QueueSize: 4})
		if err := pool.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		const submitters = 8
		var count int64
		var wg sync.WaitGroup
		wg.Add(submitters)
		for s := 0; s < submitters; s++ {
			go func() {
				defer wg.Done()
				pool.Submit("racing", func(ctx context.Context) error {
					atomic.AddInt64(&count, 1)
					return nil
				})
			}()
		}

		// racing the submitters; a send on the closed channel would
		// panic a submitter goroutine and crash the test
		pool.Stop()
		wg.Wait()

		if got := atomic.LoadInt64(&count); got != submitters {
			t.Fatalf("iteration %d: executed %d tasks, want %d", i, got, submitters)
		}
	}
}
