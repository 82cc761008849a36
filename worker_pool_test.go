package ecs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolExecuteJobs(t *testing.T) {
	pool := newWorkerPool(2)
	defer pool.Close()

	var count atomic.Int32
	job := func(ctx context.Context) jobResult {
		select {
		case <-time.After(5 * time.Millisecond):
			count.Add(1)
			return jobResult{}
		case <-ctx.Done():
			return jobResult{err: ctx.Err()}
		}
	}

	handles := []*jobHandle{
		pool.Submit(context.Background(), job),
		pool.Submit(context.Background(), job),
		pool.Submit(context.Background(), job),
	}

	for i, h := range handles {
		if res := h.Wait(); res.err != nil {
			t.Fatalf("job %d failed: %v", i, res.err)
		}
	}

	if count.Load() != 3 {
		t.Fatalf("expected 3 jobs to run, got %d", count.Load())
	}
}

func TestWorkerPoolClosedRejectsJobs(t *testing.T) {
	pool := newWorkerPool(1)
	pool.Close()

	handle := pool.Submit(context.Background(), func(context.Context) jobResult { return jobResult{} })
	if res := handle.Wait(); res.err != ErrWorkerPoolClosed {
		t.Fatalf("expected ErrWorkerPoolClosed, got %v", res.err)
	}
}

func TestWorkerPoolNilExecutesInline(t *testing.T) {
	var ran atomic.Bool
	var pool *workerPool
	handle := pool.Submit(context.Background(), func(context.Context) jobResult {
		ran.Store(true)
		return jobResult{}
	})
	if res := handle.Wait(); res.err != nil {
		t.Fatalf("expected nil error, got %v", res.err)
	}
	if !ran.Load() {
		t.Fatalf("expected inline job to run")
	}
}

func TestWorkerPoolTableRegistersDefaultAndSingle(t *testing.T) {
	table := NewWorkerPoolTable(2)
	defer table.CloseAll()

	if table.Get("default") == nil {
		t.Fatalf("expected a default pool")
	}
	if table.Get("single") == nil {
		t.Fatalf("expected a single pool")
	}
	if table.Get("missing") != nil {
		t.Fatalf("expected unknown pool name to resolve to nil (inline execution)")
	}
}

func TestWorkerPoolTableClampsConcurrency(t *testing.T) {
	low := NewWorkerPoolTable(1)
	defer low.CloseAll()
	high := NewWorkerPoolTable(64)
	defer high.CloseAll()

	var ran atomic.Bool
	job := func(context.Context) jobResult {
		ran.Store(true)
		return jobResult{}
	}
	if res := low.Get("default").Submit(context.Background(), job).Wait(); res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if !ran.Load() {
		t.Fatalf("expected clamped low pool to still run jobs")
	}
	if got := low.Get("default").size; got != 4 {
		t.Fatalf("expected low concurrency clamped to 4, got %d", got)
	}
	if got := high.Get("default").size; got != 16 {
		t.Fatalf("expected high concurrency clamped to 16, got %d", got)
	}
}
