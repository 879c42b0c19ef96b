package queue_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/flowsense/internal/adapters/mq/queue"
	"github.com/okian/flowsense/internal/domain/model"
)

func job(id string) model.RefreshJob {
	end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	return model.RefreshJob{JobID: id, UserID: "user-" + id, Start: end.AddDate(0, 0, -90), End: end}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Capacity(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	if !q.Enqueue(ctx, job("j1")) {
		t.Fatal("expected enqueue to succeed")
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.JobID != "j1" || got.UserID != "user-j1" {
		t.Errorf("expected j1 for user-j1, got %+v", got)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, job("j1")) || !q.Enqueue(ctx, job("j2")) {
		t.Fatal("expected enqueue to succeed below capacity")
	}
	if q.Enqueue(ctx, job("j3")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := queue.NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, job("j1")) {
		t.Error("expected enqueue to fail with a cancelled context")
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	const producers, perProducer = 8, 50
	q := queue.NewInMemoryQueue(queue.WithCapacity(16))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen sync.Map
	var consumed sync.WaitGroup
	consumed.Add(producers * perProducer)
	for i := 0; i < 4; i++ {
		go func() {
			for j := range q.Dequeue(ctx) {
				if _, dup := seen.LoadOrStore(j.JobID, struct{}{}); dup {
					t.Errorf("job %s delivered twice", j.JobID)
				}
				consumed.Done()
			}
		}()
	}

	var produced sync.WaitGroup
	for p := 0; p < producers; p++ {
		produced.Add(1)
		go func(p int) {
			defer produced.Done()
			for n := 0; n < perProducer; n++ {
				j := job(fmt.Sprintf("%d-%d", p, n))
				for !q.Enqueue(ctx, j) {
					time.Sleep(time.Millisecond)
				}
			}
		}(p)
	}
	produced.Wait()

	done := make(chan struct{})
	go func() {
		consumed.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for consumers")
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, job("j1")) || !q.Enqueue(ctx, job("j2")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, job("j3")) {
		t.Error("expected enqueue to fail after closing")
	}

	// queued jobs drain before the channel closes
	var ids []string
	timeout := time.After(time.Second)
	jobs := q.Dequeue(ctx)
	for {
		select {
		case j, ok := <-jobs:
			if !ok {
				if len(ids) != 2 || ids[0] != "j1" || ids[1] != "j2" {
					t.Errorf("expected j1 and j2 drained, got %v", ids)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			ids = append(ids, j.JobID)
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
}
