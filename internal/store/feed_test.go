package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// fakeLister serves canned snapshots without a database.
type fakeLister struct {
	mu        sync.Mutex
	pending   []Order
	completed []Order
}

func (f *fakeLister) ListPending(ctx context.Context) ([]Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Order(nil), f.pending...), nil
}

func (f *fakeLister) ListCompleted(ctx context.Context) ([]Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Order(nil), f.completed...), nil
}

func (f *fakeLister) setPending(orders []Order) {
	f.mu.Lock()
	f.pending = orders
	f.mu.Unlock()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}

func TestFeedDeliversInitialSnapshot(t *testing.T) {
	lister := &fakeLister{pending: []Order{{ID: uuid.New(), Status: "PENDING"}}}
	feed := NewFeed(lister)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	var mu sync.Mutex
	var got []Order
	unsub := feed.SubscribePending(func(orders []Order) {
		mu.Lock()
		got = orders
		mu.Unlock()
	})
	defer unsub()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})
}

func TestFeedDeliversOnInvalidate(t *testing.T) {
	lister := &fakeLister{}
	feed := NewFeed(lister)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	var mu sync.Mutex
	deliveries := 0
	var last []Order
	unsub := feed.SubscribePending(func(orders []Order) {
		mu.Lock()
		deliveries++
		last = orders
		mu.Unlock()
	})
	defer unsub()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return deliveries >= 1
	})

	lister.setPending([]Order{{ID: uuid.New()}, {ID: uuid.New()}})
	feed.Invalidate()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == 2
	})
}

func TestFeedUnsubscribeIdempotent(t *testing.T) {
	lister := &fakeLister{}
	feed := NewFeed(lister)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	var mu sync.Mutex
	deliveries := 0
	unsub := feed.SubscribePending(func([]Order) {
		mu.Lock()
		deliveries++
		mu.Unlock()
	})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return deliveries >= 1
	})

	unsub()
	unsub() // second call must be a no-op

	mu.Lock()
	before := deliveries
	mu.Unlock()

	feed.Invalidate()
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	after := deliveries
	mu.Unlock()
	if after != before {
		t.Fatalf("received %d deliveries after unsubscribe", after-before)
	}
}
