package store

import (
	"context"
	"log"
	"sync"
	"time"
)

const snapshotQueryTimeout = 5 * time.Second

// Lister is the read surface the feed re-queries on every change.
// Satisfied by *Store.
type Lister interface {
	ListPending(ctx context.Context) ([]Order, error)
	ListCompleted(ctx context.Context) ([]Order, error)
}

// Feed is the live-query primitive: subscribers receive the full
// current result set whenever the underlying data changes. Deliveries
// are snapshots, never diffs, and rapid bursts of writes may be
// coalesced into a single delivery.
type Feed struct {
	store Lister
	kick  chan struct{}

	mu        sync.Mutex
	nextID    int
	pending   map[int]func([]Order)
	completed map[int]func([]Order)
}

func NewFeed(store Lister) *Feed {
	return &Feed{
		store:     store,
		kick:      make(chan struct{}, 1),
		pending:   make(map[int]func([]Order)),
		completed: make(map[int]func([]Order)),
	}
}

// SubscribePending registers a callback for the pending set, oldest
// first. The current snapshot is delivered shortly after subscribing.
// The returned unsubscribe is safe to call more than once.
func (f *Feed) SubscribePending(fn func([]Order)) (unsubscribe func()) {
	return f.subscribe(f.pending, fn)
}

// SubscribeCompleted registers a callback for the done set, most
// recently completed first.
func (f *Feed) SubscribeCompleted(fn func([]Order)) (unsubscribe func()) {
	return f.subscribe(f.completed, fn)
}

func (f *Feed) subscribe(subs map[int]func([]Order), fn func([]Order)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	subs[id] = fn
	f.mu.Unlock()

	f.Invalidate()

	return func() {
		f.mu.Lock()
		delete(subs, id)
		f.mu.Unlock()
	}
}

// Invalidate signals that the order set changed. Non-blocking; if a
// refresh is already queued the signal folds into it.
func (f *Feed) Invalidate() {
	select {
	case f.kick <- struct{}{}:
	default:
	}
}

// Run delivers snapshots until ctx is cancelled. Call in a goroutine:
// go feed.Run(ctx).
func (f *Feed) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.kick:
			f.deliver(ctx)
		}
	}
}

func (f *Feed) deliver(ctx context.Context) {
	qctx, cancel := context.WithTimeout(ctx, snapshotQueryTimeout)
	defer cancel()

	pending, err := f.store.ListPending(qctx)
	if err != nil {
		log.Printf("ERROR: feed: list pending: %v", err)
		return
	}
	completed, err := f.store.ListCompleted(qctx)
	if err != nil {
		log.Printf("ERROR: feed: list completed: %v", err)
		return
	}

	f.mu.Lock()
	pendingSubs := make([]func([]Order), 0, len(f.pending))
	for _, fn := range f.pending {
		pendingSubs = append(pendingSubs, fn)
	}
	completedSubs := make([]func([]Order), 0, len(f.completed))
	for _, fn := range f.completed {
		completedSubs = append(completedSubs, fn)
	}
	f.mu.Unlock()

	for _, fn := range pendingSubs {
		fn(pending)
	}
	for _, fn := range completedSubs {
		fn(completed)
	}
}
