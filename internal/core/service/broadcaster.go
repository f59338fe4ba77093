package service

import (
	"sync"
	"sync/atomic"
)

// Broadcaster is an observer list. Subscribers are called synchronously, in
// subscription order, outside the broadcaster's lock.
//
// Owners publishing from several goroutines may deliver out of order. Each
// change is therefore stamped with Stamp while the owner still holds its state
// lock, and the stamp travels in the published value so a subscriber can drop
// anything older than what it already has.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(T)
	order  []int

	seq atomic.Uint64
}

// Sequenced is implemented by published values that carry their stamp.
type Sequenced interface {
	Sequence() uint64
}

// Stamp advances and returns the change sequence.
func (b *Broadcaster[T]) Stamp() uint64 {
	return b.seq.Add(1)
}

// Seq returns the sequence of the latest change.
func (b *Broadcaster[T]) Seq() uint64 {
	return b.seq.Load()
}

// Subscribe registers fn and returns a function that removes it. The returned
// function is safe to call more than once.
func (b *Broadcaster[T]) Subscribe(fn func(T)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]func(T))
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; !ok {
			return
		}
		delete(b.subs, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers v to every current subscriber.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	fns := make([]func(T), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.subs[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
