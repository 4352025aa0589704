package pricestore

import "github.com/donia1222/remix-crypto-sub000/internal/model"

// Subscription receives every flushed batch of changed quotes.
type Subscription struct {
	queue *Queue[[]model.PriceQuote]
}

// Receive blocks until a batch is available or the subscription is closed.
func (s *Subscription) Receive() ([]model.PriceQuote, bool) {
	return s.queue.Receive()
}

// TryReceive returns a batch if one is queued.
func (s *Subscription) TryReceive() ([]model.PriceQuote, bool) {
	return s.queue.TryReceive()
}

// Stats returns the subscription's queue statistics.
func (s *Subscription) Stats() QueueStats {
	return s.queue.Stats()
}

// Subscribe registers a new consumer of flushed batches. After Stop the
// returned subscription is already closed.
func (s *Store) Subscribe() *Subscription {
	sub := &Subscription{queue: NewQueue[[]model.PriceQuote](s.cfg.SubscriberBuffer)}

	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	if s.stopped {
		sub.queue.Close()
		return sub
	}
	s.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes it. Pending batches can still be drained.
func (s *Store) Unsubscribe(sub *Subscription) {
	s.subsMu.Lock()
	delete(s.subs, sub)
	s.subsMu.Unlock()

	sub.queue.Close()
}

// publish sends a batch to every subscriber. Each gets its own copy.
func (s *Store) publish(batch []model.PriceQuote) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for sub := range s.subs {
		cp := make([]model.PriceQuote, len(batch))
		copy(cp, batch)
		sub.queue.Send(cp)
	}
}
