package domain

import "sync"

// Subscription is a live stream of full list snapshots. Each value replaces
// the previous one.
type Subscription[T any] struct {
	ch   <-chan []T
	stop func()
	once sync.Once
}

func NewSubscription[T any](ch <-chan []T, stop func()) *Subscription[T] {
	return &Subscription[T]{ch: ch, stop: stop}
}

// Snapshots is closed after Unsubscribe.
func (s *Subscription[T]) Snapshots() <-chan []T {
	return s.ch
}

// Unsubscribe is safe to call any number of times.
func (s *Subscription[T]) Unsubscribe() {
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}
