package dashboard

import (
	"sync"

	"go.uber.org/zap"
)

// listenerSet delivers values to subscribers synchronously, in
// subscription order. A panicking listener is logged and skipped.
type listenerSet[T any] struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []listenerEntry[T]
	logger    *zap.Logger
	source    string
}

type listenerEntry[T any] struct {
	id uint64
	fn func(T)
}

func newListenerSet[T any](logger *zap.Logger, source string) *listenerSet[T] {
	return &listenerSet[T]{logger: logger, source: source}
}

// add registers fn and returns a function that removes it. The returned
// function is safe to call more than once.
func (s *listenerSet[T]) add(fn func(T)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry[T]{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *listenerSet[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.listeners {
		if l.id == id {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *listenerSet[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

func (s *listenerSet[T]) publish(v T) {
	s.mu.Lock()
	listeners := make([]listenerEntry[T], len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		s.dispatch(l.fn, v)
	}
}

func (s *listenerSet[T]) dispatch(fn func(T), v T) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("listener panicked",
				zap.String("source", s.source),
				zap.Any("panic", r),
			)
		}
	}()
	fn(v)
}
