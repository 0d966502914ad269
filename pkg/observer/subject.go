// Package observer implements a notification hub whose observers may veto the
// action being announced.
package observer

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Observer receives events of type T. Returning false vetoes the announced action.
type Observer[T any] interface {
	Notify(context.Context, T) bool
}

// ObserverFunc adapts a standalone function into an Observer.
//
//revive:disable-next-line:exported
type ObserverFunc[T any] func(context.Context, T) bool

// Notify executes the wrapped function; a nil func allows the action.
func (f ObserverFunc[T]) Notify(ctx context.Context, evt T) bool {
	if f == nil {
		return true
	}
	return f(ctx, evt)
}

// Subject coordinates observer registrations and event fan-out.
type Subject[T any] struct {
	onError   func(error)
	observers []Observer[T]
	mu        sync.RWMutex
}

// NewSubject constructs a Subject with optional initial observers.
func NewSubject[T any](observers ...Observer[T]) *Subject[T] {
	cp := append([]Observer[T](nil), observers...)
	return &Subject[T]{observers: cp}
}

// Publish notifies every observer in attach order and reports whether all of
// them allowed the action. A panicking observer is reported to the error
// handler and counts as allowing.
func (s *Subject[T]) Publish(ctx context.Context, evt T) bool {
	if s == nil {
		return true
	}

	s.mu.RLock()
	observers := append([]Observer[T](nil), s.observers...)
	errHandler := s.onError
	s.mu.RUnlock()

	allowed := true
	for _, obs := range observers {
		if obs == nil {
			continue
		}
		if !notify(ctx, obs, evt, errHandler) {
			allowed = false
		}
	}
	return allowed
}

func notify[T any](ctx context.Context, obs Observer[T], evt T, errHandler func(error)) (allowed bool) {
	defer func() {
		if r := recover(); r != nil {
			allowed = true
			if errHandler != nil {
				errHandler(fmt.Errorf("observer panic: %v", r))
			}
		}
	}()
	return obs.Notify(ctx, evt)
}

// Attach registers additional observers to the subject.
func (s *Subject[T]) Attach(observers ...Observer[T]) {
	if s == nil || len(observers) == 0 {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, observers...)
	s.mu.Unlock()
}

// Detach removes the first registration of obs and reports whether it was
// found. Observers with non-comparable dynamic types (such as ObserverFunc)
// cannot be detached.
func (s *Subject[T]) Detach(obs Observer[T]) bool {
	if s == nil || obs == nil || !reflect.TypeOf(obs).Comparable() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.observers {
		if o == nil || !reflect.TypeOf(o).Comparable() {
			continue
		}
		if o == obs {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return true
		}
	}
	return false
}

// Len reports the number of attached observers.
func (s *Subject[T]) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

// SetErrorHandler configures a callback for observer failures.
func (s *Subject[T]) SetErrorHandler(fn func(error)) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}
