package testutil

import (
	"sync"

	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/model"
)

// ManualSubscription is a store.Subscription driven by the test: Push
// delivers a snapshot, Fail terminates it with an error.
type ManualSubscription struct {
	ch chan []model.Task

	mu     sync.Mutex
	err    error
	closed bool
}

// NewManualSubscription creates an open subscription.
func NewManualSubscription() *ManualSubscription {
	return &ManualSubscription{ch: make(chan []model.Task, 16)}
}

// Push delivers a snapshot to the consumer. Pushing after close is a
// no-op so broadcast races in tests stay harmless.
func (s *ManualSubscription) Push(tasks []model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.ch <- tasks
}

// Fail terminates the subscription with an error.
func (s *ManualSubscription) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.err = err
	s.closed = true
	close(s.ch)
}

// Snapshots implements store.Subscription.
func (s *ManualSubscription) Snapshots() <-chan []model.Task {
	return s.ch
}

// Err implements store.Subscription.
func (s *ManualSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close implements store.Subscription.
func (s *ManualSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.ch)
	return nil
}
