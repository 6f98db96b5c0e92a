package redistore

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/model"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/store"
)

// Watch opens a live subscription for one identity. The first snapshot
// is delivered immediately; afterwards every published change triggers
// a refetch of the full set. Snapshots are conflated: if the consumer
// lags, only the most recent one is kept.
func (c *Client) Watch(ctx context.Context, identityID string) (store.Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, c.changeChannel(identityID))

	// Confirm the subscription is active before the initial fetch so
	// no change can slip between the two.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		snapshots: make(chan []model.Task, 1),
		pubsub:    pubsub,
		cancel:    cancel,
	}
	go sub.run(watchCtx, c, identityID)
	return sub, nil
}

type subscription struct {
	snapshots chan []model.Task
	pubsub    *redis.PubSub
	cancel    context.CancelFunc

	closeOnce sync.Once
	closeErr  error

	mu  sync.Mutex
	err error
}

func (s *subscription) Snapshots() <-chan []model.Task {
	return s.snapshots
}

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.closeErr = s.pubsub.Close()
	})
	return s.closeErr
}

func (s *subscription) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *subscription) run(ctx context.Context, c *Client, identityID string) {
	defer close(s.snapshots)

	if !s.fetchAndDeliver(ctx, c, identityID) {
		return
	}

	msgs := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-msgs:
			if !ok {
				return
			}
			if !s.fetchAndDeliver(ctx, c, identityID) {
				return
			}
		}
	}
}

func (s *subscription) fetchAndDeliver(ctx context.Context, c *Client, identityID string) bool {
	fetchCtx, cancel := context.WithTimeout(ctx, APITimeout)
	tasks, err := c.listTasks(fetchCtx, identityID)
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			s.setErr(err)
		}
		return false
	}
	s.deliver(ctx, tasks)
	return true
}

func (s *subscription) deliver(ctx context.Context, tasks []model.Task) {
	for {
		select {
		case s.snapshots <- tasks:
			return
		case <-ctx.Done():
			return
		default:
			// Drop the undelivered snapshot; the most recent one wins.
			select {
			case <-s.snapshots:
			default:
			}
		}
	}
}
