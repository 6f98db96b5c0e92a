// Package syncer keeps the local task list in step with the remote
// store. It holds exactly one live subscription per identity and
// replaces its snapshot wholesale on every push; nothing is merged.
package syncer

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/cache"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/model"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/store"
)

// Syncer owns the task list snapshot. Consumers read Tasks/Loading and
// register an OnChange hook to be poked after every applied snapshot.
type Syncer struct {
	store store.Store
	cache *cache.Cache // optional local mirror, may be nil

	mu         sync.RWMutex
	identityID string
	tasks      []model.Task
	loading    bool
	sub        store.Subscription
	onChange   func()
}

// New creates a Syncer. The cache may be nil to run without a local
// mirror.
func New(st store.Store, c *cache.Cache) *Syncer {
	return &Syncer{store: st, cache: c}
}

// SetOnChange registers a hook invoked after every snapshot
// application and after loading is cleared. Called from the
// subscription goroutine; keep it cheap.
func (s *Syncer) SetOnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Tasks returns the current snapshot, sorted ascending by creation
// time, zero timestamps first.
func (s *Syncer) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]model.Task, len(s.tasks))
	copy(result, s.tasks)
	return result
}

// Loading reports whether the first snapshot for the current identity
// is still pending.
func (s *Syncer) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SetIdentity points the synchronizer at an identity's collection. The
// previous subscription, if any, is closed first. An empty identity is
// a no-op.
func (s *Syncer) SetIdentity(ctx context.Context, identityID string) {
	if identityID == "" {
		return
	}

	s.mu.Lock()
	if s.identityID == identityID {
		s.mu.Unlock()
		return
	}
	if s.sub != nil {
		_ = s.sub.Close()
		s.sub = nil
	}
	s.identityID = identityID
	s.loading = true
	s.tasks = s.cachedSnapshot(ctx, identityID)
	s.mu.Unlock()
	s.notify()

	sub, err := s.store.Watch(ctx, identityID)
	if err != nil {
		log.Printf("syncer: subscribe %s: %v", identityID, err)
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.notify()
		return
	}

	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	go s.pump(ctx, identityID, sub)
}

// Close releases the live subscription.
func (s *Syncer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		err := s.sub.Close()
		s.sub = nil
		return err
	}
	return nil
}

func (s *Syncer) pump(ctx context.Context, identityID string, sub store.Subscription) {
	for snapshot := range sub.Snapshots() {
		if !s.apply(identityID, sub, snapshot) {
			return
		}
		s.saveMirror(ctx, identityID, snapshot)
		s.notify()
	}

	if err := sub.Err(); err != nil {
		log.Printf("syncer: subscription %s: %v", identityID, err)
	}

	// Loading clears regardless of how the subscription ended.
	s.mu.Lock()
	if s.sub == sub {
		s.loading = false
	}
	s.mu.Unlock()
	s.notify()
}

// apply installs a snapshot unless the subscription has been replaced
// by a newer identity in the meantime.
func (s *Syncer) apply(identityID string, sub store.Subscription, snapshot []model.Task) bool {
	sorted := make([]model.Task, len(snapshot))
	copy(sorted, snapshot)
	SortTasks(sorted)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != sub || s.identityID != identityID {
		return false
	}
	s.tasks = sorted
	s.loading = false
	return true
}

func (s *Syncer) cachedSnapshot(ctx context.Context, identityID string) []model.Task {
	if s.cache == nil {
		return nil
	}
	tasks, err := s.cache.Load(ctx, identityID)
	if err != nil {
		log.Printf("syncer: load cached snapshot: %v", err)
		return nil
	}
	SortTasks(tasks)
	return tasks
}

func (s *Syncer) saveMirror(ctx context.Context, identityID string, snapshot []model.Task) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, identityID, snapshot); err != nil {
		log.Printf("syncer: save cached snapshot: %v", err)
	}
}

func (s *Syncer) notify() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// SortTasks orders tasks ascending by creation time. Tasks without a
// resolvable timestamp carry the zero time and therefore sort first;
// ties fall back to id so the order is stable across snapshots.
func SortTasks(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}
