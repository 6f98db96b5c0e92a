// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/model"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/store"
)

// FakeStore is an in-memory implementation of store.Store for testing.
// Mutations notify any open subscriptions with a fresh full snapshot,
// mirroring the push behavior of the real backend.
type FakeStore struct {
	mu         sync.RWMutex
	identities map[string]model.Identity
	tasks      map[string]map[string]model.Task // identityID -> taskID -> task
	subs       map[string][]*ManualSubscription
	seq        int
	base       time.Time

	// Error injection
	CreateIdentityErr error
	LookupIdentityErr error
	ListTasksErr      error
	CreateTaskErr     error
	SetCompletedErr   error
	EditTaskErr       error
	DeleteTaskErr     error
	WatchErr          error

	// Call counters for asserting that an operation never reached the
	// store.
	CreateTaskCalls   int
	SetCompletedCalls int
	EditTaskCalls     int
	DeleteTaskCalls   int
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		identities: make(map[string]model.Identity),
		tasks:      make(map[string]map[string]model.Task),
		subs:       make(map[string][]*ManualSubscription),
		base:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// AddIdentity seeds a known identity.
func (f *FakeStore) AddIdentity(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identities[id] = model.Identity{ID: id, CreatedAt: f.base}
	if f.tasks[id] == nil {
		f.tasks[id] = make(map[string]model.Task)
	}
}

// AddTask seeds a task without counting as a mutation call.
func (f *FakeStore) AddTask(identityID string, task model.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tasks[identityID] == nil {
		f.tasks[identityID] = make(map[string]model.Task)
	}
	f.tasks[identityID][task.ID] = task
}

// Task returns a seeded or created task by id.
func (f *FakeStore) Task(identityID, taskID string) (model.Task, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	task, ok := f.tasks[identityID][taskID]
	return task, ok
}

// TaskCount returns how many tasks an identity holds.
func (f *FakeStore) TaskCount(identityID string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.tasks[identityID])
}

// CreateIdentity implements store.Store.
func (f *FakeStore) CreateIdentity(ctx context.Context) (model.Identity, error) {
	if f.CreateIdentityErr != nil {
		return model.Identity{}, f.CreateIdentityErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	identity := model.Identity{
		ID:        fmt.Sprintf("identity-%d", f.seq),
		CreatedAt: f.base.Add(time.Duration(f.seq) * time.Second),
	}
	f.identities[identity.ID] = identity
	f.tasks[identity.ID] = make(map[string]model.Task)
	return identity, nil
}

// LookupIdentity implements store.Store.
func (f *FakeStore) LookupIdentity(ctx context.Context, id string) (model.Identity, error) {
	if f.LookupIdentityErr != nil {
		return model.Identity{}, f.LookupIdentityErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	identity, ok := f.identities[id]
	if !ok {
		return model.Identity{}, store.ErrIdentityNotFound
	}
	return identity, nil
}

// ListTasks implements store.Store.
func (f *FakeStore) ListTasks(ctx context.Context, identityID string) ([]model.Task, error) {
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshotLocked(identityID), nil
}

// CreateTask implements store.Store.
func (f *FakeStore) CreateTask(ctx context.Context, identityID string, input store.TaskInput) (model.Task, error) {
	f.mu.Lock()
	f.CreateTaskCalls++
	if f.CreateTaskErr != nil {
		f.mu.Unlock()
		return model.Task{}, f.CreateTaskErr
	}
	f.seq++
	task := model.Task{
		ID:        fmt.Sprintf("task-%d", f.seq),
		Text:      input.Text,
		Completed: false,
		CreatedAt: f.base.Add(time.Duration(f.seq) * time.Second),
		DueDate:   input.DueDate,
	}
	if f.tasks[identityID] == nil {
		f.tasks[identityID] = make(map[string]model.Task)
	}
	f.tasks[identityID][task.ID] = task
	f.mu.Unlock()

	f.broadcast(identityID)
	return task, nil
}

// SetTaskCompleted implements store.Store.
func (f *FakeStore) SetTaskCompleted(ctx context.Context, identityID, taskID string, completed bool) error {
	f.mu.Lock()
	f.SetCompletedCalls++
	if f.SetCompletedErr != nil {
		f.mu.Unlock()
		return f.SetCompletedErr
	}
	task, ok := f.tasks[identityID][taskID]
	if !ok {
		f.mu.Unlock()
		return store.ErrTaskNotFound
	}
	task.Completed = completed
	f.tasks[identityID][taskID] = task
	f.mu.Unlock()

	f.broadcast(identityID)
	return nil
}

// EditTask implements store.Store.
func (f *FakeStore) EditTask(ctx context.Context, identityID, taskID string, input store.TaskInput) error {
	f.mu.Lock()
	f.EditTaskCalls++
	if f.EditTaskErr != nil {
		f.mu.Unlock()
		return f.EditTaskErr
	}
	task, ok := f.tasks[identityID][taskID]
	if !ok {
		f.mu.Unlock()
		return store.ErrTaskNotFound
	}
	task.Text = input.Text
	task.DueDate = input.DueDate
	f.tasks[identityID][taskID] = task
	f.mu.Unlock()

	f.broadcast(identityID)
	return nil
}

// DeleteTask implements store.Store. Unknown ids are a no-op.
func (f *FakeStore) DeleteTask(ctx context.Context, identityID, taskID string) error {
	f.mu.Lock()
	f.DeleteTaskCalls++
	if f.DeleteTaskErr != nil {
		f.mu.Unlock()
		return f.DeleteTaskErr
	}
	delete(f.tasks[identityID], taskID)
	f.mu.Unlock()

	f.broadcast(identityID)
	return nil
}

// Watch implements store.Store. The returned subscription receives an
// initial snapshot and one snapshot per mutation.
func (f *FakeStore) Watch(ctx context.Context, identityID string) (store.Subscription, error) {
	if f.WatchErr != nil {
		return nil, f.WatchErr
	}
	sub := NewManualSubscription()

	f.mu.Lock()
	f.subs[identityID] = append(f.subs[identityID], sub)
	initial := f.snapshotLocked(identityID)
	f.mu.Unlock()

	sub.Push(initial)
	return sub, nil
}

// FailSubscriptions terminates every open subscription for an identity
// with the given error.
func (f *FakeStore) FailSubscriptions(identityID string, err error) {
	f.mu.Lock()
	subs := f.subs[identityID]
	f.subs[identityID] = nil
	f.mu.Unlock()

	for _, sub := range subs {
		sub.Fail(err)
	}
}

func (f *FakeStore) snapshotLocked(identityID string) []model.Task {
	tasks := make([]model.Task, 0, len(f.tasks[identityID]))
	for _, task := range f.tasks[identityID] {
		tasks = append(tasks, task)
	}
	return tasks
}

func (f *FakeStore) broadcast(identityID string) {
	f.mu.RLock()
	snapshot := f.snapshotLocked(identityID)
	subs := append([]*ManualSubscription(nil), f.subs[identityID]...)
	f.mu.RUnlock()

	for _, sub := range subs {
		sub.Push(snapshot)
	}
}
