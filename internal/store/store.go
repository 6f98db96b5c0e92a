// Package store defines the backend-agnostic interface to the remote
// task store. The rest of the app never imports a backend directly.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/model"
)

// ErrIdentityNotFound is returned when the store no longer knows a
// previously issued identity.
var ErrIdentityNotFound = errors.New("identity not found")

// ErrTaskNotFound is returned by single-task reads for unknown ids.
// Deletes of unknown ids are not an error.
var ErrTaskNotFound = errors.New("task not found")

// TaskInput carries the user-supplied fields of a task write. A nil
// DueDate means no due date; the store records it as an explicit null.
type TaskInput struct {
	Text    string
	DueDate *time.Time
}

// Store is the remote task store surface the app consumes: anonymous
// identity issuance, per-identity task documents, and a live snapshot
// subscription.
type Store interface {
	// CreateIdentity issues a fresh anonymous identity.
	CreateIdentity(ctx context.Context) (model.Identity, error)

	// LookupIdentity validates a previously issued identity.
	// Returns ErrIdentityNotFound if the store does not know it.
	LookupIdentity(ctx context.Context, id string) (model.Identity, error)

	// ListTasks returns the full current task set for an identity.
	ListTasks(ctx context.Context, identityID string) ([]model.Task, error)

	// CreateTask stores a new task, assigning its ID and a
	// server-observed creation timestamp.
	CreateTask(ctx context.Context, identityID string, input TaskInput) (model.Task, error)

	// SetTaskCompleted overwrites the completed flag on a task.
	SetTaskCompleted(ctx context.Context, identityID, taskID string, completed bool) error

	// EditTask overwrites text and due date on a task. CreatedAt and
	// the completed flag are untouched.
	EditTask(ctx context.Context, identityID, taskID string, input TaskInput) error

	// DeleteTask removes a task document. Unknown ids are a no-op.
	DeleteTask(ctx context.Context, identityID, taskID string) error

	// Watch opens a live subscription scoped to one identity. The
	// handle delivers the full current set immediately and again after
	// every change notification; each delivery replaces the previous
	// one entirely. Callers hold exactly one handle per identity and
	// must Close it on scope exit.
	Watch(ctx context.Context, identityID string) (Subscription, error)
}

// Subscription is a cancellable live-query handle yielding a sequence
// of full-state snapshots.
type Subscription interface {
	// Snapshots delivers full task sets, unsorted. The channel closes
	// after Close or when the subscription fails; Err reports why.
	Snapshots() <-chan []model.Task

	// Err returns the terminal subscription error, if any, once
	// Snapshots is closed.
	Err() error

	// Close releases the subscription. Safe to call more than once.
	Close() error
}
