// Package gateway translates user intents into single remote writes.
// No operation updates local state optimistically; the synchronizer's
// push is the only refresh path.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/model"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/store"
)

// ErrEmptyText is returned when a create or edit carries blank or
// whitespace-only text. The write is never issued.
var ErrEmptyText = errors.New("task text is empty")

// ErrNoIdentity is returned when no identity has been established yet.
var ErrNoIdentity = errors.New("no identity available")

// Gateway issues task mutations scoped to the current identity.
type Gateway struct {
	store store.Store

	mu         sync.RWMutex
	identityID string
}

func New(st store.Store) *Gateway {
	return &Gateway{store: st}
}

// SetIdentity scopes subsequent mutations to an identity.
func (g *Gateway) SetIdentity(identityID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.identityID = identityID
}

// Ready reports whether mutations can be issued.
func (g *Gateway) Ready() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.identityID != ""
}

func (g *Gateway) identity() (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.identityID == "" {
		return "", ErrNoIdentity
	}
	return g.identityID, nil
}

// Create writes a new task. Blank text is rejected client-side so the
// caller keeps its input fields.
func (g *Gateway) Create(ctx context.Context, text string, dueDate *time.Time) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	identityID, err := g.identity()
	if err != nil {
		return err
	}

	if _, err := g.store.CreateTask(ctx, identityID, store.TaskInput{Text: text, DueDate: dueDate}); err != nil {
		log.Printf("gateway: create task: %v", err)
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Toggle flips the completed flag on a task, based on the completed
// state the caller last saw.
func (g *Gateway) Toggle(ctx context.Context, task model.Task) error {
	identityID, err := g.identity()
	if err != nil {
		return err
	}

	if err := g.store.SetTaskCompleted(ctx, identityID, task.ID, !task.Completed); err != nil {
		log.Printf("gateway: toggle task %s: %v", task.ID, err)
		return fmt.Errorf("toggle task: %w", err)
	}
	return nil
}

// Edit overwrites text and due date on a task. Blank text is rejected
// client-side so the caller stays in edit mode.
func (g *Gateway) Edit(ctx context.Context, taskID, text string, dueDate *time.Time) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	identityID, err := g.identity()
	if err != nil {
		return err
	}

	if err := g.store.EditTask(ctx, identityID, taskID, store.TaskInput{Text: text, DueDate: dueDate}); err != nil {
		log.Printf("gateway: edit task %s: %v", taskID, err)
		return fmt.Errorf("edit task: %w", err)
	}
	return nil
}

// Delete removes a task. No local precondition check is made; the
// request is sent even for ids missing from the current list.
func (g *Gateway) Delete(ctx context.Context, taskID string) error {
	identityID, err := g.identity()
	if err != nil {
		return err
	}

	if err := g.store.DeleteTask(ctx, identityID, taskID); err != nil {
		log.Printf("gateway: delete task %s: %v", taskID, err)
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
