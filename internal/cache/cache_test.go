package cache

import (
	"context"
	"testing"
	"time"

	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/model"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	c := newTestCache(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	due := base.AddDate(0, 0, 7)

	tasks := []model.Task{
		{ID: "task-a", Text: "no due date", CreatedAt: base},
		{ID: "task-b", Text: "has due date", Completed: true, CreatedAt: base.Add(time.Minute), DueDate: &due},
	}
	if err := c.Save(context.Background(), "identity-a", tasks); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := c.Load(context.Background(), "identity-a")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(loaded))
	}

	if loaded[0].ID != "task-a" || loaded[1].ID != "task-b" {
		t.Fatalf("expected creation order, got %s then %s", loaded[0].ID, loaded[1].ID)
	}
	if loaded[0].DueDate != nil {
		t.Fatalf("expected task-a to have no due date, got %v", loaded[0].DueDate)
	}
	if loaded[1].DueDate == nil || !loaded[1].DueDate.Equal(due) {
		t.Fatalf("expected task-b due date %v, got %v", due, loaded[1].DueDate)
	}
	if !loaded[1].Completed {
		t.Fatalf("expected task-b to be completed")
	}
}

func TestSaveReplacesWholesale(t *testing.T) {
	c := newTestCache(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	first := []model.Task{
		{ID: "task-a", Text: "old", CreatedAt: base},
		{ID: "task-b", Text: "gone next save", CreatedAt: base.Add(time.Minute)},
	}
	if err := c.Save(context.Background(), "identity-a", first); err != nil {
		t.Fatalf("save first: %v", err)
	}

	second := []model.Task{
		{ID: "task-a", Text: "new", CreatedAt: base},
	}
	if err := c.Save(context.Background(), "identity-a", second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	loaded, err := c.Load(context.Background(), "identity-a")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 task after replacement, got %d", len(loaded))
	}
	if loaded[0].Text != "new" {
		t.Fatalf("expected updated text, got %q", loaded[0].Text)
	}
}

func TestSnapshotsAreScopedPerIdentity(t *testing.T) {
	c := newTestCache(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := c.Save(context.Background(), "identity-a", []model.Task{{ID: "task-a", Text: "a's task", CreatedAt: base}}); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := c.Save(context.Background(), "identity-b", nil); err != nil {
		t.Fatalf("save b: %v", err)
	}

	loadedA, err := c.Load(context.Background(), "identity-a")
	if err != nil {
		t.Fatalf("load a: %v", err)
	}
	if len(loadedA) != 1 {
		t.Fatalf("expected identity-a snapshot to survive, got %d tasks", len(loadedA))
	}

	loadedB, err := c.Load(context.Background(), "identity-b")
	if err != nil {
		t.Fatalf("load b: %v", err)
	}
	if len(loadedB) != 0 {
		t.Fatalf("expected identity-b snapshot to be empty, got %d tasks", len(loadedB))
	}
}
