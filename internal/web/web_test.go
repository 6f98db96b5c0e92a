package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/gateway"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/model"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/store"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/syncer"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/testutil"
)

func storeInput(text string) store.TaskInput {
	return store.TaskInput{Text: text}
}

func newTestServer(t *testing.T) (http.Handler, *testutil.FakeStore, *syncer.Syncer) {
	t.Helper()

	fake := testutil.NewFakeStore()
	fake.AddIdentity("identity-a")

	sync := syncer.New(fake, nil)
	t.Cleanup(func() { _ = sync.Close() })

	gw := gateway.New(fake)
	gw.SetIdentity("identity-a")

	sync.SetIdentity(context.Background(), "identity-a")
	waitFor(t, "initial snapshot", func() bool { return !sync.Loading() })

	return NewServer(sync, gw).Handler(), fake, sync
}

func waitFor(t *testing.T, what string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestIndexRendersTaskList(t *testing.T) {
	fake := testutil.NewFakeStore()
	fake.AddIdentity("identity-a")
	fake.AddTask("identity-a", model.Task{ID: "task-1", Text: "visible on page"})

	sync := syncer.New(fake, nil)
	defer sync.Close()
	gw := gateway.New(fake)
	gw.SetIdentity("identity-a")
	sync.SetIdentity(context.Background(), "identity-a")
	waitFor(t, "initial snapshot", func() bool { return len(sync.Tasks()) == 1 })

	handler := NewServer(sync, gw).Handler()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "visible on page") {
		t.Fatalf("expected task text in page body")
	}
}

func TestAPIListTasks(t *testing.T) {
	handler, fake, sync := newTestServer(t)
	fake.AddTask("identity-a", model.Task{ID: "task-1", Text: "listed"})

	// Any mutation broadcasts a full snapshot, which carries the
	// seeded task along with it.
	if _, err := fake.CreateTask(context.Background(), "identity-a", storeInput("also listed")); err != nil {
		t.Fatalf("create: %v", err)
	}
	waitFor(t, "snapshot with both tasks", func() bool { return len(sync.Tasks()) == 2 })

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var tasks []model.Task
	if err := json.NewDecoder(rec.Body).Decode(&tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
}

func TestAPICreateTask(t *testing.T) {
	handler, fake, _ := newTestServer(t)

	body := strings.NewReader(`{"text": "from the api", "dueDate": "2026-09-15"}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tasks", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	task, ok := fake.Task("identity-a", "task-1")
	if !ok {
		t.Fatalf("expected task to be created")
	}
	if task.Text != "from the api" {
		t.Fatalf("expected text %q, got %q", "from the api", task.Text)
	}
	if task.DueDate == nil {
		t.Fatalf("expected a due date")
	}
}

func TestAPICreateRejectsBlankText(t *testing.T) {
	handler, fake, _ := newTestServer(t)

	body := strings.NewReader(`{"text": "   "}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tasks", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if fake.CreateTaskCalls != 0 {
		t.Fatalf("expected no create request, got %d", fake.CreateTaskCalls)
	}
}

func TestAPIToggleTask(t *testing.T) {
	handler, fake, sync := newTestServer(t)
	fake.AddTask("identity-a", model.Task{ID: "task-1", Text: "toggle me"})
	if err := fake.EditTask(context.Background(), "identity-a", "task-1", storeInput("toggle me")); err != nil {
		t.Fatalf("seed broadcast: %v", err)
	}
	waitFor(t, "task in snapshot", func() bool { return len(sync.Tasks()) == 1 })

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tasks/task-1/toggle", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	task, _ := fake.Task("identity-a", "task-1")
	if !task.Completed {
		t.Fatalf("expected task to be completed")
	}
}

func TestAPIDeleteUnknownTaskStillAccepted(t *testing.T) {
	handler, fake, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/tasks/never-existed", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if fake.DeleteTaskCalls != 1 {
		t.Fatalf("expected 1 delete request, got %d", fake.DeleteTaskCalls)
	}
}

func TestAPIGetUnknownTask(t *testing.T) {
	handler, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks/never-existed", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
