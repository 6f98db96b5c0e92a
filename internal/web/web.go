package web

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/gateway"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/model"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/syncer"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.tmpl"))

// Server exposes the synced task snapshot over HTTP. Reads come from
// the synchronizer's in-memory snapshot, never from the remote store;
// writes go through the gateway like every other surface.
type Server struct {
	syncer  *syncer.Syncer
	gateway *gateway.Gateway
}

type taskPayload struct {
	Text    string `json:"text"`
	DueDate string `json:"dueDate"`
}

func NewServer(sync *syncer.Syncer, gw *gateway.Gateway) *Server {
	return &Server{syncer: sync, gateway: gw}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.indexHandler)
	mux.HandleFunc("/api/tasks", s.apiTasksHandler)
	mux.HandleFunc("/api/tasks/", s.apiTaskHandler)
	return mux
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	tasks := s.syncer.Tasks()
	done := 0
	for _, task := range tasks {
		if task.Completed {
			done++
		}
	}

	data := struct {
		Loading bool
		Total   int
		Done    int
		Tasks   []model.Task
	}{Loading: s.syncer.Loading(), Total: len(tasks), Done: done, Tasks: tasks}

	if err := indexTemplate.Execute(w, data); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
}

func (s *Server) apiTasksHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.syncer.Tasks())
	case http.MethodPost:
		s.createTask(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) apiTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, action, err := parseTaskPath(r.URL.Path)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	switch {
	case action == "toggle" && r.Method == http.MethodPost:
		s.toggleTask(w, r, id)
	case action == "" && r.Method == http.MethodGet:
		s.getTask(w, id)
	case action == "" && r.Method == http.MethodPut:
		s.editTask(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		s.deleteTask(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var payload taskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	dueDate, err := parseDueDate(payload.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.gateway.Create(r.Context(), payload.Text, dueDate); err != nil {
		writeGatewayError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) getTask(w http.ResponseWriter, id string) {
	for _, task := range s.syncer.Tasks() {
		if task.ID == id {
			writeJSON(w, task)
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Errorf("task %s not found", id))
}

func (s *Server) editTask(w http.ResponseWriter, r *http.Request, id string) {
	var payload taskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	dueDate, err := parseDueDate(payload.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.gateway.Edit(r.Context(), id, payload.Text, dueDate); err != nil {
		writeGatewayError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) toggleTask(w http.ResponseWriter, r *http.Request, id string) {
	for _, task := range s.syncer.Tasks() {
		if task.ID == id {
			if err := s.gateway.Toggle(r.Context(), task); err != nil {
				writeGatewayError(w, err)
				return
			}
			w.WriteHeader(http.StatusAccepted)
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Errorf("task %s not found", id))
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.gateway.Delete(r.Context(), id); err != nil {
		writeGatewayError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func parseTaskPath(path string) (id, action string, err error) {
	value := strings.TrimPrefix(path, "/api/tasks/")
	value = strings.Trim(value, "/")
	if value == "" {
		return "", "", fmt.Errorf("missing id")
	}
	parts := strings.SplitN(value, "/", 2)
	id = parts[0]
	if len(parts) == 2 {
		action = parts[1]
	}
	return id, action, nil
}

func parseDueDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q", value)
	}
	return &parsed, nil
}

func writeGatewayError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gateway.ErrEmptyText):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, gateway.ErrNoIdentity):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusBadGateway, err)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(err.Error()))
}
