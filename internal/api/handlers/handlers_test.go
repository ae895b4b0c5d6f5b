package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/inboxpilot/inboxpilot/internal/api"
	"github.com/inboxpilot/inboxpilot/internal/api/handlers"
	"github.com/inboxpilot/inboxpilot/internal/config"
	"github.com/inboxpilot/inboxpilot/pkg/models"
)

// stubAgent implements handlers.Agent with canned data.
type stubAgent struct {
	lastGoal     string
	lastMaxSteps int
	records      []models.TaskRecord
	resetCalls   int
}

func (s *stubAgent) ExecuteTask(_ context.Context, goal string, maxSteps int) models.TaskResult {
	s.lastGoal = goal
	s.lastMaxSteps = maxSteps
	return models.TaskResult{
		OK:             true,
		Goal:           goal,
		Result:         map[string]any{"count": 226},
		StepsExecuted:  1,
		SuggestedTools: []string{},
		TaskID:         7,
	}
}

func (s *stubAgent) ListAvailableTools() map[string]string {
	return map[string]string{"query_gmail": "Search and count email"}
}

func (s *stubAgent) TaskHistory(context.Context) ([]models.TaskRecord, error) {
	return s.records, nil
}

func (s *stubAgent) GetTask(_ context.Context, id int) (*models.TaskRecord, error) {
	for i := range s.records {
		if s.records[i].ID == id {
			return &s.records[i], nil
		}
	}
	return nil, fmt.Errorf("task %d not found", id)
}

func (s *stubAgent) ResetHistory(context.Context) error {
	s.resetCalls++
	s.records = nil
	return nil
}

func (s *stubAgent) ExportHistory(context.Context, string) error { return nil }

func (s *stubAgent) Status(context.Context) (*models.AgentStatus, error) {
	return &models.AgentStatus{Status: "active", TotalTasks: len(s.records)}, nil
}

func newTestServer(agent *stubAgent) http.Handler {
	cfg := &config.Config{Version: "test"}
	return api.NewRouter(cfg, handlers.New(agent))
}

func TestExecuteTask_ReturnsEnvelope(t *testing.T) {
	agent := &stubAgent{}
	srv := newTestServer(agent)

	body := strings.NewReader(`{"goal": "How many unread emails do I have?", "max_steps": 3}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", body)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	if agent.lastGoal != "How many unread emails do I have?" {
		t.Errorf("goal passed = %q", agent.lastGoal)
	}
	if agent.lastMaxSteps != 3 {
		t.Errorf("max_steps passed = %d, want 3", agent.lastMaxSteps)
	}

	var envelope map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	for _, key := range []string{"ok", "goal", "result", "steps_executed", "suggested_tools", "task_id"} {
		if _, present := envelope[key]; !present {
			t.Errorf("envelope missing key %q", key)
		}
	}
	if envelope["ok"] != true {
		t.Errorf("ok = %v, want true", envelope["ok"])
	}
	if envelope["task_id"] != float64(7) {
		t.Errorf("task_id = %v, want 7", envelope["task_id"])
	}
}

func TestExecuteTask_MissingGoal(t *testing.T) {
	srv := newTestServer(&stubAgent{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestExecuteTask_InvalidBody(t *testing.T) {
	srv := newTestServer(&stubAgent{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", strings.NewReader(`{broken`))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListTasks(t *testing.T) {
	agent := &stubAgent{records: []models.TaskRecord{
		{ID: 0, Goal: "first"},
		{ID: 1, Goal: "second"},
	}}
	srv := newTestServer(agent)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var records []models.TaskRecord
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("len(records) = %d, want 2", len(records))
	}
}

func TestGetTask(t *testing.T) {
	agent := &stubAgent{records: []models.TaskRecord{{ID: 4, Goal: "fetch me"}}}
	srv := newTestServer(agent)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/4", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks/99", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing task: status = %d, want 404", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks/not-a-number", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id: status = %d, want 400", w.Code)
	}
}

func TestResetTasks(t *testing.T) {
	agent := &stubAgent{records: []models.TaskRecord{{ID: 0}}}
	srv := newTestServer(agent)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/tasks", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if agent.resetCalls != 1 {
		t.Errorf("resetCalls = %d, want 1", agent.resetCalls)
	}
}

func TestListTools(t *testing.T) {
	srv := newTestServer(&stubAgent{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Tools map[string]string `json:"tools"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := resp.Tools["query_gmail"]; !ok {
		t.Errorf("tools = %v, want query_gmail present", resp.Tools)
	}
}

func TestStatusAndHealth(t *testing.T) {
	srv := newTestServer(&stubAgent{})

	for _, path := range []string{"/api/v1/status", "/health", "/version"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: status = %d, want 200", path, w.Code)
		}
	}
}
