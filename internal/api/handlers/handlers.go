// Package handlers implements the HTTP handlers for the inboxpilot server.
// All handlers go through the Agent interface so tests can run against a
// stub orchestrator.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/inboxpilot/inboxpilot/pkg/models"
)

// Agent is the orchestrator surface the API depends on.
type Agent interface {
	ExecuteTask(ctx context.Context, goal string, maxSteps int) models.TaskResult
	ListAvailableTools() map[string]string
	TaskHistory(ctx context.Context) ([]models.TaskRecord, error)
	GetTask(ctx context.Context, id int) (*models.TaskRecord, error)
	ResetHistory(ctx context.Context) error
	ExportHistory(ctx context.Context, path string) error
	Status(ctx context.Context) (*models.AgentStatus, error)
}

// Handlers holds all handler dependencies.
type Handlers struct {
	Agent Agent
}

// New creates a Handlers instance over the given orchestrator.
func New(agent Agent) *Handlers {
	return &Handlers{Agent: agent}
}

// ── Task Handlers ────────────────────────────────────────────

type executeTaskRequest struct {
	Goal     string `json:"goal"`
	MaxSteps int    `json:"max_steps"`
}

// ExecuteTask runs one goal synchronously and returns the task envelope.
// The envelope itself reports task failure; HTTP errors are reserved for
// malformed requests.
func (h *Handlers) ExecuteTask(w http.ResponseWriter, r *http.Request) {
	var req executeTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Goal == "" {
		respondError(w, http.StatusBadRequest, "goal is required")
		return
	}

	result := h.Agent.ExecuteTask(r.Context(), req.Goal, req.MaxSteps)
	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	records, err := h.Agent.TaskHistory(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []models.TaskRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "taskId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "task id must be an integer")
		return
	}
	record, err := h.Agent.GetTask(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, record)
}

func (h *Handlers) ResetTasks(w http.ResponseWriter, r *http.Request) {
	if err := h.Agent.ResetHistory(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Info().Msg("Task history reset via API")
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

type exportTasksRequest struct {
	Path string `json:"path"`
}

func (h *Handlers) ExportTasks(w http.ResponseWriter, r *http.Request) {
	var req exportTasksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Path == "" {
		req.Path = "task_history.json"
	}
	if err := h.Agent.ExportHistory(r.Context(), req.Path); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "exported", "path": req.Path})
}

// ── Tool Handlers ────────────────────────────────────────────

func (h *Handlers) ListTools(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"tools": h.Agent.ListAvailableTools(),
	})
}

// ── Status Handlers ──────────────────────────────────────────

func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Agent.Status(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// ── Helpers ──────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
