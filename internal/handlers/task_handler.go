package handlers

import (
	"net/http"
	"time"

	"choreboard/internal/metrics"
	"choreboard/internal/service"
)

// TaskHandler serves the task lifecycle for both roles.
type TaskHandler struct {
	tasks *service.TaskService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type taskRequest struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Points        int        `json:"points"`
	AssignedTo    *string    `json:"assigned_to"`
	RequiresProof bool       `json:"requires_proof"`
	DueDate       *time.Time `json:"due_date"`
}

func (req taskRequest) input() service.TaskInput {
	return service.TaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Points:        req.Points,
		AssignedTo:    req.AssignedTo,
		RequiresProof: req.RequiresProof,
		DueDate:       req.DueDate,
	}
}

// List returns the tasks visible to the actor.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.Tasks(r.Context(), identityFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// Create creates a task.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.tasks.Create(r.Context(), identityFrom(r), req.input())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// Update rewrites a task's fields.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.tasks.Update(r.Context(), identityFrom(r), r.PathValue("id"), req.input())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Start moves an idle task to ongoing.
func (h *TaskHandler) Start(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Start(r.Context(), identityFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Submit marks a task done and pending approval.
func (h *TaskHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProofURL *string `json:"proof_url"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.tasks.Submit(r.Context(), identityFrom(r), r.PathValue("id"), req.ProofURL)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Approve accepts a pending submission and credits the child.
func (h *TaskHandler) Approve(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Approve(r.Context(), identityFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	metrics.TasksApproved.Inc()
	writeJSON(w, http.StatusOK, task)
}

// Reject returns a pending submission to ongoing.
func (h *TaskHandler) Reject(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Reject(r.Context(), identityFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete removes a task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.tasks.Delete(r.Context(), identityFrom(r), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
