package models

import "time"

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskIdle            TaskStatus = "idle"
	TaskOngoing         TaskStatus = "ongoing"
	TaskPendingApproval TaskStatus = "pending_approval"
	TaskCompleted       TaskStatus = "completed"
	TaskApproved        TaskStatus = "approved"
)

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskIdle, TaskOngoing, TaskPendingApproval, TaskCompleted, TaskApproved:
		return true
	}
	return false
}

// Task is a chore created by a parent, optionally assigned to a child.
// AssignedTo is a weak reference: consumers treat a dangling id as
// unassigned.
type Task struct {
	ID            string     `json:"id"`
	ParentID      string     `json:"parent_id"`
	AssignedTo    *string    `json:"assigned_to,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Points        int        `json:"points"`
	Status        TaskStatus `json:"status"`
	RequiresProof bool       `json:"requires_proof"`
	ProofURL      *string    `json:"proof_url,omitempty"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsAssignedTo reports whether the task is assigned to the given child.
func (t *Task) IsAssignedTo(childID string) bool {
	return t.AssignedTo != nil && *t.AssignedTo == childID
}

// AwaitingApproval reports whether the task has a submission pending
// parent review.
func (t *Task) AwaitingApproval() bool {
	return t.Status == TaskPendingApproval
}
