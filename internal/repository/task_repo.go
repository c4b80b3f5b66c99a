package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"choreboard/internal/database"
	"choreboard/internal/models"
	"choreboard/internal/notify"
)

// ErrTaskNotFound is returned for operations on a missing task.
var ErrTaskNotFound = errors.New("task not found")

// TaskRepository handles database operations for tasks.
type TaskRepository struct {
	db  *database.DB
	hub *notify.Hub
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.DB, hub *notify.Hub) *TaskRepository {
	return &TaskRepository{db: db, hub: hub}
}

const taskColumns = `id, parent_id, assigned_to, title, description, points, status,
	requires_proof, proof_url, submitted_at, due_date, created_at, updated_at`

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var assignedTo, proofURL sql.NullString
	var submittedAt, dueDate sql.NullTime
	var requiresProof bool

	err := row.Scan(
		&task.ID,
		&task.ParentID,
		&assignedTo,
		&task.Title,
		&task.Description,
		&task.Points,
		&task.Status,
		&requiresProof,
		&proofURL,
		&submittedAt,
		&dueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.RequiresProof = requiresProof
	if assignedTo.Valid {
		task.AssignedTo = &assignedTo.String
	}
	if proofURL.Valid {
		task.ProofURL = &proofURL.String
	}
	if submittedAt.Valid {
		task.SubmittedAt = &submittedAt.Time
	}
	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}
	return task, nil
}

// CreateTask creates a task for a parent, optionally assigned.
func (r *TaskRepository) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	task.ID = uuid.New().String()
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = models.TaskIdle
	}

	query := `
		INSERT INTO tasks (id, parent_id, assigned_to, title, description, points, status,
			requires_proof, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.ParentID, task.AssignedTo, task.Title, task.Description,
		task.Points, task.Status, task.RequiresProof, task.DueDate, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	r.hub.Publish(notify.Event{Collection: notify.CollectionTasks, Op: notify.OpCreated, ID: task.ID, ParentID: task.ParentID})
	return task, nil
}

// TaskByID retrieves a task by ID, or nil when absent.
func (r *TaskRepository) TaskByID(ctx context.Context, id string) (*models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE id = ?"
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// TasksByParent retrieves all tasks owned by a parent.
func (r *TaskRepository) TasksByParent(ctx context.Context, parentID string) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE parent_id = ? ORDER BY created_at DESC"
	return r.queryTasks(ctx, query, parentID)
}

// TasksByAssignee retrieves all tasks assigned to a child.
func (r *TaskRepository) TasksByAssignee(ctx context.Context, childID string) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE assigned_to = ? ORDER BY created_at DESC"
	return r.queryTasks(ctx, query, childID)
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// UpdateTask rewrites a task's mutable fields.
func (r *TaskRepository) UpdateTask(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET assigned_to = ?, title = ?, description = ?, points = ?, status = ?,
		    requires_proof = ?, proof_url = ?, submitted_at = ?, due_date = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		task.AssignedTo, task.Title, task.Description, task.Points, task.Status,
		task.RequiresProof, task.ProofURL, task.SubmittedAt, task.DueDate,
		time.Now().UTC(), task.ID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if rows == 0 {
		return ErrTaskNotFound
	}
	r.hub.Publish(notify.Event{Collection: notify.CollectionTasks, Op: notify.OpUpdated, ID: task.ID, ParentID: task.ParentID})
	return nil
}

// SetStatus performs a status-only update, recording proof and
// submission time when the new status is pending approval.
func (r *TaskRepository) SetStatus(ctx context.Context, task *models.Task, status models.TaskStatus, proofURL *string) error {
	now := time.Now().UTC()
	var submittedAt *time.Time
	if status == models.TaskPendingApproval {
		submittedAt = &now
	}

	query := `UPDATE tasks SET status = ?, proof_url = ?, submitted_at = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, status, proofURL, submittedAt, now, task.ID)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	if rows == 0 {
		return ErrTaskNotFound
	}

	task.Status = status
	task.ProofURL = proofURL
	task.SubmittedAt = submittedAt
	task.UpdatedAt = now

	op := notify.OpUpdated
	if status == models.TaskPendingApproval {
		op = notify.OpSubmitted
	}
	r.hub.Publish(notify.Event{Collection: notify.CollectionTasks, Op: op, ID: task.ID, ParentID: task.ParentID})
	return nil
}

// ApproveTask marks a pending task approved and credits its points to
// the assigned child in the same transaction. A dangling assignee is
// tolerated: the task is approved and no profile is credited.
func (r *TaskRepository) ApproveTask(ctx context.Context, task *models.Task) error {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		"UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		models.TaskApproved, now, task.ID, models.TaskPendingApproval)
	if err != nil {
		return fmt.Errorf("failed to approve task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to approve task: %w", err)
	}
	if rows == 0 {
		return ErrTaskNotFound
	}

	credited := false
	if task.AssignedTo != nil {
		res, err := tx.ExecContext(ctx, `
			UPDATE child_profiles
			SET points = points + ?, completed_tasks = completed_tasks + 1, updated_at = ?
			WHERE id = ?
		`, task.Points, now, *task.AssignedTo)
		if err != nil {
			return fmt.Errorf("failed to credit points: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to credit points: %w", err)
		}
		credited = n > 0
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit approval: %w", err)
	}

	task.Status = models.TaskApproved
	task.UpdatedAt = now

	r.hub.Publish(notify.Event{Collection: notify.CollectionTasks, Op: notify.OpApproved, ID: task.ID, ParentID: task.ParentID})
	if credited {
		r.hub.Publish(notify.Event{Collection: notify.CollectionChildren, Op: notify.OpUpdated, ID: *task.AssignedTo, ParentID: task.ParentID})
	}
	return nil
}

// DeleteTask deletes a task.
func (r *TaskRepository) DeleteTask(ctx context.Context, task *models.Task) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", task.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	r.hub.Publish(notify.Event{Collection: notify.CollectionTasks, Op: notify.OpDeleted, ID: task.ID, ParentID: task.ParentID})
	return nil
}
