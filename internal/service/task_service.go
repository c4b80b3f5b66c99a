package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"choreboard/internal/authz"
	"choreboard/internal/models"
	"choreboard/internal/repository"
	"choreboard/internal/validation"
)

var (
	// ErrInvalidTransition is returned for a status change the actor's
	// role does not permit from the task's current state.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrProofRequired is returned when submitting a proof-required
	// task without a proof URL.
	ErrProofRequired = errors.New("proof is required for this task")
)

// TaskInput carries the writable task fields.
type TaskInput struct {
	Title         string
	Description   string
	Points        int
	AssignedTo    *string
	RequiresProof bool
	DueDate       *time.Time
}

// TaskService manages the chore lifecycle.
type TaskService struct {
	tasks    *repository.TaskRepository
	children *repository.ChildRepository
}

// NewTaskService creates a new task service
func NewTaskService(tasks *repository.TaskRepository, children *repository.ChildRepository) *TaskService {
	return &TaskService{tasks: tasks, children: children}
}

func (s *TaskService) validateInput(ctx context.Context, parentID string, in TaskInput) error {
	if err := validation.ValidateName(strings.TrimSpace(in.Title)); err != nil {
		return err
	}
	if err := validation.ValidatePoints(in.Points); err != nil {
		return err
	}
	if in.AssignedTo != nil {
		child, err := s.children.ChildByID(ctx, *in.AssignedTo)
		if err != nil {
			return err
		}
		if child == nil || child.ParentID != parentID {
			return authz.ErrNotAuthorized
		}
	}
	return nil
}

// Create creates a task owned by the signed-in parent.
func (s *TaskService) Create(ctx context.Context, ident authz.Identity, in TaskInput) (*models.Task, error) {
	parent, err := authz.RequireParent(ident)
	if err != nil {
		return nil, err
	}
	if err := s.validateInput(ctx, parent.AccountID, in); err != nil {
		return nil, err
	}

	task := &models.Task{
		ParentID:      parent.AccountID,
		AssignedTo:    in.AssignedTo,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Points:        in.Points,
		Status:        models.TaskIdle,
		RequiresProof: in.RequiresProof,
		DueDate:       in.DueDate,
	}
	return s.tasks.CreateTask(ctx, task)
}

// Tasks lists the tasks visible to the actor: all of a parent's tasks,
// or the tasks assigned to the child.
func (s *TaskService) Tasks(ctx context.Context, ident authz.Identity) ([]models.Task, error) {
	switch ident.Role() {
	case authz.RoleParent:
		parent, _ := ident.Parent()
		return s.tasks.TasksByParent(ctx, parent.AccountID)
	case authz.RoleChild:
		child, _ := ident.Child()
		return s.tasks.TasksByAssignee(ctx, child.ID)
	default:
		return nil, authz.ErrNotAuthorized
	}
}

func (s *TaskService) load(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := s.tasks.TaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, repository.ErrTaskNotFound
	}
	return task, nil
}

// Update rewrites a task's fields. Owning parent only.
func (s *TaskService) Update(ctx context.Context, ident authz.Identity, taskID string, in TaskInput) (*models.Task, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckTaskWrite(ident, task, authz.TaskWriteAll); err != nil {
		return nil, err
	}
	if err := s.validateInput(ctx, task.ParentID, in); err != nil {
		return nil, err
	}

	task.Title = strings.TrimSpace(in.Title)
	task.Description = in.Description
	task.Points = in.Points
	task.AssignedTo = in.AssignedTo
	task.RequiresProof = in.RequiresProof
	task.DueDate = in.DueDate
	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Start moves an idle task to ongoing. Assigned child or owning parent.
func (s *TaskService) Start(ctx context.Context, ident authz.Identity, taskID string) (*models.Task, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckTaskWrite(ident, task, authz.TaskWriteStatus); err != nil {
		return nil, err
	}
	if task.Status != models.TaskIdle {
		return nil, ErrInvalidTransition
	}
	if err := s.tasks.SetStatus(ctx, task, models.TaskOngoing, nil); err != nil {
		return nil, err
	}
	return task, nil
}

// Submit moves a task to pending approval, recording proof when given.
// Assigned child or owning parent; a proof-required task cannot be
// submitted without one.
func (s *TaskService) Submit(ctx context.Context, ident authz.Identity, taskID string, proofURL *string) (*models.Task, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckTaskWrite(ident, task, authz.TaskWriteStatus); err != nil {
		return nil, err
	}
	if task.Status != models.TaskIdle && task.Status != models.TaskOngoing {
		return nil, ErrInvalidTransition
	}
	if task.RequiresProof && (proofURL == nil || *proofURL == "") {
		return nil, ErrProofRequired
	}
	if err := s.tasks.SetStatus(ctx, task, models.TaskPendingApproval, proofURL); err != nil {
		return nil, err
	}
	return task, nil
}

// Approve accepts a pending submission and credits the assigned child.
// Owning parent only.
func (s *TaskService) Approve(ctx context.Context, ident authz.Identity, taskID string) (*models.Task, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckTaskWrite(ident, task, authz.TaskWriteAll); err != nil {
		return nil, err
	}
	if !task.AwaitingApproval() {
		return nil, ErrInvalidTransition
	}
	if err := s.tasks.ApproveTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Reject returns a pending submission to ongoing without crediting.
// Owning parent only.
func (s *TaskService) Reject(ctx context.Context, ident authz.Identity, taskID string) (*models.Task, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckTaskWrite(ident, task, authz.TaskWriteAll); err != nil {
		return nil, err
	}
	if !task.AwaitingApproval() {
		return nil, ErrInvalidTransition
	}
	if err := s.tasks.SetStatus(ctx, task, models.TaskOngoing, nil); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task. Owning parent only.
func (s *TaskService) Delete(ctx context.Context, ident authz.Identity, taskID string) error {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return err
	}
	if err := authz.CheckTaskDelete(ident, task); err != nil {
		return err
	}
	return s.tasks.DeleteTask(ctx, task)
}
