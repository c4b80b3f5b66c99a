package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"choreboard/internal/authz"
	"choreboard/internal/database"
	"choreboard/internal/identity"
	"choreboard/internal/models"
	"choreboard/internal/notify"
	"choreboard/internal/repository"
)

type serviceFixture struct {
	identity *identity.Service
	families *FamilyService
	tasks    *TaskService
	rewards  *RewardService
}

func setupServices(t *testing.T) *serviceFixture {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "services.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	hub := notify.NewHub()
	accounts := repository.NewAccountRepository(db)
	parents := repository.NewParentRepository(db, hub)
	children := repository.NewChildRepository(db, hub)
	tasks := repository.NewTaskRepository(db, hub)
	rewards := repository.NewRewardRepository(db, hub)

	identitySvc := identity.NewService(accounts, "test-token-secret", time.Hour)
	return &serviceFixture{
		identity: identitySvc,
		families: NewFamilyService(identitySvc, parents, children),
		tasks:    NewTaskService(tasks, children),
		rewards:  NewRewardService(rewards, children),
	}
}

// signUpFamily registers a parent and adds one child, returning both
// role identities.
func signUpFamily(t *testing.T, fx *serviceFixture, email string) (authz.Identity, authz.Identity) {
	t.Helper()
	ctx := context.Background()

	parent, _, err := fx.families.SignUp(ctx, "Parent", email, "hunter2hunter2")
	if err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	parentIdent := authz.AsParent(parent)

	child, err := fx.families.AddChild(ctx, parentIdent, "Kid", "")
	if err != nil {
		t.Fatalf("AddChild() error: %v", err)
	}
	return parentIdent, authz.AsChild(child)
}

func TestTaskLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	fx := setupServices(t)
	ctx := context.Background()
	parentIdent, childIdent := signUpFamily(t, fx, "lifecycle@example.com")
	child, _ := childIdent.Child()

	task, err := fx.tasks.Create(ctx, parentIdent, TaskInput{
		Title:      "Feed the cat",
		Points:     10,
		AssignedTo: &child.ID,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if task.Status != models.TaskIdle {
		t.Errorf("status = %v, want idle", task.Status)
	}

	t.Run("child starts and submits", func(t *testing.T) {
		if _, err := fx.tasks.Start(ctx, childIdent, task.ID); err != nil {
			t.Fatalf("Start() error: %v", err)
		}
		if _, err := fx.tasks.Start(ctx, childIdent, task.ID); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("second Start() err = %v, want ErrInvalidTransition", err)
		}
		if _, err := fx.tasks.Submit(ctx, childIdent, task.ID, nil); err != nil {
			t.Fatalf("Submit() error: %v", err)
		}
	})

	t.Run("child cannot approve", func(t *testing.T) {
		if _, err := fx.tasks.Approve(ctx, childIdent, task.ID); !errors.Is(err, authz.ErrNotAuthorized) {
			t.Errorf("err = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("parent rejects then approves a resubmission", func(t *testing.T) {
		if _, err := fx.tasks.Reject(ctx, parentIdent, task.ID); err != nil {
			t.Fatalf("Reject() error: %v", err)
		}
		got, err := fx.tasks.Tasks(ctx, childIdent)
		if err != nil {
			t.Fatalf("Tasks() error: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("tasks = %d, want 1", len(got))
		}
		if got[0].Status != models.TaskOngoing {
			t.Fatalf("status after reject = %v, want ongoing", got[0].Status)
		}

		if _, err := fx.tasks.Submit(ctx, childIdent, task.ID, nil); err != nil {
			t.Fatalf("Submit() error: %v", err)
		}
		if _, err := fx.tasks.Approve(ctx, parentIdent, task.ID); err != nil {
			t.Fatalf("Approve() error: %v", err)
		}

		updated, err := fx.families.Child(ctx, parentIdent, child.ID)
		if err != nil {
			t.Fatalf("Child() error: %v", err)
		}
		if updated.Points != 10 {
			t.Errorf("points = %d, want 10", updated.Points)
		}
	})

	t.Run("approved task accepts no further transitions", func(t *testing.T) {
		if _, err := fx.tasks.Approve(ctx, parentIdent, task.ID); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
		if _, err := fx.tasks.Submit(ctx, childIdent, task.ID, nil); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
	})
}

func TestTaskProofRequirement(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	fx := setupServices(t)
	ctx := context.Background()
	parentIdent, childIdent := signUpFamily(t, fx, "proof@example.com")
	child, _ := childIdent.Child()

	task, err := fx.tasks.Create(ctx, parentIdent, TaskInput{
		Title:         "Clean your room",
		Points:        20,
		AssignedTo:    &child.ID,
		RequiresProof: true,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if _, err := fx.tasks.Submit(ctx, childIdent, task.ID, nil); !errors.Is(err, ErrProofRequired) {
		t.Errorf("Submit() without proof err = %v, want ErrProofRequired", err)
	}
	empty := ""
	if _, err := fx.tasks.Submit(ctx, childIdent, task.ID, &empty); !errors.Is(err, ErrProofRequired) {
		t.Errorf("Submit() with empty proof err = %v, want ErrProofRequired", err)
	}

	proof := "https://cdn.example.com/room.jpg"
	submitted, err := fx.tasks.Submit(ctx, childIdent, task.ID, &proof)
	if err != nil {
		t.Fatalf("Submit() with proof error: %v", err)
	}
	if submitted.ProofURL == nil || *submitted.ProofURL != proof {
		t.Error("proof url not recorded")
	}
}

func TestTaskAuthorization(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	fx := setupServices(t)
	ctx := context.Background()
	parentIdent, childIdent := signUpFamily(t, fx, "family-a@example.com")
	otherParent, otherChild := signUpFamily(t, fx, "family-b@example.com")
	child, _ := childIdent.Child()

	task, err := fx.tasks.Create(ctx, parentIdent, TaskInput{
		Title:      "Water the plants",
		Points:     5,
		AssignedTo: &child.ID,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	tests := []struct {
		name string
		call func() error
	}{
		{"other parent update", func() error {
			_, err := fx.tasks.Update(ctx, otherParent, task.ID, TaskInput{Title: "Hijacked", Points: 1})
			return err
		}},
		{"other parent delete", func() error {
			return fx.tasks.Delete(ctx, otherParent, task.ID)
		}},
		{"other family child start", func() error {
			_, err := fx.tasks.Start(ctx, otherChild, task.ID)
			return err
		}},
		{"assigned child full update", func() error {
			_, err := fx.tasks.Update(ctx, childIdent, task.ID, TaskInput{Title: "Renamed", Points: 99})
			return err
		}},
		{"assigned child delete", func() error {
			return fx.tasks.Delete(ctx, childIdent, task.ID)
		}},
		{"cross-family assignment", func() error {
			oc, _ := otherChild.Child()
			_, err := fx.tasks.Create(ctx, parentIdent, TaskInput{Title: "Sneaky", Points: 1, AssignedTo: &oc.ID})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, authz.ErrNotAuthorized) {
				t.Errorf("err = %v, want ErrNotAuthorized", err)
			}
		})
	}

	t.Run("task survives the checks intact", func(t *testing.T) {
		got, err := fx.tasks.Tasks(ctx, parentIdent)
		if err != nil {
			t.Fatalf("Tasks() error: %v", err)
		}
		if len(got) != 1 || got[0].Title != "Water the plants" {
			t.Errorf("tasks = %+v, want the original untouched", got)
		}
	})
}

func TestRewardFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	fx := setupServices(t)
	ctx := context.Background()
	parentIdent, childIdent := signUpFamily(t, fx, "rewards@example.com")
	child, _ := childIdent.Child()

	// Fund the child through an approved chore.
	task, err := fx.tasks.Create(ctx, parentIdent, TaskInput{
		Title: "Big chore", Points: 50, AssignedTo: &child.ID,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := fx.tasks.Submit(ctx, childIdent, task.ID, nil); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if _, err := fx.tasks.Approve(ctx, parentIdent, task.ID); err != nil {
		t.Fatalf("Approve() error: %v", err)
	}

	reward, err := fx.rewards.Create(ctx, parentIdent, "Ice cream", "", 30)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	t.Run("parent cannot redeem", func(t *testing.T) {
		if _, err := fx.rewards.Redeem(ctx, parentIdent, reward.ID); !errors.Is(err, authz.ErrNotAuthorized) {
			t.Errorf("err = %v, want ErrNotAuthorized", err)
		}
	})

	redemption, err := fx.rewards.Redeem(ctx, childIdent, reward.ID)
	if err != nil {
		t.Fatalf("Redeem() error: %v", err)
	}
	if redemption.PointsSpent != 30 {
		t.Errorf("points spent = %d, want 30", redemption.PointsSpent)
	}

	t.Run("child sees own redemptions", func(t *testing.T) {
		got, err := fx.rewards.Redemptions(ctx, childIdent, child.ID)
		if err != nil {
			t.Fatalf("Redemptions() error: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("redemptions = %d, want 1", len(got))
		}
	})

	t.Run("parent sees the child's redemptions", func(t *testing.T) {
		got, err := fx.rewards.Redemptions(ctx, parentIdent, child.ID)
		if err != nil {
			t.Fatalf("Redemptions() error: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("redemptions = %d, want 1", len(got))
		}
	})

	t.Run("child cannot read another family's redemptions", func(t *testing.T) {
		_, otherChild := signUpFamily(t, fx, "other@example.com")
		if _, err := fx.rewards.Redemptions(ctx, otherChild, child.ID); !errors.Is(err, authz.ErrNotAuthorized) {
			t.Errorf("err = %v, want ErrNotAuthorized", err)
		}
	})
}
