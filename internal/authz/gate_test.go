package authz

import (
	"errors"
	"testing"

	"choreboard/internal/models"
)

func strPtr(s string) *string { return &s }

func TestRequireParent(t *testing.T) {
	parent := &models.ParentProfile{AccountID: "p1"}
	child := &models.ChildProfile{ID: "c1", ParentID: "p1"}

	tests := []struct {
		name    string
		id      Identity
		wantErr bool
	}{
		{"parent identity", AsParent(parent), false},
		{"child identity", AsChild(child), true},
		{"no identity", None(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RequireParent(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RequireParent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != parent {
				t.Error("RequireParent() returned wrong profile")
			}
		})
	}
}

func TestRequireChild(t *testing.T) {
	child := &models.ChildProfile{ID: "c1", ParentID: "p1"}

	tests := []struct {
		name    string
		id      Identity
		wantErr bool
	}{
		{"child identity", AsChild(child), false},
		{"parent identity", AsParent(&models.ParentProfile{AccountID: "p1"}), true},
		{"no identity", None(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RequireChild(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RequireChild() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != child {
				t.Error("RequireChild() returned wrong profile")
			}
		})
	}
}

func TestCheckChildOwnership(t *testing.T) {
	child := &models.ChildProfile{ID: "c1", ParentID: "p1"}

	tests := []struct {
		name    string
		id      Identity
		wantErr bool
	}{
		{"owning parent", AsParent(&models.ParentProfile{AccountID: "p1"}), false},
		{"other parent", AsParent(&models.ParentProfile{AccountID: "p2"}), true},
		{"the child itself", AsChild(child), true},
		{"no identity", None(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckChildOwnership(tt.id, child)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckChildOwnership() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckTaskWrite(t *testing.T) {
	task := &models.Task{ID: "t1", ParentID: "p1", AssignedTo: strPtr("c1")}
	unassigned := &models.Task{ID: "t2", ParentID: "p1"}

	owner := AsParent(&models.ParentProfile{AccountID: "p1"})
	stranger := AsParent(&models.ParentProfile{AccountID: "p2"})
	assignee := AsChild(&models.ChildProfile{ID: "c1", ParentID: "p1"})
	sibling := AsChild(&models.ChildProfile{ID: "c2", ParentID: "p1"})

	tests := []struct {
		name    string
		id      Identity
		task    *models.Task
		scope   TaskWriteScope
		wantErr bool
	}{
		{"owner full write", owner, task, TaskWriteAll, false},
		{"owner status write", owner, task, TaskWriteStatus, false},
		{"other parent full write", stranger, task, TaskWriteAll, true},
		{"other parent status write", stranger, task, TaskWriteStatus, true},
		{"assignee status write", assignee, task, TaskWriteStatus, false},
		{"assignee full write denied", assignee, task, TaskWriteAll, true},
		{"sibling status write denied", sibling, task, TaskWriteStatus, true},
		{"child on unassigned task", assignee, unassigned, TaskWriteStatus, true},
		{"no identity", None(), task, TaskWriteStatus, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTaskWrite(tt.id, tt.task, tt.scope)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckTaskWrite() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrNotAuthorized) {
				t.Errorf("error = %v, want ErrNotAuthorized", err)
			}
		})
	}
}

func TestCheckTaskDelete(t *testing.T) {
	task := &models.Task{ID: "t1", ParentID: "p1", AssignedTo: strPtr("c1")}

	tests := []struct {
		name    string
		id      Identity
		wantErr bool
	}{
		{"owning parent", AsParent(&models.ParentProfile{AccountID: "p1"}), false},
		{"other parent", AsParent(&models.ParentProfile{AccountID: "p2"}), true},
		{"assigned child", AsChild(&models.ChildProfile{ID: "c1", ParentID: "p1"}), true},
		{"no identity", None(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTaskDelete(tt.id, task)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckTaskDelete() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckRewardWrite(t *testing.T) {
	reward := &models.Reward{ID: "r1", ParentID: "p1", IsActive: true}

	tests := []struct {
		name    string
		id      Identity
		wantErr bool
	}{
		{"owning parent", AsParent(&models.ParentProfile{AccountID: "p1"}), false},
		{"other parent", AsParent(&models.ParentProfile{AccountID: "p2"}), true},
		{"family child", AsChild(&models.ChildProfile{ID: "c1", ParentID: "p1"}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRewardWrite(tt.id, reward)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckRewardWrite() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckRewardRedeem(t *testing.T) {
	active := &models.Reward{ID: "r1", ParentID: "p1", IsActive: true}
	inactive := &models.Reward{ID: "r2", ParentID: "p1", IsActive: false}
	familyChild := &models.ChildProfile{ID: "c1", ParentID: "p1", Points: 50}

	tests := []struct {
		name    string
		id      Identity
		reward  *models.Reward
		wantErr bool
	}{
		{"family child active reward", AsChild(familyChild), active, false},
		{"family child inactive reward", AsChild(familyChild), inactive, true},
		{"other family child", AsChild(&models.ChildProfile{ID: "c9", ParentID: "p2"}), active, true},
		{"owning parent cannot redeem", AsParent(&models.ParentProfile{AccountID: "p1"}), active, true},
		{"no identity", None(), active, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckRewardRedeem(tt.id, tt.reward)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckRewardRedeem() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != familyChild {
				t.Error("CheckRewardRedeem() returned wrong child profile")
			}
		})
	}
}

func TestIdentityAccessors(t *testing.T) {
	parent := &models.ParentProfile{AccountID: "p1"}
	child := &models.ChildProfile{ID: "c1", ParentID: "p1"}

	t.Run("none", func(t *testing.T) {
		id := None()
		if !id.IsNone() {
			t.Error("IsNone() = false")
		}
		if id.Role() != RoleNone {
			t.Errorf("Role() = %v, want RoleNone", id.Role())
		}
		if id.OwnerParentID() != "" {
			t.Errorf("OwnerParentID() = %q, want empty", id.OwnerParentID())
		}
	})

	t.Run("parent", func(t *testing.T) {
		id := AsParent(parent)
		if id.Role() != RoleParent {
			t.Errorf("Role() = %v, want RoleParent", id.Role())
		}
		if got := id.OwnerParentID(); got != "p1" {
			t.Errorf("OwnerParentID() = %q, want p1", got)
		}
		if _, ok := id.Child(); ok {
			t.Error("Child() reported ok for a parent identity")
		}
	})

	t.Run("child", func(t *testing.T) {
		id := AsChild(child)
		if id.Role() != RoleChild {
			t.Errorf("Role() = %v, want RoleChild", id.Role())
		}
		if got := id.OwnerParentID(); got != "p1" {
			t.Errorf("OwnerParentID() = %q, want owning parent p1", got)
		}
		if _, ok := id.Parent(); ok {
			t.Error("Parent() reported ok for a child identity")
		}
	})
}
