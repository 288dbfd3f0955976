package schedule

import (
	"math/rand"
	"testing"

	"github.com/ewhitfield/tend/internal/model"
)

func TestRotateAdvancesPointer(t *testing.T) {
	task := model.Task{
		ID:            "t1",
		Rotation:      model.RotationRotate,
		RotationOrder: []string{"alice", "bob", "carol"},
		AssignedTo:    "alice",
	}

	rot := NewRotator(rand.NewSource(1))

	task = rot.Advance(task, nil)
	if task.AssignedTo != "bob" || task.Progress.RotationIndex != 1 {
		t.Errorf("after 1 advance: assignee = %q idx = %d, want bob/1", task.AssignedTo, task.Progress.RotationIndex)
	}

	task = rot.Advance(task, nil)
	task = rot.Advance(task, nil)
	if task.AssignedTo != "alice" || task.Progress.RotationIndex != 0 {
		t.Errorf("after wrap: assignee = %q idx = %d, want alice/0", task.AssignedTo, task.Progress.RotationIndex)
	}
}

func TestRotateEmptyOrderIsNoop(t *testing.T) {
	task := model.Task{ID: "t1", Rotation: model.RotationRotate, AssignedTo: "alice"}

	got := NewRotator(rand.NewSource(1)).Advance(task, nil)
	if got.AssignedTo != "alice" || got.Progress.RotationIndex != 0 {
		t.Errorf("empty order changed task: %+v", got)
	}
}

func TestRotationNoneUnchanged(t *testing.T) {
	task := model.Task{ID: "t1", Rotation: model.RotationNone, AssignedTo: "bob"}

	got := NewRotator(rand.NewSource(1)).Advance(task, []string{"alice", "carol"})
	if got.AssignedTo != "bob" {
		t.Errorf("assignee = %q, want bob unchanged", got.AssignedTo)
	}
}

func TestAnyonePicksFromMembers(t *testing.T) {
	task := model.Task{ID: "t1", Rotation: model.RotationAnyone}
	members := []string{"alice", "bob", "carol"}

	// Seeded source makes the pick deterministic and repeatable.
	first := NewRotator(rand.NewSource(42)).Advance(task, members)
	second := NewRotator(rand.NewSource(42)).Advance(task, members)

	if first.AssignedTo == "" {
		t.Fatal("expected an assignee to be picked")
	}
	if first.AssignedTo != second.AssignedTo {
		t.Errorf("same seed picked %q then %q", first.AssignedTo, second.AssignedTo)
	}

	found := false
	for _, m := range members {
		if first.AssignedTo == m {
			found = true
		}
	}
	if !found {
		t.Errorf("assignee %q not in member pool %v", first.AssignedTo, members)
	}
}

func TestAnyoneNoMembersIsNoop(t *testing.T) {
	task := model.Task{ID: "t1", Rotation: model.RotationAnyone, AssignedTo: "bob"}

	got := NewRotator(rand.NewSource(1)).Advance(task, nil)
	if got.AssignedTo != "bob" {
		t.Errorf("assignee = %q, want bob unchanged with no members", got.AssignedTo)
	}
}

func TestAnyoneDistributionCoversPool(t *testing.T) {
	task := model.Task{ID: "t1", Rotation: model.RotationAnyone}
	members := []string{"alice", "bob"}
	rot := NewRotator(rand.NewSource(7))

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		got := rot.Advance(task, members)
		seen[got.AssignedTo] = true
	}
	if !seen["alice"] || !seen["bob"] {
		t.Errorf("50 picks covered %v, want both members", seen)
	}
}
