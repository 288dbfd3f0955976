package schedule

import (
	"log/slog"
	"math/rand"

	"github.com/ewhitfield/tend/internal/model"
)

// Rotator advances a task's assignee after a completed cycle. The random
// source is injected so "anyone" picks are reproducible in tests.
type Rotator struct {
	rand *rand.Rand
}

// NewRotator creates a Rotator drawing from the given source.
func NewRotator(src rand.Source) *Rotator {
	return &Rotator{rand: rand.New(src)}
}

// Advance applies the task's rotation mode and returns the updated task.
// members is the set of household member ids eligible for "anyone" picks.
func (r *Rotator) Advance(t model.Task, members []string) model.Task {
	switch t.Rotation {
	case model.RotationRotate:
		if len(t.RotationOrder) == 0 {
			slog.Warn("rotation enabled with empty rotation order", "task_id", t.ID)
			return t
		}
		t.Progress.RotationIndex = (t.Progress.RotationIndex + 1) % len(t.RotationOrder)
		t.AssignedTo = t.RotationOrder[t.Progress.RotationIndex]

	case model.RotationAnyone:
		if len(members) > 0 {
			t.AssignedTo = members[r.rand.Intn(len(members))]
		}
	}

	return t
}
