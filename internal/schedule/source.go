// Package schedule defines the task data source the sequencing core reads
// from, plus the tree traversal and date derivation shared by every consumer.
package schedule

import (
	"context"

	"github.com/jengzang/bim4d-backend-go/internal/models"
)

// Source is the read side of the open document.
type Source interface {
	// RootTasks returns the top-level tasks of a schedule in document order.
	RootTasks(ctx context.Context, scheduleID int64) ([]*models.Task, error)
	// NestedTasks returns the direct children of a task.
	NestedTasks(ctx context.Context, taskID int64) ([]*models.Task, error)
	// TaskOutputs returns the products the task builds.
	TaskOutputs(ctx context.Context, taskID int64) ([]int64, error)
	// TaskInputs returns the products the task consumes or removes.
	TaskInputs(ctx context.Context, taskID int64) ([]int64, error)
}
