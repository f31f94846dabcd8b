package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/jengzang/bim4d-backend-go/internal/models"
)

// Order selects when a task is visited relative to its children
type Order int

const (
	// PreOrder visits a task before its nested tasks
	PreOrder Order = iota
	// PostOrder visits nested tasks first
	PostOrder
)

// SkipChildren can be returned from a PreOrder visit to prune the subtree
var SkipChildren = errors.New("skip children")

// Visit is called once per reachable (task, parent) edge. parent is nil for roots.
type Visit func(task *models.Task, parent *models.Task, depth int) error

// Walk traverses the nesting tree of a schedule depth-first. A task nested
// under several parents is visited once per parent; cycles are cut at the
// first repeated ancestor.
func Walk(ctx context.Context, src Source, scheduleID int64, order Order, fn Visit) error {
	roots, err := src.RootTasks(ctx, scheduleID)
	if err != nil {
		return fmt.Errorf("failed to load root tasks: %w", err)
	}
	onPath := make(map[int64]bool)
	for _, root := range roots {
		if err := walk(ctx, src, root, nil, 0, order, onPath, fn); err != nil {
			return err
		}
	}
	return nil
}

func walk(ctx context.Context, src Source, task, parent *models.Task, depth int, order Order, onPath map[int64]bool, fn Visit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if onPath[task.ID] {
		return nil
	}
	onPath[task.ID] = true
	defer delete(onPath, task.ID)

	if order == PreOrder {
		if err := fn(task, parent, depth); err != nil {
			if errors.Is(err, SkipChildren) {
				return nil
			}
			return err
		}
	}

	children, err := src.NestedTasks(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("failed to load nested tasks of %d: %w", task.ID, err)
	}
	for _, child := range children {
		if err := walk(ctx, src, child, task, depth+1, order, onPath, fn); err != nil {
			return err
		}
	}

	if order == PostOrder {
		return fn(task, parent, depth)
	}
	return nil
}

// CollectTasks returns every task reachable from the schedule roots, each once,
// in pre-order.
func CollectTasks(ctx context.Context, src Source, scheduleID int64) ([]*models.Task, error) {
	seen := make(map[int64]bool)
	var tasks []*models.Task
	err := Walk(ctx, src, scheduleID, PreOrder, func(t *models.Task, _ *models.Task, _ int) error {
		if !seen[t.ID] {
			seen[t.ID] = true
			tasks = append(tasks, t)
		}
		return nil
	})
	return tasks, err
}
