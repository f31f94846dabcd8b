package cache

import (
	"context"
	"time"

	"github.com/jengzang/bim4d-backend-go/internal/models"
	"github.com/jengzang/bim4d-backend-go/internal/schedule"
)

// TaskDates is one task with both dates resolved for a source
type TaskDates struct {
	TaskID int64     `json:"task_id"`
	Start  time.Time `json:"start"`
	Finish time.Time `json:"finish"`
}

// ScheduleDates lists dated tasks and the overall range.
// Start and Finish are nil when no task is dated.
type ScheduleDates struct {
	Tasks     []TaskDates `json:"tasks"`
	Start     *time.Time  `json:"start,omitempty"`
	Finish    *time.Time  `json:"finish,omitempty"`
	TaskCount int         `json:"task_count"`
}

// Relations holds the products a task builds and removes
type Relations struct {
	Outputs []int64 `json:"outputs"`
	Inputs  []int64 `json:"inputs"`
}

// Hierarchy is the nesting tree of a schedule. A task with several parents
// keeps the last one seen.
type Hierarchy struct {
	Parents  map[int64]int64   `json:"parents"`
	Children map[int64][]int64 `json:"children"`
	Roots    []int64           `json:"roots"`
	Levels   map[int64]int     `json:"levels"`
}

// ScheduleDates returns every task of the schedule that has both dates
// for src, with the overall min start and max finish.
func (c *SequenceCache) ScheduleDates(ctx context.Context, scheduleID int64, src models.DateSource) (*ScheduleDates, bool) {
	return load(ctx, c, "schedule_dates", key("schedule_dates", scheduleID, src), func(ctx context.Context) (*ScheduleDates, int, error) {
		tasks, err := schedule.CollectTasks(ctx, c.src, scheduleID)
		if err != nil {
			return nil, 0, err
		}
		out := &ScheduleDates{Tasks: make([]TaskDates, 0, len(tasks))}
		for _, t := range tasks {
			start, finish, err := schedule.Dates(ctx, c.src, t, src)
			if err != nil {
				return nil, 0, err
			}
			if start == nil || finish == nil {
				continue
			}
			out.Tasks = append(out.Tasks, TaskDates{TaskID: t.ID, Start: *start, Finish: *finish})
			if out.Start == nil || start.Before(*out.Start) {
				s := *start
				out.Start = &s
			}
			if out.Finish == nil || finish.After(*out.Finish) {
				f := *finish
				out.Finish = &f
			}
		}
		out.TaskCount = len(out.Tasks)
		return out, len(tasks), nil
	})
}

// TaskRelations returns outputs and inputs for every task in the schedule
func (c *SequenceCache) TaskRelations(ctx context.Context, scheduleID int64) (map[int64]Relations, bool) {
	return load(ctx, c, "task_relations", key("task_relations", scheduleID), func(ctx context.Context) (map[int64]Relations, int, error) {
		tasks, err := schedule.CollectTasks(ctx, c.src, scheduleID)
		if err != nil {
			return nil, 0, err
		}
		out := make(map[int64]Relations, len(tasks))
		for _, t := range tasks {
			outputs, err := c.src.TaskOutputs(ctx, t.ID)
			if err != nil {
				return nil, 0, err
			}
			inputs, err := c.src.TaskInputs(ctx, t.ID)
			if err != nil {
				return nil, 0, err
			}
			out[t.ID] = Relations{Outputs: outputs, Inputs: inputs}
		}
		return out, len(tasks), nil
	})
}

// TaskProducts maps each task to its outputs and inputs combined, without
// duplicates, outputs first
func (c *SequenceCache) TaskProducts(ctx context.Context, scheduleID int64) (map[int64][]int64, bool) {
	return load(ctx, c, "task_products", key("task_products", scheduleID), func(ctx context.Context) (map[int64][]int64, int, error) {
		rels, ok := c.TaskRelations(ctx, scheduleID)
		if !ok {
			return nil, 0, ErrUnavailable
		}
		out := make(map[int64][]int64, len(rels))
		for id, r := range rels {
			seen := make(map[int64]bool, len(r.Outputs)+len(r.Inputs))
			var ids []int64
			for _, p := range append(append([]int64(nil), r.Outputs...), r.Inputs...) {
				if !seen[p] {
					seen[p] = true
					ids = append(ids, p)
				}
			}
			out[id] = ids
		}
		return out, len(rels), nil
	})
}

// Hierarchy returns the parent/children maps, roots and depth levels
func (c *SequenceCache) Hierarchy(ctx context.Context, scheduleID int64) (*Hierarchy, bool) {
	return load(ctx, c, "task_hierarchy", key("task_hierarchy", scheduleID), func(ctx context.Context) (*Hierarchy, int, error) {
		h := &Hierarchy{
			Parents:  make(map[int64]int64),
			Children: make(map[int64][]int64),
			Levels:   make(map[int64]int),
		}
		visits := 0
		edges := make(map[[2]int64]bool)
		err := schedule.Walk(ctx, c.src, scheduleID, schedule.PreOrder, func(t, parent *models.Task, depth int) error {
			visits++
			h.Levels[t.ID] = depth
			if parent == nil {
				h.Roots = append(h.Roots, t.ID)
				return nil
			}
			h.Parents[t.ID] = parent.ID
			if e := [2]int64{parent.ID, t.ID}; !edges[e] {
				edges[e] = true
				h.Children[parent.ID] = append(h.Children[parent.ID], t.ID)
			}
			return nil
		})
		if err != nil {
			return nil, 0, err
		}
		return h, visits, nil
	})
}
