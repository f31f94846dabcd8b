package schedule

import (
	"context"
	"time"

	"github.com/jengzang/bim4d-backend-go/internal/models"
)

// DeriveStart returns the task's own start for src, or the earliest start
// among its nested tasks when it has none.
func DeriveStart(ctx context.Context, s Source, task *models.Task, src models.DateSource) (*time.Time, error) {
	return derive(ctx, s, task, src, true, map[int64]bool{})
}

// DeriveFinish returns the task's own finish for src, or the latest finish
// among its nested tasks when it has none.
func DeriveFinish(ctx context.Context, s Source, task *models.Task, src models.DateSource) (*time.Time, error) {
	return derive(ctx, s, task, src, false, map[int64]bool{})
}

// Dates derives both ends. Either may be nil.
func Dates(ctx context.Context, s Source, task *models.Task, src models.DateSource) (start, finish *time.Time, err error) {
	if start, err = DeriveStart(ctx, s, task, src); err != nil {
		return nil, nil, err
	}
	if finish, err = DeriveFinish(ctx, s, task, src); err != nil {
		return nil, nil, err
	}
	return start, finish, nil
}

func derive(ctx context.Context, s Source, task *models.Task, src models.DateSource, earliest bool, seen map[int64]bool) (*time.Time, error) {
	if tt, ok := task.Time(src); ok {
		if earliest && tt.Start != nil {
			return tt.Start, nil
		}
		if !earliest && tt.Finish != nil {
			return tt.Finish, nil
		}
	}
	if seen[task.ID] {
		return nil, nil
	}
	seen[task.ID] = true

	children, err := s.NestedTasks(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	var best *time.Time
	for _, child := range children {
		d, err := derive(ctx, s, child, src, earliest, seen)
		if err != nil {
			return nil, err
		}
		if d == nil {
			continue
		}
		if best == nil || (earliest && d.Before(*best)) || (!earliest && d.After(*best)) {
			best = d
		}
	}
	return best, nil
}

// GuessDateRange returns the earliest start and latest finish over the whole
// schedule. ok is false when no task carries both dates.
func GuessDateRange(ctx context.Context, s Source, scheduleID int64, src models.DateSource) (start, finish time.Time, ok bool, err error) {
	err = Walk(ctx, s, scheduleID, PreOrder, func(t *models.Task, _ *models.Task, _ int) error {
		st, fn, err := Dates(ctx, s, t, src)
		if err != nil {
			return err
		}
		if st == nil || fn == nil {
			return nil
		}
		if !ok || st.Before(start) {
			start = *st
		}
		if !ok || fn.After(finish) {
			finish = *fn
		}
		ok = true
		return nil
	})
	return start, finish, ok, err
}
