package cache

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/jengzang/bim4d-backend-go/internal/models"
)

// columns stores dated tasks as parallel arrays of unix nanoseconds
type columns struct {
	ids      []int64
	starts   []int64
	finishes []int64
	rels     []Relations
}

// FrameState is the classification of one animation frame
type FrameState struct {
	Frame   int                  `json:"frame"`
	Date    time.Time            `json:"date"`
	Buckets *models.StateBuckets `json:"-"`
}

func (c *SequenceCache) columns(ctx context.Context, scheduleID int64, src models.DateSource) (*columns, bool) {
	return load(ctx, c, "task_columns", key("task_columns", scheduleID, src), func(ctx context.Context) (*columns, int, error) {
		dates, ok := c.ScheduleDates(ctx, scheduleID, src)
		if !ok {
			return nil, 0, ErrUnavailable
		}
		rels, ok := c.TaskRelations(ctx, scheduleID)
		if !ok {
			return nil, 0, ErrUnavailable
		}
		n := len(dates.Tasks)
		cols := &columns{
			ids:      make([]int64, n),
			starts:   make([]int64, n),
			finishes: make([]int64, n),
			rels:     make([]Relations, n),
		}
		for i, t := range dates.Tasks {
			cols.ids[i] = t.TaskID
			cols.starts[i] = t.Start.UnixNano()
			cols.finishes[i] = t.Finish.UnixNano()
			cols.rels[i] = rels[t.TaskID]
		}
		return cols, n, nil
	})
}

const (
	phaseSkip uint8 = iota
	phasePending
	phaseActive
	phaseDone
)

var phaseNames = [...]models.TaskPhase{
	phasePending: models.PhasePending,
	phaseActive:  models.PhaseActive,
	phaseDone:    models.PhaseDone,
}

// classify fills out with one phase per column, working mask by mask over
// the whole arrays.
func (cols *columns) classify(date int64, window models.Window, out []uint8) {
	n := len(cols.ids)
	for i := 0; i < n; i++ {
		out[i] = phasePending
	}
	if window.Finish != nil {
		vf := window.Finish.UnixNano()
		for i, s := range cols.starts {
			if s > vf {
				out[i] = phaseSkip
			}
		}
	}
	if window.Start != nil {
		vs := window.Start.UnixNano()
		for i, f := range cols.finishes {
			if out[i] != phaseSkip && f < vs {
				out[i] = phaseDone
			}
		}
	}
	for i, s := range cols.starts {
		if out[i] == phasePending && date >= s {
			out[i] = phaseActive
		}
	}
	for i, f := range cols.finishes {
		if out[i] == phaseActive && date > f {
			out[i] = phaseDone
		}
	}
}

func (cols *columns) expand(phases []uint8) *models.StateBuckets {
	b := models.NewStateBuckets()
	for i, p := range phases {
		if p == phaseSkip {
			continue
		}
		b.Assign(cols.ids[i], phaseNames[p], cols.rels[i].Outputs, cols.rels[i].Inputs)
	}
	return b
}

// TaskStates classifies every dated task at date in bulk and expands the
// result to product buckets. It is not cached; the columns it reads are.
func (c *SequenceCache) TaskStates(ctx context.Context, scheduleID int64, date time.Time, src models.DateSource, window models.Window) (*models.StateBuckets, bool) {
	began := time.Now()
	cols, ok := c.columns(ctx, scheduleID, src)
	if !ok {
		return nil, false
	}
	phases := make([]uint8, len(cols.ids))
	cols.classify(date.UnixNano(), window, phases)
	b := cols.expand(phases)
	c.record("vectorized_task_states", time.Since(began), len(phases))
	return b, true
}

// FrameStates precomputes the buckets of every frame in [startFrame, endFrame],
// mapping frames linearly onto [startDate, endDate].
func (c *SequenceCache) FrameStates(ctx context.Context, scheduleID int64, startFrame, endFrame int, startDate, endDate time.Time, src models.DateSource) (map[int]*FrameState, bool) {
	if endFrame < startFrame {
		return nil, false
	}
	k := key("frame_states", scheduleID, src, startFrame, endFrame, startDate.UnixNano(), endDate.UnixNano())
	return load(ctx, c, "vectorized_frame_processing", k, func(ctx context.Context) (map[int]*FrameState, int, error) {
		cols, ok := c.columns(ctx, scheduleID, src)
		if !ok {
			return nil, 0, ErrUnavailable
		}
		count := endFrame - startFrame + 1
		dates := frameDates(startFrame, endFrame, startDate, endDate)
		out := make(map[int]*FrameState, count)
		phases := make([]uint8, len(cols.ids))
		for i, d := range dates {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
			cols.classify(d.UnixNano(), models.Window{}, phases)
			f := startFrame + i
			out[f] = &FrameState{Frame: f, Date: d, Buckets: cols.expand(phases)}
		}
		return out, count * len(cols.ids), nil
	})
}

// frameDates returns the date of every frame in [startFrame, endFrame]
func frameDates(startFrame, endFrame int, startDate, endDate time.Time) []time.Time {
	count := endFrame - startFrame + 1
	progress := make([]float64, count)
	if count == 1 {
		progress[0] = 0
	} else {
		floats.Span(progress, 0, 1)
	}
	return interpolate(progress, startDate, endDate)
}

func interpolate(progress []float64, start, end time.Time) []time.Time {
	offsets := make([]float64, len(progress))
	floats.ScaleTo(offsets, float64(end.Sub(start)), progress)
	out := make([]time.Time, len(offsets))
	for i, ns := range offsets {
		out[i] = start.Add(time.Duration(math.Round(ns)))
	}
	return out
}

// DateInterpolation maps progress values in [0,1] onto the schedule's date
// range for src in one array pass
func (c *SequenceCache) DateInterpolation(ctx context.Context, scheduleID int64, progress []float64, src models.DateSource) ([]time.Time, bool) {
	dates, ok := c.ScheduleDates(ctx, scheduleID, src)
	if !ok || dates.Start == nil || dates.Finish == nil {
		return nil, false
	}
	began := time.Now()
	out := interpolate(progress, *dates.Start, *dates.Finish)
	c.record("date_interpolation", time.Since(began), len(progress))
	return out, true
}
